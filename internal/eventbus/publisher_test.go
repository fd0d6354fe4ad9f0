package eventbus_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/eventbus"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/nats-io/nats.go"
)

func setupNATS(t *testing.T) (*eventbus.Publisher, *nats.Conn) {
	t.Helper()

	// Plain connection without retry so an absent server skips fast.
	conn, err := nats.Connect(nats.DefaultURL)
	if err != nil {
		t.Skip("NATS not available, skipping test")
	}

	pub, err := eventbus.NewPublisher(nats.DefaultURL)
	if err != nil {
		conn.Close()
		t.Fatalf("Failed to create publisher: %v", err)
	}

	return pub, conn
}

func sampleAnalysis() *models.CookieAnalysis {
	return &models.CookieAnalysis{
		CookieName:   "session_token",
		CookieDomain: ".mybank.com",
		Risk: models.RiskAssessment{
			Score:    72,
			Severity: models.SeverityCritical,
		},
		Summary: "Cookie 'session_token' likely keeps you logged in",
	}
}

func TestNewFinding_PopulatesFromAnalysis(t *testing.T) {
	finding := eventbus.NewFinding("mybank.com", sampleAnalysis())

	if finding.ID == "" {
		t.Errorf("Expected generated finding ID")
	}
	if finding.SiteHost != "mybank.com" {
		t.Errorf("Expected site host mybank.com, got %s", finding.SiteHost)
	}
	if finding.CookieName != "session_token" {
		t.Errorf("Expected cookie name session_token, got %s", finding.CookieName)
	}
	if finding.Severity != models.SeverityCritical {
		t.Errorf("Expected severity critical, got %s", finding.Severity)
	}
	if finding.Score != 72 {
		t.Errorf("Expected score 72, got %d", finding.Score)
	}
	if finding.DetectedAt.IsZero() {
		t.Errorf("Expected DetectedAt to be set")
	}
}

func TestPublishFinding_RoundTrip(t *testing.T) {
	pub, conn := setupNATS(t)
	defer pub.Close()
	defer conn.Close()

	sub, err := conn.SubscribeSync("findings")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	// Make sure the server has the subscription before publishing on
	// the other connection.
	if err := conn.Flush(); err != nil {
		t.Fatalf("Failed to flush NATS: %v", err)
	}

	finding := eventbus.NewFinding("mybank.com", sampleAnalysis())
	if err := pub.PublishFinding(finding); err != nil {
		t.Fatalf("Failed to publish finding: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("Failed to receive finding: %v", err)
	}

	var received eventbus.Finding
	if err := json.Unmarshal(msg.Data, &received); err != nil {
		t.Fatalf("Failed to unmarshal finding: %v", err)
	}

	if received.ID != finding.ID {
		t.Errorf("Expected finding ID %s, got %s", finding.ID, received.ID)
	}
	if received.CookieName != "session_token" {
		t.Errorf("Expected cookie name session_token, got %s", received.CookieName)
	}
	if received.Severity != models.SeverityCritical {
		t.Errorf("Expected severity critical, got %s", received.Severity)
	}
}

func TestPublishScanCompleted_RoundTrip(t *testing.T) {
	pub, conn := setupNATS(t)
	defer pub.Close()
	defer conn.Close()

	sub, err := conn.SubscribeSync("scans.completed")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if err := conn.Flush(); err != nil {
		t.Fatalf("Failed to flush NATS: %v", err)
	}

	stats := models.SummaryStats{
		TotalCookies: 5,
		Critical:     1,
		High:         1,
		Info:         3,
	}

	if err := pub.PublishScanCompleted("scan-001", "mybank.com", stats); err != nil {
		t.Fatalf("Failed to publish scan summary: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("Failed to receive scan summary: %v", err)
	}

	var received eventbus.ScanCompletedEvent
	if err := json.Unmarshal(msg.Data, &received); err != nil {
		t.Fatalf("Failed to unmarshal scan summary: %v", err)
	}

	if received.ScanID != "scan-001" {
		t.Errorf("Expected scan ID scan-001, got %s", received.ScanID)
	}
	if received.SiteHost != "mybank.com" {
		t.Errorf("Expected site host mybank.com, got %s", received.SiteHost)
	}
	if received.TotalCookies != 5 {
		t.Errorf("Expected 5 total cookies, got %d", received.TotalCookies)
	}
	if received.Timestamp == 0 {
		t.Errorf("Expected timestamp to be set")
	}
}
