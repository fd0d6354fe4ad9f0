package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Finding is the event published for each risky cookie a scan surfaces.
type Finding struct {
	ID           string          `json:"id"`
	SiteHost     string          `json:"site_host"`
	CookieName   string          `json:"cookie_name"`
	CookieDomain string          `json:"cookie_domain"`
	Severity     models.Severity `json:"severity"`
	Score        int             `json:"score"`
	Summary      string          `json:"summary"`
	DetectedAt   time.Time       `json:"detected_at"`
}

// ScanCompletedEvent summarises one finished scan.
type ScanCompletedEvent struct {
	ScanID   string `json:"scan_id"`
	SiteHost string `json:"site_host"`
	models.SummaryStats
	Timestamp int64 `json:"timestamp"`
}

// NewFinding builds the event payload for one analysed cookie.
func NewFinding(siteHost string, analysis *models.CookieAnalysis) *Finding {
	return &Finding{
		ID:           uuid.New().String(),
		SiteHost:     siteHost,
		CookieName:   analysis.CookieName,
		CookieDomain: analysis.CookieDomain,
		Severity:     analysis.Risk.Severity,
		Score:        analysis.Risk.Score,
		Summary:      analysis.Summary,
		DetectedAt:   time.Now().UTC(),
	}
}

// Publisher publishes events to NATS
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher creates a new event bus publisher
func NewPublisher(natsURL string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("CookieGuard (Pub) connected to NATS at %s", natsURL)

	return &Publisher{
		conn: conn,
	}, nil
}

// PublishFinding publishes a finding to the "findings" topic
func (p *Publisher) PublishFinding(finding *Finding) error {
	data, err := json.Marshal(finding)
	if err != nil {
		return err
	}

	if err := p.conn.Publish("findings", data); err != nil {
		return err
	}

	log.Printf("Published finding to event bus: [%s] %s", finding.Severity, finding.CookieName)

	return nil
}

// PublishScanCompleted publishes a scan summary to the "scans.completed" topic
func (p *Publisher) PublishScanCompleted(scanID string, siteHost string, stats models.SummaryStats) error {
	if scanID == "" {
		scanID = uuid.New().String()
	}

	event := ScanCompletedEvent{
		ScanID:       scanID,
		SiteHost:     siteHost,
		SummaryStats: stats,
		Timestamp:    time.Now().Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish("scans.completed", data); err != nil {
		return err
	}

	log.Printf("Published scan summary to event bus: %s (%d cookies)", siteHost, stats.TotalCookies)

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("CookieGuard (Pub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
