package report_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/report"
	"github.com/stretchr/testify/assert"
)

func TestGenerate_FullReport(t *testing.T) {
	results := []models.CookieAnalysis{
		{
			CookieName:   "session_token",
			CookieDomain: ".mybank.com",
			Classification: models.Classification{
				Type:       models.TypeAuthentication,
				Confidence: 0.92,
			},
			Risk: models.RiskAssessment{
				Score:    138,
				Severity: models.SeverityCritical,
				Issues: []models.Issue{
					{
						Severity:    models.SeverityCritical,
						Title:       "Missing HttpOnly Flag",
						Description: "Cookie accessible via JavaScript - vulnerable to XSS attacks that can steal session tokens",
					},
					{
						Severity:    models.SeverityHigh,
						Title:       "Missing SameSite Protection",
						Description: "Cookie sent with cross-site requests - vulnerable to CSRF attacks",
					},
				},
			},
		},
		{
			CookieName:   "_ga",
			CookieDomain: ".mybank.com",
			Classification: models.Classification{
				Type:       models.TypeTracking,
				Confidence: 1.0,
			},
			Risk: models.RiskAssessment{
				Severity: models.SeverityInfo,
			},
		},
	}

	stats := models.SummaryStats{TotalCookies: 2, Critical: 1, Info: 1}
	generatedAt := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	text := report.Generate(results, stats, generatedAt)

	assert.True(t, strings.HasPrefix(text, strings.Repeat("=", 70)+"\n"))
	assert.True(t, strings.HasSuffix(text, strings.Repeat("=", 70)))

	assert.Contains(t, text, "COOKIEGUARD AI - SECURITY REPORT")
	assert.Contains(t, text, "Generated: 2026-08-25T10:30:00Z")
	assert.Contains(t, text, "SUMMARY: Analyzed 2 cookies")
	assert.Contains(t, text, "  Critical: 1")
	assert.Contains(t, text, "  High:     0")
	assert.Contains(t, text, "DETAILED FINDINGS")

	assert.Contains(t, text, "1. session_token (.mybank.com)")
	assert.Contains(t, text, "   Type: authentication (confidence: 92%)")
	assert.Contains(t, text, "   Severity: CRITICAL")
	assert.Contains(t, text, "   [CRITICAL] Missing HttpOnly Flag")
	assert.Contains(t, text, "   Cookie accessible via JavaScript - vulnerable to XSS attacks that can steal session tokens")
	assert.Contains(t, text, "   [HIGH] Missing SameSite Protection")

	assert.Contains(t, text, "2. _ga (.mybank.com)")
	assert.Contains(t, text, "   Type: tracking (confidence: 100%)")
	assert.Contains(t, text, "   Severity: INFO")

	assert.Contains(t, text, "This report was generated by CookieGuard AI")
	assert.Contains(t, text, "An AI-powered tool for detecting cookie security risks")
}

func TestGenerate_EmptyResults(t *testing.T) {
	text := report.Generate(nil, models.SummaryStats{}, time.Time{})

	divider := strings.Repeat("=", 70)
	expected := strings.Join([]string{
		divider,
		"COOKIEGUARD AI - SECURITY REPORT",
		"Generated: N/A",
		divider,
		"",
		"SUMMARY: Analyzed 0 cookies",
		"  Critical: 0",
		"  High:     0",
		"  Medium:   0",
		"  Low:      0",
		"",
		divider,
		"DETAILED FINDINGS",
		divider,
		"",
		divider,
		"This report was generated by CookieGuard AI",
		"An AI-powered tool for detecting cookie security risks",
		divider,
	}, "\n")

	assert.Equal(t, expected, text)
}
