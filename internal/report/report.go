// Package report renders analysis results as the plain-text security
// report offered for download.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
)

var divider = strings.Repeat("=", 70)

// Generate builds the report text. A zero generatedAt renders as N/A.
func Generate(results []models.CookieAnalysis, stats models.SummaryStats, generatedAt time.Time) string {
	timestamp := "N/A"
	if !generatedAt.IsZero() {
		timestamp = generatedAt.Format(time.RFC3339)
	}

	lines := []string{
		divider,
		"COOKIEGUARD AI - SECURITY REPORT",
		fmt.Sprintf("Generated: %s", timestamp),
		divider,
		"",
		fmt.Sprintf("SUMMARY: Analyzed %d cookies", stats.TotalCookies),
		fmt.Sprintf("  Critical: %d", stats.Critical),
		fmt.Sprintf("  High:     %d", stats.High),
		fmt.Sprintf("  Medium:   %d", stats.Medium),
		fmt.Sprintf("  Low:      %d", stats.Low),
		"",
		divider,
		"DETAILED FINDINGS",
		divider,
		"",
	}

	for i, result := range results {
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, result.CookieName, result.CookieDomain))
		lines = append(lines, fmt.Sprintf("   Type: %s (confidence: %.0f%%)",
			result.Classification.Type, result.Classification.Confidence*100))
		lines = append(lines, fmt.Sprintf("   Severity: %s", strings.ToUpper(string(result.Risk.Severity))))
		lines = append(lines, "")

		for _, issue := range result.Risk.Issues {
			lines = append(lines, fmt.Sprintf("   [%s] %s", strings.ToUpper(string(issue.Severity)), issue.Title))
			lines = append(lines, fmt.Sprintf("   %s", issue.Description))
			lines = append(lines, "")
		}

		lines = append(lines, "")
	}

	lines = append(lines,
		divider,
		"This report was generated by CookieGuard AI",
		"An AI-powered tool for detecting cookie security risks",
		divider,
	)

	return strings.Join(lines, "\n")
}
