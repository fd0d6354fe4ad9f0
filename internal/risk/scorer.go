// Package risk turns a classified cookie into an additive risk score with
// plain-language findings. Severity rules only run for cookies whose
// authentication probability clears the gate, so tracking and preference
// cookies never drown out real session-token findings.
package risk

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/models"
)

// DefaultGateThreshold is the authentication probability a cookie must
// exceed before severity rules apply.
const DefaultGateThreshold = 0.3

const hostPrefix = "__Host-"

// Outcome carries the assessment plus the intermediate factors the
// explanation layer reports alongside it.
type Outcome struct {
	Assessment      models.RiskAssessment
	Recommendations []string
	Summary         string
	GateOpen        bool
	RawPoints       int
	BreadthFactor   float64
	LifetimeFactor  float64
}

// Scorer scores cookies as roundedToInt(points × breadth × lifetime),
// where points accumulate from missing protections and scope problems,
// breadth widens with domain scope and lifetime widens with expiry.
type Scorer struct {
	gate float64
}

// NewScorer returns a scorer gated at the given authentication
// probability. Non-positive thresholds fall back to the default.
func NewScorer(gateThreshold float64) *Scorer {
	if gateThreshold <= 0 {
		gateThreshold = DefaultGateThreshold
	}
	return &Scorer{gate: gateThreshold}
}

// GateThreshold reports the configured gate.
func (s *Scorer) GateThreshold() float64 {
	return s.gate
}

// Score evaluates one classified cookie. The caller supplies the scanned
// site host (may be empty) and the reference time used for lifetime
// checks.
func (s *Scorer) Score(cookie models.CookieRecord, cls models.Classification, siteHost string, now time.Time) Outcome {
	out := Outcome{
		Assessment: models.RiskAssessment{
			Severity: models.SeverityInfo,
			Issues:   []models.Issue{},
		},
		Recommendations: []string{},
		BreadthFactor:   1.0,
		LifetimeFactor:  1.0,
	}

	if cls.Probabilities[models.TypeAuthentication] <= s.gate {
		out.Summary = summarize(cookie.Name, cls, 0, models.SeverityInfo)
		return out
	}
	out.GateOpen = true

	issues := []models.Issue{}
	recommendations := []string{}
	points := 0

	// Missing protections accumulate independently.
	if !cookie.HTTPOnly {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityCritical,
			Title:       "Missing HttpOnly Flag",
			Description: "Cookie accessible via JavaScript - vulnerable to XSS attacks that can steal session tokens",
			Impact:      "Account takeover via cross-site scripting (XSS)",
		})
		points += 40
		recommendations = append(recommendations, "Set HttpOnly flag to prevent JavaScript access")
	}
	if !cookie.Secure {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityHigh,
			Title:       "Missing Secure Flag",
			Description: "Cookie sent over HTTP - vulnerable to network interception",
			Impact:      "Session token exposure on unsecured connections",
		})
		points += 25
		recommendations = append(recommendations, "Set Secure flag to require HTTPS")
	}
	if cookie.CrossSiteSendable() {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityHigh,
			Title:       "Missing SameSite Protection",
			Description: "Cookie sent with cross-site requests - vulnerable to CSRF attacks",
			Impact:      "Unauthorized actions via cross-site request forgery",
		})
		points += 20
		recommendations = append(recommendations, "Set SameSite=Lax or Strict to prevent CSRF")
	}

	// Exactly one scope branch decides the breadth factor.
	breadth := 1.0
	scopeIssue := false
	switch {
	case cookie.WildcardDomain():
		issues = append(issues, models.Issue{
			Severity:    models.SeverityMedium,
			Title:       "Wildcard Domain - Subdomain Takeover Risk",
			Description: fmt.Sprintf("Cookie accessible to all subdomains of %s. If attacker controls ANY subdomain, they can steal this cookie.", cookie.BareDomain()),
			Impact:      "Session hijacking via compromised subdomain",
		})
		points += 15
		recommendations = append(recommendations, "Limit domain scope to a specific host (avoid leading dot)")
		scopeIssue = true
		breadth = 1.5

	case strings.HasPrefix(cookie.Name, hostPrefix):
		// The prefix contract requires host-only. Only flag a violation
		// when the collector reported hostOnly explicitly.
		switch {
		case cookie.HostOnly != nil && !*cookie.HostOnly:
			issues = append(issues, models.Issue{
				Severity:    models.SeverityHigh,
				Title:       "__Host- prefix requires host-only cookie",
				Description: "__Host- cookies must NOT set Domain (hostOnly must be true).",
				Impact:      "Prefix contract violated; increases cookie scope",
			})
			points += 20
			recommendations = append(recommendations, "Remove Domain attribute (ensure hostOnly=true) for __Host- cookies")
			scopeIssue = true
			breadth = 1.3
		case cookie.HostOnly == nil:
			issues = append(issues, models.Issue{
				Severity:    models.SeverityInfo,
				Title:       "__Host- compliance not verifiable",
				Description: "Cookie name uses __Host- prefix, but hostOnly flag was not provided by the collector. Include hostOnly to verify compliance.",
				Impact:      "Unable to assess prefix requirements",
			})
		}

	case cookie.HostOnly != nil && !*cookie.HostOnly &&
		cookie.Domain != "localhost" && cookie.Domain != "127.0.0.1":
		// A Domain attribute equal to the scanned host is no broader than
		// the current site.
		if siteHost == "" || cookie.Domain != siteHost {
			issues = append(issues, models.Issue{
				Severity:    models.SeverityLow,
				Title:       "Non-host-only Domain Scope",
				Description: fmt.Sprintf("Cookie appears to be set with a Domain attribute (%s). This can be intentional, but is broader than host-only.", cookie.Domain),
				Impact:      "Potential cross-subdomain cookie access",
			})
			points += 6
			recommendations = append(recommendations, "Use host-only cookies when cross-subdomain sharing isn't required")
			scopeIssue = true
			breadth = 1.15
		}

	case strings.Contains(strings.ToLower(cookie.Name), "shared") ||
		strings.Contains(strings.ToLower(cookie.Name), "global"):
		issues = append(issues, models.Issue{
			Severity:    models.SeverityLow,
			Title:       "Shared Cookie Naming",
			Description: "Cookie name suggests it may be shared across subdomains.",
			Impact:      "Slightly increased attack surface",
		})
		points += 4
		scopeIssue = true
		breadth = 1.05
	}

	if cookie.EffectivePath() == "/" && scopeIssue && !strings.HasPrefix(cookie.Name, hostPrefix) {
		issues = append(issues, models.Issue{
			Severity:    models.SeverityLow,
			Title:       "Broad Path Scope",
			Description: "Cookie accessible to all paths on domain. Consider limiting to specific paths like /api or /app.",
			Impact:      "Increased exposure surface",
		})
		points += 5
		recommendations = append(recommendations, "Limit path scope if possible (e.g., /api instead of /)")
	}

	lifetime := 1.0
	if !cookie.IsSession() {
		days := cookie.DaysUntilExpiry(now)
		switch {
		case days > 30:
			issues = append(issues, models.Issue{
				Severity:    models.SeverityMedium,
				Title:       "Long-Lived Session Cookie",
				Description: fmt.Sprintf("Cookie expires in %d days. Extended lifetime increases window for session replay attacks.", days),
				Impact:      "Extended exposure window for stolen tokens",
			})
			points += 10
			recommendations = append(recommendations, "Use shorter expiration time for session cookies")
		case days > 7:
			issues = append(issues, models.Issue{
				Severity:    models.SeverityLow,
				Title:       "Moderate Session Lifetime",
				Description: fmt.Sprintf("Cookie expires in %d days. Consider shorter lifetime for sensitive sessions.", days),
				Impact:      "Moderate exposure window",
			})
			points += 5
			recommendations = append(recommendations, "Consider shorter session lifetime")
		case days >= 3:
			issues = append(issues, models.Issue{
				Severity:    models.SeverityLow,
				Title:       "Multi-Day Session",
				Description: fmt.Sprintf("Cookie expires in %d days", days),
				Impact:      "Extended session window",
			})
			points += 3
		}
		lifetime = 1.0 + math.Min(float64(days)/365.0, 1.0)
	}

	final := int(math.Round(float64(points) * breadth * lifetime))
	severity := severityTier(final)

	out.Assessment = models.RiskAssessment{
		Score:    final,
		Severity: severity,
		Issues:   issues,
	}
	out.Recommendations = recommendations
	out.Summary = summarize(cookie.Name, cls, len(issues), severity)
	out.RawPoints = points
	out.BreadthFactor = breadth
	out.LifetimeFactor = lifetime
	return out
}

func severityTier(score int) models.Severity {
	switch {
	case score >= 50:
		return models.SeverityCritical
	case score >= 30:
		return models.SeverityHigh
	case score >= 15:
		return models.SeverityMedium
	case score > 0:
		return models.SeverityLow
	}
	return models.SeverityInfo
}

var typeDescriptions = map[models.CookieType]string{
	models.TypeAuthentication: "keeps you logged in",
	models.TypeTracking:       "tracks activity",
	models.TypePreference:     "stores preferences",
	models.TypeOther:          "serves functional purpose",
}

var severityDescriptions = map[models.Severity]string{
	models.SeverityCritical: "CRITICAL - account takeover possible",
	models.SeverityHigh:     "HIGH RISK - significant exposure",
	models.SeverityMedium:   "MEDIUM RISK - some concerns",
	models.SeverityLow:      "LOW RISK - minor improvements possible",
	models.SeverityInfo:     "No significant concerns",
}

func summarize(name string, cls models.Classification, issueCount int, severity models.Severity) string {
	if issueCount > 0 {
		return fmt.Sprintf("Cookie '%s' likely %s (AI: %.0f%%). %s. Found %d issue(s).",
			name, typeDescriptions[cls.Type], cls.Confidence*100, severityDescriptions[severity], issueCount)
	}
	return fmt.Sprintf("Cookie '%s' %s. %s.", name, typeDescriptions[cls.Type], severityDescriptions[severity])
}
