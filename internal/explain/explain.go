// Package explain builds the human-readable rationale for each analysed
// cookie: which features drove the classification, which widen exposure,
// and how the risk score decomposes. It formats and selects only; every
// number it reports comes from the extractor or the risk scorer.
package explain

import (
	"fmt"
	"math"

	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/risk"
)

// DefaultReviewConfidence is the authentication probability above which
// interpretations call a cookie high-confidence.
const DefaultReviewConfidence = 0.75

const (
	maxAuthSignals     = 5
	maxRiskSignals     = 3
	maxTrackingSignals = 3
)

type signalDef struct {
	feature string
	signal  string
	detail  string
}

var authSignalDefs = []signalDef{
	{"name_matches_auth", "Identity keyword in name", "Cookie name matches authentication patterns (session, auth, token, etc.)"},
	{"f_changed_during_login", "Changed during login", "Cookie value changed when user logged in — strong authentication signal"},
	{"f_new_after_login", "Appeared after login", "Cookie was created during the login process"},
	{"f_rotated_after_login", "Rotated after login", "Cookie value was rotated at login — typical of session tokens"},
	{"has_httponly", "HttpOnly flag set", "Server restricted JavaScript access — common for auth cookies"},
	{"has_secure", "Secure flag set", "Cookie requires HTTPS — standard for sensitive tokens"},
	{"is_session_cookie", "Session-scoped", "Cookie expires when browser closes — typical for session tokens"},
	{"value_looks_like_jwt", "JWT token pattern", "Value matches JSON Web Token structure (header.payload.signature)"},
	{"value_entropy_bucket", "High-entropy token", "Cookie value has high randomness — characteristic of cryptographic tokens"},
	{"value_looks_like_hex", "Hex token value", "Value is hexadecimal — common for session identifiers"},
	{"value_length_bucket", "Long token value", "Cookie value length suggests a security token"},
	{"has_host_prefix", "__Host- prefix", "Uses secure __Host- prefix — locked to specific origin"},
	{"has_secure_prefix", "__Secure- prefix", "Uses __Secure- prefix — requires HTTPS"},
	{"f_login_behavior_score", "Strong login correlation", "Multiple login-related behavior signals detected"},
}

var riskSignalDefs = []signalDef{
	{"cross_site_sendable", "Sent cross-site (SameSite=None)", "Cookie is sent with cross-origin requests, enabling CSRF attacks"},
	{"domain_is_wildcard", "Shared across subdomains", "Wildcard domain scope — any subdomain can access this cookie"},
	{"f_subdomain_shared", "Subdomain-shared scope", "Cookie accessible to multiple subdomains — broader attack surface"},
	{"f_third_party_context", "Third-party context", "Cookie set by or shared with a different domain"},
	{"exposure_score", "High exposure score", "Combined domain scope and lifetime create elevated exposure"},
	{"f_persistent_days_bucket", "Long-lived cookie", "Extended lifetime increases window for replay attacks"},
}

var trackingSignalDefs = []signalDef{
	{"name_matches_tracking", "Tracking keyword in name", "Name matches known analytics/tracking patterns (_ga, fbp, etc.)"},
	{"f_third_party_context", "Third-party tracker", "Cookie is set by an external domain — typical of ad/analytics trackers"},
}

// Explainer selects active signals and narrates the risk formula.
type Explainer struct {
	gate             float64
	reviewConfidence float64
}

// NewExplainer mirrors the scorer's gate and adds the review-confidence
// cutoff used by interpretations. Non-positive inputs fall back to the
// defaults.
func NewExplainer(gateThreshold, reviewConfidence float64) *Explainer {
	if gateThreshold <= 0 {
		gateThreshold = risk.DefaultGateThreshold
	}
	if reviewConfidence <= 0 {
		reviewConfidence = DefaultReviewConfidence
	}
	return &Explainer{gate: gateThreshold, reviewConfidence: reviewConfidence}
}

// Explain assembles the explanation payload for one scored cookie. Auth
// signals only appear for likely-auth cookies, tracking signals for
// likely trackers, and exposure signals always.
func (e *Explainer) Explain(f features.Vector, cls models.Classification, outcome risk.Outcome) models.Explanation {
	authProb := cls.Probabilities[models.TypeAuthentication]

	authSignals := []models.Signal{}
	if cls.Type == models.TypeAuthentication || authProb > e.gate {
		for _, def := range authSignalDefs {
			value := f.Get(def.feature)
			if !isActive(def.feature, value) {
				continue
			}
			authSignals = append(authSignals, models.Signal{
				Signal:    def.signal,
				Detail:    def.detail,
				Feature:   def.feature,
				Value:     value,
				Direction: "positive",
			})
		}
	}

	riskSignals := []models.Signal{}
	for _, def := range riskSignalDefs {
		value := f.Get(def.feature)
		if !isActive(def.feature, value) {
			continue
		}
		riskSignals = append(riskSignals, models.Signal{
			Signal:  def.signal,
			Detail:  def.detail,
			Feature: def.feature,
			Value:   value,
		})
	}

	trackingSignals := []models.Signal{}
	if cls.Type == models.TypeTracking || cls.Probabilities[models.TypeTracking] > e.gate {
		for _, def := range trackingSignalDefs {
			value := f.Get(def.feature)
			if !isActive(def.feature, value) {
				continue
			}
			trackingSignals = append(trackingSignals, models.Signal{
				Signal:  def.signal,
				Detail:  def.detail,
				Feature: def.feature,
				Value:   value,
			})
		}
	}

	formula := models.RiskFormula{
		Components: models.RiskFormulaComponents{
			AuthGate:       roundTo(authProb, 3),
			SeverityPoints: outcome.RawPoints,
			BreadthFactor:  roundTo(outcome.BreadthFactor, 2),
			LifetimeFactor: roundTo(outcome.LifetimeFactor, 2),
			FinalScore:     outcome.Assessment.Score,
		},
		Formula:        fmt.Sprintf("RiskScore = Σ(Severity Points) × Breadth × Lifetime  [gated on P(auth) > %g]", e.gate),
		Interpretation: e.interpretRisk(authProb, outcome.Assessment.Score),
	}

	return models.Explanation{
		AuthSignals:     authSignals[:min(len(authSignals), maxAuthSignals)],
		RiskSignals:     riskSignals[:min(len(riskSignals), maxRiskSignals)],
		TrackingSignals: trackingSignals[:min(len(trackingSignals), maxTrackingSignals)],
		RiskFormula:     formula,
	}
}

func (e *Explainer) interpretRisk(authProb float64, score int) string {
	switch {
	case authProb > e.reviewConfidence && score >= 50:
		return "High-confidence auth cookie with critical security gaps — account takeover possible"
	case authProb > e.reviewConfidence && score >= 30:
		return "High-confidence auth cookie with significant security gaps"
	case authProb > e.reviewConfidence && score < 15:
		return "Auth cookie with good security posture — low risk"
	case authProb > e.gate && score >= 30:
		return "Possible auth cookie with elevated risk from missing protections"
	case authProb > e.gate && score > 0:
		return "Possible auth cookie with moderate risk"
	case authProb <= e.gate:
		return "Low authentication probability — severity checks not applied"
	}
	return "Minimal security concerns detected"
}

// isActive decides whether a feature value is strong enough to surface.
// Buckets and composite scores use higher cutoffs than plain booleans.
func isActive(feature string, value float64) bool {
	switch feature {
	case "value_entropy_bucket", "value_length_bucket":
		return value >= 2
	case "exposure_score":
		return value > 1.5
	case "f_persistent_days_bucket":
		return value >= 3
	case "f_login_behavior_score":
		return value >= 2
	}
	return value > 0
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
