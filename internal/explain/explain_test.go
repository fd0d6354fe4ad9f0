package explain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aiscihub/cookieguard-ai/internal/explain"
	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/risk"
)

var explainNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func authCls(p float64) models.Classification {
	return models.Classification{
		Type:       models.TypeAuthentication,
		Confidence: p,
		Probabilities: map[models.CookieType]float64{
			models.TypeAuthentication: p,
			models.TypeTracking:       0,
			models.TypePreference:     0,
			models.TypeOther:          1 - p,
		},
	}
}

func signalNames(signals []models.Signal) []string {
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		names = append(names, s.Signal)
	}
	return names
}

func TestExplain_AuthSignalsCappedInOrder(t *testing.T) {
	cookie := models.CookieRecord{
		Name:     "__Host-session_token",
		Domain:   "app.example.com",
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Strict",
		// 16 hex symbols twice each: even-length hex with entropy 4.0.
		Value: "00112233445566778899aabbccddeeff",
	}
	f := features.NewExtractor().Extract(cookie, nil, "app.example.com", explainNow)
	cls := authCls(0.9)
	outcome := risk.NewScorer(0.3).Score(cookie, cls, "app.example.com", explainNow)

	exp := explain.NewExplainer(0.3, 0.75).Explain(f, cls, outcome)

	assert.Len(t, exp.AuthSignals, 5, "Auth signals cap at five")
	assert.Equal(t, []string{
		"Identity keyword in name",
		"HttpOnly flag set",
		"Secure flag set",
		"Session-scoped",
		"High-entropy token",
	}, signalNames(exp.AuthSignals), "Selection follows the fixed signal order")
	for _, s := range exp.AuthSignals {
		assert.Equal(t, "positive", s.Direction)
		assert.NotEmpty(t, s.Detail)
	}
}

func TestExplain_GateClosedSuppressesAuthSignals(t *testing.T) {
	cookie := models.CookieRecord{
		Name:     "_ga",
		Domain:   ".example.com",
		SameSite: "none",
	}
	cookie.ExpirationDate = expiryDays(400)
	f := features.NewExtractor().Extract(cookie, nil, "shop.net", explainNow)
	cls := models.Classification{
		Type:       models.TypeTracking,
		Confidence: 0.9,
		Probabilities: map[models.CookieType]float64{
			models.TypeAuthentication: 0.05,
			models.TypeTracking:       0.9,
			models.TypePreference:     0,
			models.TypeOther:          0.05,
		},
	}
	outcome := risk.NewScorer(0.3).Score(cookie, cls, "shop.net", explainNow)

	exp := explain.NewExplainer(0.3, 0.75).Explain(f, cls, outcome)

	assert.Empty(t, exp.AuthSignals)
	assert.Len(t, exp.RiskSignals, 3, "Exposure signals cap at three and ignore the gate")
	assert.Equal(t, []string{
		"Sent cross-site (SameSite=None)",
		"Shared across subdomains",
		"Subdomain-shared scope",
	}, signalNames(exp.RiskSignals))
	assert.Equal(t, []string{
		"Tracking keyword in name",
		"Third-party tracker",
	}, signalNames(exp.TrackingSignals))
	assert.Equal(t, "Low authentication probability — severity checks not applied",
		exp.RiskFormula.Interpretation)
}

func TestExplain_TrackingSignalsGated(t *testing.T) {
	cookie := models.CookieRecord{Name: "sid", Domain: "app.example.com", Secure: true, HTTPOnly: true, SameSite: "Strict"}
	f := features.NewExtractor().Extract(cookie, nil, "app.example.com", explainNow)
	cls := authCls(0.9)
	outcome := risk.NewScorer(0.3).Score(cookie, cls, "app.example.com", explainNow)

	exp := explain.NewExplainer(0.3, 0.75).Explain(f, cls, outcome)

	assert.Empty(t, exp.TrackingSignals, "Auth cookies get no tracking narrative")
	assert.NotNil(t, exp.TrackingSignals, "Empty lists should encode as [] not null")
}

func TestExplain_FormulaMirrorsScorerOutcome(t *testing.T) {
	cookie := models.CookieRecord{
		Name:     "PHPSESSID",
		Domain:   ".insecure-app.com",
		SameSite: "none",
	}
	f := features.NewExtractor().Extract(cookie, nil, "", explainNow)
	cls := authCls(0.9)
	outcome := risk.NewScorer(0.3).Score(cookie, cls, "", explainNow)

	exp := explain.NewExplainer(0.3, 0.75).Explain(f, cls, outcome)

	components := exp.RiskFormula.Components
	assert.Equal(t, 0.9, components.AuthGate)
	assert.Equal(t, outcome.RawPoints, components.SeverityPoints)
	assert.Equal(t, 1.5, components.BreadthFactor)
	assert.Equal(t, 1.0, components.LifetimeFactor)
	assert.Equal(t, outcome.Assessment.Score, components.FinalScore,
		"The formula reports the scorer's result, never a recomputation")
	assert.Equal(t,
		"RiskScore = Σ(Severity Points) × Breadth × Lifetime  [gated on P(auth) > 0.3]",
		exp.RiskFormula.Formula)
	assert.Equal(t,
		"High-confidence auth cookie with critical security gaps — account takeover possible",
		exp.RiskFormula.Interpretation)
}

func TestExplain_ComponentRounding(t *testing.T) {
	cls := authCls(2.0 / 3.0)
	outcome := risk.Outcome{
		Assessment:     models.RiskAssessment{Score: 12, Severity: models.SeverityLow},
		BreadthFactor:  1.15,
		LifetimeFactor: 1.0 + 60.0/365.0,
		RawPoints:      10,
	}

	exp := explain.NewExplainer(0.3, 0.75).Explain(features.Vector{}, cls, outcome)

	assert.Equal(t, 0.667, exp.RiskFormula.Components.AuthGate)
	assert.Equal(t, 1.15, exp.RiskFormula.Components.BreadthFactor)
	assert.Equal(t, 1.16, exp.RiskFormula.Components.LifetimeFactor)
}

func TestExplain_InterpretationTiers(t *testing.T) {
	cases := []struct {
		name     string
		authProb float64
		score    int
		want     string
	}{
		{"high confidence critical", 0.9, 60, "High-confidence auth cookie with critical security gaps — account takeover possible"},
		{"high confidence significant", 0.9, 35, "High-confidence auth cookie with significant security gaps"},
		{"high confidence clean", 0.9, 10, "Auth cookie with good security posture — low risk"},
		{"high confidence mid band", 0.9, 20, "Possible auth cookie with moderate risk"},
		{"possible elevated", 0.5, 40, "Possible auth cookie with elevated risk from missing protections"},
		{"possible moderate", 0.5, 5, "Possible auth cookie with moderate risk"},
		{"gate closed", 0.2, 80, "Low authentication probability — severity checks not applied"},
		{"possible but clean", 0.5, 0, "Minimal security concerns detected"},
	}

	explainer := explain.NewExplainer(0.3, 0.75)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := authCls(tc.authProb)
			outcome := risk.Outcome{Assessment: models.RiskAssessment{Score: tc.score}}
			exp := explainer.Explain(features.Vector{}, cls, outcome)
			assert.Equal(t, tc.want, exp.RiskFormula.Interpretation)
		})
	}
}

func TestExplain_ReviewConfidenceConfigurable(t *testing.T) {
	strict := explain.NewExplainer(0.3, 0.95)
	cls := authCls(0.8)
	outcome := risk.Outcome{Assessment: models.RiskAssessment{Score: 60}}

	exp := strict.Explain(features.Vector{}, cls, outcome)

	assert.Equal(t, "Possible auth cookie with elevated risk from missing protections",
		exp.RiskFormula.Interpretation,
		"0.8 confidence is below a 0.95 review cutoff")
}

func expiryDays(days int) *float64 {
	v := float64(explainNow.Add(time.Duration(days) * 24 * time.Hour).Unix())
	return &v
}
