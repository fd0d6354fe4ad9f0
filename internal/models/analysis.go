package models

// Severity levels shared by issues, overall assessments and attack paths.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// CookieType is the functional intent assigned by the classifier.
type CookieType string

const (
	TypeAuthentication CookieType = "authentication"
	TypeTracking       CookieType = "tracking"
	TypePreference     CookieType = "preference"
	TypeOther          CookieType = "other"
)

// ClassPriority is the tie-break order for equal top probabilities. An
// authentication call is never lost to a tie: a cookie that could be a
// session credential is flagged as one.
var ClassPriority = []CookieType{TypeAuthentication, TypeTracking, TypePreference, TypeOther}

// Classification is the classifier output contract shared by the
// model-backed and rule-based implementations.
type Classification struct {
	Type          CookieType             `json:"type"`
	Confidence    float64                `json:"confidence"`
	Probabilities map[CookieType]float64 `json:"probabilities"`
}

// Issue is one triggered security rule. Its severity tag is independent of
// the overall assessment severity.
type Issue struct {
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Impact      string   `json:"impact"`
}

// RiskAssessment is the scored outcome for one cookie.
type RiskAssessment struct {
	Score    int      `json:"score"`
	Severity Severity `json:"severity"`
	Issues   []Issue  `json:"issues"`
}

// Signal is one human-readable piece of evidence selected by the
// explainability engine.
type Signal struct {
	Signal    string  `json:"signal"`
	Detail    string  `json:"detail"`
	Feature   string  `json:"feature"`
	Value     float64 `json:"value"`
	Direction string  `json:"direction,omitempty"`
}

// RiskFormulaComponents are the literal numbers the risk scorer used.
// They are copied from the scorer result, never recomputed.
type RiskFormulaComponents struct {
	AuthGate       float64 `json:"auth_gate"`
	SeverityPoints int     `json:"severity_points"`
	BreadthFactor  float64 `json:"breadth_factor"`
	LifetimeFactor float64 `json:"lifetime_factor"`
	FinalScore     int     `json:"final_score"`
}

// RiskFormula is the scoring breakdown shown to the user.
type RiskFormula struct {
	Components     RiskFormulaComponents `json:"components"`
	Formula        string                `json:"formula"`
	Interpretation string                `json:"interpretation"`
}

// Explanation groups the ranked signals and the formula breakdown.
type Explanation struct {
	AuthSignals     []Signal    `json:"auth_signals"`
	TrackingSignals []Signal    `json:"tracking_signals"`
	RiskSignals     []Signal    `json:"risk_signals"`
	RiskFormula     RiskFormula `json:"risk_formula"`
}

// AttackPath is one simulated attack narrative.
type AttackPath struct {
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	Severity     Severity `json:"severity"`
	Description  string   `json:"description"`
	Technique    string   `json:"technique"`
	Precondition string   `json:"precondition"`
}

// Fix pairs a user-actionable mitigation with the Set-Cookie change the
// site operator should make.
type Fix struct {
	Fix           string `json:"fix"`
	Impact        string `json:"impact"`
	Effort        string `json:"effort"`
	Code          string `json:"code"`
	SiteShouldFix string `json:"site_should_fix,omitempty"`
}

// AttackSimulation is the full attack surface picture for one cookie.
type AttackSimulation struct {
	Paths              []AttackPath `json:"paths"`
	PathCount          int          `json:"path_count"`
	OverallRisk        string       `json:"overall_risk"`
	Impact             string       `json:"impact"`
	Fixes              []Fix        `json:"fixes"`
	AttackSurfaceScore int          `json:"attack_surface_score"`
}

// CookieAttributes echoes the analysed attributes back to the caller so
// results render without a second lookup.
type CookieAttributes struct {
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	SameSite       string   `json:"sameSite"`
	ExpirationDate *float64 `json:"expirationDate"`
	HostOnly       *bool    `json:"hostOnly"`
}

// CookieAnalysis is the complete per-cookie result.
type CookieAnalysis struct {
	CookieName       string           `json:"cookie_name"`
	CookieDomain     string           `json:"cookie_domain"`
	CookieAttributes CookieAttributes `json:"cookie_attributes"`
	Classification   Classification   `json:"ml_classification"`
	Risk             RiskAssessment   `json:"risk_assessment"`
	Explanations     Explanation      `json:"explanations"`
	AttackSimulation AttackSimulation `json:"attack_simulation"`
	Recommendations  []string         `json:"recommendations"`
	Summary          string           `json:"summary"`
}

// SummaryStats counts analysed cookies per severity tier.
type SummaryStats struct {
	TotalCookies int `json:"total_cookies"`
	Critical     int `json:"critical"`
	High         int `json:"high"`
	Medium       int `json:"medium"`
	Low          int `json:"low"`
	Info         int `json:"info"`
}

// SkippedCookie records one rejected input with a one-line reason. A
// malformed record never aborts its batch.
type SkippedCookie struct {
	Name   string `json:"name,omitempty"`
	Domain string `json:"domain,omitempty"`
	Reason string `json:"reason"`
}

// BatchResult is the ranked outcome of a batch analysis.
type BatchResult struct {
	Results      []CookieAnalysis `json:"results"`
	SummaryStats SummaryStats     `json:"summary_stats"`
	Skipped      []SkippedCookie  `json:"skipped"`
}
