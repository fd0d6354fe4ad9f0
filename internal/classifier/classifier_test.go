package classifier_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiscihub/cookieguard-ai/internal/classifier"
	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
)

var classifyNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func extract(cookie models.CookieRecord, siteHost string) features.Vector {
	return features.NewExtractor().Extract(cookie, nil, siteHost, classifyNow)
}

func expiryIn(days int) *float64 {
	v := float64(classifyNow.Add(time.Duration(days) * 24 * time.Hour).Unix())
	return &v
}

func TestRuleClassifier_SessionCookieName(t *testing.T) {
	f := extract(models.CookieRecord{Name: "PHPSESSID", Domain: "shop.example.com"}, "")

	cls, err := classifier.NewRuleClassifier().Classify(f)

	require.NoError(t, err)
	assert.Equal(t, models.TypeAuthentication, cls.Type)
	assert.GreaterOrEqual(t, cls.Probabilities[models.TypeAuthentication], 0.7)
	assert.Equal(t, cls.Probabilities[cls.Type], cls.Confidence)
}

func TestRuleClassifier_AnalyticsCookie(t *testing.T) {
	f := extract(models.CookieRecord{
		Name:           "_ga",
		Domain:         ".mybank.com",
		ExpirationDate: expiryIn(365),
		Value:          "GA1.2.123456789.1234567890",
	}, "mybank.com")

	cls, err := classifier.NewRuleClassifier().Classify(f)

	require.NoError(t, err)
	assert.Equal(t, models.TypeTracking, cls.Type)
	assert.Equal(t, 0.0, cls.Probabilities[models.TypeAuthentication],
		"An analytics cookie should carry no authentication probability")
}

func TestRuleClassifier_PreferenceCookie(t *testing.T) {
	f := extract(models.CookieRecord{Name: "site_theme", Domain: "example.com", Value: "dark"}, "")

	cls, err := classifier.NewRuleClassifier().Classify(f)

	require.NoError(t, err)
	assert.Equal(t, models.TypePreference, cls.Type)
}

func TestRuleClassifier_NoSignalsIsUniform(t *testing.T) {
	f := extract(models.CookieRecord{Name: "abc", Domain: "example.com"}, "")

	cls, err := classifier.NewRuleClassifier().Classify(f)

	require.NoError(t, err)
	assert.Equal(t, models.TypeOther, cls.Type)
	assert.Equal(t, 0.25, cls.Confidence)
	for _, class := range models.ClassPriority {
		assert.Equal(t, 0.25, cls.Probabilities[class])
	}
}

func TestRuleClassifier_TieBreaksByClassPriority(t *testing.T) {
	// "_ga_session" trips both the tracking prefix and the auth keyword
	// with equal points. Authentication outranks tracking.
	f := extract(models.CookieRecord{Name: "_ga_session", Domain: "example.com"}, "")

	cls, err := classifier.NewRuleClassifier().Classify(f)

	require.NoError(t, err)
	assert.Equal(t, cls.Probabilities[models.TypeAuthentication], cls.Probabilities[models.TypeTracking])
	assert.Equal(t, models.TypeAuthentication, cls.Type)
}

func TestRuleClassifier_ProbabilitiesSumToOne(t *testing.T) {
	cookies := []models.CookieRecord{
		{Name: "PHPSESSID", Domain: "a.com"},
		{Name: "_ga", Domain: "b.com"},
		{Name: "random", Domain: "c.com"},
		{Name: "auth_token", Domain: "d.com", Value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.c2ln"},
	}
	for _, cookie := range cookies {
		cls, err := classifier.NewRuleClassifier().Classify(extract(cookie, ""))
		require.NoError(t, err)

		sum := 0.0
		for _, class := range models.ClassPriority {
			sum += cls.Probabilities[class]
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "cookie %s", cookie.Name)
	}
}

// testArtifact mirrors the JSON layout of an exported model.
type testArtifact struct {
	SchemaVersion string      `json:"schema_version"`
	Algorithm     string      `json:"algorithm"`
	Classes       []string    `json:"classes"`
	FeatureNames  []string    `json:"feature_names"`
	Scaler        testScaler  `json:"scaler"`
	Weights       [][]float64 `json:"weights"`
	Intercepts    []float64   `json:"intercepts"`
}

type testScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func baseArtifact() testArtifact {
	names := features.FeatureNames()
	n := len(names)

	classes := make([]string, len(models.ClassPriority))
	weights := make([][]float64, len(models.ClassPriority))
	for i, class := range models.ClassPriority {
		classes[i] = string(class)
		weights[i] = make([]float64, n)
	}

	mean := make([]float64, n)
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}

	return testArtifact{
		SchemaVersion: features.SchemaVersion,
		Algorithm:     "logistic_regression",
		Classes:       classes,
		FeatureNames:  names,
		Scaler:        testScaler{Mean: mean, Scale: scale},
		Weights:       weights,
		Intercepts:    make([]float64, len(models.ClassPriority)),
	}
}

func featureIndex(t *testing.T, name string) int {
	t.Helper()
	for i, n := range features.FeatureNames() {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown feature %s", name)
	return -1
}

func writeArtifact(t *testing.T, artifact testArtifact) string {
	t.Helper()
	raw, err := json.Marshal(artifact)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestLoadModel_ClassifiesWithArtifactWeights(t *testing.T) {
	artifact := baseArtifact()
	artifact.Weights[0][featureIndex(t, "name_matches_auth")] = 2.0

	mc, err := classifier.LoadModel(writeArtifact(t, artifact))
	require.NoError(t, err)
	assert.Equal(t, "model", mc.Name())

	cls, err := mc.Classify(extract(models.CookieRecord{Name: "PHPSESSID", Domain: "a.com"}, ""))
	require.NoError(t, err)

	assert.Equal(t, models.TypeAuthentication, cls.Type)
	assert.Greater(t, cls.Probabilities[models.TypeAuthentication], 0.7)

	sum := 0.0
	for _, class := range models.ClassPriority {
		sum += cls.Probabilities[class]
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestLoadModel_MissingFile(t *testing.T) {
	_, err := classifier.LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadModel_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := classifier.LoadModel(path)
	assert.Error(t, err)
}

func TestLoadModel_RejectsSchemaMismatch(t *testing.T) {
	artifact := baseArtifact()
	artifact.SchemaVersion = "1.0"

	_, err := classifier.LoadModel(writeArtifact(t, artifact))
	assert.ErrorIs(t, err, classifier.ErrIncompatibleModel)
}

func TestLoadModel_RejectsReorderedFeatures(t *testing.T) {
	artifact := baseArtifact()
	artifact.FeatureNames[0], artifact.FeatureNames[1] = artifact.FeatureNames[1], artifact.FeatureNames[0]

	_, err := classifier.LoadModel(writeArtifact(t, artifact))
	assert.ErrorIs(t, err, classifier.ErrIncompatibleModel)
}

func TestLoadModel_RejectsBadShapes(t *testing.T) {
	short := baseArtifact()
	short.Weights[2] = short.Weights[2][:10]
	_, err := classifier.LoadModel(writeArtifact(t, short))
	assert.ErrorIs(t, err, classifier.ErrIncompatibleModel)

	intercepts := baseArtifact()
	intercepts.Intercepts = intercepts.Intercepts[:2]
	_, err = classifier.LoadModel(writeArtifact(t, intercepts))
	assert.ErrorIs(t, err, classifier.ErrIncompatibleModel)
}

func TestLoadModel_RejectsUnknownClass(t *testing.T) {
	artifact := baseArtifact()
	artifact.Classes[1] = "advertising"

	_, err := classifier.LoadModel(writeArtifact(t, artifact))
	assert.ErrorIs(t, err, classifier.ErrIncompatibleModel)
}

func TestModelClassifier_NonFiniteOutput(t *testing.T) {
	artifact := baseArtifact()
	// Two saturated weights overflow the logit for any minimal cookie,
	// since cross_site_sendable and path_is_root default to 1.
	artifact.Weights[0][featureIndex(t, "cross_site_sendable")] = 1e308
	artifact.Weights[0][featureIndex(t, "path_is_root")] = 1e308

	mc, err := classifier.LoadModel(writeArtifact(t, artifact))
	require.NoError(t, err)

	_, err = mc.Classify(extract(models.CookieRecord{Name: "abc", Domain: "a.com"}, ""))
	assert.ErrorIs(t, err, classifier.ErrNonFiniteOutput)
}

func TestModelClassifier_FillsMissingClasses(t *testing.T) {
	artifact := baseArtifact()
	n := len(features.FeatureNames())
	artifact.Classes = []string{string(models.TypeAuthentication), string(models.TypeOther)}
	artifact.Weights = [][]float64{make([]float64, n), make([]float64, n)}
	artifact.Intercepts = []float64{0, 0}

	mc, err := classifier.LoadModel(writeArtifact(t, artifact))
	require.NoError(t, err)

	cls, err := mc.Classify(extract(models.CookieRecord{Name: "abc", Domain: "a.com"}, ""))
	require.NoError(t, err)

	assert.Len(t, cls.Probabilities, 4)
	assert.Equal(t, 0.0, cls.Probabilities[models.TypeTracking])
	assert.Equal(t, 0.0, cls.Probabilities[models.TypePreference])
	assert.Equal(t, models.TypeAuthentication, cls.Type, "Equal probabilities resolve by class priority")
}

func TestLoadModelCard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_card.json")
	raw := []byte(`{
		"model_version": "2.0",
		"algorithm": "logistic_regression",
		"trained_at": "2026-07-15T09:30:00Z",
		"samples": 4800,
		"classes": ["authentication", "tracking", "preference", "other"],
		"metrics": {"accuracy": 0.94, "macro_f1": 0.91}
	}`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	card, err := classifier.LoadModelCard(path)
	require.NoError(t, err)
	assert.Equal(t, "logistic_regression", card.Algorithm)
	assert.Equal(t, 4800, card.Samples)
	assert.Equal(t, 0.94, card.Metrics["accuracy"])

	_, err = classifier.LoadModelCard(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

// The artifact shipped in models/ must stay loadable against the compiled
// feature schema, and must agree with the rules on unambiguous cookies.
func TestLoadModel_ShippedArtifact(t *testing.T) {
	mc, err := classifier.LoadModel(filepath.Join("..", "..", "models", "cookie_model.json"))
	require.NoError(t, err)

	session := extract(models.CookieRecord{
		Name:           "session_token",
		Domain:         ".mybank.com",
		ExpirationDate: expiryIn(30),
		Value:          "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJ1c2VySWQiOiIxMjM0NSJ9.SflKxwRJ",
	}, "mybank.com")
	cls, err := mc.Classify(session)
	require.NoError(t, err)
	assert.Equal(t, models.TypeAuthentication, cls.Type)

	tracker := extract(models.CookieRecord{
		Name:           "_ga",
		Domain:         ".mybank.com",
		ExpirationDate: expiryIn(365),
		Value:          "GA1.2.123456789.1234567890",
	}, "mybank.com")
	cls, err = mc.Classify(tracker)
	require.NoError(t, err)
	assert.Equal(t, models.TypeTracking, cls.Type)

	card, err := classifier.LoadModelCard(filepath.Join("..", "..", "models", "model_card.json"))
	require.NoError(t, err)
	assert.NotEmpty(t, card.ModelVersion)
	assert.Equal(t, "logistic_regression", card.Algorithm)
}
