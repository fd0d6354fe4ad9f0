package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
)

var (
	// ErrIncompatibleModel means the artifact does not line up with the
	// compiled-in feature schema and must not be used for scoring.
	ErrIncompatibleModel = errors.New("classifier: model artifact incompatible with feature schema")

	// ErrNonFiniteOutput means the model produced NaN or Inf for a cookie
	// and the caller should fall back to the rule classifier.
	ErrNonFiniteOutput = errors.New("classifier: non-finite model output")
)

type scalerSpec struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type modelArtifact struct {
	SchemaVersion string      `json:"schema_version"`
	Algorithm     string      `json:"algorithm"`
	Classes       []string    `json:"classes"`
	FeatureNames  []string    `json:"feature_names"`
	Scaler        scalerSpec  `json:"scaler"`
	Weights       [][]float64 `json:"weights"`
	Intercepts    []float64   `json:"intercepts"`
}

// ModelClassifier scores cookies with a linear model trained offline and
// exported as a JSON artifact. Inputs are standardised with the scaler
// captured at training time, then pushed through a softmax over the
// artifact's class order.
type ModelClassifier struct {
	classes      []models.CookieType
	featureNames []string
	mean         []float64
	scale        []float64
	weights      [][]float64
	intercepts   []float64
}

// LoadModel reads a model artifact from disk and validates it against the
// compiled-in feature schema. Any mismatch in schema version, feature
// names or matrix shapes rejects the artifact outright.
func LoadModel(path string) (*ModelClassifier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model artifact: %w", err)
	}
	var artifact modelArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("classifier: parse model artifact: %w", err)
	}

	if artifact.SchemaVersion != features.SchemaVersion {
		return nil, fmt.Errorf("%w: artifact schema %q, want %q", ErrIncompatibleModel, artifact.SchemaVersion, features.SchemaVersion)
	}
	names := features.FeatureNames()
	if len(artifact.FeatureNames) != len(names) {
		return nil, fmt.Errorf("%w: %d features, want %d", ErrIncompatibleModel, len(artifact.FeatureNames), len(names))
	}
	for i, name := range names {
		if artifact.FeatureNames[i] != name {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrIncompatibleModel, i, artifact.FeatureNames[i], name)
		}
	}
	if len(artifact.Classes) == 0 {
		return nil, fmt.Errorf("%w: artifact lists no classes", ErrIncompatibleModel)
	}
	classes := make([]models.CookieType, len(artifact.Classes))
	for i, label := range artifact.Classes {
		class, ok := parseClass(label)
		if !ok {
			return nil, fmt.Errorf("%w: unknown class %q", ErrIncompatibleModel, label)
		}
		classes[i] = class
	}
	if len(artifact.Weights) != len(classes) {
		return nil, fmt.Errorf("%w: %d weight rows for %d classes", ErrIncompatibleModel, len(artifact.Weights), len(classes))
	}
	if len(artifact.Intercepts) != len(classes) {
		return nil, fmt.Errorf("%w: %d intercepts for %d classes", ErrIncompatibleModel, len(artifact.Intercepts), len(classes))
	}
	for i, row := range artifact.Weights {
		if len(row) != len(names) {
			return nil, fmt.Errorf("%w: weight row %d has %d columns, want %d", ErrIncompatibleModel, i, len(row), len(names))
		}
	}
	if len(artifact.Scaler.Mean) != len(names) || len(artifact.Scaler.Scale) != len(names) {
		return nil, fmt.Errorf("%w: scaler sized %d/%d, want %d", ErrIncompatibleModel, len(artifact.Scaler.Mean), len(artifact.Scaler.Scale), len(names))
	}

	return &ModelClassifier{
		classes:      classes,
		featureNames: artifact.FeatureNames,
		mean:         artifact.Scaler.Mean,
		scale:        artifact.Scaler.Scale,
		weights:      artifact.Weights,
		intercepts:   artifact.Intercepts,
	}, nil
}

func (c *ModelClassifier) Name() string {
	return "model"
}

// Classify standardises the feature vector, computes per-class logits and
// softmaxes them into probabilities. Classes missing from the artifact
// report probability zero so callers can always look up all four types.
func (c *ModelClassifier) Classify(f features.Vector) (models.Classification, error) {
	x := f.Ordered(c.featureNames)

	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = v - c.mean[i]
		if c.scale[i] != 0 {
			z[i] /= c.scale[i]
		}
	}

	logits := make([]float64, len(c.classes))
	for k := range c.classes {
		sum := c.intercepts[k]
		row := c.weights[k]
		for i, zi := range z {
			sum += row[i] * zi
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return models.Classification{}, ErrNonFiniteOutput
		}
		logits[k] = sum
	}

	// Shift by the max logit before exponentiating to keep the softmax
	// numerically stable.
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	exps := make([]float64, len(logits))
	total := 0.0
	for k, l := range logits {
		exps[k] = math.Exp(l - maxLogit)
		total += exps[k]
	}

	probs := make(map[models.CookieType]float64, len(models.ClassPriority))
	for k, class := range c.classes {
		p := exps[k] / total
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return models.Classification{}, ErrNonFiniteOutput
		}
		probs[class] = p
	}
	for _, class := range models.ClassPriority {
		if _, ok := probs[class]; !ok {
			probs[class] = 0
		}
	}

	best := argmax(probs)
	return models.Classification{
		Type:          best,
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}

func parseClass(label string) (models.CookieType, bool) {
	switch class := models.CookieType(label); class {
	case models.TypeAuthentication, models.TypeTracking, models.TypePreference, models.TypeOther:
		return class, true
	}
	return "", false
}

// ModelCard summarises the offline training run that produced the model
// artifact. It is surfaced for operator visibility and never used for
// scoring.
type ModelCard struct {
	ModelVersion string             `json:"model_version"`
	Algorithm    string             `json:"algorithm"`
	TrainedAt    string             `json:"trained_at"`
	Samples      int                `json:"samples"`
	Classes      []string           `json:"classes"`
	Metrics      map[string]float64 `json:"metrics"`
}

// LoadModelCard reads the training summary that ships next to the model
// artifact.
func LoadModelCard(path string) (*ModelCard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model card: %w", err)
	}
	var card ModelCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("classifier: parse model card: %w", err)
	}
	return &card, nil
}
