package classifier

import (
	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
)

// ruleSignal awards points toward one class when a feature reaches its
// minimum value.
type ruleSignal struct {
	class   models.CookieType
	feature string
	min     float64
	points  int
}

// ruleSignals encodes the same evidence the model was trained on. Name
// matches carry the most weight, with value shape and login behaviour
// backing them up.
var ruleSignals = []ruleSignal{
	{models.TypeAuthentication, "name_matches_auth", 1, 6},
	{models.TypeAuthentication, "value_looks_like_jwt", 1, 4},
	{models.TypeAuthentication, "f_changed_during_login", 1, 3},
	{models.TypeAuthentication, "f_rotated_after_login", 1, 3},
	{models.TypeAuthentication, "f_new_after_login", 1, 2},
	{models.TypeAuthentication, "has_host_prefix", 1, 2},
	{models.TypeAuthentication, "value_entropy_bucket", 2, 2},
	{models.TypeAuthentication, "has_secure_prefix", 1, 1},
	{models.TypeAuthentication, "value_looks_like_hex", 1, 1},
	{models.TypeAuthentication, "value_length_bucket", 2, 1},

	{models.TypeTracking, "name_matches_tracking", 1, 6},
	{models.TypeTracking, "f_third_party_context", 1, 3},
	{models.TypeTracking, "lifetime_category", 3, 1},

	{models.TypePreference, "name_matches_preference", 1, 6},
}

// RuleClassifier scores cookies with a fixed point table. It is fully
// deterministic and never fails, which makes it the fallback of last
// resort for the pipeline.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Name() string {
	return "rules"
}

// Classify normalises the points each class collected into a probability
// distribution. A cookie that trips no signal at all gets the uniform
// distribution and is labelled "other".
func (c *RuleClassifier) Classify(f features.Vector) (models.Classification, error) {
	points := make(map[models.CookieType]int, len(models.ClassPriority))
	total := 0
	for _, s := range ruleSignals {
		if f.Get(s.feature) >= s.min {
			points[s.class] += s.points
			total += s.points
		}
	}

	probs := make(map[models.CookieType]float64, len(models.ClassPriority))
	if total == 0 {
		for _, class := range models.ClassPriority {
			probs[class] = 0.25
		}
		return models.Classification{
			Type:          models.TypeOther,
			Confidence:    0.25,
			Probabilities: probs,
		}, nil
	}

	best := models.TypeOther
	bestPoints := -1
	for _, class := range models.ClassPriority {
		probs[class] = float64(points[class]) / float64(total)
		if points[class] > bestPoints {
			best = class
			bestPoints = points[class]
		}
	}
	return models.Classification{
		Type:          best,
		Confidence:    probs[best],
		Probabilities: probs,
	}, nil
}
