// Package classifier assigns a functional class to browser cookies from
// their extracted feature vectors. Two implementations are provided: a
// linear model loaded from a JSON artifact trained offline, and a
// deterministic rule classifier that needs no artifact and serves as the
// fallback when the model is missing or misbehaves.
package classifier

import (
	"math"

	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
)

// Classifier produces a class probability distribution for one cookie.
type Classifier interface {
	Name() string
	Classify(f features.Vector) (models.Classification, error)
}

// argmax returns the class with the highest probability. Ties resolve in
// ClassPriority order so equal distributions never flip between runs.
func argmax(probs map[models.CookieType]float64) models.CookieType {
	best := models.TypeOther
	bestProb := math.Inf(-1)
	for _, class := range models.ClassPriority {
		if probs[class] > bestProb {
			best = class
			bestProb = probs[class]
		}
	}
	return best
}
