// Package classifier wraps externally trained binary risk models behind a
// typed Predict call.
package classifier

import (
	"context"
	"errors"

	"github.com/Skufu/healthrisk/internal/risk"
)

var (
	// ErrModelUnavailable means the model artifact or backend could not be
	// loaded or reached.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrInference means the model rejected the feature vector.
	ErrInference = errors.New("inference error")
)

// Classifier predicts a risk class and per-class probabilities for one
// feature vector.
type Classifier interface {
	Predict(ctx context.Context, v risk.FeatureVector) (risk.ClassifierOutput, error)
}

func sameFeatures(got []string) bool {
	if len(got) != len(risk.FeatureNames) {
		return false
	}
	for i, name := range risk.FeatureNames {
		if got[i] != name {
			return false
		}
	}
	return true
}
