package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/Skufu/healthrisk/internal/risk"
)

const defaultThreshold = 0.5

// Artifact is the serialised form of a trained logistic regression model.
// Mean and Scale are optional standardisation parameters applied before the
// coefficients. A missing Threshold means 0.5; an explicit 0 is kept and makes
// every prediction positive.
type Artifact struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Features     []string  `json:"features"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Threshold    *float64  `json:"threshold,omitempty"`
}

// Logistic is an in-process Classifier backed by an Artifact.
type Logistic struct {
	artifact  Artifact
	threshold float64
}

// LoadLogistic reads and validates the artifact at path.
func LoadLogistic(path string) (*Logistic, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelUnavailable, path, err)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelUnavailable, path, err)
	}

	return NewLogistic(a)
}

// NewLogistic validates a and returns a ready model.
func NewLogistic(a Artifact) (*Logistic, error) {
	if !sameFeatures(a.Features) {
		return nil, fmt.Errorf("%w: artifact features %v do not match %v", ErrModelUnavailable, a.Features, risk.FeatureNames)
	}
	n := len(risk.FeatureNames)
	if len(a.Coefficients) != n {
		return nil, fmt.Errorf("%w: expected %d coefficients, got %d", ErrModelUnavailable, n, len(a.Coefficients))
	}
	if (a.Mean == nil) != (a.Scale == nil) {
		return nil, fmt.Errorf("%w: mean and scale must be set together", ErrModelUnavailable)
	}
	if a.Mean != nil {
		if len(a.Mean) != n || len(a.Scale) != n {
			return nil, fmt.Errorf("%w: scaler expects %d features", ErrModelUnavailable, n)
		}
		for i, s := range a.Scale {
			if s == 0 {
				return nil, fmt.Errorf("%w: zero scale for %s", ErrModelUnavailable, a.Features[i])
			}
		}
	}
	threshold := defaultThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v outside [0,1]", ErrModelUnavailable, threshold)
	}

	return &Logistic{artifact: a, threshold: threshold}, nil
}

// Name identifies the loaded model.
func (m *Logistic) Name() string {
	if m.artifact.Version == "" {
		return m.artifact.Name
	}
	return m.artifact.Name + "@" + m.artifact.Version
}

func (m *Logistic) Predict(_ context.Context, v risk.FeatureVector) (risk.ClassifierOutput, error) {
	return m.predictValues(v.Values())
}

func (m *Logistic) predictValues(x []float64) (risk.ClassifierOutput, error) {
	a := m.artifact
	if len(x) != len(a.Coefficients) {
		return risk.ClassifierOutput{}, fmt.Errorf("%w: expected %d features, got %d", ErrInference, len(a.Coefficients), len(x))
	}

	z := a.Intercept
	for i, value := range x {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return risk.ClassifierOutput{}, fmt.Errorf("%w: %s is not a finite number", ErrInference, a.Features[i])
		}
		if a.Mean != nil {
			value = (value - a.Mean[i]) / a.Scale[i]
		}
		z += a.Coefficients[i] * value
	}

	p1 := 1 / (1 + math.Exp(-z))
	class := 0
	if p1 >= m.threshold {
		class = 1
	}

	return risk.ClassifierOutput{
		PredictedClass: class,
		Probabilities:  []float64{1 - p1, p1},
	}, nil
}
