package classifier

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/healthrisk/internal/risk"
)

func testArtifact() Artifact {
	return Artifact{
		Name:         "test",
		Features:     append([]string(nil), risk.FeatureNames...),
		Coefficients: []float64{0, 0, 0, 0, 0, 0},
	}
}

func TestLoadLogistic_ShippedModel(t *testing.T) {
	m, err := LoadLogistic(filepath.Join("..", "..", "models", "health_model.json"))
	require.NoError(t, err)
	assert.Equal(t, "rural-health-risk@1", m.Name())

	healthy := risk.FeatureVector{Age: 25, BMI: 22.5, BloodPressure: 120, SugarLevel: 100, PhysicalActivity: 1, Smoking: 0}
	out, err := m.Predict(context.Background(), healthy)
	require.NoError(t, err)
	assert.Equal(t, 0, out.PredictedClass)

	sick := risk.FeatureVector{Age: 60, BMI: 30, BloodPressure: 140, SugarLevel: 150, PhysicalActivity: 0, Smoking: 1}
	out, err = m.Predict(context.Background(), sick)
	require.NoError(t, err)
	assert.Equal(t, 1, out.PredictedClass)
	require.Len(t, out.Probabilities, 2)
	assert.InDelta(t, 1.0, out.Probabilities[0]+out.Probabilities[1], 1e-9)
}

func TestLoadLogistic_MissingFile(t *testing.T) {
	_, err := LoadLogistic(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadLogistic_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadLogistic(path)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestNewLogistic_RejectsMismatchedArtifacts(t *testing.T) {
	tests := map[string]func(*Artifact){
		"reordered features": func(a *Artifact) { a.Features[0], a.Features[1] = a.Features[1], a.Features[0] },
		"missing feature":    func(a *Artifact) { a.Features = a.Features[:5] },
		"short coefficients": func(a *Artifact) { a.Coefficients = []float64{1, 2} },
		"mean without scale": func(a *Artifact) { a.Mean = make([]float64, 6) },
		"zero scale": func(a *Artifact) {
			a.Mean = make([]float64, 6)
			a.Scale = []float64{1, 1, 0, 1, 1, 1}
		},
		"bad threshold": func(a *Artifact) { a.Threshold = ptr(1.5) },
		"nan threshold": func(a *Artifact) { a.Threshold = ptr(math.NaN()) },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			a := testArtifact()
			mutate(&a)
			_, err := NewLogistic(a)
			assert.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}

func TestLogistic_ZeroWeightsGiveEvenOdds(t *testing.T) {
	m, err := NewLogistic(testArtifact())
	require.NoError(t, err)

	out, err := m.Predict(context.Background(), risk.DefaultVector())
	require.NoError(t, err)
	assert.Equal(t, 1, out.PredictedClass, "p1 == threshold maps to the positive class")
	assert.InDelta(t, 0.5, out.Probabilities[0], 1e-12)
	assert.InDelta(t, 0.5, out.Probabilities[1], 1e-12)
}

func TestLogistic_ExplicitThresholdIsKept(t *testing.T) {
	a := testArtifact()
	a.Coefficients = []float64{0, 0, 0, 0, 0, -1}
	a.Intercept = -20
	a.Threshold = ptr(0)
	m, err := NewLogistic(a)
	require.NoError(t, err)

	out, err := m.Predict(context.Background(), risk.FeatureVector{Smoking: 1})
	require.NoError(t, err)
	assert.Less(t, out.Probabilities[1], 1e-8)
	assert.Equal(t, 1, out.PredictedClass, "threshold 0 makes every prediction positive")

	a.Threshold = ptr(1)
	a.Intercept = 20
	m, err = NewLogistic(a)
	require.NoError(t, err)
	out, err = m.Predict(context.Background(), risk.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.PredictedClass)
}

func TestLoadLogistic_ThresholdFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	body := `{"name":"t","features":["age","bmi","blood_pressure","sugar_level","physical_activity","smoking"],` +
		`"coefficients":[0,0,0,0,0,0],"intercept":0,"threshold":0}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	m, err := LoadLogistic(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.threshold)

	body = `{"name":"t","features":["age","bmi","blood_pressure","sugar_level","physical_activity","smoking"],` +
		`"coefficients":[0,0,0,0,0,0],"intercept":0}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	m, err = LoadLogistic(path)
	require.NoError(t, err)
	assert.Equal(t, defaultThreshold, m.threshold)
}

func ptr(f float64) *float64 { return &f }

func TestLogistic_Standardisation(t *testing.T) {
	a := testArtifact()
	a.Mean = []float64{50, 0, 0, 0, 0, 0}
	a.Scale = []float64{10, 1, 1, 1, 1, 1}
	a.Coefficients = []float64{1, 0, 0, 0, 0, 0}
	m, err := NewLogistic(a)
	require.NoError(t, err)

	out, err := m.Predict(context.Background(), risk.FeatureVector{Age: 70})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-2)), out.Probabilities[1], 1e-12)
	assert.Equal(t, 1, out.PredictedClass)
}

func TestLogistic_InferenceErrors(t *testing.T) {
	m, err := NewLogistic(testArtifact())
	require.NoError(t, err)

	_, err = m.predictValues([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInference)

	_, err = m.Predict(context.Background(), risk.FeatureVector{BMI: math.NaN()})
	assert.ErrorIs(t, err, ErrInference)

	_, err = m.Predict(context.Background(), risk.FeatureVector{BMI: math.Inf(1)})
	assert.ErrorIs(t, err, ErrInference)
}
