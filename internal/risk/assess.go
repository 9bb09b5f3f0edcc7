package risk

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidInput is returned when a classifier output is not a usable
// binary probability distribution.
var ErrInvalidInput = errors.New("invalid classifier output")

const probabilityTolerance = 1e-6

// Label is the binary risk verdict.
type Label string

const (
	LowRisk  Label = "LOW"
	HighRisk Label = "HIGH"
)

// Display is the text shown to the clinician.
func (l Label) Display() string {
	if l == HighRisk {
		return "High Risk of Disease"
	}
	return "Low Risk of Disease"
}

// ClassifierOutput is a model's verdict for one FeatureVector.
type ClassifierOutput struct {
	PredictedClass int       `json:"predictedClass"`
	Probabilities  []float64 `json:"probabilities"`
}

// RiskAssessment is the final result rendered to the caller.
type RiskAssessment struct {
	Label             Label    `json:"label"`
	ConfidencePercent float64  `json:"confidencePercent"`
	Recommendations   []string `json:"recommendations"`
}

// Rule contributes at most one recommendation.
type Rule struct {
	ID      string
	Advice  string
	Applies func(FeatureVector) bool
}

const fallbackAdvice = "Keep up the healthy habits; maintain regular checkups."

var ruleDB = []Rule{
	{ID: "smoking", Advice: "Quit smoking or seek cessation support.", Applies: func(v FeatureVector) bool { return v.Smoking == 1 }},
	{ID: "inactivity", Advice: "Aim for ≥30 minutes of moderate exercise daily.", Applies: func(v FeatureVector) bool { return v.PhysicalActivity == 0 }},
	{ID: "bmi", Advice: "Work towards a healthy BMI with balanced diet.", Applies: func(v FeatureVector) bool { return v.BMI >= 25 }},
	{ID: "blood_pressure", Advice: "Monitor BP; reduce salt and manage stress.", Applies: func(v FeatureVector) bool { return v.BloodPressure >= 130 }},
	{ID: "sugar", Advice: "Limit refined sugar; check fasting glucose regularly.", Applies: func(v FeatureVector) bool { return v.SugarLevel >= 140 }},
}

// Rules returns the recommendation rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(ruleDB))
	copy(out, ruleDB)
	return out
}

// FallbackAdvice is returned when no rule fires.
func FallbackAdvice() string {
	return fallbackAdvice
}

// Assess turns a feature vector and the classifier's output into a
// RiskAssessment. Recommendations are derived from the raw vitals only; the
// predicted label never gates them.
func Assess(v FeatureVector, out ClassifierOutput) (RiskAssessment, error) {
	maxProb, err := checkDistribution(out)
	if err != nil {
		return RiskAssessment{}, err
	}

	label := LowRisk
	if out.PredictedClass == 1 {
		label = HighRisk
	}

	return RiskAssessment{
		Label:             label,
		ConfidencePercent: confidencePercent(maxProb),
		Recommendations:   Recommend(v),
	}, nil
}

// Recommend evaluates every rule in order against v.
func Recommend(v FeatureVector) []string {
	tips := []string{}
	for _, rule := range ruleDB {
		if rule.Applies(v) {
			tips = append(tips, rule.Advice)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, fallbackAdvice)
	}
	return tips
}

func checkDistribution(out ClassifierOutput) (float64, error) {
	if out.PredictedClass != 0 && out.PredictedClass != 1 {
		return 0, fmt.Errorf("%w: predicted class %d is not binary", ErrInvalidInput, out.PredictedClass)
	}
	if len(out.Probabilities) != 2 {
		return 0, fmt.Errorf("%w: expected 2 class probabilities, got %d", ErrInvalidInput, len(out.Probabilities))
	}

	sum, maxProb := 0.0, 0.0
	for i, p := range out.Probabilities {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return 0, fmt.Errorf("%w: probability[%d]=%v outside [0,1]", ErrInvalidInput, i, p)
		}
		sum += p
		if p > maxProb {
			maxProb = p
		}
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return 0, fmt.Errorf("%w: probabilities sum to %v", ErrInvalidInput, sum)
	}
	return maxProb, nil
}

// confidencePercent rounds p*100 to two places on the exact binary value of
// the product, so 0.81235 gives 81.23 (the product is 81.23499...).
func confidencePercent(p float64) float64 {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(p*100, 'f', 2, 64), 64)
	return rounded
}
