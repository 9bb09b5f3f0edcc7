package risk

import (
	"fmt"
	"strings"
)

// FeatureNames is the column order the classifier was trained on.
var FeatureNames = []string{"age", "bmi", "blood_pressure", "sugar_level", "physical_activity", "smoking"}

// FeatureVector holds one patient's vitals and habits.
type FeatureVector struct {
	Age              int     `json:"age"`
	BMI              float64 `json:"bmi"`
	BloodPressure    int     `json:"bloodPressure"`
	SugarLevel       int     `json:"sugarLevel"`
	PhysicalActivity int     `json:"physicalActivity"`
	Smoking          int     `json:"smoking"`
}

// Field describes one input of the patient form. Name is the training column,
// Key the JSON key clients send and receive.
type Field struct {
	Name    string  `json:"name"`
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Binary  bool    `json:"binary,omitempty"`
}

// Fields lists the form inputs in training order.
var Fields = []Field{
	{Name: "age", Key: "age", Label: "age", Min: 0, Max: 100, Default: 25},
	{Name: "bmi", Key: "bmi", Label: "BMI", Min: 10.0, Max: 50.0, Default: 22.5},
	{Name: "blood_pressure", Key: "bloodPressure", Label: "blood pressure", Min: 50, Max: 200, Default: 120},
	{Name: "sugar_level", Key: "sugarLevel", Label: "sugar level", Min: 50, Max: 400, Default: 100},
	{Name: "physical_activity", Key: "physicalActivity", Label: "physical activity", Min: 0, Max: 1, Default: 1, Binary: true},
	{Name: "smoking", Key: "smoking", Label: "smoking", Min: 0, Max: 1, Default: 0, Binary: true},
}

// DefaultVector returns the vector pre-filled on an empty form.
func DefaultVector() FeatureVector {
	return FeatureVector{
		Age:              int(Fields[0].Default),
		BMI:              Fields[1].Default,
		BloodPressure:    int(Fields[2].Default),
		SugarLevel:       int(Fields[3].Default),
		PhysicalActivity: int(Fields[4].Default),
		Smoking:          int(Fields[5].Default),
	}
}

// Values returns the vector in FeatureNames order.
func (v FeatureVector) Values() []float64 {
	return []float64{
		float64(v.Age),
		v.BMI,
		float64(v.BloodPressure),
		float64(v.SugarLevel),
		float64(v.PhysicalActivity),
		float64(v.Smoking),
	}
}

// FieldError reports a single out-of-range input. Field is the request's JSON key.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every FieldError found by Validate.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field against its declared range. The engine itself
// never calls it; range enforcement belongs to whoever collects the input.
func (v FeatureVector) Validate() error {
	var errs ValidationErrors
	for i, value := range v.Values() {
		f := Fields[i]
		if value >= f.Min && value <= f.Max {
			continue
		}
		msg := fmt.Sprintf("%s must be between %s and %s", f.Label, formatBound(f.Min), formatBound(f.Max))
		if f.Binary {
			msg = fmt.Sprintf("%s must be 0 or 1", f.Label)
		}
		errs = append(errs, FieldError{Field: f.Key, Message: msg})
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func formatBound(b float64) string {
	if b == float64(int64(b)) {
		return fmt.Sprintf("%d", int64(b))
	}
	return fmt.Sprintf("%.1f", b)
}
