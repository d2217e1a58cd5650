// Package schema names the ordered input fields each model was trained on
// and validates inbound JSON payloads against them.
package schema

// Kind is the primitive type a field accepts.
type Kind int

const (
	// Number accepts any finite numeric value.
	Number Kind = iota
	// Integer accepts numeric values without a fractional part.
	Integer
)

func (k Kind) String() string {
	if k == Integer {
		return "integer"
	}
	return "number"
}

// Field is one named input column.
type Field struct {
	Name string
	Kind Kind
}

// Schema is a fixed, ordered record of required fields. The order is the
// column order of the model's training data and is used verbatim when
// assembling feature vectors.
type Schema struct {
	Name   string
	Fields []Field
}

// Len returns the number of features the schema produces.
func (s Schema) Len() int { return len(s.Fields) }

// Names returns field names in vector order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Diabetes is the input record of the diabetes risk model.
var Diabetes = Schema{
	Name: "diabetes",
	Fields: []Field{
		{Name: "age", Kind: Number},
		{Name: "hypertension", Kind: Integer},
		{Name: "heart_disease", Kind: Integer},
		{Name: "bmi", Kind: Number},
		{Name: "HbA1c_level", Kind: Number},
		{Name: "blood_glucose_level", Kind: Number},
		{Name: "gender_Male", Kind: Integer},
		{Name: "gender_Other", Kind: Integer},
		{Name: "smoking_history_current", Kind: Integer},
		{Name: "smoking_history_ever", Kind: Integer},
		{Name: "smoking_history_never", Kind: Integer},
		{Name: "smoking_history_not_current", Kind: Integer},
		{Name: "is_smoker_Smoker", Kind: Integer},
	},
}

// Heart is the input record of the heart-disease model.
var Heart = Schema{
	Name: "heart",
	Fields: []Field{
		{Name: "Age", Kind: Integer},
		{Name: "Sex", Kind: Integer},
		{Name: "ChestPainType", Kind: Integer},
		{Name: "RestingBP", Kind: Integer},
		{Name: "Cholesterol", Kind: Integer},
		{Name: "FastingBS", Kind: Integer},
		{Name: "RestingECG", Kind: Integer},
		{Name: "MaxHR", Kind: Integer},
		{Name: "ExerciseAngina", Kind: Integer},
		{Name: "Oldpeak", Kind: Number},
		{Name: "ST_Slope", Kind: Integer},
	},
}
