package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Error types reported in FieldError.Type.
const (
	TypeMissing      = "missing"
	TypeJSONInvalid  = "json_invalid"
	TypeObjectType   = "model_attributes_type"
	TypeFloatType    = "float_type"
	TypeFloatParsing = "float_parsing"
	TypeIntType      = "int_type"
	TypeIntParsing   = "int_parsing"
	TypeIntFromFloat = "int_from_float"
	TypeFiniteNumber = "finite_number"
)

const (
	locBody          = "body"
	msgFieldRequired = "Field required"
	msgObjectType    = "Input should be a valid dictionary or object to extract fields from"
	msgJSONInvalid   = "JSON decode error"
	msgFloatType     = "Input should be a valid number"
	msgFloatParsing  = "Input should be a valid number, unable to parse string as a number"
	msgIntType       = "Input should be a valid integer"
	msgIntParsing    = "Input should be a valid integer, unable to parse string as an integer"
	msgIntFromFloat  = "Input should be a valid integer, got a number with a fractional part"
	msgFiniteNumber  = "Input should be a finite number"
)

// ErrValidation is the kind matched by every *ValidationError.
var ErrValidation = errors.New("request validation failed")

// FieldError describes one problem with one input location.
type FieldError struct {
	Type  string         `json:"type"`
	Loc   []any          `json:"loc"`
	Msg   string         `json:"msg"`
	Input any            `json:"input"`
	Ctx   map[string]any `json:"ctx,omitempty"`
}

// ValidationError collects every FieldError found in a payload.
type ValidationError struct {
	Schema string
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%v: %s", fe.Loc, fe.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Schema, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks that body is a JSON object carrying every field of the
// schema with an acceptable value and returns the feature vector in schema
// order. Unknown keys are ignored. All problems are reported at once.
func (s Schema) Validate(body []byte) ([]float64, error) {
	obj, ferr := decodeObject(body)
	if ferr != nil {
		return nil, &ValidationError{Schema: s.Name, Errors: []FieldError{*ferr}}
	}

	vec := make([]float64, len(s.Fields))
	var errs []FieldError
	for i, f := range s.Fields {
		raw, ok := obj[f.Name]
		if !ok {
			errs = append(errs, FieldError{
				Type:  TypeMissing,
				Loc:   []any{locBody, f.Name},
				Msg:   msgFieldRequired,
				Input: obj,
			})
			continue
		}
		v, fe := coerce(f, raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		vec[i] = v
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Schema: s.Name, Errors: errs}
	}
	return vec, nil
}

func decodeObject(body []byte) (map[string]any, *FieldError) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &FieldError{Type: TypeMissing, Loc: []any{locBody}, Msg: msgFieldRequired}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, jsonInvalid(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, jsonInvalid(errors.New("trailing data after JSON value"))
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &FieldError{Type: TypeObjectType, Loc: []any{locBody}, Msg: msgObjectType, Input: v}
	}
	return obj, nil
}

func jsonInvalid(err error) *FieldError {
	return &FieldError{
		Type:  TypeJSONInvalid,
		Loc:   []any{locBody},
		Msg:   msgJSONInvalid,
		Input: map[string]any{},
		Ctx:   map[string]any{"error": err.Error()},
	}
}

// coerce converts a decoded JSON value into a float64 for f, accepting
// numbers, numeric strings and booleans.
func coerce(f Field, raw any) (float64, *FieldError) {
	fail := func(typ, msg string) *FieldError {
		return &FieldError{Type: typ, Loc: []any{locBody, f.Name}, Msg: msg, Input: raw}
	}
	typeErr := func() *FieldError {
		if f.Kind == Integer {
			return fail(TypeIntType, msgIntType)
		}
		return fail(TypeFloatType, msgFloatType)
	}

	var (
		v   float64
		err error
	)
	switch t := raw.(type) {
	case json.Number:
		v, err = cast.ToFloat64E(t.String())
		if err != nil {
			return 0, typeErr()
		}
	case string:
		v, err = cast.ToFloat64E(strings.TrimSpace(t))
		if err != nil {
			if f.Kind == Integer {
				return 0, fail(TypeIntParsing, msgIntParsing)
			}
			return 0, fail(TypeFloatParsing, msgFloatParsing)
		}
	case bool:
		v = cast.ToFloat64(t)
	default:
		// null, arrays and objects
		return 0, typeErr()
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fail(TypeFiniteNumber, msgFiniteNumber)
	}
	if f.Kind == Integer && v != math.Trunc(v) {
		return 0, fail(TypeIntFromFloat, msgIntFromFloat)
	}
	return v, nil
}
