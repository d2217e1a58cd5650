package service

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package.
var (
	ErrModelMissing         = errors.New("model handle is nil")
	ErrLoadModel            = errors.New("load model failed")
	ErrFeatureCountMismatch = errors.New("Feature count mismatch") //nolint:stylecheck // wire message
	ErrFeatureOrder         = errors.New("feature order differs from model")
	ErrPredict              = errors.New("prediction failed")
)

// MismatchError reports a feature vector whose width differs from what a
// model was trained on. It is a soft, per-request condition.
type MismatchError struct {
	Model    string
	Expected int
	Received int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s expects %d features, received %d", ErrFeatureCountMismatch, e.Model, e.Expected, e.Received)
}

func (e *MismatchError) Unwrap() error { return ErrFeatureCountMismatch }
