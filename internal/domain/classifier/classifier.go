// Package classifier holds pre-trained classification models loaded from
// JSON artifacts. Models are immutable once decoded and safe for concurrent
// use.
package classifier

import (
	"github.com/pkg/errors"
)

// Supported artifact kinds.
const (
	KindLogisticRegression = "logistic_regression"
	KindDecisionTree       = "decision_tree"
	KindRandomForest       = "random_forest"
)

// Sentinel errors.
var (
	ErrUnknownKind  = errors.New("unknown model kind")
	ErrInvalidModel = errors.New("invalid model artifact")
	ErrDimension    = errors.New("feature vector length does not match model")
)

// Classifier predicts a class label for a single feature vector.
type Classifier interface {
	// Kind names the model family, e.g. "random_forest".
	Kind() string
	// NumFeatures is the input width the model was trained on.
	NumFeatures() int
	// FeatureNames returns training column names, or nil when the artifact
	// does not record them.
	FeatureNames() []string
	Predict(x []float64) (int, error)
}

// ProbabilityEstimator additionally exposes per-class probabilities,
// ordered like Classes.
type ProbabilityEstimator interface {
	Classifier
	Classes() []int
	PredictProba(x []float64) ([]float64, error)
}

// meta carries the attributes shared by every model family.
type meta struct {
	kind      string
	nFeatures int
	names     []string
	classes   []int
}

func (m *meta) Kind() string     { return m.kind }
func (m *meta) NumFeatures() int { return m.nFeatures }

func (m *meta) FeatureNames() []string {
	if m.names == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

func (m *meta) Classes() []int { return append([]int(nil), m.classes...) }

func (m *meta) checkInput(x []float64) error {
	if len(x) != m.nFeatures {
		return errors.Wrapf(ErrDimension, "%s expects %d features, got %d", m.kind, m.nFeatures, len(x))
	}
	return nil
}

// label maps a probability vector to the class with the highest mass.
// Ties resolve to the lowest index.
func (m *meta) label(proba []float64) int {
	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}
	return m.classes[best]
}
