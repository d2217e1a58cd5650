package service_test

import (
	"sync/atomic"

	"github.com/okian/healthguard/internal/domain/classifier"
)

// spyModel is a classifier stub that records how often it is invoked.
type spyModel struct {
	kind      string
	nFeatures int
	names     []string
	label     int
	proba     []float64
	err       error

	predictCalls atomic.Int64
	probaCalls   atomic.Int64
	lastInput    atomic.Pointer[[]float64]
}

var _ classifier.ProbabilityEstimator = (*spyModel)(nil)

func newSpy(nFeatures, label int, proba ...float64) *spyModel {
	return &spyModel{kind: "spy", nFeatures: nFeatures, label: label, proba: proba}
}

func (m *spyModel) Kind() string           { return m.kind }
func (m *spyModel) NumFeatures() int       { return m.nFeatures }
func (m *spyModel) FeatureNames() []string { return m.names }
func (m *spyModel) Classes() []int         { return []int{0, 1} }

func (m *spyModel) Predict(x []float64) (int, error) {
	m.predictCalls.Add(1)
	in := append([]float64(nil), x...)
	m.lastInput.Store(&in)
	if m.err != nil {
		return 0, m.err
	}
	return m.label, nil
}

func (m *spyModel) PredictProba(x []float64) ([]float64, error) {
	m.probaCalls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.proba, nil
}

func (m *spyModel) calls() int64 { return m.predictCalls.Load() + m.probaCalls.Load() }
