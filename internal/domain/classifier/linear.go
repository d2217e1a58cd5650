package classifier

import (
	"math"
)

// LogisticRegression is a linear model with a sigmoid (binary) or softmax
// (multinomial) link.
type LogisticRegression struct {
	meta
	coef      [][]float64
	intercept []float64
}

// PredictProba returns class probabilities for x.
func (m *LogisticRegression) PredictProba(x []float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}

	scores := make([]float64, len(m.coef))
	for i, w := range m.coef {
		z := m.intercept[i]
		for j, v := range x {
			z += w[j] * v
		}
		scores[i] = z
	}

	if len(scores) == 1 {
		p := sigmoid(scores[0])
		return []float64{1 - p, p}, nil
	}
	return softmax(scores), nil
}

// Predict returns the most probable class label for x.
func (m *LogisticRegression) Predict(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return m.label(proba), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		maxZ = math.Max(maxZ, v)
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
