package classifier

// Node is one node of a binary decision tree. Samples with
// x[Feature] <= Threshold go Left. Leaves have Left == -1 and carry the
// per-class weights in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

const leafChild = -1

func (n Node) isLeaf() bool { return n.Left == leafChild }

// tree is a validated node table with normalised leaf distributions.
type tree struct {
	nodes []Node
}

func (t *tree) proba(x []float64) []float64 {
	idx := 0
	for {
		n := t.nodes[idx]
		if n.isLeaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

// DecisionTree is a single CART classification tree.
type DecisionTree struct {
	meta
	tree tree
}

// PredictProba returns the class distribution of the leaf reached by x.
func (m *DecisionTree) PredictProba(x []float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	return append([]float64(nil), m.tree.proba(x)...), nil
}

// Predict returns the majority class of the leaf reached by x.
func (m *DecisionTree) Predict(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return m.label(proba), nil
}

// RandomForest averages the leaf distributions of its trees.
type RandomForest struct {
	meta
	trees []tree
}

// PredictProba returns the mean class distribution over all trees.
func (m *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if err := m.checkInput(x); err != nil {
		return nil, err
	}
	out := make([]float64, len(m.classes))
	for i := range m.trees {
		for c, p := range m.trees[i].proba(x) {
			out[c] += p
		}
	}
	n := float64(len(m.trees))
	for c := range out {
		out[c] /= n
	}
	return out, nil
}

// Predict returns the class with the highest mean probability.
func (m *RandomForest) Predict(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return m.label(proba), nil
}
