package classifier

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Artifact is the on-disk JSON form of a trained model.
type Artifact struct {
	Kind         string      `json:"kind"`
	NFeaturesIn  int         `json:"n_features_in"`
	FeatureNames []string    `json:"feature_names,omitempty"`
	Classes      []int       `json:"classes"`
	Coef         [][]float64 `json:"coef,omitempty"`
	Intercept    []float64   `json:"intercept,omitempty"`
	Tree         *TreeSpec   `json:"tree,omitempty"`
	Trees        []TreeSpec  `json:"trees,omitempty"`
}

// TreeSpec is the node table of one tree.
type TreeSpec struct {
	Nodes []Node `json:"nodes"`
}

// Load reads and builds the model stored at path.
func Load(path string) (ProbabilityEstimator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open model %s", path)
	}
	defer f.Close()

	m, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", path)
	}
	return m, nil
}

// Decode reads one JSON artifact from r and builds the model.
func Decode(r io.Reader) (ProbabilityEstimator, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, errors.Wrapf(ErrInvalidModel, "decode: %v", err)
	}
	return a.Build()
}

// Build validates the artifact and returns the model it describes.
func (a Artifact) Build() (ProbabilityEstimator, error) {
	if a.NFeaturesIn <= 0 {
		return nil, errors.Wrapf(ErrInvalidModel, "n_features_in must be positive, got %d", a.NFeaturesIn)
	}
	if len(a.Classes) < 2 {
		return nil, errors.Wrapf(ErrInvalidModel, "need at least 2 classes, got %d", len(a.Classes))
	}
	if len(a.FeatureNames) != 0 && len(a.FeatureNames) != a.NFeaturesIn {
		return nil, errors.Wrapf(ErrInvalidModel, "feature_names has %d entries for %d features", len(a.FeatureNames), a.NFeaturesIn)
	}

	m := meta{
		kind:      a.Kind,
		nFeatures: a.NFeaturesIn,
		classes:   append([]int(nil), a.Classes...),
	}
	if len(a.FeatureNames) > 0 {
		m.names = append([]string(nil), a.FeatureNames...)
	}

	switch a.Kind {
	case KindLogisticRegression:
		lr, err := a.buildLogistic(m)
		if err != nil {
			return nil, err
		}
		return lr, nil
	case KindDecisionTree:
		if a.Tree == nil {
			return nil, errors.Wrap(ErrInvalidModel, "decision_tree requires tree")
		}
		t, err := buildTree(*a.Tree, a.NFeaturesIn, len(a.Classes))
		if err != nil {
			return nil, err
		}
		return &DecisionTree{meta: m, tree: t}, nil
	case KindRandomForest:
		if len(a.Trees) == 0 {
			return nil, errors.Wrap(ErrInvalidModel, "random_forest requires trees")
		}
		trees := make([]tree, len(a.Trees))
		for i, spec := range a.Trees {
			t, err := buildTree(spec, a.NFeaturesIn, len(a.Classes))
			if err != nil {
				return nil, errors.WithMessagef(err, "tree %d", i)
			}
			trees[i] = t
		}
		return &RandomForest{meta: m, trees: trees}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownKind, "%q", a.Kind)
	}
}

func (a Artifact) buildLogistic(m meta) (*LogisticRegression, error) {
	rows := len(a.Coef)
	binary := rows == 1 && len(a.Classes) == 2
	if !binary && rows != len(a.Classes) {
		return nil, errors.Wrapf(ErrInvalidModel, "coef has %d rows for %d classes", rows, len(a.Classes))
	}
	if len(a.Intercept) != rows {
		return nil, errors.Wrapf(ErrInvalidModel, "intercept has %d entries for %d coef rows", len(a.Intercept), rows)
	}
	coef := make([][]float64, rows)
	for i, w := range a.Coef {
		if len(w) != a.NFeaturesIn {
			return nil, errors.Wrapf(ErrInvalidModel, "coef row %d has %d weights for %d features", i, len(w), a.NFeaturesIn)
		}
		coef[i] = append([]float64(nil), w...)
	}
	return &LogisticRegression{
		meta:      m,
		coef:      coef,
		intercept: append([]float64(nil), a.Intercept...),
	}, nil
}

// buildTree checks node references and normalises leaf values into
// probabilities. Children must come after their parent, which rules out
// cycles.
func buildTree(spec TreeSpec, nFeatures, nClasses int) (tree, error) {
	if len(spec.Nodes) == 0 {
		return tree{}, errors.Wrap(ErrInvalidModel, "tree has no nodes")
	}
	nodes := make([]Node, len(spec.Nodes))
	for i, n := range spec.Nodes {
		if n.isLeaf() {
			if len(n.Value) != nClasses {
				return tree{}, errors.Wrapf(ErrInvalidModel, "leaf %d has %d values for %d classes", i, len(n.Value), nClasses)
			}
			var sum float64
			for _, v := range n.Value {
				if v < 0 {
					return tree{}, errors.Wrapf(ErrInvalidModel, "leaf %d has a negative value", i)
				}
				sum += v
			}
			if sum == 0 {
				return tree{}, errors.Wrapf(ErrInvalidModel, "leaf %d is empty", i)
			}
			value := make([]float64, nClasses)
			for c, v := range n.Value {
				value[c] = v / sum
			}
			nodes[i] = Node{Feature: n.Feature, Threshold: n.Threshold, Left: leafChild, Right: leafChild, Value: value}
			continue
		}

		if n.Feature < 0 || n.Feature >= nFeatures {
			return tree{}, errors.Wrapf(ErrInvalidModel, "node %d splits on feature %d of %d", i, n.Feature, nFeatures)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(spec.Nodes) {
				return tree{}, errors.Wrapf(ErrInvalidModel, "node %d has invalid child %d", i, child)
			}
		}
		nodes[i] = Node{Feature: n.Feature, Threshold: n.Threshold, Left: n.Left, Right: n.Right}
	}
	return tree{nodes: nodes}, nil
}
