package model

import (
	"fmt"
	"math"
)

// Ensemble kinds. Vote classifiers take the majority class over their trees,
// boosted classifiers accumulate per-class scores and take the argmax, and
// regressors average tree outputs.
const (
	KindVoteClassifier  = "vote_classifier"
	KindBoostClassifier = "boost_classifier"
	KindRegressor       = "regressor"
)

// Node is one flattened decision-tree node. Leaves have Feature == -1 and
// carry the output in Value; internal nodes route on row[Feature] <= Threshold.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a single decision tree stored as a node array rooted at index 0.
// For boosted multi-class ensembles, Class indexes the class the tree's
// output contributes to.
type Tree struct {
	Nodes []Node `json:"nodes"`
	Class int    `json:"class,omitempty"`
}

// Ensemble is a serialized tree-ensemble model.
type Ensemble struct {
	Kind     string    `json:"kind"`
	Features int       `json:"features"`
	Classes  []int     `json:"classes,omitempty"`
	Base     []float64 `json:"base_scores,omitempty"`
	Trees    []Tree    `json:"trees"`
}

// NumFeatures implements Model.
func (e *Ensemble) NumFeatures() int { return e.Features }

// Validate checks structural invariants the decoder cannot express: a known
// kind, at least one tree, in-range node links, and class metadata for
// classifiers.
func (e *Ensemble) Validate() error {
	switch e.Kind {
	case KindVoteClassifier, KindBoostClassifier, KindRegressor:
	default:
		return fmt.Errorf("unknown ensemble kind %q", e.Kind)
	}
	if e.Features <= 0 {
		return fmt.Errorf("ensemble declares %d features", e.Features)
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("ensemble has no trees")
	}
	if e.Kind != KindRegressor && len(e.Classes) == 0 {
		return fmt.Errorf("%s ensemble has no classes", e.Kind)
	}
	if e.Kind == KindBoostClassifier && len(e.Base) != 0 && len(e.Base) != len(e.Classes) {
		return fmt.Errorf("base scores length %d does not match %d classes", len(e.Base), len(e.Classes))
	}
	for ti, tree := range e.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		if e.Kind == KindBoostClassifier && (tree.Class < 0 || tree.Class >= len(e.Classes)) {
			return fmt.Errorf("tree %d targets class index %d of %d", ti, tree.Class, len(e.Classes))
		}
		for ni, node := range tree.Nodes {
			if node.Feature < 0 {
				continue
			}
			if node.Feature >= e.Features {
				return fmt.Errorf("tree %d node %d splits on feature %d of %d", ti, ni, node.Feature, e.Features)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) || node.Right < 0 || node.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d links out of range", ti, ni)
			}
		}
	}
	return nil
}

// Predict implements Model.
func (e *Ensemble) Predict(row []float64) (float64, error) {
	if len(row) != e.Features {
		return 0, fmt.Errorf("model expects %d features, got %d", e.Features, len(row))
	}

	switch e.Kind {
	case KindVoteClassifier:
		return e.predictVote(row)
	case KindBoostClassifier:
		return e.predictBoost(row)
	case KindRegressor:
		return e.predictMean(row)
	default:
		return 0, fmt.Errorf("unknown ensemble kind %q", e.Kind)
	}
}

// predictVote returns the majority class over all trees, each tree outputting
// a class code at its leaf.
func (e *Ensemble) predictVote(row []float64) (float64, error) {
	counts := make(map[int]int, len(e.Classes))
	for i := range e.Trees {
		out, err := e.evalTree(i, row)
		if err != nil {
			return 0, err
		}
		counts[int(math.Round(out))]++
	}

	bestClass, maxCount := 0, -1
	for cls, cnt := range counts {
		if cnt > maxCount || (cnt == maxCount && cls < bestClass) {
			bestClass, maxCount = cls, cnt
		}
	}
	return float64(bestClass), nil
}

// predictBoost accumulates additive scores per class and returns the class
// with the highest total.
func (e *Ensemble) predictBoost(row []float64) (float64, error) {
	scores := make([]float64, len(e.Classes))
	copy(scores, e.Base)
	for i, tree := range e.Trees {
		out, err := e.evalTree(i, row)
		if err != nil {
			return 0, err
		}
		scores[tree.Class] += out
	}

	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return float64(e.Classes[best]), nil
}

// predictMean averages tree outputs.
func (e *Ensemble) predictMean(row []float64) (float64, error) {
	sum := 0.0
	for i := range e.Trees {
		out, err := e.evalTree(i, row)
		if err != nil {
			return 0, err
		}
		sum += out
	}
	return sum / float64(len(e.Trees)), nil
}

// evalTree walks one tree from the root to a leaf.
func (e *Ensemble) evalTree(idx int, row []float64) (float64, error) {
	nodes := e.Trees[idx].Nodes
	pos := 0
	// A well-formed tree terminates in at most len(nodes) hops; anything more
	// means a cycle in the node links.
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[pos]
		if node.Feature < 0 {
			return node.Value, nil
		}
		if row[node.Feature] <= node.Threshold {
			pos = node.Left
		} else {
			pos = node.Right
		}
	}
	return 0, fmt.Errorf("tree %d walk did not terminate", idx)
}
