package ml

import (
	"errors"
	"fmt"
)

var errInvalidTree = errors.New("invalid tree state")

// DecisionTree is a binary tree stored as a flat node array. The root is
// node 0 and children always follow their parent.
type DecisionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx  int      `json:"feature_idx"`
	Threshold   float64  `json:"threshold"`
	LeftChild   int      `json:"left_child"`
	RightChild  int      `json:"right_child"`
	ClassLabel  int      `json:"class_label"`
	IsLeaf      bool     `json:"is_leaf"`
	Probability *float64 `json:"probability,omitempty"`
}

// NewDecisionTree checks the node layout so that Predict can never loop or
// index out of range.
func NewDecisionTree(nodes []TreeNode) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	featureCount := len(FeatureNames())
	for idx, node := range nodes {
		if node.IsLeaf {
			if !Label(node.ClassLabel).Valid() {
				return nil, fmt.Errorf("node %d: class label %d out of range", idx, node.ClassLabel)
			}
			if node.Probability != nil && (*node.Probability < 0 || *node.Probability > 1) {
				return nil, fmt.Errorf("node %d: probability %v out of range", idx, *node.Probability)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return nil, fmt.Errorf("node %d: feature index %d out of range", idx, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= idx || child >= len(nodes) {
				return nil, fmt.Errorf("node %d: child %d out of range", idx, child)
			}
		}
	}
	return &DecisionTree{nodes: nodes}, nil
}

func (dt *DecisionTree) Predict(features FeatureVector) (Label, error) {
	p, err := dt.survivalProbability(features)
	if err != nil {
		return 0, err
	}
	return labelFor(p), nil
}

func (dt *DecisionTree) Len() int {
	return len(dt.nodes)
}

func (dt *DecisionTree) survivalProbability(features FeatureVector) (float64, error) {
	if len(dt.nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return leafProbability(node), nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.nodes) {
			return 0, errInvalidTree
		}
	}
}

func leafProbability(node TreeNode) float64 {
	if node.Probability != nil {
		return *node.Probability
	}
	return float64(node.ClassLabel)
}

// labelFor picks the survived class only on a strict majority; ties go to
// the first class.
func labelFor(probability float64) Label {
	if probability > 0.5 {
		return LabelSurvived
	}
	return LabelDidNotSurvive
}
