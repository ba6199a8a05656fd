package ml

import (
	"errors"
	"fmt"
)

// RandomForest averages the leaf survival probabilities of its trees.
type RandomForest struct {
	trees []*DecisionTree
}

func NewRandomForest(trees []*DecisionTree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	return &RandomForest{trees: trees}, nil
}

func (f *RandomForest) Predict(features FeatureVector) (Label, error) {
	total := 0.0
	for i, tree := range f.trees {
		p, err := tree.survivalProbability(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		total += p
	}
	return labelFor(total / float64(len(f.trees))), nil
}

func (f *RandomForest) Len() int {
	return len(f.trees)
}
