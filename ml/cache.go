package ml

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClassifier memoizes labels by feature vector. Only successful
// predictions are cached.
type CachedClassifier struct {
	next  Classifier
	cache *lru.Cache[FeatureVector, Label]
}

func NewCachedClassifier(next Classifier, size int) (*CachedClassifier, error) {
	cache, err := lru.New[FeatureVector, Label](size)
	if err != nil {
		return nil, fmt.Errorf("create prediction cache: %w", err)
	}
	return &CachedClassifier{next: next, cache: cache}, nil
}

func (c *CachedClassifier) Predict(features FeatureVector) (Label, error) {
	if label, ok := c.cache.Get(features); ok {
		return label, nil
	}
	label, err := c.next.Predict(features)
	if err != nil {
		return 0, err
	}
	c.cache.Add(features, label)
	return label, nil
}

func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}
