package ml

type Label int

const (
	LabelDidNotSurvive Label = 0
	LabelSurvived      Label = 1
)

func (l Label) Valid() bool {
	return l == LabelDidNotSurvive || l == LabelSurvived
}

func (l Label) String() string {
	switch l {
	case LabelSurvived:
		return "Survived"
	case LabelDidNotSurvive:
		return "Did not survive"
	default:
		return "unknown"
	}
}

// Classifier is a trained model. Implementations must be safe for
// concurrent use and must not change after construction.
type Classifier interface {
	Predict(features FeatureVector) (Label, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(features FeatureVector) (Label, error)

func (f ClassifierFunc) Predict(features FeatureVector) (Label, error) {
	return f(features)
}
