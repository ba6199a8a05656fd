package ml

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/cases"
)

// ErrInvalidRecord is wrapped by every FieldError returned from Encode.
var ErrInvalidRecord = errors.New("invalid passenger record")

// FieldError names the record field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidRecord
}

type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// Code is the numeric value written into the feature vector. The mapping
// matches the alphabetical label encoding used when the artifact is trained.
func (s Sex) Code() float64 {
	if s == SexMale {
		return 1
	}
	return 0
}

// ParseSex matches value against "male" and "female" ignoring case.
func ParseSex(value string) (Sex, error) {
	switch Sex(cases.Fold().String(value)) {
	case SexFemale:
		return SexFemale, nil
	case SexMale:
		return SexMale, nil
	default:
		return "", &FieldError{Field: "Sex", Message: fmt.Sprintf("must be one of: %s %s", SexMale, SexFemale)}
	}
}

// PassengerRecord is one prediction subject.
type PassengerRecord struct {
	Class int
	Sex   string
	Age   float64
	Fare  float64
}

// FeatureVector is the fixed-order input of a Classifier:
// [Pclass, Sex, Age, Fare].
type FeatureVector [4]float64

const (
	FeatureClass = iota
	FeatureSex
	FeatureAge
	FeatureFare
)

func (v FeatureVector) Slice() []float64 {
	return v[:]
}

func FeatureNames() []string {
	return []string{
		"Pclass",
		"Sex",
		"Age",
		"Fare",
	}
}

// SexEncoding returns the category codes Encode writes for the Sex feature.
func SexEncoding() map[string]int {
	return map[string]int{
		string(SexFemale): int(SexFemale.Code()),
		string(SexMale):   int(SexMale.Code()),
	}
}

// Encode validates record and converts it into a FeatureVector.
func Encode(record PassengerRecord) (FeatureVector, error) {
	if record.Class < 1 || record.Class > 3 {
		return FeatureVector{}, &FieldError{Field: "Pclass", Message: "must be one of: 1 2 3"}
	}
	sex, err := ParseSex(record.Sex)
	if err != nil {
		return FeatureVector{}, err
	}
	if err := checkNonNegative("Age", record.Age); err != nil {
		return FeatureVector{}, err
	}
	if err := checkNonNegative("Fare", record.Fare); err != nil {
		return FeatureVector{}, err
	}

	return FeatureVector{
		FeatureClass: float64(record.Class),
		FeatureSex:   sex.Code(),
		FeatureAge:   record.Age,
		FeatureFare:  record.Fare,
	}, nil
}

func checkNonNegative(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return &FieldError{Field: field, Message: "must be a finite number"}
	}
	if value < 0 {
		return &FieldError{Field: field, Message: "must be greater than or equal to 0"}
	}
	return nil
}
