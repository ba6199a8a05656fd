// Package predictor turns prediction requests into classifier calls.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"lifeboat/ml"
)

type Result struct {
	Prediction ml.Label `json:"prediction"`
}

// Service is stateless apart from the classifier, which must not change after
// NewService returns. It is safe for concurrent use.
type Service struct {
	classifier ml.Classifier
	logger     *zap.Logger
}

func NewService(classifier ml.Classifier, logger *zap.Logger) (*Service, error) {
	if classifier == nil {
		return nil, ModelUnavailable(errors.New("no classifier loaded"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{classifier: classifier, logger: logger}, nil
}

// Predict decodes and validates raw, then classifies the passenger. Every
// returned error is a *Error.
func (s *Service) Predict(ctx context.Context, raw []byte) (Result, error) {
	req, err := DecodeRequest(raw)
	if err != nil {
		return Result{}, err
	}
	return s.PredictRecord(ctx, req.Record())
}

func (s *Service) PredictRecord(ctx context.Context, record ml.PassengerRecord) (Result, error) {
	features, err := ml.Encode(record)
	if err != nil {
		var fieldErr *ml.FieldError
		if errors.As(err, &fieldErr) {
			return Result{}, invalidRequest("invalid request", FieldError{Field: fieldErr.Field, Message: fieldErr.Message})
		}
		return Result{}, invalidRequest(err.Error())
	}

	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Kind: KindTimeout, Message: "request cancelled before prediction", Err: err}
	}

	label, err := s.classify(features)
	if err != nil {
		s.logger.Error("classifier failed", zap.Error(err))
		return Result{}, &Error{Kind: KindInternal, Message: "prediction failed", Err: err}
	}
	if !label.Valid() {
		err := fmt.Errorf("classifier returned label %d", label)
		s.logger.Error("classifier returned unknown label", zap.Int("label", int(label)))
		return Result{}, &Error{Kind: KindInternal, Message: "prediction failed", Err: err}
	}
	return Result{Prediction: label}, nil
}

func (s *Service) classify(features ml.FeatureVector) (label ml.Label, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return s.classifier.Predict(features)
}
