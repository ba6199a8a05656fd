package predictor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"lifeboat/ml"
)

type stubClassifier struct {
	label ml.Label
	err   error
	panic bool
	calls atomic.Int64

	mu   sync.Mutex
	last ml.FeatureVector
}

func (s *stubClassifier) Predict(features ml.FeatureVector) (ml.Label, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = features
	s.mu.Unlock()
	if s.panic {
		panic("stub exploded")
	}
	return s.label, s.err
}

func newTestService(t *testing.T, stub *stubClassifier) *Service {
	t.Helper()
	svc, err := NewService(stub, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestPredictValidRecords(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	for _, class := range []int{1, 2, 3} {
		for _, sex := range []string{"male", "female", "MALE", "Female", "fEmAlE"} {
			for _, age := range []float64{0, 0.42, 29, 80} {
				for _, fare := range []float64{0, 7.25, 512.3292} {
					body := fmt.Sprintf(`{"Pclass":%d,"Sex":%q,"Age":%v,"Fare":%v}`, class, sex, age, fare)
					result, err := svc.Predict(context.Background(), []byte(body))
					if err != nil {
						t.Fatalf("%s: unexpected error: %v", body, err)
					}
					if !result.Prediction.Valid() {
						t.Fatalf("%s: label %d out of range", body, result.Prediction)
					}
				}
			}
		}
	}
}

func TestPredictBoundaryEncoding(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelDidNotSurvive}
	svc := newTestService(t, stub)

	result, err := svc.Predict(context.Background(), []byte(`{"Pclass":1,"Sex":"FEMALE","Age":0,"Fare":0}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prediction != ml.LabelDidNotSurvive {
		t.Fatalf("unexpected prediction %d", result.Prediction)
	}
	if diff := cmp.Diff(ml.FeatureVector{1, 0, 0, 0}, stub.last); diff != "" {
		t.Fatalf("classifier input mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictMissingFields(t *testing.T) {
	cases := map[string]string{
		"Pclass": `{"Sex":"male","Age":22,"Fare":7.25}`,
		"Sex":    `{"Pclass":3,"Age":22,"Fare":7.25}`,
		"Age":    `{"Pclass":3,"Sex":"male","Fare":7.25}`,
		"Fare":   `{"Pclass":3,"Sex":"male","Age":22}`,
	}
	for field, body := range cases {
		stub := &stubClassifier{label: ml.LabelSurvived}
		svc := newTestService(t, stub)

		_, err := svc.Predict(context.Background(), []byte(body))
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("missing %s: expected ErrInvalidRequest, got %v", field, err)
		}
		var predErr *Error
		if !errors.As(err, &predErr) {
			t.Fatalf("expected *Error, got %T", err)
		}
		want := []FieldError{{Field: field, Message: "is required"}}
		if diff := cmp.Diff(want, predErr.Fields); diff != "" {
			t.Fatalf("missing %s: fields mismatch (-want +got):\n%s", field, diff)
		}
		if calls := stub.calls.Load(); calls != 0 {
			t.Fatalf("missing %s: classifier invoked %d times", field, calls)
		}
	}
}

func TestPredictMalformedBodies(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"not json":      `Pclass=1`,
		"array":         `[1,"male",22,7.25]`,
		"string class":  `{"Pclass":"1","Sex":"male","Age":22,"Fare":7.25}`,
		"float class":   `{"Pclass":1.5,"Sex":"male","Age":22,"Fare":7.25}`,
		"numeric sex":   `{"Pclass":1,"Sex":1,"Age":22,"Fare":7.25}`,
		"string age":    `{"Pclass":1,"Sex":"male","Age":"22","Fare":7.25}`,
		"null fare":     `{"Pclass":1,"Sex":"male","Age":22,"Fare":null}`,
		"trailing data": `{"Pclass":1,"Sex":"male","Age":22,"Fare":7.25} {}`,
		"class four":    `{"Pclass":4,"Sex":"male","Age":22,"Fare":7.25}`,
		"class zero":    `{"Pclass":0,"Sex":"male","Age":22,"Fare":7.25}`,
		"negative age":  `{"Pclass":1,"Sex":"male","Age":-1,"Fare":7.25}`,
		"negative fare": `{"Pclass":1,"Sex":"male","Age":1,"Fare":-7.25}`,
	}
	for name, body := range cases {
		stub := &stubClassifier{label: ml.LabelSurvived}
		svc := newTestService(t, stub)

		_, err := svc.Predict(context.Background(), []byte(body))
		if KindOf(err) != KindInvalidRequest {
			t.Fatalf("%s: expected invalid_request, got %v", name, err)
		}
		if stub.calls.Load() != 0 {
			t.Fatalf("%s: classifier must not be invoked", name)
		}
	}
}

func TestPredictMatchesFieldNamesExactly(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	_, err := svc.Predict(context.Background(), []byte(`{"pclass":1,"sex":"male","age":1,"fare":1}`))
	var predErr *Error
	if !errors.As(err, &predErr) || predErr.Kind != KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	want := []FieldError{
		{Field: "Pclass", Message: "is required"},
		{Field: "Sex", Message: "is required"},
		{Field: "Age", Message: "is required"},
		{Field: "Fare", Message: "is required"},
	}
	if diff := cmp.Diff(want, predErr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if calls := stub.calls.Load(); calls != 0 {
		t.Fatalf("classifier invoked %d times", calls)
	}
}

func TestPredictIgnoresUnknownKeys(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	body := `{"Pclass":1,"Sex":"male","Age":1,"Fare":1,"PCLASS":9,"Name":"Braund"}`
	result, err := svc.Predict(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Prediction != ml.LabelSurvived {
		t.Fatalf("expected %v, got %v", ml.LabelSurvived, result.Prediction)
	}
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if diff := cmp.Diff(ml.FeatureVector{1, 1, 1, 1}, stub.last); diff != "" {
		t.Fatalf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictReportsFieldTypes(t *testing.T) {
	svc := newTestService(t, &stubClassifier{})

	_, err := svc.Predict(context.Background(), []byte(`{"Pclass":"1","Sex":"male","Age":22,"Fare":"cheap"}`))
	var predErr *Error
	if !errors.As(err, &predErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	want := []FieldError{
		{Field: "Pclass", Message: "must be of type integer"},
		{Field: "Fare", Message: "must be of type number"},
	}
	if diff := cmp.Diff(want, predErr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictUnknownSexIsAlwaysRejected(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	for _, sex := range []string{"unknown", "m", "f", "", "males", " female"} {
		body := []byte(fmt.Sprintf(`{"Pclass":2,"Sex":%q,"Age":30,"Fare":13}`, sex))
		var first *Error
		for i := 0; i < 3; i++ {
			_, err := svc.Predict(context.Background(), body)
			var predErr *Error
			if !errors.As(err, &predErr) || predErr.Kind != KindInvalidRequest {
				t.Fatalf("sex %q: expected invalid_request, got %v", sex, err)
			}
			if first == nil {
				first = predErr
				continue
			}
			if diff := cmp.Diff(first.Fields, predErr.Fields); diff != "" {
				t.Fatalf("sex %q: outcome changed between calls:\n%s", sex, diff)
			}
		}
	}
	if stub.calls.Load() != 0 {
		t.Fatalf("classifier invoked %d times", stub.calls.Load())
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	classifier, _, err := ml.LoadModel("../ml/testdata/forest.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc, err := NewService(classifier, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := []byte(`{"Pclass":3,"Sex":"female","Age":20,"Fare":8.05}`)
	first, err := svc.Predict(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Predict(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %v and %v", first, second)
	}
}

func TestPredictConcurrent(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"Pclass":%d,"Sex":"male","Age":%d,"Fare":10}`, i%3+1, i)
			if _, err := svc.Predict(context.Background(), []byte(body)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls.Load() != 50 {
		t.Fatalf("expected 50 calls, got %d", stub.calls.Load())
	}
}

func TestPredictClassifierFailures(t *testing.T) {
	body := []byte(`{"Pclass":1,"Sex":"male","Age":40,"Fare":30}`)
	cases := map[string]*stubClassifier{
		"error":     {err: errors.New("tree exploded at node 7")},
		"panic":     {panic: true},
		"bad label": {label: 7},
	}
	for name, stub := range cases {
		svc := newTestService(t, stub)
		_, err := svc.Predict(context.Background(), body)
		if !errors.Is(err, ErrInternal) {
			t.Fatalf("%s: expected ErrInternal, got %v", name, err)
		}
		var predErr *Error
		errors.As(err, &predErr)
		if predErr.Message != "prediction failed" {
			t.Fatalf("%s: caller-facing message leaks details: %q", name, predErr.Message)
		}
	}
}

func TestPredictCancelledContext(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Predict(ctx, []byte(`{"Pclass":1,"Sex":"male","Age":40,"Fare":30}`))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
	if stub.calls.Load() != 0 {
		t.Fatal("classifier must not be invoked after cancellation")
	}
}

func TestNewServiceWithoutClassifier(t *testing.T) {
	_, err := NewService(nil, nil)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestPredictRecordValidatesDirectCallers(t *testing.T) {
	stub := &stubClassifier{label: ml.LabelSurvived}
	svc := newTestService(t, stub)

	_, err := svc.PredictRecord(context.Background(), ml.PassengerRecord{Class: 1, Sex: "other", Age: 1, Fare: 1})
	var predErr *Error
	if !errors.As(err, &predErr) || predErr.Kind != KindInvalidRequest {
		t.Fatalf("expected invalid_request, got %v", err)
	}
	if diff := cmp.Diff([]FieldError{{Field: "Sex", Message: "must be one of: male female"}}, predErr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestSexValidationIsRegistered(t *testing.T) {
	if err := validate.Var("FEMALE", "sex"); err != nil {
		t.Fatalf("expected FEMALE to validate, got %v", err)
	}
	if err := validate.Var("unknown", "sex"); err == nil {
		t.Fatalf("expected unknown to fail the sex validation")
	}
}
