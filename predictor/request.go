package predictor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"lifeboat/ml"
)

// Request is the wire shape of a prediction request. Pointer fields tell a
// missing value apart from a zero one.
type Request struct {
	Pclass *int     `json:"Pclass" validate:"required,oneof=1 2 3"`
	Sex    *string  `json:"Sex" validate:"required,sex"`
	Age    *float64 `json:"Age" validate:"required,gte=0"`
	Fare   *float64 `json:"Fare" validate:"required,gte=0"`
}

func (r Request) Record() ml.PassengerRecord {
	return ml.PassengerRecord{
		Class: *r.Pclass,
		Sex:   *r.Sex,
		Age:   *r.Age,
		Fare:  *r.Fare,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("sex", func(fl validator.FieldLevel) bool {
		_, err := ml.ParseSex(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(fmt.Sprintf("predictor: register sex validation: %v", err))
	}
	return v
}

// DecodeRequest parses raw as a single JSON object and validates it.
// Keys are matched exactly; keys other than the four request fields are
// ignored.
func DecodeRequest(raw []byte) (Request, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&fields); err != nil {
		return Request{}, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Request{}, invalidRequest("request body must contain a single JSON object")
	}

	var req Request
	targets := []struct {
		name string
		dst  any
	}{
		{"Pclass", &req.Pclass},
		{"Sex", &req.Sex},
		{"Age", &req.Age},
		{"Fare", &req.Fare},
	}
	var typeErrs []FieldError
	for _, target := range targets {
		value, ok := fields[target.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, target.dst); err != nil {
			typeErrs = append(typeErrs, FieldError{Field: target.name, Message: fieldTypeMessage(err)})
		}
	}
	if len(typeErrs) > 0 {
		return Request{}, invalidRequest("malformed request", typeErrs...)
	}

	if err := validate.Struct(req); err != nil {
		return Request{}, validationError(err)
	}
	return req, nil
}

func decodeError(err error) *Error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return invalidRequest("request body must be a JSON object")
	}
	if errors.Is(err, io.EOF) {
		return invalidRequest("request body is empty")
	}
	return invalidRequest("request body is not valid JSON")
}

func fieldTypeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("must be of type %s", typeName(typeErr.Type))
	}
	return "is not valid JSON"
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "integer"
	case reflect.Float64:
		return "number"
	default:
		return t.Kind().String()
	}
}

func validationError(err error) *Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return invalidRequest("invalid request")
	}
	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, FieldError{Field: e.Field(), Message: fieldMessage(e)})
	}
	return invalidRequest("invalid request", fields...)
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "sex":
		return fmt.Sprintf("must be one of: %s %s", ml.SexMale, ml.SexFemale)
	default:
		return fmt.Sprintf("failed validation: %s", e.Tag())
	}
}
