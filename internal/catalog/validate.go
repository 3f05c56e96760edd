package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	// equityRe accepts decimal strings between 0 and 1 inclusive.
	equityRe = regexp.MustCompile(`^(0(\.[0-9]+)?|\.[0-9]+|1(\.0+)?)$`)

	// handleRe matches company handles (lowercase, no spaces).
	handleRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report violations with the JSON field names clients actually send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("equity", func(fl validator.FieldLevel) bool {
		return equityRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handleRe.MatchString(fl.Field().String())
	})
	return v
}

// Decode reads exactly one JSON object from r into dst, rejecting unknown
// fields and trailing data, then validates dst. Every failure is a *ValidationError.
func Decode(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{Msg: "invalid JSON body", Details: []string{err.Error()}}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &ValidationError{Msg: "invalid JSON body", Details: []string{"unexpected data after the JSON object"}}
	}
	return Validate(dst)
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Msg: err.Error()}
	}

	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, describe(fe))
	}
	return &ValidationError{Msg: "invalid request", Details: details}
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "equity":
		return fmt.Sprintf("%s must be a decimal string between 0 and 1", field)
	case "handle":
		return fmt.Sprintf("%s must be lowercase letters, digits or dashes", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed the %q rule", field, fe.Tag())
}
