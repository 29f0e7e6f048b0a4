package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inkbook/studio/internal/domain/entities"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// NewValidator returns a validator that reports json field names and knows
// the studio's custom tags.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Phones are validated after normalization stripped the separators.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return v
}

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return entities.ErrInvalidBooking
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// toValidationError converts validator output into a ValidationError.
// Other errors are returned unchanged.
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", strings.ToLower(fe.Param()))
	case "email":
		return "must be a valid email address"
	case "phone":
		return "must be a phone number of 7 to 15 digits"
	case "datetime":
		switch fe.Param() {
		case entities.DateLayout:
			return "must be a date formatted YYYY-MM-DD"
		case entities.TimeLayout:
			return "must be a time formatted HH:MM"
		}
		return "must match " + fe.Param()
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid"
}
