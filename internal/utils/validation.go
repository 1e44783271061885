package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator builds a validator that reports JSON field names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return field.Name
	})
	return validate
}

// ValidationErrors flattens validator errors into field keyed messages.
// It returns nil when err does not carry validation failures.
func ValidationErrors(err error) map[string][]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	out := make(map[string][]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		field := fieldErr.Field()
		out[field] = append(out[field], describe(fieldErr))
	}
	return out
}

func describe(fieldErr validator.FieldError) string {
	field := strings.ReplaceAll(fieldErr.Field(), "_", " ")
	switch fieldErr.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", field, fieldErr.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s.", field, fieldErr.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "eqfield":
		return fmt.Sprintf("The %s confirmation does not match.", field)
	case "latitude", "longitude":
		return fmt.Sprintf("The %s must be a valid coordinate.", field)
	case "gte", "lte":
		return fmt.Sprintf("The %s is out of range.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
