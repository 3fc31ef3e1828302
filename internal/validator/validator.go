package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ErrRequired       = "is required"
	ErrMinValue       = "must be greater than or equal to %s"
	ErrMaxValue       = "must be less than or equal to %s"
	ErrMinLength      = "must be at least %s characters long"
	ErrMaxLength      = "must be at most %s characters long"
	ErrMinItems       = "must contain at least %s items"
	ErrMaxItems       = "must contain at most %s items"
	ErrDefaultInvalid = "is invalid"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON name
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return validator
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min":
		return fmt.Sprintf(boundMessage(err.Kind(), ErrMinValue, ErrMinLength, ErrMinItems), err.Param())
	case "max":
		return fmt.Sprintf(boundMessage(err.Kind(), ErrMaxValue, ErrMaxLength, ErrMaxItems), err.Param())
	default:
		return ErrDefaultInvalid
	}
}

func boundMessage(kind reflect.Kind, value, length, items string) string {
	switch kind {
	case reflect.String:
		return length
	case reflect.Slice, reflect.Array, reflect.Map:
		return items
	default:
		return value
	}
}
