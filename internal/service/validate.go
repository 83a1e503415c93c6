package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"blogapi/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateInput checks the struct tags of in and reports the first failure
// as an ErrInvalidInput with a client-facing message.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.New(apperr.ErrInvalidInput, "")
	}
	return apperr.New(apperr.ErrInvalidInput, describe(fieldErrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " should not be empty"
	case "email":
		return field + " must be an email"
	case "min":
		return fmt.Sprintf("%s must be longer than or equal to %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be shorter than or equal to %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
