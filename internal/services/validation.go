package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/grandstand-travel/backoffice/internal/models"
	pkgvalidator "github.com/grandstand-travel/backoffice/pkg/validator"
)

// newRequestValidator registers the "phone" tag on top of the stock validators
func newRequestValidator(phones *pkgvalidator.PhoneValidator) *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phones.IsValid(fl.Field().String())
	})
	return validate
}

// toValidationError converts the first validator failure into a *models.ValidationError
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &models.ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "CreateBookingRequest.")

	var message string
	switch fe.Tag() {
	case "required":
		message = "is required"
	case "email":
		message = "must be a valid email address"
	case "phone":
		message = "must be a valid international phone number"
	case "oneof":
		message = fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		message = fmt.Sprintf("must be greater than %s", fe.Param())
	case "max":
		message = fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		message = fmt.Sprintf("failed %s validation", fe.Tag())
	}

	return &models.ValidationError{Field: field, Message: message}
}
