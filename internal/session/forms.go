package session

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/doccollab/internal/apperrors"
	"github.com/nkiryanov/doccollab/internal/models"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (f LoginForm) Credentials() models.Credentials {
	return models.Credentials{Email: strings.TrimSpace(f.Email), Password: f.Password}
}

type RegisterForm struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"firstName" validate:"required"`
	LastName        string `json:"lastName" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`

	// Terms of use have to be accepted
	AcceptTerms bool `json:"acceptTerms" validate:"required"`
}

func (f RegisterForm) Registration() models.Registration {
	return models.Registration{
		User: models.User{
			Username:  strings.TrimSpace(f.Username),
			Email:     strings.TrimSpace(f.Email),
			FirstName: strings.TrimSpace(f.FirstName),
			LastName:  strings.TrimSpace(f.LastName),
		},
		Password: f.Password,
	}
}

// ValidationError holds per field messages shown next to form inputs
// Field "" holds message for the whole form
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e.Fields[k])
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", apperrors.ErrValidationFailure, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperrors.ErrValidationFailure}
	}
	return []error{apperrors.ErrValidationFailure, e.Err}
}

func formError(message string, err error) *ValidationError {
	return &ValidationError{Fields: map[string]string{"": message}, Err: err}
}

// Validate form and convert failures into user friendly messages
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("error while validating form. Err: %w", err)
	}

	fields := make(map[string]string, len(errs))
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "email":
			message = "Invalid email address"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "eqfield":
			message = "Passwords do not match"
		default:
			message = "Invalid value"
		}
		fields[fieldError.Field()] = message
	}
	return &ValidationError{Fields: fields}
}
