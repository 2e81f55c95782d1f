package service

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	accountdomain "phone-otp-auth/backend/internal/account/domain"
)

// MinPasswordLength is the shortest password SetPassword accepts.
const MinPasswordLength = 8

const (
	fieldPhone     = "phone_number"
	fieldPassword  = "password"
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
	fieldEmail     = "email"

	msgPhoneRequired = "Phone number is required."
	msgPhoneInvalid  = "The phone number must be valid."
	msgPasswordShort = "Password must be at least 8 characters long."
	msgEmailInvalid  = "Enter a valid email address."
	msgInvalidValue  = "Enter a valid value."
)

// profileFields mirrors the identities column limits.
type profileFields struct {
	FirstName string `json:"first_name" validate:"omitempty,max=30"`
	LastName  string `json:"last_name" validate:"omitempty,max=50"`
	Email     string `json:"email" validate:"omitempty,max=254,email"`
}

var (
	validate    = newValidator()
	passwordTag = "min=" + strconv.Itoa(MinPasswordLength)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// ValidationError is malformed input on a single field. Message is safe to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// fieldError turns the first validator failure into a ValidationError carrying the client message.
func fieldError(field string, err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	if field == "" {
		field = fe.Field()
	}
	var msg string
	switch fe.Tag() {
	case "min":
		msg = msgPasswordShort
	case "max":
		msg = "Ensure this field has no more than " + fe.Param() + " characters."
	case "email":
		msg = msgEmailInvalid
	default:
		msg = msgInvalidValue
	}
	return &ValidationError{Field: field, Message: msg}
}

// ValidatePassword enforces the minimum length, counted in characters.
func ValidatePassword(password string) error {
	if err := validate.Var(password, passwordTag); err != nil {
		return fieldError(fieldPassword, err)
	}
	return nil
}

// ProfileInput is the CompleteProfile request. Nil or blank fields are cleared.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
}

func (in ProfileInput) normalize() (accountdomain.Profile, error) {
	f := profileFields{
		FirstName: trimmed(in.FirstName),
		LastName:  trimmed(in.LastName),
		Email:     trimmed(in.Email),
	}
	if err := validate.Struct(f); err != nil {
		return accountdomain.Profile{}, fieldError("", err)
	}
	return accountdomain.Profile{
		FirstName: optional(f.FirstName),
		LastName:  optional(f.LastName),
		Email:     optional(f.Email),
	}, nil
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
