package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// UnusablePassword is the stored credential for identities that have not set a password.
// It never matches a bcrypt hash, so password login always fails until SetPassword runs.
const UnusablePassword = "!"

// MaxStoredPhoneLength is the phone_number width of the tables that record raw request input.
const MaxStoredPhoneLength = 64

var phonePattern = regexp.MustCompile(`^09[0-9]{9}$`)

// ErrInvalidPhone is returned by ValidatePhone for numbers outside the national mobile format.
var ErrInvalidPhone = errors.New("invalid phone number")

// Identity is an authenticated subject, keyed by phone number.
type Identity struct {
	ID           string
	PhoneNumber  string
	FirstName    *string
	LastName     *string
	Email        *string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasUsablePassword reports whether a password has been set.
func (i *Identity) HasUsablePassword() bool {
	return i.PasswordHash != "" && !strings.HasPrefix(i.PasswordHash, UnusablePassword)
}

// Profile holds the optional fields written by CompleteProfile. Nil clears the field.
type Profile struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// ValidatePhone checks the fixed 11-digit national mobile format (09XXXXXXXXX).
func ValidatePhone(phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

// ClampPhone cuts raw input to at most MaxStoredPhoneLength bytes without splitting a character.
func ClampPhone(phone string) string {
	if len(phone) <= MaxStoredPhoneLength {
		return phone
	}
	n := MaxStoredPhoneLength
	for n > 0 && !utf8.RuneStart(phone[n]) {
		n--
	}
	return phone[:n]
}
