package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileInput_RejectsBadEmails(t *testing.T) {
	for _, email := range []string{"x@-bad-.com", "a@b", "user@localhost", "not an email", "a@@example.com"} {
		t.Run(email, func(t *testing.T) {
			_, err := ProfileInput{Email: &email}.normalize()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, fieldEmail, ve.Field)
			assert.Equal(t, msgEmailInvalid, ve.Message)
		})
	}
}

func TestProfileInput_Normalize(t *testing.T) {
	str := func(s string) *string { return &s }

	p, err := ProfileInput{FirstName: str("  Sara "), LastName: str("   "), Email: str("sara@example.com")}.normalize()
	require.NoError(t, err)
	require.NotNil(t, p.FirstName)
	assert.Equal(t, "Sara", *p.FirstName)
	assert.Nil(t, p.LastName, "blank fields are cleared")
	assert.Equal(t, "sara@example.com", *p.Email)

	testCases := []struct {
		name  string
		in    ProfileInput
		field string
		msg   string
	}{
		{"first name", ProfileInput{FirstName: str(strings.Repeat("a", 31))}, fieldFirstName, "Ensure this field has no more than 30 characters."},
		{"last name", ProfileInput{LastName: str(strings.Repeat("ب", 51))}, fieldLastName, "Ensure this field has no more than 50 characters."},
		{"email length", ProfileInput{Email: str(strings.Repeat("a", 250) + "@example.com")}, fieldEmail, "Ensure this field has no more than 254 characters."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.normalize()
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, tc.msg, ve.Message)
		})
	}

	_, err = ProfileInput{LastName: str(strings.Repeat("ب", 50))}.normalize()
	assert.NoError(t, err, "limits count characters, not bytes")
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("long-enough"))
	assert.NoError(t, ValidatePassword("رمزعبور۱"))
	assert.Error(t, ValidatePassword("رمزع"), "eight bytes but four characters")

	var ve *ValidationError
	require.True(t, errors.As(ValidatePassword("short"), &ve))
	assert.Equal(t, fieldPassword, ve.Field)
	assert.Equal(t, msgPasswordShort, ve.Message)
	assert.Error(t, ValidatePassword(""))
}
