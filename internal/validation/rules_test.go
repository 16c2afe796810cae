package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/pii-vault/internal/errors"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"alice@example.com", true},
		{"alice.smith+tag@sub.example.co", true},
		{"", true}, // Required handles empty
		{"not-an-email", false},
		{"@example.com", false},
		{"alice@", false},
	}
	for _, tt := range tests {
		err := Email.Validate(tt.value)
		if tt.valid {
			assert.NoError(t, err, tt.value)
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}

func TestE164Phone(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"+15551234567", true},
		{"+442071838750", true},
		{"", true}, // Required handles empty
		{"15551234567", false},
		{"+0123", false},
		{"+1 555 123 4567", false},
	}
	for _, tt := range tests {
		err := E164Phone.Validate(tt.value)
		if tt.valid {
			assert.NoError(t, err, tt.value)
		} else {
			assert.Error(t, err, tt.value)
		}
	}
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.NoError(t, NotBlank.Validate("")) // Required handles empty
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate("\t\n"))
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}
