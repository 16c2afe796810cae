package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		err := Wrap(ErrNotFound, "record lookup failed")
		assert.EqualError(t, err, "record lookup failed: not found")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain through multiple wraps", func(t *testing.T) {
		inner := Wrap(ErrUnavailable, "counter store down")
		outer := fmt.Errorf("login attempt: %w", inner)
		assert.ErrorIs(t, outer, ErrUnavailable)
	})
}

func TestIs(t *testing.T) {
	err := Wrap(ErrInvalidInput, "bad field name")
	assert.True(t, Is(err, ErrInvalidInput))
	assert.False(t, Is(err, ErrNotFound))
}
