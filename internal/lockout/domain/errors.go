package domain

import (
	"github.com/allisson/pii-vault/internal/errors"
)

var (
	// ErrCounterNotFound indicates no counter row exists for the principal.
	ErrCounterNotFound = errors.Wrap(errors.ErrNotFound, "attempt counter not found")
	// ErrCounterStoreUnavailable indicates the counter store could not be
	// reached or answered inconsistently. Lockout decisions built on this
	// error fail closed.
	ErrCounterStoreUnavailable = errors.Wrap(errors.ErrUnavailable, "attempt counter store unavailable")
)
