package domain

import (
	"github.com/allisson/pii-vault/internal/errors"
)

// PII record error definitions.
var (
	// ErrRecordNotFound indicates the requested PII record does not exist.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "pii record not found")

	// ErrRecordScrubbed indicates the record was tombstoned by erasure and
	// the operation (reveal, update) cannot proceed on it.
	ErrRecordScrubbed = errors.Wrap(errors.ErrNotFound, "pii record scrubbed")
)
