// Package domain defines erasure outcomes.
package domain

import (
	"github.com/google/uuid"
)

// RecordFailure is one record the erasure run could not scrub.
type RecordFailure struct {
	RecordID uuid.UUID
	Reason   string
}

// ErasureReport summarizes one erasure run for a data subject. Reruns are
// safe: already-scrubbed records count separately so a retry after a partial
// failure reports only the work it actually did.
type ErasureReport struct {
	SubjectID       uuid.UUID
	RecordsScrubbed int
	AlreadyScrubbed int
	CountersDeleted int64
	TokensDeleted   int64
	Failures        []RecordFailure
}

// Complete reports whether every record was scrubbed.
func (r *ErasureReport) Complete() bool {
	return len(r.Failures) == 0
}
