// Package usecase implements business logic for failed-login throttling.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
)

// CounterRepository defines the persistence contract for attempt counters.
// IncrementFailure must be atomic: concurrent calls for the same principal
// each observe a distinct count.
type CounterRepository interface {
	// IncrementFailure adds one failure, resetting the count when the window
	// anchor predates windowCutoff, and returns the resulting counter.
	IncrementFailure(
		ctx context.Context,
		principalKey string,
		subjectID *uuid.UUID,
		now time.Time,
		windowCutoff time.Time,
	) (*lockoutDomain.AttemptCounter, error)

	// SetLockedUntil raises the hard lockout deadline, keeping the later of
	// the existing and the new value.
	SetLockedUntil(ctx context.Context, principalKey string, until time.Time, now time.Time) error

	// Get retrieves the counter without mutating it.
	Get(ctx context.Context, principalKey string) (*lockoutDomain.AttemptCounter, error)

	// Delete removes the counter for a principal.
	Delete(ctx context.Context, principalKey string) error

	// DeleteBySubject removes every counter linked to a data subject.
	DeleteBySubject(ctx context.Context, subjectID uuid.UUID) (int64, error)

	// DeleteExpired removes counters with a lapsed window and no live lockout.
	DeleteExpired(ctx context.Context, windowCutoff time.Time, now time.Time) (int64, error)
}

// Tracker defines the throttling contract consumed by the auth gate.
type Tracker interface {
	// Check reports whether a principal may attempt a login right now.
	// A store failure yields Indeterminate, which callers treat as Denied.
	Check(ctx context.Context, principalKey string) lockoutDomain.Decision

	// RecordFailure registers one failed attempt and returns the delay the
	// principal must now wait before retrying.
	RecordFailure(ctx context.Context, principalKey string, subjectID *uuid.UUID) (time.Duration, error)

	// RecordSuccess clears the principal's counter after a successful login.
	RecordSuccess(ctx context.Context, principalKey string) error

	// ForgetSubject removes all counters belonging to a data subject.
	ForgetSubject(ctx context.Context, subjectID uuid.UUID) (int64, error)

	// PurgeExpired removes counters that can no longer influence a decision.
	PurgeExpired(ctx context.Context) (int64, error)
}
