package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptCounter is one principal's failed-login state inside the rolling
// window. The counter row is created on the first failure and deleted on the
// next successful login, so most principals have no row at all.
type AttemptCounter struct {
	// PrincipalKey identifies who is being throttled. Keys are namespaced
	// strings such as "acct:<hash>" or "ip:<addr>" so different principal
	// kinds never collide.
	PrincipalKey string `json:"principal_key"`
	// SubjectID links account-scoped counters to their data subject so
	// erasure can find them even after the account email is tombstoned.
	// Nil for principals with no subject, such as plain IP addresses.
	SubjectID *uuid.UUID `json:"subject_id"`
	Count     int        `json:"count"`
	// WindowStartedAt anchors the rolling window. A failure arriving after
	// WindowStartedAt+window resets Count to 1 and moves the anchor.
	WindowStartedAt time.Time  `json:"window_started_at"`
	LockedUntil     *time.Time `json:"locked_until"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RetryAfter returns how long the principal must wait as of now, combining
// the per-attempt backoff delay with any hard lockout. The longer delay wins.
func (c *AttemptCounter) RetryAfter(now time.Time, backoff time.Duration) time.Duration {
	delay := backoff
	if c.LockedUntil != nil {
		if remaining := c.LockedUntil.Sub(now); remaining > delay {
			delay = remaining
		}
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// DecisionState classifies an IsLocked check.
type DecisionState int

const (
	// Allowed means the attempt may proceed to credential verification.
	Allowed DecisionState = iota
	// Denied means the principal must wait before the next attempt.
	Denied
	// Indeterminate means the counter store could not answer. Callers must
	// treat this the same as Denied: an unreachable store never opens the
	// gate to unlimited guessing.
	Indeterminate
)

// Decision is the outcome of a lockout check.
type Decision struct {
	State DecisionState
	// RetryAfter is populated when State is Denied.
	RetryAfter time.Duration
}

// Proceed reports whether the attempt may continue. Indeterminate fails closed.
func (d Decision) Proceed() bool {
	return d.State == Allowed
}

// LockedError is returned to callers when an attempt is rejected before
// credential verification. The message is deliberately generic so it leaks
// nothing about whether the account exists.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// AccountPrincipal builds the counter key for an account identifier. The
// identifier is expected to be an opaque digest, never the raw email.
func AccountPrincipal(digest string) string {
	return "acct:" + digest
}

// IPPrincipal builds the counter key for a source address.
func IPPrincipal(addr string) string {
	return "ip:" + addr
}
