package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/pii-vault/internal/errors"
	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
)

// TrackerConfig holds throttling parameters.
type TrackerConfig struct {
	// MaxAttempts is the failure count inside the window that triggers a
	// hard lockout.
	MaxAttempts int
	// LockoutDuration is how long a hard lockout lasts.
	LockoutDuration time.Duration
	// Window is the rolling period over which failures accumulate.
	Window time.Duration
	// BackoffSchedule maps the Nth failure to a wait before the next
	// attempt. Failures beyond the schedule use BackoffCap.
	BackoffSchedule []time.Duration
	// BackoffCap bounds every backoff delay.
	BackoffCap time.Duration
	// StoreRetries is how many extra times a failed store call is retried
	// before the tracker gives up and fails closed.
	StoreRetries int
}

// trackerUseCase implements the Tracker interface over a CounterRepository.
//
// Every path that cannot establish the true counter state resolves against
// the caller: store errors surface as Indeterminate decisions or as wrapped
// ErrCounterStoreUnavailable, never as a silently allowed attempt.
type trackerUseCase struct {
	config      TrackerConfig
	counterRepo CounterRepository
	logger      *slog.Logger
	now         func() time.Time
}

// NewTracker creates a new Tracker with the provided dependencies.
func NewTracker(config TrackerConfig, counterRepo CounterRepository, logger *slog.Logger) Tracker {
	return &trackerUseCase{
		config:      config,
		counterRepo: counterRepo,
		logger:      logger,
		now:         time.Now,
	}
}

// backoffFor returns the wait imposed by the Nth failure.
func (t *trackerUseCase) backoffFor(count int) time.Duration {
	if count <= 0 {
		return 0
	}
	idx := count - 1
	if idx >= len(t.config.BackoffSchedule) {
		return t.config.BackoffCap
	}
	backoff := t.config.BackoffSchedule[idx]
	if backoff > t.config.BackoffCap {
		return t.config.BackoffCap
	}
	return backoff
}

// decide turns a counter into a decision as of now. The backoff delay counts
// from the last failure; the hard lockout counts from its absolute deadline.
// Whichever reaches further into the future wins.
func (t *trackerUseCase) decide(counter *lockoutDomain.AttemptCounter, now time.Time) lockoutDomain.Decision {
	delay := time.Duration(0)

	if counter.WindowStartedAt.After(now.Add(-t.config.Window)) {
		deadline := counter.UpdatedAt.Add(t.backoffFor(counter.Count))
		if remaining := deadline.Sub(now); remaining > delay {
			delay = remaining
		}
	}
	if counter.LockedUntil != nil {
		if remaining := counter.LockedUntil.Sub(now); remaining > delay {
			delay = remaining
		}
	}

	if delay > 0 {
		return lockoutDomain.Decision{State: lockoutDomain.Denied, RetryAfter: delay}
	}
	return lockoutDomain.Decision{State: lockoutDomain.Allowed}
}

// Check reports whether a principal may attempt a login right now.
func (t *trackerUseCase) Check(ctx context.Context, principalKey string) lockoutDomain.Decision {
	var lastErr error
	for attempt := 0; attempt <= t.config.StoreRetries; attempt++ {
		counter, err := t.counterRepo.Get(ctx, principalKey)
		if err == nil {
			return t.decide(counter, t.now())
		}
		if apperrors.Is(err, lockoutDomain.ErrCounterNotFound) {
			return lockoutDomain.Decision{State: lockoutDomain.Allowed}
		}
		lastErr = err
	}
	if t.logger != nil {
		t.logger.Error("lockout check failed, failing closed",
			slog.String("principal_key", principalKey),
			slog.Any("error", lastErr),
		)
	}
	return lockoutDomain.Decision{State: lockoutDomain.Indeterminate}
}

// RecordFailure registers one failed attempt and returns the delay the
// principal must now wait before retrying.
func (t *trackerUseCase) RecordFailure(
	ctx context.Context,
	principalKey string,
	subjectID *uuid.UUID,
) (time.Duration, error) {
	now := t.now()
	windowCutoff := now.Add(-t.config.Window)

	var counter *lockoutDomain.AttemptCounter
	var err error
	for attempt := 0; attempt <= t.config.StoreRetries; attempt++ {
		counter, err = t.counterRepo.IncrementFailure(ctx, principalKey, subjectID, now, windowCutoff)
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0, err
	}

	backoff := t.backoffFor(counter.Count)

	if counter.Count >= t.config.MaxAttempts {
		until := now.Add(t.config.LockoutDuration)
		if err := t.counterRepo.SetLockedUntil(ctx, principalKey, until, now); err != nil {
			return 0, err
		}
		if counter.LockedUntil == nil || counter.LockedUntil.Before(until) {
			counter.LockedUntil = &until
		}
		if t.logger != nil {
			t.logger.Warn("principal locked out",
				slog.String("principal_key", principalKey),
				slog.Int("count", counter.Count),
				slog.Time("locked_until", *counter.LockedUntil),
			)
		}
	}

	return counter.RetryAfter(now, backoff), nil
}

// RecordSuccess clears the principal's counter after a successful login.
func (t *trackerUseCase) RecordSuccess(ctx context.Context, principalKey string) error {
	return t.counterRepo.Delete(ctx, principalKey)
}

// ForgetSubject removes all counters belonging to a data subject.
func (t *trackerUseCase) ForgetSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	return t.counterRepo.DeleteBySubject(ctx, subjectID)
}

// PurgeExpired removes counters that can no longer influence a decision.
func (t *trackerUseCase) PurgeExpired(ctx context.Context) (int64, error) {
	now := t.now()
	return t.counterRepo.DeleteExpired(ctx, now.Add(-t.config.Window), now)
}
