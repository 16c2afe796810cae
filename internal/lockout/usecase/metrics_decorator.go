package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
	"github.com/allisson/pii-vault/internal/metrics"
)

// trackerWithMetrics decorates Tracker with metrics instrumentation.
type trackerWithMetrics struct {
	next    Tracker
	metrics metrics.BusinessMetrics
}

// NewTrackerWithMetrics wraps a Tracker with metrics recording.
func NewTrackerWithMetrics(tracker Tracker, m metrics.BusinessMetrics) Tracker {
	return &trackerWithMetrics{
		next:    tracker,
		metrics: m,
	}
}

// Check records metrics for lockout decisions, labeling each decision state
// so denied and fail-closed rates are observable separately.
func (t *trackerWithMetrics) Check(ctx context.Context, principalKey string) lockoutDomain.Decision {
	start := time.Now()
	decision := t.next.Check(ctx, principalKey)

	status := "allowed"
	switch decision.State {
	case lockoutDomain.Denied:
		status = "denied"
	case lockoutDomain.Indeterminate:
		status = "indeterminate"
	}

	t.metrics.RecordOperation(ctx, "lockout", "check", status)
	t.metrics.RecordDuration(ctx, "lockout", "check", time.Since(start), status)

	return decision
}

// RecordFailure records metrics for failure counting.
func (t *trackerWithMetrics) RecordFailure(
	ctx context.Context,
	principalKey string,
	subjectID *uuid.UUID,
) (time.Duration, error) {
	start := time.Now()
	delay, err := t.next.RecordFailure(ctx, principalKey, subjectID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "lockout", "record_failure", status)
	t.metrics.RecordDuration(ctx, "lockout", "record_failure", time.Since(start), status)

	return delay, err
}

// RecordSuccess records metrics for counter resets.
func (t *trackerWithMetrics) RecordSuccess(ctx context.Context, principalKey string) error {
	start := time.Now()
	err := t.next.RecordSuccess(ctx, principalKey)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "lockout", "record_success", status)
	t.metrics.RecordDuration(ctx, "lockout", "record_success", time.Since(start), status)

	return err
}

// ForgetSubject records metrics for erasure-driven counter deletion.
func (t *trackerWithMetrics) ForgetSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	start := time.Now()
	deleted, err := t.next.ForgetSubject(ctx, subjectID)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "lockout", "forget_subject", status)
	t.metrics.RecordDuration(ctx, "lockout", "forget_subject", time.Since(start), status)

	return deleted, err
}

// PurgeExpired records metrics for periodic counter cleanup.
func (t *trackerWithMetrics) PurgeExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := t.next.PurgeExpired(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	t.metrics.RecordOperation(ctx, "lockout", "purge_expired", status)
	t.metrics.RecordDuration(ctx, "lockout", "purge_expired", time.Since(start), status)

	return deleted, err
}
