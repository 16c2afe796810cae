package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/pii-vault/internal/auth/domain"
	"github.com/allisson/pii-vault/internal/metrics"
)

// gateUseCaseWithMetrics decorates GateUseCase with metrics instrumentation.
type gateUseCaseWithMetrics struct {
	next    GateUseCase
	metrics metrics.BusinessMetrics
}

// NewGateUseCaseWithMetrics wraps a GateUseCase with metrics recording.
func NewGateUseCaseWithMetrics(useCase GateUseCase, m metrics.BusinessMetrics) GateUseCase {
	return &gateUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Attempt records metrics for login attempts.
func (g *gateUseCaseWithMetrics) Attempt(
	ctx context.Context,
	input *authDomain.AttemptInput,
) (*authDomain.AttemptOutput, error) {
	start := time.Now()
	output, err := g.next.Attempt(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "auth", "attempt", status)
	g.metrics.RecordDuration(ctx, "auth", "attempt", time.Since(start), status)

	return output, err
}

// Authenticate records metrics for token validation.
func (g *gateUseCaseWithMetrics) Authenticate(ctx context.Context, plainToken string) (uuid.UUID, error) {
	start := time.Now()
	subjectID, err := g.next.Authenticate(ctx, plainToken)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "auth", "authenticate", status)
	g.metrics.RecordDuration(ctx, "auth", "authenticate", time.Since(start), status)

	return subjectID, err
}

// Revoke records metrics for single-token revocation.
func (g *gateUseCaseWithMetrics) Revoke(ctx context.Context, plainToken string) error {
	start := time.Now()
	err := g.next.Revoke(ctx, plainToken)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "auth", "revoke", status)
	g.metrics.RecordDuration(ctx, "auth", "revoke", time.Since(start), status)

	return err
}

// RevokeSubject records metrics for erasure-driven token deletion.
func (g *gateUseCaseWithMetrics) RevokeSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	start := time.Now()
	deleted, err := g.next.RevokeSubject(ctx, subjectID)

	status := "success"
	if err != nil {
		status = "error"
	}

	g.metrics.RecordOperation(ctx, "auth", "revoke_subject", status)
	g.metrics.RecordDuration(ctx, "auth", "revoke_subject", time.Since(start), status)

	return deleted, err
}
