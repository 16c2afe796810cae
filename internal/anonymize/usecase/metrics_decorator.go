package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	anonymizeDomain "github.com/allisson/pii-vault/internal/anonymize/domain"
	"github.com/allisson/pii-vault/internal/metrics"
)

// erasureUseCaseWithMetrics decorates ErasureUseCase with metrics instrumentation.
type erasureUseCaseWithMetrics struct {
	next    ErasureUseCase
	metrics metrics.BusinessMetrics
}

// NewErasureUseCaseWithMetrics wraps an ErasureUseCase with metrics recording.
func NewErasureUseCaseWithMetrics(useCase ErasureUseCase, m metrics.BusinessMetrics) ErasureUseCase {
	return &erasureUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Erase records metrics for erasure runs. A run that completes but leaves
// failed records counts as an error so partial erasures are visible.
func (e *erasureUseCaseWithMetrics) Erase(
	ctx context.Context,
	subjectID uuid.UUID,
) (*anonymizeDomain.ErasureReport, error) {
	start := time.Now()
	report, err := e.next.Erase(ctx, subjectID)

	status := "success"
	if err != nil || (report != nil && !report.Complete()) {
		status = "error"
	}

	e.metrics.RecordOperation(ctx, "anonymize", "erase", status)
	e.metrics.RecordDuration(ctx, "anonymize", "erase", time.Since(start), status)

	return report, err
}
