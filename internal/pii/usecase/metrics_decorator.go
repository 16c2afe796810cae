package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/pii-vault/internal/metrics"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// recordUseCaseWithMetrics decorates RecordUseCase with metrics instrumentation.
type recordUseCaseWithMetrics struct {
	next    RecordUseCase
	metrics metrics.BusinessMetrics
}

// NewRecordUseCaseWithMetrics wraps a RecordUseCase with metrics recording.
func NewRecordUseCaseWithMetrics(useCase RecordUseCase, m metrics.BusinessMetrics) RecordUseCase {
	return &recordUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Protect records metrics for field protection operations.
func (r *recordUseCaseWithMetrics) Protect(
	ctx context.Context,
	input *piiDomain.ProtectInput,
) (*piiDomain.PIIRecord, error) {
	start := time.Now()
	record, err := r.next.Protect(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "pii", "protect", status)
	r.metrics.RecordDuration(ctx, "pii", "protect", time.Since(start), status)

	return record, err
}

// Reveal records metrics for decryption operations.
func (r *recordUseCaseWithMetrics) Reveal(ctx context.Context, recordID uuid.UUID) (string, error) {
	start := time.Now()
	plaintext, err := r.next.Reveal(ctx, recordID)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "pii", "reveal", status)
	r.metrics.RecordDuration(ctx, "pii", "reveal", time.Since(start), status)

	return plaintext, err
}

// Update records metrics for re-encrypt+re-index update operations.
func (r *recordUseCaseWithMetrics) Update(
	ctx context.Context,
	recordID uuid.UUID,
	plaintext string,
) (*piiDomain.PIIRecord, error) {
	start := time.Now()
	record, err := r.next.Update(ctx, recordID, plaintext)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "pii", "update", status)
	r.metrics.RecordDuration(ctx, "pii", "update", time.Since(start), status)

	return record, err
}

// Search records metrics for blind-index search operations.
func (r *recordUseCaseWithMetrics) Search(
	ctx context.Context,
	fieldName string,
	query string,
) ([]*piiDomain.SearchMatch, error) {
	start := time.Now()
	matches, err := r.next.Search(ctx, fieldName, query)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "pii", "search", status)
	r.metrics.RecordDuration(ctx, "pii", "search", time.Since(start), status)

	return matches, err
}
