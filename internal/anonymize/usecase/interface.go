// Package usecase implements right-to-erasure processing.
package usecase

import (
	"context"

	"github.com/google/uuid"

	anonymizeDomain "github.com/allisson/pii-vault/internal/anonymize/domain"
)

// ErasureUseCase defines the erasure contract.
type ErasureUseCase interface {
	// Erase tombstones every protected record for the subject, deletes the
	// subject's lockout counters, and revokes their session tokens. Safe to
	// rerun after a partial failure.
	Erase(ctx context.Context, subjectID uuid.UUID) (*anonymizeDomain.ErasureReport, error)
}
