// Package usecase implements business logic orchestration for PII protection.
// This package coordinates cryptographic services, repositories, and domain
// logic to implement searchable field-level encryption.
package usecase

import (
	"context"

	"github.com/google/uuid"

	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// RecordRepository defines PIIRecord persistence operations.
type RecordRepository interface {
	Create(ctx context.Context, record *piiDomain.PIIRecord) error
	Get(ctx context.Context, recordID uuid.UUID) (*piiDomain.PIIRecord, error)
	ListByBlindIndex(ctx context.Context, fieldName string, tokens []string) ([]*piiDomain.PIIRecord, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*piiDomain.PIIRecord, error)
	ListStale(ctx context.Context, currentVersion uint, limit int) ([]*piiDomain.PIIRecord, error)
	Update(ctx context.Context, record *piiDomain.PIIRecord) error
	Scrub(ctx context.Context, recordID uuid.UUID) (bool, error)
	CountByKeyVersion(ctx context.Context, version uint) (int64, error)
}

// RecordUseCase defines the operations for protecting, revealing, and
// searching PII field values.
type RecordUseCase interface {
	// Protect encrypts and indexes a plaintext field value and persists the
	// resulting record.
	Protect(ctx context.Context, input *piiDomain.ProtectInput) (*piiDomain.PIIRecord, error)

	// Reveal decrypts a stored record back to plaintext.
	Reveal(ctx context.Context, recordID uuid.UUID) (string, error)

	// Update replaces a record's plaintext with a full re-encrypt and
	// re-index under the active key version.
	Update(ctx context.Context, recordID uuid.UUID, plaintext string) (*piiDomain.PIIRecord, error)

	// Search finds records whose field value exactly matches the query after
	// normalization. Blind-index candidates are decrypted and false positives
	// discarded before returning. An empty result is not an error.
	Search(ctx context.Context, fieldName string, query string) ([]*piiDomain.SearchMatch, error)
}
