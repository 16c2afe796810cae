// Package domain defines the protected PII record model.
//
// A PIIRecord holds one encrypted field value belonging to a parent entity
// (customer, passenger, claim note) together with its optional blind-index
// token. Records are created when the parent entity receives PII, replaced
// wholesale on update or key rotation, and destroyed only by tombstoning
// through the anonymization engine.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
)

// OwnerType identifies the kind of parent entity a record belongs to.
type OwnerType string

const (
	// OwnerCustomer is the claim's customer, the erasure subject itself.
	OwnerCustomer OwnerType = "customer"
	// OwnerPassenger is a passenger listed on one of the subject's claims.
	OwnerPassenger OwnerType = "passenger"
	// OwnerClaimNote is a free-text claim note attached to the subject's claims.
	OwnerClaimNote OwnerType = "claim_note"
)

// PIIRecord is one protected field value as persisted at the storage boundary.
//
// SubjectID links the record to the erasure subject even when the owner is a
// transitively linked entity (passenger, claim note), so a GDPR erasure run
// can locate everything with a single subject scan. BlindIndex is nil for
// non-searchable fields and is cleared when the record is tombstoned.
type PIIRecord struct {
	ID         uuid.UUID
	SubjectID  uuid.UUID
	OwnerType  OwnerType
	OwnerID    uuid.UUID
	FieldName  string
	Value      cryptoDomain.EncryptedValue
	BlindIndex *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsScrubbed reports whether the record has been tombstoned by erasure.
func (r *PIIRecord) IsScrubbed() bool {
	return r.Value.IsTombstone()
}

// ProtectInput carries the parameters for protecting one plaintext field value.
type ProtectInput struct {
	SubjectID uuid.UUID
	OwnerType OwnerType
	OwnerID   uuid.UUID
	Field     cryptoDomain.FieldPolicy
	Plaintext string
}

// SearchMatch is one confirmed search result: the candidate record matched by
// blind-index token and verified by decryption.
type SearchMatch struct {
	Record    *PIIRecord
	Plaintext string
}
