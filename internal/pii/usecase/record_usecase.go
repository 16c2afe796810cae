package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// recordUseCase implements the RecordUseCase interface.
type recordUseCase struct {
	txManager  database.TxManager
	recordRepo RecordRepository
	encryptor  cryptoService.FieldEncryptor
	indexer    cryptoService.BlindIndexer
	keyChain   *cryptoDomain.RootKeyChain
}

// NewRecordUseCase creates a new RecordUseCase with the provided dependencies.
func NewRecordUseCase(
	txManager database.TxManager,
	recordRepo RecordRepository,
	encryptor cryptoService.FieldEncryptor,
	indexer cryptoService.BlindIndexer,
	keyChain *cryptoDomain.RootKeyChain,
) RecordUseCase {
	return &recordUseCase{
		txManager:  txManager,
		recordRepo: recordRepo,
		encryptor:  encryptor,
		indexer:    indexer,
		keyChain:   keyChain,
	}
}

// Protect encrypts and indexes a plaintext field value and persists the record.
//
// Ciphertext and blind-index token are always written together in one
// transaction: a record whose token and ciphertext disagree would be
// unfindable or, worse, findable under stale plaintext.
func (r *recordUseCase) Protect(
	ctx context.Context,
	input *piiDomain.ProtectInput,
) (*piiDomain.PIIRecord, error) {
	if err := validateProtectInput(input); err != nil {
		return nil, err
	}

	value, blindIndex, err := r.encryptAndIndex(input.Plaintext, input.Field)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &piiDomain.PIIRecord{
		ID:         uuid.Must(uuid.NewV7()),
		SubjectID:  input.SubjectID,
		OwnerType:  input.OwnerType,
		OwnerID:    input.OwnerID,
		FieldName:  input.Field.Name,
		Value:      value,
		BlindIndex: blindIndex,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return r.recordRepo.Create(txCtx, record)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Reveal decrypts a stored record back to plaintext.
func (r *recordUseCase) Reveal(ctx context.Context, recordID uuid.UUID) (string, error) {
	record, err := r.recordRepo.Get(ctx, recordID)
	if err != nil {
		return "", err
	}
	if record.IsScrubbed() {
		return "", piiDomain.ErrRecordScrubbed
	}

	policy, ok := cryptoDomain.FieldPolicyByName(record.FieldName)
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, record.FieldName)
	}

	return r.encryptor.Decrypt(record.Value, policy)
}

// Update replaces a record's plaintext with a full re-encrypt and re-index
// under the active key version.
func (r *recordUseCase) Update(
	ctx context.Context,
	recordID uuid.UUID,
	plaintext string,
) (*piiDomain.PIIRecord, error) {
	record, err := r.recordRepo.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.IsScrubbed() {
		return nil, piiDomain.ErrRecordScrubbed
	}

	policy, ok := cryptoDomain.FieldPolicyByName(record.FieldName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, record.FieldName)
	}

	value, blindIndex, err := r.encryptAndIndex(plaintext, policy)
	if err != nil {
		return nil, err
	}

	record.Value = value
	record.BlindIndex = blindIndex
	record.UpdatedAt = time.Now().UTC()

	err = r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return r.recordRepo.Update(txCtx, record)
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Search finds records whose field value exactly matches the query.
//
// Query tokens are computed for every live key version so records not yet
// rewrapped to the active version remain findable during rotation. Candidates
// matched by token equality are decrypted and compared against the normalized
// query; blind-index collisions are discarded here, so the index stays a
// filter rather than proof of identity.
func (r *recordUseCase) Search(
	ctx context.Context,
	fieldName string,
	query string,
) ([]*piiDomain.SearchMatch, error) {
	policy, ok := cryptoDomain.FieldPolicyByName(fieldName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown field %q", apperrors.ErrInvalidInput, fieldName)
	}
	if !policy.Searchable {
		return nil, fmt.Errorf("%w: field %q is not searchable", apperrors.ErrInvalidInput, fieldName)
	}

	tokens := make([]string, 0, 2)
	for _, version := range r.keyChain.Versions() {
		token, err := r.indexer.IndexWithVersion(query, policy, version)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token.Token)
	}

	candidates, err := r.recordRepo.ListByBlindIndex(ctx, policy.Name, tokens)
	if err != nil {
		return nil, err
	}

	normalized := cryptoService.NormalizeField(query, policy)
	matches := make([]*piiDomain.SearchMatch, 0, len(candidates))
	for _, candidate := range candidates {
		plaintext, err := r.encryptor.Decrypt(candidate.Value, policy)
		if err != nil {
			// A tampered or wrong-key record must surface, never be skipped
			// as if it simply didn't match.
			return nil, err
		}
		if plaintext != normalized {
			continue
		}
		matches = append(matches, &piiDomain.SearchMatch{Record: candidate, Plaintext: plaintext})
	}

	return matches, nil
}

// encryptAndIndex produces the encrypted value and, for searchable fields,
// the blind-index token, both under the active key version.
func (r *recordUseCase) encryptAndIndex(
	plaintext string,
	policy cryptoDomain.FieldPolicy,
) (cryptoDomain.EncryptedValue, *string, error) {
	value, err := r.encryptor.Encrypt(plaintext, policy)
	if err != nil {
		return cryptoDomain.EncryptedValue{}, nil, err
	}

	var blindIndex *string
	if policy.Searchable {
		token, err := r.indexer.Index(plaintext, policy)
		if err != nil {
			return cryptoDomain.EncryptedValue{}, nil, err
		}
		blindIndex = &token.Token
	}

	return value, blindIndex, nil
}
