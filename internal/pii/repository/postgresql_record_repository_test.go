package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
	"github.com/allisson/pii-vault/internal/testutil"
)

func newTestRecord(fieldName, blindIndex string, keyVersion uint) *piiDomain.PIIRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	record := &piiDomain.PIIRecord{
		ID:        uuid.Must(uuid.NewV7()),
		SubjectID: uuid.Must(uuid.NewV7()),
		OwnerType: piiDomain.OwnerCustomer,
		OwnerID:   uuid.Must(uuid.NewV7()),
		FieldName: fieldName,
		Value: cryptoDomain.EncryptedValue{
			Ciphertext: []byte("ciphertext"),
			Nonce:      []byte("nonce-123456"),
			KeyVersion: keyVersion,
			Algorithm:  cryptoDomain.AESGCM,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if blindIndex != "" {
		record.BlindIndex = &blindIndex
	}
	return record
}

func TestPostgreSQLRecordRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	record := newTestRecord("email", "token-1", 1)
	require.NoError(t, repo.Create(ctx, record))

	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, record.SubjectID, got.SubjectID)
	assert.Equal(t, piiDomain.OwnerCustomer, got.OwnerType)
	assert.Equal(t, "email", got.FieldName)
	assert.Equal(t, record.Value.Ciphertext, got.Value.Ciphertext)
	assert.Equal(t, record.Value.Nonce, got.Value.Nonce)
	assert.Equal(t, uint(1), got.Value.KeyVersion)
	assert.Equal(t, cryptoDomain.AESGCM, got.Value.Algorithm)
	require.NotNil(t, got.BlindIndex)
	assert.Equal(t, "token-1", *got.BlindIndex)
}

func TestPostgreSQLRecordRepository_GetNotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)

	_, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestPostgreSQLRecordRepository_ListByBlindIndex(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	// Two records under the same token (different key versions), one under
	// another token, one under a different field.
	matchV1 := newTestRecord("email", "token-a", 1)
	matchV2 := newTestRecord("email", "token-b", 2)
	other := newTestRecord("email", "token-c", 1)
	otherField := newTestRecord("phone", "token-a", 1)
	for _, record := range []*piiDomain.PIIRecord{matchV1, matchV2, other, otherField} {
		require.NoError(t, repo.Create(ctx, record))
	}

	records, err := repo.ListByBlindIndex(ctx, "email", []string{"token-a", "token-b"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	ids := []uuid.UUID{records[0].ID, records[1].ID}
	assert.Contains(t, ids, matchV1.ID)
	assert.Contains(t, ids, matchV2.ID)
}

func TestPostgreSQLRecordRepository_ListByBlindIndex_NoTokens(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)

	records, err := repo.ListByBlindIndex(context.Background(), "email", nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPostgreSQLRecordRepository_ListBySubject(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	first := newTestRecord("email", "token-a", 1)
	second := newTestRecord("phone", "", 1)
	second.SubjectID = first.SubjectID
	unrelated := newTestRecord("email", "token-b", 1)
	for _, record := range []*piiDomain.PIIRecord{first, second, unrelated} {
		require.NoError(t, repo.Create(ctx, record))
	}

	records, err := repo.ListBySubject(ctx, first.SubjectID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Equal(t, first.SubjectID, record.SubjectID)
	}
}

func TestPostgreSQLRecordRepository_ListStale(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	stale := newTestRecord("email", "token-a", 1)
	current := newTestRecord("email", "token-b", 2)
	scrubbed := newTestRecord("email", "token-c", 1)
	for _, record := range []*piiDomain.PIIRecord{stale, current, scrubbed} {
		require.NoError(t, repo.Create(ctx, record))
	}
	_, err := repo.Scrub(ctx, scrubbed.ID)
	require.NoError(t, err)

	// Tombstoned records are never rewrapped.
	records, err := repo.ListStale(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stale.ID, records[0].ID)
}

func TestPostgreSQLRecordRepository_Update(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	record := newTestRecord("email", "token-a", 1)
	require.NoError(t, repo.Create(ctx, record))

	newIndex := "token-new"
	record.Value.Ciphertext = []byte("new-ciphertext")
	record.Value.Nonce = []byte("new-nonce-12")
	record.Value.KeyVersion = 2
	record.BlindIndex = &newIndex
	record.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Update(ctx, record))

	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-ciphertext"), got.Value.Ciphertext)
	assert.Equal(t, uint(2), got.Value.KeyVersion)
	require.NotNil(t, got.BlindIndex)
	assert.Equal(t, "token-new", *got.BlindIndex)
}

func TestPostgreSQLRecordRepository_Scrub(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	record := newTestRecord("email", "token-a", 1)
	require.NoError(t, repo.Create(ctx, record))

	scrubbed, err := repo.Scrub(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, scrubbed)

	got, err := repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, got.IsScrubbed())
	assert.Nil(t, got.BlindIndex)
	assert.Nil(t, got.Value.Nonce)
	assert.Equal(t, uint(0), got.Value.KeyVersion)

	// Re-running on a tombstone affects zero rows.
	scrubbed, err = repo.Scrub(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, scrubbed)
}

func TestPostgreSQLRecordRepository_CountByKeyVersion(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLRecordRepository(db)
	ctx := context.Background()

	v1a := newTestRecord("email", "token-a", 1)
	v1b := newTestRecord("phone", "", 1)
	v2 := newTestRecord("email", "token-b", 2)
	scrubbed := newTestRecord("email", "token-c", 1)
	for _, record := range []*piiDomain.PIIRecord{v1a, v1b, v2, scrubbed} {
		require.NoError(t, repo.Create(ctx, record))
	}
	_, err := repo.Scrub(ctx, scrubbed.ID)
	require.NoError(t, err)

	count, err := repo.CountByKeyVersion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByKeyVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
