package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testRewrapConfig() RewrapConfig {
	return RewrapConfig{
		Interval:      10 * time.Millisecond,
		BatchSize:     10,
		RecordsPerSec: 1000,
		Workers:       4,
	}
}

func newRewrapUseCase(f *recordFixture) *RewrapUseCase {
	return NewRewrapUseCase(
		testRewrapConfig(),
		&noopTxManager{},
		f.repo,
		f.encryptor,
		f.indexer,
		f.keyChain,
		nil,
	)
}

// seedStaleRecord stores a record encrypted and indexed under an old key version.
func seedStaleRecord(t *testing.T, f *recordFixture, email string, version uint) *piiDomain.PIIRecord {
	t.Helper()
	value, err := f.encryptor.EncryptWithVersion(email, cryptoDomain.FieldEmail, version)
	require.NoError(t, err)
	token, err := f.indexer.IndexWithVersion(email, cryptoDomain.FieldEmail, version)
	require.NoError(t, err)
	subjectID := uuid.Must(uuid.NewV7())
	record := &piiDomain.PIIRecord{
		ID:         uuid.Must(uuid.NewV7()),
		SubjectID:  subjectID,
		OwnerType:  piiDomain.OwnerCustomer,
		OwnerID:    subjectID,
		FieldName:  "email",
		Value:      value,
		BlindIndex: &token.Token,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.repo.Create(context.Background(), record))
	return record
}

func TestRewrapUseCase_ProcessBatch(t *testing.T) {
	f := newRecordFixture(t, 2, 1, 2)
	ctx := context.Background()

	stale1 := seedStaleRecord(t, f, "alice@example.com", 1)
	stale2 := seedStaleRecord(t, f, "bob@example.com", 1)
	current := protectEmail(t, f, uuid.Must(uuid.NewV7()), "carol@example.com")

	uc := newRewrapUseCase(f)

	processed, err := uc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	for _, id := range []uuid.UUID{stale1.ID, stale2.ID, current.ID} {
		record, err := f.repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint(2), record.Value.KeyVersion)
	}

	// Rewrapped records stay revealable and searchable.
	plaintext, err := f.useCase.Reveal(ctx, stale1.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", plaintext)

	matches, err := f.useCase.Search(ctx, "email", "bob@example.com")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, stale2.ID, matches[0].Record.ID)

	processed, err = uc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
}

func TestRewrapUseCase_SkipsScrubbedRecords(t *testing.T) {
	f := newRecordFixture(t, 2, 1, 2)
	ctx := context.Background()

	record := seedStaleRecord(t, f, "alice@example.com", 1)
	newly, err := f.repo.Scrub(ctx, record.ID)
	require.NoError(t, err)
	require.True(t, newly)

	uc := newRewrapUseCase(f)

	processed, err := uc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	stored, err := f.repo.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsScrubbed())
}

func TestRewrapUseCase_Drain(t *testing.T) {
	f := newRecordFixture(t, 2, 1, 2)
	ctx := context.Background()

	total := 25 // more than one batch
	for range total {
		seedStaleRecord(t, f, "alice@example.com", 1)
	}

	uc := newRewrapUseCase(f)

	processed, err := uc.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, total, processed)

	count, err := f.repo.CountByKeyVersion(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRewrapUseCase_Start_ContextCancellation(t *testing.T) {
	f := newRecordFixture(t, 1, 1)
	uc := newRewrapUseCase(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uc.Start(ctx)
	assert.Equal(t, context.Canceled, err)
}
