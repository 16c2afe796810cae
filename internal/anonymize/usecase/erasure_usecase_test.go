package usecase

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/pii-vault/internal/auth/domain"
	authService "github.com/allisson/pii-vault/internal/auth/service"
	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// fakeRecordRepo is an in-memory record store for erasure tests.
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*piiDomain.PIIRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[uuid.UUID]*piiDomain.PIIRecord)}
}

func (f *fakeRecordRepo) Create(_ context.Context, record *piiDomain.PIIRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeRecordRepo) Get(_ context.Context, recordID uuid.UUID) (*piiDomain.PIIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[recordID]
	if !ok {
		return nil, piiDomain.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (f *fakeRecordRepo) ListByBlindIndex(
	_ context.Context, _ string, _ []string,
) ([]*piiDomain.PIIRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) ListBySubject(
	_ context.Context,
	subjectID uuid.UUID,
) ([]*piiDomain.PIIRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*piiDomain.PIIRecord
	for _, record := range f.records {
		if record.SubjectID == subjectID {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) ListStale(
	_ context.Context, _ uint, _ int,
) ([]*piiDomain.PIIRecord, error) {
	return nil, nil
}

func (f *fakeRecordRepo) Update(_ context.Context, record *piiDomain.PIIRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	f.records[record.ID] = &clone
	return nil
}

func (f *fakeRecordRepo) Scrub(_ context.Context, recordID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[recordID]
	if !ok || record.Value.Algorithm == cryptoDomain.Erased {
		return false, nil
	}
	record.Value = cryptoDomain.Tombstone()
	record.BlindIndex = nil
	return true, nil
}

func (f *fakeRecordRepo) CountByKeyVersion(_ context.Context, _ uint) (int64, error) {
	return 0, nil
}

// MockTracker is a mock implementation of lockout usecase Tracker.
type MockTracker struct {
	mock.Mock
}

func (m *MockTracker) Check(ctx context.Context, principalKey string) lockoutDomain.Decision {
	args := m.Called(ctx, principalKey)
	return args.Get(0).(lockoutDomain.Decision)
}

func (m *MockTracker) RecordFailure(
	ctx context.Context,
	principalKey string,
	subjectID *uuid.UUID,
) (time.Duration, error) {
	args := m.Called(ctx, principalKey, subjectID)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockTracker) RecordSuccess(ctx context.Context, principalKey string) error {
	args := m.Called(ctx, principalKey)
	return args.Error(0)
}

func (m *MockTracker) ForgetSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTracker) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockGate is a mock implementation of auth usecase GateUseCase. Only
// RevokeSubject is exercised here.
type MockGate struct {
	mock.Mock
}

func (m *MockGate) Attempt(
	ctx context.Context,
	input *authDomain.AttemptInput,
) (*authDomain.AttemptOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.AttemptOutput), args.Error(1)
}

func (m *MockGate) Authenticate(ctx context.Context, plainToken string) (uuid.UUID, error) {
	args := m.Called(ctx, plainToken)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockGate) Revoke(ctx context.Context, plainToken string) error {
	args := m.Called(ctx, plainToken)
	return args.Error(0)
}

func (m *MockGate) RevokeSubject(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).(int64), args.Error(1)
}

type erasureFixture struct {
	useCase   ErasureUseCase
	repo      *fakeRecordRepo
	encryptor cryptoService.FieldEncryptor
	indexer   cryptoService.BlindIndexer
	tracker   *MockTracker
	gate      *MockGate
	tokenSvc  authService.TokenService
}

func newErasureFixture(t *testing.T) *erasureFixture {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	chain, err := cryptoDomain.NewRootKeyChain(1, &cryptoDomain.RootKey{Version: 1, Key: key})
	require.NoError(t, err)
	t.Cleanup(chain.Close)

	deriver := cryptoService.NewKeyDeriver(chain)
	encryptor := cryptoService.NewFieldEncryptor(deriver, cryptoService.NewAEADManager(), cryptoDomain.AESGCM)
	indexer := cryptoService.NewBlindIndexer(deriver)
	repo := newFakeRecordRepo()
	tracker := &MockTracker{}
	gate := &MockGate{}
	tokenSvc := authService.NewTokenService()

	return &erasureFixture{
		useCase:   NewErasureUseCase(repo, encryptor, tracker, gate, tokenSvc, nil),
		repo:      repo,
		encryptor: encryptor,
		indexer:   indexer,
		tracker:   tracker,
		gate:      gate,
		tokenSvc:  tokenSvc,
	}
}

func (f *erasureFixture) storeField(
	t *testing.T,
	subjectID uuid.UUID,
	field cryptoDomain.FieldPolicy,
	plaintext string,
) *piiDomain.PIIRecord {
	t.Helper()
	value, err := f.encryptor.Encrypt(plaintext, field)
	require.NoError(t, err)
	var blindIndex *string
	if field.Searchable {
		token, err := f.indexer.Index(plaintext, field)
		require.NoError(t, err)
		blindIndex = &token.Token
	}
	record := &piiDomain.PIIRecord{
		ID:         uuid.Must(uuid.NewV7()),
		SubjectID:  subjectID,
		OwnerType:  piiDomain.OwnerCustomer,
		OwnerID:    subjectID,
		FieldName:  field.Name,
		Value:      value,
		BlindIndex: blindIndex,
	}
	require.NoError(t, f.repo.Create(context.Background(), record))
	return record
}

func TestErasureUseCase_Erase(t *testing.T) {
	f := newErasureFixture(t)
	ctx := context.Background()
	subjectID := uuid.Must(uuid.NewV7())

	email := f.storeField(t, subjectID, cryptoDomain.FieldEmail, "Alice@Example.com")
	phone := f.storeField(t, subjectID, cryptoDomain.FieldPhone, "+15551234567")
	address := f.storeField(t, subjectID, cryptoDomain.FieldAddress, "1 Main Street")

	// Another subject's record must be untouched.
	otherSubject := uuid.Must(uuid.NewV7())
	other := f.storeField(t, otherSubject, cryptoDomain.FieldEmail, "bob@example.com")

	expectedPrincipal := lockoutDomain.AccountPrincipal(f.tokenSvc.DigestAccount("alice@example.com"))
	f.tracker.On("RecordSuccess", mock.Anything, expectedPrincipal).Return(nil)
	f.tracker.On("ForgetSubject", mock.Anything, subjectID).Return(int64(1), nil)
	f.gate.On("RevokeSubject", mock.Anything, subjectID).Return(int64(2), nil)

	report, err := f.useCase.Erase(ctx, subjectID)
	require.NoError(t, err)

	assert.Equal(t, 3, report.RecordsScrubbed)
	assert.Equal(t, 0, report.AlreadyScrubbed)
	assert.Equal(t, int64(2), report.CountersDeleted) // principal delete + stamped row
	assert.Equal(t, int64(2), report.TokensDeleted)
	assert.True(t, report.Complete())
	f.tracker.AssertExpectations(t)
	f.gate.AssertExpectations(t)

	// Scrubbed records decrypt to the distinct erased error, not a
	// tamper failure, and lose their blind index.
	for _, id := range []uuid.UUID{email.ID, phone.ID, address.ID} {
		record, err := f.repo.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, record.IsScrubbed())
		assert.Nil(t, record.BlindIndex)

		_, err = f.encryptor.Decrypt(record.Value, cryptoDomain.FieldEmail)
		assert.ErrorIs(t, err, cryptoDomain.ErrValueErased)
	}

	record, err := f.repo.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, record.IsScrubbed())
}

func TestErasureUseCase_Erase_Idempotent(t *testing.T) {
	f := newErasureFixture(t)
	ctx := context.Background()
	subjectID := uuid.Must(uuid.NewV7())

	f.storeField(t, subjectID, cryptoDomain.FieldEmail, "alice@example.com")
	f.storeField(t, subjectID, cryptoDomain.FieldPhone, "+15551234567")

	principal := lockoutDomain.AccountPrincipal(f.tokenSvc.DigestAccount("alice@example.com"))
	f.tracker.On("RecordSuccess", mock.Anything, principal).Return(nil).Once()
	f.tracker.On("ForgetSubject", mock.Anything, subjectID).Return(int64(0), nil)
	f.gate.On("RevokeSubject", mock.Anything, subjectID).Return(int64(0), nil)

	report, err := f.useCase.Erase(ctx, subjectID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecordsScrubbed)

	// The rerun reports zero newly scrubbed records and, with the email
	// already tombstoned, relies on the subject-stamped counters alone.
	report, err = f.useCase.Erase(ctx, subjectID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RecordsScrubbed)
	assert.Equal(t, 2, report.AlreadyScrubbed)
	assert.Equal(t, int64(0), report.CountersDeleted)
	f.tracker.AssertNumberOfCalls(t, "RecordSuccess", 1)
}

func TestErasureUseCase_Erase_NoRecords(t *testing.T) {
	f := newErasureFixture(t)
	subjectID := uuid.Must(uuid.NewV7())

	f.tracker.On("ForgetSubject", mock.Anything, subjectID).Return(int64(0), nil)
	f.gate.On("RevokeSubject", mock.Anything, subjectID).Return(int64(0), nil)

	report, err := f.useCase.Erase(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RecordsScrubbed)
	assert.True(t, report.Complete())
}
