package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// RewrapConfig holds rewrap worker configuration.
type RewrapConfig struct {
	// Interval is the pause between batches when no stale records remain.
	Interval time.Duration
	// BatchSize is the number of records fetched per batch.
	BatchSize int
	// RecordsPerSec throttles re-encryption to bound database load.
	RecordsPerSec float64
	// Workers is the number of concurrent rewrap goroutines per batch.
	Workers int
}

// RewrapUseCase re-encrypts and re-indexes records under the active key
// version after a rotation.
//
// The worker runs out of band and never holds a lock that blocks live
// encrypt/decrypt/index calls: each record is read, transformed with the pure
// crypto services, and written back independently. Once ListStale drains, the
// old version references zero records and may be retired.
type RewrapUseCase struct {
	config     RewrapConfig
	txManager  database.TxManager
	recordRepo RecordRepository
	encryptor  cryptoService.FieldEncryptor
	indexer    cryptoService.BlindIndexer
	keyChain   *cryptoDomain.RootKeyChain
	logger     *slog.Logger
}

// NewRewrapUseCase creates a new RewrapUseCase.
func NewRewrapUseCase(
	config RewrapConfig,
	txManager database.TxManager,
	recordRepo RecordRepository,
	encryptor cryptoService.FieldEncryptor,
	indexer cryptoService.BlindIndexer,
	keyChain *cryptoDomain.RootKeyChain,
	logger *slog.Logger,
) *RewrapUseCase {
	return &RewrapUseCase{
		config:     config,
		txManager:  txManager,
		recordRepo: recordRepo,
		encryptor:  encryptor,
		indexer:    indexer,
		keyChain:   keyChain,
		logger:     logger,
	}
}

// Start runs the rewrap processing loop until the context is canceled.
func (u *RewrapUseCase) Start(ctx context.Context) error {
	if u.logger != nil {
		u.logger.Info("starting rewrap worker",
			slog.Duration("interval", u.config.Interval),
			slog.Int("batch_size", u.config.BatchSize),
			slog.Uint64("active_key_version", uint64(u.keyChain.ActiveVersion())),
		)
	}

	ticker := time.NewTicker(u.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if u.logger != nil {
				u.logger.Info("stopping rewrap worker")
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := u.ProcessBatch(ctx); err != nil {
				if u.logger != nil {
					u.logger.Error("rewrap batch failed", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessBatch rewraps one batch of stale records and returns how many were
// processed. Returns zero when every record already references the active
// version.
func (u *RewrapUseCase) ProcessBatch(ctx context.Context) (int, error) {
	activeVersion := u.keyChain.ActiveVersion()

	stale, err := u.recordRepo.ListStale(ctx, activeVersion, u.config.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Limit(u.config.RecordsPerSec), 1)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(u.config.Workers)
	for _, record := range stale {
		group.Go(func() error {
			if err := limiter.Wait(groupCtx); err != nil {
				return err
			}
			return u.rewrapRecord(groupCtx, record, activeVersion)
		})
	}
	if err := group.Wait(); err != nil {
		return 0, err
	}

	if u.logger != nil {
		u.logger.Info("rewrapped records",
			slog.Int("count", len(stale)),
			slog.Uint64("key_version", uint64(activeVersion)),
		)
	}
	return len(stale), nil
}

// Drain processes batches until no stale records remain. Used by the CLI
// command to finish a rotation in the foreground.
func (u *RewrapUseCase) Drain(ctx context.Context) (int, error) {
	total := 0
	for {
		processed, err := u.ProcessBatch(ctx)
		if err != nil {
			return total, err
		}
		if processed == 0 {
			return total, nil
		}
		total += processed
	}
}

// rewrapRecord re-encrypts and re-indexes one record under the target version.
func (u *RewrapUseCase) rewrapRecord(
	ctx context.Context,
	record *piiDomain.PIIRecord,
	targetVersion uint,
) error {
	policy, ok := cryptoDomain.FieldPolicyByName(record.FieldName)
	if !ok {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown field "+record.FieldName)
	}

	plaintext, err := u.encryptor.Decrypt(record.Value, policy)
	if err != nil {
		return apperrors.Wrap(err, "rewrap decrypt failed for record "+record.ID.String())
	}

	value, err := u.encryptor.EncryptWithVersion(plaintext, policy, targetVersion)
	if err != nil {
		return err
	}

	var blindIndex *string
	if policy.Searchable {
		token, err := u.indexer.IndexWithVersion(plaintext, policy, targetVersion)
		if err != nil {
			return err
		}
		blindIndex = &token.Token
	}

	record.Value = value
	record.BlindIndex = blindIndex
	record.UpdatedAt = time.Now().UTC()

	return u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		return u.recordRepo.Update(txCtx, record)
	})
}
