package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	anonymizeDomain "github.com/allisson/pii-vault/internal/anonymize/domain"
	authService "github.com/allisson/pii-vault/internal/auth/service"
	authUseCase "github.com/allisson/pii-vault/internal/auth/usecase"
	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	cryptoService "github.com/allisson/pii-vault/internal/crypto/service"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
	lockoutUseCase "github.com/allisson/pii-vault/internal/lockout/usecase"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
	piiUseCase "github.com/allisson/pii-vault/internal/pii/usecase"
)

// erasureUseCase implements ErasureUseCase.
//
// Ordering matters: account principal keys are derived from the subject's
// encrypted email fields, so those must be decrypted before any record is
// tombstoned. Counter rows stamped with the subject ID are a second route to
// the same cleanup, which keeps reruns working after the email is gone.
type erasureUseCase struct {
	recordRepo   piiUseCase.RecordRepository
	encryptor    cryptoService.FieldEncryptor
	tracker      lockoutUseCase.Tracker
	gate         authUseCase.GateUseCase
	tokenService authService.TokenService
	logger       *slog.Logger
}

// NewErasureUseCase creates a new ErasureUseCase with the provided dependencies.
func NewErasureUseCase(
	recordRepo piiUseCase.RecordRepository,
	encryptor cryptoService.FieldEncryptor,
	tracker lockoutUseCase.Tracker,
	gate authUseCase.GateUseCase,
	tokenService authService.TokenService,
	logger *slog.Logger,
) ErasureUseCase {
	return &erasureUseCase{
		recordRepo:   recordRepo,
		encryptor:    encryptor,
		tracker:      tracker,
		gate:         gate,
		tokenService: tokenService,
		logger:       logger,
	}
}

// Erase tombstones the subject's records and removes their auth footprint.
func (e *erasureUseCase) Erase(
	ctx context.Context,
	subjectID uuid.UUID,
) (*anonymizeDomain.ErasureReport, error) {
	report := &anonymizeDomain.ErasureReport{SubjectID: subjectID}

	records, err := e.recordRepo.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	// Derive lockout principal keys from still-readable email fields before
	// the ciphertext is destroyed.
	principals := e.accountPrincipals(records, report)

	for _, record := range records {
		newlyScrubbed, err := e.recordRepo.Scrub(ctx, record.ID)
		if err != nil {
			report.Failures = append(report.Failures, anonymizeDomain.RecordFailure{
				RecordID: record.ID,
				Reason:   err.Error(),
			})
			continue
		}
		if newlyScrubbed {
			report.RecordsScrubbed++
		} else {
			report.AlreadyScrubbed++
		}
	}

	for principal := range principals {
		if err := e.tracker.RecordSuccess(ctx, principal); err != nil {
			return report, apperrors.Wrap(err, "failed to delete attempt counter")
		}
		report.CountersDeleted++
	}

	// Counters stamped with the subject ID cover principals whose email was
	// already tombstoned on a previous partial run.
	stamped, err := e.tracker.ForgetSubject(ctx, subjectID)
	if err != nil {
		return report, apperrors.Wrap(err, "failed to delete subject counters")
	}
	report.CountersDeleted += stamped

	tokens, err := e.gate.RevokeSubject(ctx, subjectID)
	if err != nil {
		return report, apperrors.Wrap(err, "failed to revoke subject tokens")
	}
	report.TokensDeleted = tokens

	if e.logger != nil {
		e.logger.Info("erasure completed",
			slog.String("subject_id", subjectID.String()),
			slog.Int("records_scrubbed", report.RecordsScrubbed),
			slog.Int("already_scrubbed", report.AlreadyScrubbed),
			slog.Int64("counters_deleted", report.CountersDeleted),
			slog.Int64("tokens_deleted", report.TokensDeleted),
			slog.Int("failures", len(report.Failures)),
		)
	}

	return report, nil
}

// accountPrincipals decrypts the subject's email fields into lockout
// principal keys. Unreadable fields are reported but do not abort the run;
// the subject-stamped counters remain as the fallback route.
func (e *erasureUseCase) accountPrincipals(
	records []*piiDomain.PIIRecord,
	report *anonymizeDomain.ErasureReport,
) map[string]struct{} {
	principals := make(map[string]struct{})
	for _, record := range records {
		if record.FieldName != cryptoDomain.FieldEmail.Name || record.IsScrubbed() {
			continue
		}
		email, err := e.encryptor.Decrypt(record.Value, cryptoDomain.FieldEmail)
		if err != nil {
			report.Failures = append(report.Failures, anonymizeDomain.RecordFailure{
				RecordID: record.ID,
				Reason:   "failed to decrypt email for counter cleanup: " + err.Error(),
			})
			continue
		}
		principals[lockoutDomain.AccountPrincipal(e.tokenService.DigestAccount(email))] = struct{}{}
	}
	return principals
}
