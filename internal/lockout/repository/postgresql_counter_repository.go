// Package repository implements persistence for login attempt counters.
//
// Provides PostgreSQL and MySQL implementations. The failure path is a single
// atomic upsert-increment statement so concurrent failed attempts for the same
// principal are never lost or double-counted, with no read-modify-write gap.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	lockoutDomain "github.com/allisson/pii-vault/internal/lockout/domain"
)

// PostgreSQLCounterRepository implements AttemptCounter persistence for PostgreSQL.
type PostgreSQLCounterRepository struct {
	db *sql.DB
}

// NewPostgreSQLCounterRepository creates a new PostgreSQL AttemptCounter repository.
func NewPostgreSQLCounterRepository(db *sql.DB) *PostgreSQLCounterRepository {
	return &PostgreSQLCounterRepository{db: db}
}

// IncrementFailure records one failed attempt and returns the resulting
// counter state. The whole increment, including the rolling-window reset, runs
// inside one statement: a counter whose window anchor is older than the cutoff
// restarts at 1, anything newer increments.
func (p *PostgreSQLCounterRepository) IncrementFailure(
	ctx context.Context,
	principalKey string,
	subjectID *uuid.UUID,
	now time.Time,
	windowCutoff time.Time,
) (*lockoutDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO login_attempt_counters
			  (principal_key, subject_id, count, window_started_at, locked_until, updated_at)
			  VALUES ($1, $2, 1, $3, NULL, $3)
			  ON CONFLICT (principal_key) DO UPDATE SET
				  count = CASE
					  WHEN login_attempt_counters.window_started_at <= $4 THEN 1
					  ELSE login_attempt_counters.count + 1
				  END,
				  window_started_at = CASE
					  WHEN login_attempt_counters.window_started_at <= $4 THEN EXCLUDED.window_started_at
					  ELSE login_attempt_counters.window_started_at
				  END,
				  subject_id = COALESCE(EXCLUDED.subject_id, login_attempt_counters.subject_id),
				  updated_at = EXCLUDED.updated_at
			  RETURNING principal_key, subject_id, count, window_started_at, locked_until, updated_at`

	counter := &lockoutDomain.AttemptCounter{}
	err := querier.QueryRowContext(ctx, query, principalKey, subjectID, now, windowCutoff).Scan(
		&counter.PrincipalKey,
		&counter.SubjectID,
		&counter.Count,
		&counter.WindowStartedAt,
		&counter.LockedUntil,
		&counter.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return counter, nil
}

// SetLockedUntil extends the principal's hard lockout. GREATEST keeps the
// update idempotent under races: two attempts setting different deadlines
// both land on the later one.
func (p *PostgreSQLCounterRepository) SetLockedUntil(
	ctx context.Context,
	principalKey string,
	until time.Time,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE login_attempt_counters
			  SET locked_until = GREATEST(COALESCE(locked_until, to_timestamp(0)), $2), updated_at = $3
			  WHERE principal_key = $1`

	if _, err := querier.ExecContext(ctx, query, principalKey, until, now); err != nil {
		return apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return nil
}

// Get retrieves the counter for a principal without mutating it.
func (p *PostgreSQLCounterRepository) Get(
	ctx context.Context,
	principalKey string,
) (*lockoutDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT principal_key, subject_id, count, window_started_at, locked_until, updated_at
			  FROM login_attempt_counters
			  WHERE principal_key = $1`

	counter := &lockoutDomain.AttemptCounter{}
	err := querier.QueryRowContext(ctx, query, principalKey).Scan(
		&counter.PrincipalKey,
		&counter.SubjectID,
		&counter.Count,
		&counter.WindowStartedAt,
		&counter.LockedUntil,
		&counter.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lockoutDomain.ErrCounterNotFound
		}
		return nil, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return counter, nil
}

// Delete removes the counter for a principal. Called after a successful login.
func (p *PostgreSQLCounterRepository) Delete(ctx context.Context, principalKey string) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM login_attempt_counters WHERE principal_key = $1`

	if _, err := querier.ExecContext(ctx, query, principalKey); err != nil {
		return apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return nil
}

// DeleteBySubject removes every counter linked to a data subject and returns
// how many rows were deleted. Used by erasure.
func (p *PostgreSQLCounterRepository) DeleteBySubject(
	ctx context.Context,
	subjectID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM login_attempt_counters WHERE subject_id = $1`

	result, err := querier.ExecContext(ctx, query, subjectID)
	if err != nil {
		return 0, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return deleted, nil
}

// DeleteExpired removes counters whose window has lapsed and whose lockout,
// if any, has passed. Run periodically by the cleanup command.
func (p *PostgreSQLCounterRepository) DeleteExpired(
	ctx context.Context,
	windowCutoff time.Time,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM login_attempt_counters
			  WHERE window_started_at <= $1
			  AND (locked_until IS NULL OR locked_until <= $2)`

	result, err := querier.ExecContext(ctx, query, windowCutoff, now)
	if err != nil {
		return 0, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return deleted, nil
}
