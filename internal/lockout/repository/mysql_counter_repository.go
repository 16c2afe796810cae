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

// MySQLCounterRepository implements AttemptCounter persistence for MySQL.
// UUIDs are stored as CHAR(36) strings.
type MySQLCounterRepository struct {
	db *sql.DB
}

// NewMySQLCounterRepository creates a new MySQL AttemptCounter repository.
func NewMySQLCounterRepository(db *sql.DB) *MySQLCounterRepository {
	return &MySQLCounterRepository{db: db}
}

// IncrementFailure records one failed attempt and returns the resulting
// counter state. MySQL has no RETURNING, so the atomic increment statement is
// followed by a read of the row. The increment itself is still a single
// statement; assignment order matters because count must see the old window
// anchor before window_started_at is rewritten.
func (m *MySQLCounterRepository) IncrementFailure(
	ctx context.Context,
	principalKey string,
	subjectID *uuid.UUID,
	now time.Time,
	windowCutoff time.Time,
) (*lockoutDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO login_attempt_counters
			  (principal_key, subject_id, count, window_started_at, locked_until, updated_at)
			  VALUES (?, ?, 1, ?, NULL, ?)
			  ON DUPLICATE KEY UPDATE
				  count = IF(window_started_at <= ?, 1, count + 1),
				  window_started_at = IF(window_started_at <= ?, VALUES(window_started_at), window_started_at),
				  subject_id = COALESCE(VALUES(subject_id), subject_id),
				  updated_at = VALUES(updated_at)`

	var subjectParam sql.NullString
	if subjectID != nil {
		subjectParam = sql.NullString{String: subjectID.String(), Valid: true}
	}

	_, err := querier.ExecContext(
		ctx, query, principalKey, subjectParam, now, now, windowCutoff, windowCutoff,
	)
	if err != nil {
		return nil, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}

	counter, err := m.Get(ctx, principalKey)
	if err != nil {
		return nil, apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return counter, nil
}

// SetLockedUntil extends the principal's hard lockout, keeping the later of
// the existing and the new deadline.
func (m *MySQLCounterRepository) SetLockedUntil(
	ctx context.Context,
	principalKey string,
	until time.Time,
	now time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE login_attempt_counters
			  SET locked_until = GREATEST(COALESCE(locked_until, FROM_UNIXTIME(0)), ?), updated_at = ?
			  WHERE principal_key = ?`

	if _, err := querier.ExecContext(ctx, query, until, now, principalKey); err != nil {
		return apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return nil
}

// Get retrieves the counter for a principal without mutating it.
func (m *MySQLCounterRepository) Get(
	ctx context.Context,
	principalKey string,
) (*lockoutDomain.AttemptCounter, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT principal_key, subject_id, count, window_started_at, locked_until, updated_at
			  FROM login_attempt_counters
			  WHERE principal_key = ?`

	counter := &lockoutDomain.AttemptCounter{}
	var subjectIDStr sql.NullString
	err := querier.QueryRowContext(ctx, query, principalKey).Scan(
		&counter.PrincipalKey,
		&subjectIDStr,
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
	if subjectIDStr.Valid {
		subjectID, err := uuid.Parse(subjectIDStr.String)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse subject_id")
		}
		counter.SubjectID = &subjectID
	}
	return counter, nil
}

// Delete removes the counter for a principal. Called after a successful login.
func (m *MySQLCounterRepository) Delete(ctx context.Context, principalKey string) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM login_attempt_counters WHERE principal_key = ?`

	if _, err := querier.ExecContext(ctx, query, principalKey); err != nil {
		return apperrors.Wrap(lockoutDomain.ErrCounterStoreUnavailable, err.Error())
	}
	return nil
}

// DeleteBySubject removes every counter linked to a data subject and returns
// how many rows were deleted. Used by erasure.
func (m *MySQLCounterRepository) DeleteBySubject(
	ctx context.Context,
	subjectID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM login_attempt_counters WHERE subject_id = ?`

	result, err := querier.ExecContext(ctx, query, subjectID.String())
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
// if any, has passed.
func (m *MySQLCounterRepository) DeleteExpired(
	ctx context.Context,
	windowCutoff time.Time,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM login_attempt_counters
			  WHERE window_started_at <= ?
			  AND (locked_until IS NULL OR locked_until <= ?)`

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
