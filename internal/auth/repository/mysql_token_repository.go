package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/pii-vault/internal/auth/domain"
	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
)

// MySQLTokenRepository implements Token persistence for MySQL.
// UUIDs are stored as CHAR(36) strings.
type MySQLTokenRepository struct {
	db *sql.DB
}

// NewMySQLTokenRepository creates a new MySQL Token repository.
func NewMySQLTokenRepository(db *sql.DB) *MySQLTokenRepository {
	return &MySQLTokenRepository{db: db}
}

// Create inserts a new Token into the MySQL database.
func (m *MySQLTokenRepository) Create(ctx context.Context, token *authDomain.Token) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO auth_tokens (id, token_hash, subject_id, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		token.ID.String(),
		token.TokenHash,
		token.SubjectID.String(),
		token.ExpiresAt,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create token")
	}
	return nil
}

// GetByHash retrieves a Token by its hash. Returns ErrTokenNotFound if no
// token with that hash exists.
func (m *MySQLTokenRepository) GetByHash(
	ctx context.Context,
	tokenHash string,
) (*authDomain.Token, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, subject_id, expires_at, revoked_at, created_at
			  FROM auth_tokens WHERE token_hash = ?`

	var token authDomain.Token
	var idStr, subjectIDStr string
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(
		&idStr,
		&token.TokenHash,
		&subjectIDStr,
		&token.ExpiresAt,
		&token.RevokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, authDomain.ErrTokenNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get token by hash")
	}

	if token.ID, err = uuid.Parse(idStr); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse token id")
	}
	if token.SubjectID, err = uuid.Parse(subjectIDStr); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse subject id")
	}
	return &token, nil
}

// Revoke marks a token as revoked. Revoking an already revoked token keeps
// the original revocation time.
func (m *MySQLTokenRepository) Revoke(ctx context.Context, tokenID uuid.UUID, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE auth_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, now, tokenID.String()); err != nil {
		return apperrors.Wrap(err, "failed to revoke token")
	}
	return nil
}

// DeleteBySubject removes every token belonging to a data subject and returns
// how many rows were deleted. Used by erasure.
func (m *MySQLTokenRepository) DeleteBySubject(
	ctx context.Context,
	subjectID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM auth_tokens WHERE subject_id = ?`

	result, err := querier.ExecContext(ctx, query, subjectID.String())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete tokens by subject")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return deleted, nil
}

// DeleteExpired removes tokens past their expiration.
func (m *MySQLTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM auth_tokens WHERE expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, now)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired tokens")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return deleted, nil
}
