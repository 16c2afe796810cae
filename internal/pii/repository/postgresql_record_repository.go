// Package repository implements data persistence for protected PII records.
//
// Provides PostgreSQL and MySQL implementations with transaction support via
// database.GetTx(). Each protected field is stored as a tuple (ciphertext,
// nonce, key_version, algorithm, blind_index) with an equality index on
// (field_name, blind_index) for token lookup.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// PostgreSQLRecordRepository implements PIIRecord persistence for PostgreSQL.
// Uses native UUID types with transaction support via database.GetTx().
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL PIIRecord repository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}

// Create inserts a new PIIRecord into the PostgreSQL database.
func (p *PostgreSQLRecordRepository) Create(ctx context.Context, record *piiDomain.PIIRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO pii_records
			  (id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			   key_version, algorithm, blind_index, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.SubjectID,
		record.OwnerType,
		record.OwnerID,
		record.FieldName,
		record.Value.Ciphertext,
		record.Value.Nonce,
		record.Value.KeyVersion,
		record.Value.Algorithm,
		record.BlindIndex,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create pii record")
	}
	return nil
}

// Get retrieves a PIIRecord by ID from the PostgreSQL database.
func (p *PostgreSQLRecordRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
) (*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records WHERE id = $1`

	record, err := scanRecord(querier.QueryRowContext(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, piiDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get pii record")
	}
	return record, nil
}

// ListByBlindIndex retrieves candidate records matching any of the given
// blind-index tokens for a field. Multiple tokens cover records written under
// different key versions; an empty result is not an error.
func (p *PostgreSQLRecordRepository) ListByBlindIndex(
	ctx context.Context,
	fieldName string,
	tokens []string,
) ([]*piiDomain.PIIRecord, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records
			  WHERE field_name = $1 AND blind_index = ANY($2)
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, fieldName, pq.Array(tokens))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pii records by blind index")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListBySubject retrieves every record linked directly or transitively to a
// subject, including records owned by linked passenger and claim-note entities.
func (p *PostgreSQLRecordRepository) ListBySubject(
	ctx context.Context,
	subjectID uuid.UUID,
) ([]*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records WHERE subject_id = $1
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pii records by subject")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListStale retrieves up to limit non-tombstoned records encrypted under a key
// version other than currentVersion. Used by the rewrap job during rotation.
func (p *PostgreSQLRecordRepository) ListStale(
	ctx context.Context,
	currentVersion uint,
	limit int,
) ([]*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records
			  WHERE key_version <> $1 AND algorithm <> $2
			  ORDER BY created_at
			  LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, currentVersion, cryptoDomain.Erased, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale pii records")
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Update replaces a record's encrypted value and blind index after a full
// re-encrypt+re-index (plaintext update or key rotation rewrap).
func (p *PostgreSQLRecordRepository) Update(ctx context.Context, record *piiDomain.PIIRecord) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE pii_records
			  SET ciphertext = $1,
				  nonce = $2,
				  key_version = $3,
				  algorithm = $4,
				  blind_index = $5,
				  updated_at = $6
			  WHERE id = $7`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.Value.Ciphertext,
		record.Value.Nonce,
		record.Value.KeyVersion,
		record.Value.Algorithm,
		record.BlindIndex,
		record.UpdatedAt,
		record.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update pii record")
	}
	return nil
}

// Scrub overwrites a record with the erasure tombstone and clears its blind
// index. Returns true when the record was newly scrubbed; re-running on an
// already-scrubbed record affects zero rows and returns false, which makes
// erasure idempotent per record.
func (p *PostgreSQLRecordRepository) Scrub(ctx context.Context, recordID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)
	tombstone := cryptoDomain.Tombstone()

	query := `UPDATE pii_records
			  SET ciphertext = $1,
				  nonce = NULL,
				  key_version = 0,
				  algorithm = $2,
				  blind_index = NULL,
				  updated_at = NOW()
			  WHERE id = $3 AND algorithm <> $2`

	result, err := querier.ExecContext(ctx, query, tombstone.Ciphertext, cryptoDomain.Erased, recordID)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to scrub pii record")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read scrub result")
	}
	return affected > 0, nil
}

// CountByKeyVersion returns the number of records still encrypted under the
// given key version. A version may only be retired once this reaches zero.
func (p *PostgreSQLRecordRepository) CountByKeyVersion(
	ctx context.Context,
	version uint,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	query := `SELECT COUNT(*) FROM pii_records WHERE key_version = $1 AND algorithm <> $2`
	err := querier.QueryRowContext(ctx, query, version, cryptoDomain.Erased).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count pii records by key version")
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*piiDomain.PIIRecord, error) {
	var record piiDomain.PIIRecord
	err := scanner.Scan(
		&record.ID,
		&record.SubjectID,
		&record.OwnerType,
		&record.OwnerID,
		&record.FieldName,
		&record.Value.Ciphertext,
		&record.Value.Nonce,
		&record.Value.KeyVersion,
		&record.Value.Algorithm,
		&record.BlindIndex,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func scanRecords(rows *sql.Rows) ([]*piiDomain.PIIRecord, error) {
	var records []*piiDomain.PIIRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan pii record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate pii records")
	}
	return records, nil
}
