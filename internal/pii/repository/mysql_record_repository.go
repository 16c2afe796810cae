package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	"github.com/allisson/pii-vault/internal/database"
	apperrors "github.com/allisson/pii-vault/internal/errors"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
)

// MySQLRecordRepository implements PIIRecord persistence for MySQL.
// Uses CHAR(36) UUID columns with transaction support via database.GetTx().
type MySQLRecordRepository struct {
	db *sql.DB
}

// NewMySQLRecordRepository creates a new MySQL PIIRecord repository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

// Create inserts a new PIIRecord into the MySQL database.
func (m *MySQLRecordRepository) Create(ctx context.Context, record *piiDomain.PIIRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO pii_records
			  (id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			   key_version, algorithm, blind_index, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID.String(),
		record.SubjectID.String(),
		record.OwnerType,
		record.OwnerID.String(),
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

// Get retrieves a PIIRecord by ID from the MySQL database.
func (m *MySQLRecordRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
) (*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records WHERE id = ?`

	record, err := scanMySQLRecord(querier.QueryRowContext(ctx, query, recordID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, piiDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get pii record")
	}
	return record, nil
}

// ListByBlindIndex retrieves candidate records matching any of the given
// blind-index tokens for a field.
func (m *MySQLRecordRepository) ListByBlindIndex(
	ctx context.Context,
	fieldName string,
	tokens []string,
) ([]*piiDomain.PIIRecord, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	querier := database.GetTx(ctx, m.db)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tokens)), ",")
	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records
			  WHERE field_name = ? AND blind_index IN (` + placeholders + `)
			  ORDER BY created_at`

	args := make([]any, 0, len(tokens)+1)
	args = append(args, fieldName)
	for _, token := range tokens {
		args = append(args, token)
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pii records by blind index")
	}
	defer rows.Close()

	return scanMySQLRecords(rows)
}

// ListBySubject retrieves every record linked to a subject, including records
// owned by linked passenger and claim-note entities.
func (m *MySQLRecordRepository) ListBySubject(
	ctx context.Context,
	subjectID uuid.UUID,
) ([]*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records WHERE subject_id = ?
			  ORDER BY created_at`

	rows, err := querier.QueryContext(ctx, query, subjectID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list pii records by subject")
	}
	defer rows.Close()

	return scanMySQLRecords(rows)
}

// ListStale retrieves up to limit non-tombstoned records encrypted under a key
// version other than currentVersion.
func (m *MySQLRecordRepository) ListStale(
	ctx context.Context,
	currentVersion uint,
	limit int,
) ([]*piiDomain.PIIRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, subject_id, owner_type, owner_id, field_name, ciphertext, nonce,
			  key_version, algorithm, blind_index, created_at, updated_at
			  FROM pii_records
			  WHERE key_version <> ? AND algorithm <> ?
			  ORDER BY created_at
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, currentVersion, cryptoDomain.Erased, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale pii records")
	}
	defer rows.Close()

	return scanMySQLRecords(rows)
}

// Update replaces a record's encrypted value and blind index.
func (m *MySQLRecordRepository) Update(ctx context.Context, record *piiDomain.PIIRecord) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE pii_records
			  SET ciphertext = ?,
				  nonce = ?,
				  key_version = ?,
				  algorithm = ?,
				  blind_index = ?,
				  updated_at = ?
			  WHERE id = ?`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.Value.Ciphertext,
		record.Value.Nonce,
		record.Value.KeyVersion,
		record.Value.Algorithm,
		record.BlindIndex,
		record.UpdatedAt,
		record.ID.String(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update pii record")
	}
	return nil
}

// Scrub overwrites a record with the erasure tombstone and clears its blind
// index. Returns true when the record was newly scrubbed.
func (m *MySQLRecordRepository) Scrub(ctx context.Context, recordID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, m.db)
	tombstone := cryptoDomain.Tombstone()

	query := `UPDATE pii_records
			  SET ciphertext = ?,
				  nonce = NULL,
				  key_version = 0,
				  algorithm = ?,
				  blind_index = NULL,
				  updated_at = UTC_TIMESTAMP()
			  WHERE id = ? AND algorithm <> ?`

	result, err := querier.ExecContext(
		ctx, query, tombstone.Ciphertext, cryptoDomain.Erased, recordID.String(), cryptoDomain.Erased,
	)
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
// given key version.
func (m *MySQLRecordRepository) CountByKeyVersion(
	ctx context.Context,
	version uint,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	query := `SELECT COUNT(*) FROM pii_records WHERE key_version = ? AND algorithm <> ?`
	err := querier.QueryRowContext(ctx, query, version, cryptoDomain.Erased).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count pii records by key version")
	}
	return count, nil
}

func scanMySQLRecord(scanner rowScanner) (*piiDomain.PIIRecord, error) {
	var (
		record    piiDomain.PIIRecord
		id        string
		subjectID string
		ownerID   string
	)
	err := scanner.Scan(
		&id,
		&subjectID,
		&record.OwnerType,
		&ownerID,
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
	if record.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if record.SubjectID, err = uuid.Parse(subjectID); err != nil {
		return nil, err
	}
	if record.OwnerID, err = uuid.Parse(ownerID); err != nil {
		return nil, err
	}
	return &record, nil
}

func scanMySQLRecords(rows *sql.Rows) ([]*piiDomain.PIIRecord, error) {
	var records []*piiDomain.PIIRecord
	for rows.Next() {
		record, err := scanMySQLRecord(rows)
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
