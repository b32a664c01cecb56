package file

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/transmute/internal/sqlident"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

const recordColumns = `id, storage_path, original_filename, media_type, extension, size_bytes, sha256_checksum, stored_as, created_at`

// PostgresRepository stores one class of file records in one PostgreSQL table.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresRepository validates the table name and creates the table if absent.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool, table string) (*PostgresRepository, error) {
	table, err := sqlident.Validate(table)
	if err != nil {
		return nil, err
	}

	r := &PostgresRepository{pool: pool, table: table}
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) ensureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id                TEXT PRIMARY KEY,
    storage_path      TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    media_type        TEXT NOT NULL,
    extension         TEXT NOT NULL,
    size_bytes        BIGINT NOT NULL CHECK (size_bytes >= 0),
    sha256_checksum   TEXT NOT NULL,
    stored_as         TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, r.table)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

// Insert validates and stores a record, returning it with its creation time.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`
INSERT INTO %s (id, storage_path, original_filename, media_type, extension, size_bytes, sha256_checksum, stored_as)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING %s;`, r.table, recordColumns)

	row := r.pool.QueryRow(ctx, query,
		rec.ID,
		rec.StoragePath,
		rec.OriginalFilename,
		rec.MediaType,
		rec.Extension,
		rec.SizeBytes,
		rec.SHA256Checksum,
		rec.StoredAs,
	)

	stored, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrFileExists
		}
		return Record{}, fmt.Errorf("insert file metadata: %w", err)
	}
	return stored, nil
}

// Get fetches a single record.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1;`, recordColumns, r.table)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrFileNotFound
		}
		return Record{}, fmt.Errorf("get file metadata: %w", err)
	}
	return rec, nil
}

// List returns every record in the table.
func (r *PostgresRepository) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at, id;`, recordColumns, r.table)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return records, nil
}

// Delete removes the row and returns the deleted record.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING %s;`, r.table, recordColumns)

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrFileNotFound
		}
		return Record{}, fmt.Errorf("delete file metadata: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID,
		&rec.StoragePath,
		&rec.OriginalFilename,
		&rec.MediaType,
		&rec.Extension,
		&rec.SizeBytes,
		&rec.SHA256Checksum,
		&rec.StoredAs,
		&rec.CreatedAt,
	)
	return rec, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
