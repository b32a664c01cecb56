package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abduss/transmute/internal/sqlident"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLRepository stores one class of file records in a SQLite table via database/sql.
type SQLRepository struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// NewSQLRepository validates the table name and creates the table if absent.
func NewSQLRepository(ctx context.Context, db *sql.DB, table string) (*SQLRepository, error) {
	table, err := sqlident.Validate(table)
	if err != nil {
		return nil, err
	}

	r := &SQLRepository{db: db, table: table, now: time.Now}
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLRepository) ensureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	// created_at is kept as RFC 3339 text so the driver never reinterprets it.
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id                TEXT PRIMARY KEY,
    storage_path      TEXT NOT NULL,
    original_filename TEXT NOT NULL,
    media_type        TEXT NOT NULL,
    extension         TEXT NOT NULL,
    size_bytes        INTEGER NOT NULL CHECK (size_bytes >= 0),
    sha256_checksum   TEXT NOT NULL,
    stored_as         TEXT NOT NULL,
    created_at        TEXT NOT NULL
);`, r.table)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	return nil
}

// Insert validates and stores a record, returning it with its creation time.
func (r *SQLRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rec.CreatedAt = r.now().UTC().Truncate(time.Microsecond)

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`, r.table, recordColumns)

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.StoragePath,
		rec.OriginalFilename,
		rec.MediaType,
		rec.Extension,
		rec.SizeBytes,
		rec.SHA256Checksum,
		rec.StoredAs,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return Record{}, ErrFileExists
		}
		return Record{}, fmt.Errorf("insert file metadata: %w", err)
	}
	return rec, nil
}

// Get fetches a single record.
func (r *SQLRepository) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?;`, recordColumns, r.table)

	rec, err := scanSQLRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrFileNotFound
		}
		return Record{}, fmt.Errorf("get file metadata: %w", err)
	}
	return rec, nil
}

// List returns every record in insertion order.
func (r *SQLRepository) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY rowid;`, recordColumns, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanSQLRecord(rows)
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
func (r *SQLRepository) Delete(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ? RETURNING %s;`, r.table, recordColumns)

	rec, err := scanSQLRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrFileNotFound
		}
		return Record{}, fmt.Errorf("delete file metadata: %w", err)
	}
	return rec, nil
}

func scanSQLRecord(row rowScanner) (Record, error) {
	var (
		rec       Record
		createdAt string
	)
	err := row.Scan(
		&rec.ID,
		&rec.StoragePath,
		&rec.OriginalFilename,
		&rec.MediaType,
		&rec.Extension,
		&rec.SizeBytes,
		&rec.SHA256Checksum,
		&rec.StoredAs,
		&createdAt,
	)
	if err != nil {
		return Record{}, err
	}

	rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Record{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return rec, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
