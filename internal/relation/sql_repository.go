package relation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/abduss/transmute/internal/sqlident"
)

// SQLRepository stores relations in a SQLite table via database/sql.
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

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    original_file_id  TEXT NOT NULL,
    converted_file_id TEXT NOT NULL,
    created_at        TEXT NOT NULL
);`, r.table)

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("create table %s: %w", r.table, err)
	}
	return r, nil
}

// Insert appends a relation. Duplicates are kept.
func (r *SQLRepository) Insert(ctx context.Context, rel Relation) (Relation, error) {
	if rel.OriginalFileID == "" || rel.ConvertedFileID == "" {
		return Relation{}, ErrMissingID
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rel.CreatedAt = r.now().UTC().Truncate(time.Microsecond)

	query := fmt.Sprintf(`
INSERT INTO %s (original_file_id, converted_file_id, created_at)
VALUES (?, ?, ?);`, r.table)

	if _, err := r.db.ExecContext(ctx, query, rel.OriginalFileID, rel.ConvertedFileID, rel.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return Relation{}, fmt.Errorf("insert relation: %w", err)
	}
	return rel, nil
}

// List returns every relation in insertion order.
func (r *SQLRepository) List(ctx context.Context) ([]Relation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT original_file_id, converted_file_id, created_at FROM %s ORDER BY id;`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var relations []Relation
	for rows.Next() {
		var (
			rel       Relation
			createdAt string
		)
		if err := rows.Scan(&rel.OriginalFileID, &rel.ConvertedFileID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		if rel.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}
