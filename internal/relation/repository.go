package relation

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/transmute/internal/sqlident"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoTimeout = 5 * time.Second

// PostgresRepository stores relations in one PostgreSQL table.
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

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    id                BIGSERIAL PRIMARY KEY,
    original_file_id  TEXT NOT NULL,
    converted_file_id TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, r.table)

	if _, err := r.pool.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("create table %s: %w", r.table, err)
	}
	return r, nil
}

// Insert appends a relation. Duplicates are kept.
func (r *PostgresRepository) Insert(ctx context.Context, rel Relation) (Relation, error) {
	if rel.OriginalFileID == "" || rel.ConvertedFileID == "" {
		return Relation{}, ErrMissingID
	}

	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`
INSERT INTO %s (original_file_id, converted_file_id)
VALUES ($1, $2)
RETURNING original_file_id, converted_file_id, created_at;`, r.table)

	var stored Relation
	err := r.pool.QueryRow(ctx, query, rel.OriginalFileID, rel.ConvertedFileID).
		Scan(&stored.OriginalFileID, &stored.ConvertedFileID, &stored.CreatedAt)
	if err != nil {
		return Relation{}, fmt.Errorf("insert relation: %w", err)
	}
	return stored, nil
}

// List returns every relation in insertion order.
func (r *PostgresRepository) List(ctx context.Context) ([]Relation, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT original_file_id, converted_file_id, created_at FROM %s ORDER BY id;`, r.table)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var relations []Relation
	for rows.Next() {
		var rel Relation
		if err := rows.Scan(&rel.OriginalFileID, &rel.ConvertedFileID, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		relations = append(relations, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate relations: %w", err)
	}
	return relations, nil
}
