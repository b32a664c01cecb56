package relation

import (
	"context"
	"time"
)

// Relation links a converted file to the original it was produced from.
type Relation struct {
	OriginalFileID  string    `json:"original_file_id"`
	ConvertedFileID string    `json:"converted_file_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store persists relations. Neither id is checked against the file tables.
type Store interface {
	Insert(ctx context.Context, rel Relation) (Relation, error)
	List(ctx context.Context) ([]Relation, error)
}
