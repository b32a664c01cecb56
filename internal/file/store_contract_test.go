package file

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func sampleRecord(name string) Record {
	id := uuid.NewString()
	return Record{
		ID:               id,
		StoragePath:      "data/uploads/" + id + ".drawio",
		OriginalFilename: name,
		MediaType:        "drawio",
		Extension:        ".drawio",
		SizeBytes:        1234,
		SHA256Checksum:   "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		StoredAs:         id + ".drawio",
	}
}

// exerciseStore runs the metadata store contract against any backend.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	rec := sampleRecord("схема «v2» final.drawio")
	stored, err := store.Insert(ctx, rec)
	if err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be assigned")
	}

	want := rec
	want.CreatedAt = stored.CreatedAt
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Fatalf("Insert returned unexpected record (-want +got):\n%s", diff)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if diff := cmp.Diff(stored, got); diff != "" {
		t.Fatalf("round trip changed the record (-inserted +fetched):\n%s", diff)
	}

	if _, err := store.Insert(ctx, rec); !errors.Is(err, ErrFileExists) {
		t.Fatalf("expected ErrFileExists on duplicate id, got %v", err)
	}

	if _, err := store.Insert(ctx, Record{ID: uuid.NewString()}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}

	second := sampleRecord("other.drawio")
	if _, err := store.Insert(ctx, second); err != nil {
		t.Fatalf("Insert second returned error: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d", len(list))
	}

	deleted, err := store.Delete(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if diff := cmp.Diff(stored, deleted); diff != "" {
		t.Fatalf("Delete returned unexpected record (-want +got):\n%s", diff)
	}
	if _, err := store.Get(ctx, rec.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound after delete, got %v", err)
	}
	if _, err := store.Delete(ctx, rec.ID); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound on second delete, got %v", err)
	}
}
