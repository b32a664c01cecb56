package conversion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/converter"
	"github.com/abduss/transmute/internal/file"
	"github.com/abduss/transmute/internal/relation"
	"github.com/abduss/transmute/internal/storage"
	"github.com/google/uuid"
)

func TestCreateStoresConvertedRecord(t *testing.T) {
	env := newTestEnv(t)
	original := env.addOriginal(t, "flow chart.drawio", "drawio", "<mxfile/>")

	rec, err := env.service.Create(context.Background(), Request{ID: original.ID, OutputFormat: "PNG"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if rec.ID == original.ID {
		t.Fatalf("converted record must get a fresh id")
	}
	if rec.MediaType != "png" || rec.Extension != ".png" || rec.StoredAs != rec.ID+".png" {
		t.Fatalf("unexpected derived fields: %+v", rec)
	}
	if rec.OriginalFilename != "flow chart.png" {
		t.Fatalf("unexpected filename %q", rec.OriginalFilename)
	}
	if filepath.Dir(rec.StoragePath) != env.convertedDir {
		t.Fatalf("expected output in %s, got %s", env.convertedDir, rec.StoragePath)
	}

	size, checksum, err := file.Digest(rec.StoragePath)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if rec.SizeBytes != size || rec.SHA256Checksum != checksum {
		t.Fatalf("record does not describe the stored bytes: got %d/%s, file %d/%s", rec.SizeBytes, rec.SHA256Checksum, size, checksum)
	}
	if rec.SHA256Checksum == original.SHA256Checksum {
		t.Fatalf("checksum was copied from the original")
	}

	relations, err := env.relations.List(context.Background())
	if err != nil {
		t.Fatalf("List relations: %v", err)
	}
	if len(relations) != 1 || relations[0].OriginalFileID != original.ID || relations[0].ConvertedFileID != rec.ID {
		t.Fatalf("unexpected relations %+v", relations)
	}

	entries, err := os.ReadDir(env.tmpDir)
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected conversion workspace to be cleaned up, found %d entries", len(entries))
	}
}

func TestCreateUnknownIDIsNotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []string{uuid.NewString(), "not-a-uuid", "../../etc/passwd"} {
		_, err := env.service.Create(context.Background(), Request{ID: id, OutputFormat: "png"})
		if !errors.Is(err, file.ErrFileNotFound) {
			t.Fatalf("Create(%q): expected ErrFileNotFound, got %v", id, err)
		}
	}
	if env.runner.calls != 0 {
		t.Fatalf("converter must not run for unknown ids")
	}
}

func TestCreateUnsupportedPairNamesBothFormats(t *testing.T) {
	env := newTestEnv(t)
	original := env.addOriginal(t, "a.drawio", "drawio", "<mxfile/>")

	for _, target := range []string{"docx", "drawio"} {
		_, err := env.service.Create(context.Background(), Request{ID: original.ID, OutputFormat: target})
		var unsupported *UnsupportedError
		if !errors.As(err, &unsupported) {
			t.Fatalf("expected *UnsupportedError for %s, got %v", target, err)
		}
		if !strings.Contains(err.Error(), "drawio") || !strings.Contains(err.Error(), target) {
			t.Fatalf("error should name both formats: %v", err)
		}
	}
}

func TestCreateMissingFields(t *testing.T) {
	env := newTestEnv(t)

	for _, req := range []Request{{}, {ID: "x"}, {OutputFormat: "png"}, {ID: "  ", OutputFormat: "png"}} {
		if _, err := env.service.Create(context.Background(), req); !errors.Is(err, ErrMissingFields) {
			t.Fatalf("Create(%+v): expected ErrMissingFields, got %v", req, err)
		}
	}
}

func TestCreateSurfacesConverterFailure(t *testing.T) {
	env := newTestEnv(t)
	env.runner.err = errors.New("exit status 1")
	env.runner.stderr = "Error: bad diagram"
	original := env.addOriginal(t, "a.drawio", "drawio", "<mxfile/>")

	_, err := env.service.Create(context.Background(), Request{ID: original.ID, OutputFormat: "svg"})
	if !errors.Is(err, converter.ErrToolFailed) {
		t.Fatalf("expected converter failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad diagram") {
		t.Fatalf("error should carry tool diagnostics: %v", err)
	}

	converted, _ := env.converted.List(context.Background())
	relations, _ := env.relations.List(context.Background())
	if len(converted) != 0 || len(relations) != 0 {
		t.Fatalf("failed conversion must not store anything: %d files, %d relations", len(converted), len(relations))
	}
}

func TestListCompleteJoinsOriginalsWithConversions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	withTwo := env.addOriginal(t, "a.drawio", "drawio", "<mxfile a/>")
	withNone := env.addOriginal(t, "b.drawio", "drawio", "<mxfile b/>")

	first, err := env.service.Create(ctx, Request{ID: withTwo.ID, OutputFormat: "png"})
	if err != nil {
		t.Fatalf("Create png: %v", err)
	}
	second, err := env.service.Create(ctx, Request{ID: withTwo.ID, OutputFormat: "svg"})
	if err != nil {
		t.Fatalf("Create svg: %v", err)
	}

	// Dangling relations on either side are skipped.
	if _, err := env.relations.Insert(ctx, relation.Relation{OriginalFileID: "gone", ConvertedFileID: first.ID}); err != nil {
		t.Fatalf("Insert relation: %v", err)
	}
	if _, err := env.relations.Insert(ctx, relation.Relation{OriginalFileID: withNone.ID, ConvertedFileID: "gone"}); err != nil {
		t.Fatalf("Insert relation: %v", err)
	}

	entries, err := env.service.ListComplete(ctx)
	if err != nil {
		t.Fatalf("ListComplete: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected one entry per original, got %d", len(entries))
	}

	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.ID] = e
	}

	a := byID[withTwo.ID]
	if len(a.Conversions) != 2 || a.Conversions[0].ID != first.ID || a.Conversions[1].ID != second.ID {
		t.Fatalf("unexpected conversions for a: %+v", a.Conversions)
	}
	if a.Conversion == nil || a.Conversion.ID != second.ID {
		t.Fatalf("expected most recent conversion, got %+v", a.Conversion)
	}

	b := byID[withNone.ID]
	if b.Conversion != nil || len(b.Conversions) != 0 {
		t.Fatalf("expected no conversions for b, got %+v", b)
	}
}

// --- helpers & fakes ---

type testEnv struct {
	service      *Service
	originals    *file.Service
	converted    *file.Service
	relations    relation.Store
	runner       *fakeRunner
	tmpDir       string
	convertedDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()

	db, err := storage.OpenSQLite(ctx, filepath.Join(root, "app.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	filesRepo, err := file.NewSQLRepository(ctx, db, "files")
	if err != nil {
		t.Fatalf("files repository: %v", err)
	}
	conversionsRepo, err := file.NewSQLRepository(ctx, db, "conversions")
	if err != nil {
		t.Fatalf("conversions repository: %v", err)
	}
	relations, err := relation.NewSQLRepository(ctx, db, "conversion_relations")
	if err != nil {
		t.Fatalf("relations repository: %v", err)
	}

	env := &testEnv{
		relations:    relations,
		runner:       &fakeRunner{},
		tmpDir:       filepath.Join(root, "tmp"),
		convertedDir: filepath.Join(root, "converted"),
	}

	uploads, err := file.NewDisk(filepath.Join(root, "uploads"))
	if err != nil {
		t.Fatalf("uploads disk: %v", err)
	}
	converted, err := file.NewDisk(env.convertedDir)
	if err != nil {
		t.Fatalf("converted disk: %v", err)
	}
	if err := os.MkdirAll(env.tmpDir, 0o750); err != nil {
		t.Fatalf("tmp dir: %v", err)
	}

	env.originals = file.NewService("originals", filesRepo, uploads, nil)
	env.converted = file.NewService("converted", conversionsRepo, converted, nil)

	registry := converter.NewRegistry(converter.DefaultVariants(config.ConverterConfig{})...)
	env.service = NewService(env.originals, env.converted, relations, registry, env.tmpDir, nil,
		WithConverterOptions(
			converter.WithRunner(env.runner),
			converter.WithLookPath(func(name string) (string, error) { return "/usr/bin/" + name, nil }),
		),
	)
	return env
}

func (e *testEnv) addOriginal(t *testing.T, name, mediaType, content string) file.Record {
	t.Helper()
	src := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(src, []byte(content), 0o600); err != nil {
		t.Fatalf("write original: %v", err)
	}
	rec, err := e.originals.Import(context.Background(), src, name, mediaType)
	if err != nil {
		t.Fatalf("Import original: %v", err)
	}
	return rec
}

// fakeRunner imitates drawio-export: it writes Page-1.<format> into the -o directory.
type fakeRunner struct {
	calls  int
	stderr string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls++
	if f.err != nil {
		return nil, []byte(f.stderr), f.err
	}

	var format, dir string
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "-f":
			format = args[i+1]
		case "-o":
			dir = args[i+1]
		}
	}
	content := "rendered " + format + " from " + args[len(args)-1]
	if err := os.WriteFile(filepath.Join(dir, "Page-1."+format), []byte(content), 0o600); err != nil {
		return nil, nil, err
	}
	return []byte("exported"), nil, nil
}
