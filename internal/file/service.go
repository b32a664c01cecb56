package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/abduss/transmute/internal/logger"
	"github.com/abduss/transmute/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	sniffLen           = 3072
)

// Service manages the lifecycle of one class of files (originals or converted outputs).
type Service struct {
	class       string
	store       Store
	disk        *Disk
	mirror      Mirror
	maxFileSize int64
	logger      *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithMirror copies every stored file to m and removes it there on delete.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithMaxFileSize bounds uploads.
func WithMaxFileSize(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// NewService constructs a file service. class names the file family and prefixes mirrored objects.
func NewService(class string, store Store, disk *Disk, logg *zap.Logger, opts ...Option) *Service {
	if logg == nil {
		logg = zap.NewNop()
	}
	s := &Service{
		class:       class,
		store:       store,
		disk:        disk,
		maxFileSize: defaultMaxFileSize,
		logger:      logg.With(zap.String("class", class)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores the multipart payload and its metadata.
func (s *Service) Upload(ctx context.Context, fileHeader *multipart.FileHeader) (Record, error) {
	if fileHeader == nil {
		return Record{}, ErrMissingPayload
	}
	if fileHeader.Size > s.maxFileSize {
		return Record{}, ErrFileTooLarge
	}

	src, err := fileHeader.Open()
	if err != nil {
		return Record{}, fmt.Errorf("open upload file: %w", err)
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Record{}, fmt.Errorf("read upload file: %w", err)
	}
	head = head[:n]

	filename := sanitizeFilename(fileHeader.Filename)
	mediaType := DetectMediaType(filename, head)
	id := uuid.NewString()
	storedAs := id + "." + mediaType

	saved, err := s.disk.Save(storedAs, io.MultiReader(bytes.NewReader(head), src), s.maxFileSize)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:               id,
		StoragePath:      saved.Path,
		OriginalFilename: filename,
		MediaType:        mediaType,
		Extension:        "." + mediaType,
		SizeBytes:        saved.Size,
		SHA256Checksum:   saved.Checksum,
		StoredAs:         storedAs,
	}
	return s.persist(ctx, rec)
}

// Import adopts a file produced elsewhere (e.g. by a converter) under a fresh id.
// Size and checksum are computed from the adopted file.
func (s *Service) Import(ctx context.Context, src, originalFilename, mediaType string) (Record, error) {
	mediaType = SanitizeExtension(mediaType)
	if mediaType == "" {
		return Record{}, fmt.Errorf("import %s: empty media type", src)
	}

	id := uuid.NewString()
	storedAs := id + "." + mediaType

	path, err := s.disk.Adopt(src, storedAs)
	if err != nil {
		return Record{}, err
	}

	size, checksum, err := Digest(path)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:               id,
		StoragePath:      path,
		OriginalFilename: sanitizeFilename(originalFilename),
		MediaType:        mediaType,
		Extension:        "." + mediaType,
		SizeBytes:        size,
		SHA256Checksum:   checksum,
		StoredAs:         storedAs,
	}
	return s.persist(ctx, rec)
}

func (s *Service) persist(ctx context.Context, rec Record) (Record, error) {
	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		_ = s.disk.Remove(rec.StoragePath)
		return Record{}, err
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, s.objectName(stored), stored.StoragePath, ContentType(stored.MediaType)); err != nil {
			metrics.MirrorFailed()
			logger.FromContext(ctx, s.logger).Warn("mirror file", zap.String("id", stored.ID), zap.Error(err))
		}
	}
	return stored, nil
}

// List returns all records of this class.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

// Open returns the record and its content. The caller closes the file.
func (s *Service) Open(ctx context.Context, id string) (Record, *os.File, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return Record{}, nil, err
	}

	f, err := os.Open(rec.StoragePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, nil, ErrContentMissing
		}
		return Record{}, nil, fmt.Errorf("open %s: %w", rec.StoragePath, err)
	}
	return rec, f, nil
}

// Delete removes the row first, then the file. An interruption in between
// leaves an orphaned file rather than a row pointing at nothing.
func (s *Service) Delete(ctx context.Context, id string) error {
	rec, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}

	if err := s.disk.Remove(rec.StoragePath); err != nil {
		logger.FromContext(ctx, s.logger).Error("file row deleted but content removal failed",
			zap.String("id", rec.ID), zap.String("path", rec.StoragePath), zap.Error(err))
		return err
	}

	if s.mirror != nil {
		if err := s.mirror.Remove(ctx, s.objectName(rec)); err != nil {
			metrics.MirrorFailed()
			logger.FromContext(ctx, s.logger).Warn("remove mirrored file", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return nil
}

func (s *Service) objectName(rec Record) string {
	return s.class + "/" + rec.StoredAs
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
