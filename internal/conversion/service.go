package conversion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abduss/transmute/internal/converter"
	"github.com/abduss/transmute/internal/file"
	"github.com/abduss/transmute/internal/logger"
	"github.com/abduss/transmute/internal/metrics"
	"github.com/abduss/transmute/internal/relation"
	"go.uber.org/zap"
)

type originalStore interface {
	Get(ctx context.Context, id string) (file.Record, error)
	List(ctx context.Context) ([]file.Record, error)
}

type convertedStore interface {
	List(ctx context.Context) ([]file.Record, error)
	Import(ctx context.Context, src, originalFilename, mediaType string) (file.Record, error)
}

// Service converts stored originals and records the results.
type Service struct {
	originals     originalStore
	converted     convertedStore
	relations     relation.Store
	registry      *converter.Registry
	tmpDir        string
	converterOpts []converter.Option
	logger        *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithConverterOptions is applied to every converter the service creates.
func WithConverterOptions(opts ...converter.Option) Option {
	return func(s *Service) { s.converterOpts = append(s.converterOpts, opts...) }
}

// NewService wires the orchestrator. Each conversion runs in its own directory under tmpDir.
func NewService(originals originalStore, converted convertedStore, relations relation.Store, registry *converter.Registry, tmpDir string, logg *zap.Logger, opts ...Option) *Service {
	if logg == nil {
		logg = zap.NewNop()
	}
	s := &Service{
		originals: originals,
		converted: converted,
		relations: relations,
		registry:  registry,
		tmpDir:    tmpDir,
		logger:    logg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create converts the original named by req.ID into req.OutputFormat.
func (s *Service) Create(ctx context.Context, req Request) (file.Record, error) {
	id := strings.TrimSpace(req.ID)
	format := converter.Normalize(req.OutputFormat)
	if id == "" || format == "" {
		return file.Record{}, ErrMissingFields
	}

	original, err := s.originals.Get(ctx, id)
	if err != nil {
		return file.Record{}, err
	}

	variant, ok := s.registry.Lookup(original.MediaType, format)
	if !ok {
		return file.Record{}, &UnsupportedError{Input: original.MediaType, Output: format}
	}

	workspace, err := os.MkdirTemp(s.tmpDir, "convert-*")
	if err != nil {
		return file.Record{}, fmt.Errorf("create conversion workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	log := logger.FromContext(ctx, s.logger).With(
		zap.String("original_id", original.ID),
		zap.String("from", original.MediaType),
		zap.String("to", format),
		zap.Stringer("converter", variant.Kind),
	)

	opts := append([]converter.Option{converter.WithLogger(log)}, s.converterOpts...)
	conv := converter.New(variant, converter.Job{
		InputPath:    original.StoragePath,
		OutputDir:    workspace,
		InputFormat:  original.MediaType,
		OutputFormat: format,
	}, opts...)

	start := time.Now()
	outputs, err := conv.Convert(ctx, true, req.Quality)
	if err != nil {
		metrics.ObserveConversion(variant.Kind.String(), "error", time.Since(start))
		log.Error("conversion failed", zap.Error(err))
		return file.Record{}, fmt.Errorf("convert %s to %s: %w", original.MediaType, format, err)
	}
	metrics.ObserveConversion(variant.Kind.String(), "success", time.Since(start))

	name := strings.TrimSuffix(original.OriginalFilename, filepath.Ext(original.OriginalFilename)) + "." + format
	rec, err := s.converted.Import(ctx, outputs[0], name, format)
	if err != nil {
		return file.Record{}, fmt.Errorf("store converted file: %w", err)
	}

	if _, err := s.relations.Insert(ctx, relation.Relation{OriginalFileID: original.ID, ConvertedFileID: rec.ID}); err != nil {
		log.Error("converted file stored without relation", zap.String("converted_id", rec.ID), zap.Error(err))
		return file.Record{}, fmt.Errorf("record conversion relation: %w", err)
	}

	log.Info("conversion stored", zap.String("converted_id", rec.ID), zap.Int64("size_bytes", rec.SizeBytes))
	return rec, nil
}

// ListComplete returns every original with its related converted files.
// Relations pointing at a missing record on either side are skipped.
func (s *Service) ListComplete(ctx context.Context) ([]Entry, error) {
	originals, err := s.originals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list originals: %w", err)
	}
	converted, err := s.converted.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list converted files: %w", err)
	}
	relations, err := s.relations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	convertedByID := make(map[string]file.Record, len(converted))
	for _, rec := range converted {
		convertedByID[rec.ID] = rec
	}

	entries := make([]Entry, len(originals))
	index := make(map[string]int, len(originals))
	for i, rec := range originals {
		entries[i] = Entry{Record: rec, Conversions: []file.Record{}}
		index[rec.ID] = i
	}

	for _, rel := range relations {
		i, ok := index[rel.OriginalFileID]
		if !ok {
			continue
		}
		rec, ok := convertedByID[rel.ConvertedFileID]
		if !ok {
			continue
		}
		entries[i].Conversions = append(entries[i].Conversions, rec)
	}

	for i := range entries {
		if n := len(entries[i].Conversions); n > 0 {
			latest := entries[i].Conversions[n-1]
			entries[i].Conversion = &latest
		}
	}
	return entries, nil
}

// CompatibleFormats lists the formats format can be converted into.
func (s *Service) CompatibleFormats(format string) []string {
	return s.registry.CompatibleTargets(format)
}
