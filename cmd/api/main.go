package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/conversion"
	"github.com/abduss/transmute/internal/converter"
	"github.com/abduss/transmute/internal/file"
	"github.com/abduss/transmute/internal/logger"
	"github.com/abduss/transmute/internal/metrics"
	"github.com/abduss/transmute/internal/server"
	"github.com/abduss/transmute/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file to load before reading the environment")
	showVersion := pflag.Bool("version", false, "print the version and exit")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *showVersion {
		fmt.Printf("%s %s\n", cfg.App.Name, cfg.App.Version)
		return
	}

	logg, err := logger.Init()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logg.Sync() //nolint:errcheck

	if err := run(cfg, logg); err != nil {
		logg.Fatal("transmute api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.InitMetrics()

	deps, cleanup, err := buildDependencies(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      server.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info("transmute api listening",
			zap.String("addr", cfg.Server.Address()),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("version", cfg.App.Version),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
	return nil
}

// buildDependencies opens storage and constructs every service behind the router.
func buildDependencies(ctx context.Context, cfg config.Config, logg *zap.Logger) (server.Dependencies, func(), error) {
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return server.Dependencies{}, nil, err
	}

	fail := func(err error) (server.Dependencies, func(), error) {
		stores.close()
		return server.Dependencies{}, nil, err
	}

	uploads, err := file.NewDisk(cfg.Storage.UploadDir)
	if err != nil {
		return fail(err)
	}
	converted, err := file.NewDisk(cfg.Storage.OutputDir)
	if err != nil {
		return fail(err)
	}
	tmp, err := file.NewDisk(cfg.Storage.TmpDir)
	if err != nil {
		return fail(err)
	}

	fileOpts := []file.Option{file.WithMaxFileSize(cfg.Storage.MaxUploadBytes)}
	deps := server.Dependencies{
		Config: cfg,
		DB:     stores.ping,
		Disks:  []*file.Disk{uploads, converted, tmp},
	}

	if cfg.MinIO.Enabled {
		minioClient, err := storage.OpenMirrorBucket(ctx, cfg.MinIO)
		if err != nil {
			return fail(fmt.Errorf("connect minio: %w", err))
		}
		fileOpts = append(fileOpts, file.WithMirror(file.NewMinIOMirror(minioClient, cfg.MinIO.Bucket)))
		deps.ObjectStore = minioClient
		logg.Info("mirroring files to object storage", zap.String("bucket", cfg.MinIO.Bucket))
	}

	originalStore, convertedStore := stores.files, stores.conversions
	if cfg.Cache.Size > 0 {
		originalStore = file.NewCachedStore(originalStore, cfg.Cache.Size, cfg.Cache.TTL)
		convertedStore = file.NewCachedStore(convertedStore, cfg.Cache.Size, cfg.Cache.TTL)
	}

	deps.Files = file.NewService("originals", originalStore, uploads, logg, fileOpts...)
	deps.Converted = file.NewService("converted", convertedStore, converted, logg, fileOpts...)

	registry := converter.NewRegistry(converter.DefaultVariants(cfg.Converter)...)
	deps.Conversions = conversion.NewService(deps.Files, deps.Converted, stores.relations, registry, tmp.Dir(), logg,
		conversion.WithConverterOptions(converter.WithTimeout(cfg.Converter.Timeout)),
	)

	return deps, stores.close, nil
}
