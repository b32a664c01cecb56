package main

import (
	"context"
	"fmt"

	"github.com/abduss/transmute/internal/config"
	"github.com/abduss/transmute/internal/file"
	"github.com/abduss/transmute/internal/relation"
	"github.com/abduss/transmute/internal/server"
	"github.com/abduss/transmute/internal/storage"
)

type stores struct {
	files       file.Store
	conversions file.Store
	relations   relation.Store
	ping        server.Pinger
	close       func()
}

// openStores connects the configured database and prepares all three tables.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	tables := cfg.Database

	switch tables.Driver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(ctx, tables.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		s := stores{ping: server.PingFunc(db.PingContext), close: func() { db.Close() }}
		if s.files, err = file.NewSQLRepository(ctx, db, tables.FilesTable); err != nil {
			db.Close()
			return stores{}, err
		}
		if s.conversions, err = file.NewSQLRepository(ctx, db, tables.ConversionsTable); err != nil {
			db.Close()
			return stores{}, err
		}
		if s.relations, err = relation.NewSQLRepository(ctx, db, tables.RelationsTable); err != nil {
			db.Close()
			return stores{}, err
		}
		return s, nil

	case config.DriverPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Postgres, cfg.App.Name)
		if err != nil {
			return stores{}, fmt.Errorf("connect postgres: %w", err)
		}
		s := stores{ping: pool, close: pool.Close}
		if s.files, err = file.NewPostgresRepository(ctx, pool, tables.FilesTable); err != nil {
			pool.Close()
			return stores{}, err
		}
		if s.conversions, err = file.NewPostgresRepository(ctx, pool, tables.ConversionsTable); err != nil {
			pool.Close()
			return stores{}, err
		}
		if s.relations, err = relation.NewPostgresRepository(ctx, pool, tables.RelationsTable); err != nil {
			pool.Close()
			return stores{}, err
		}
		return s, nil

	default:
		return stores{}, fmt.Errorf("unsupported database driver %q", tables.Driver)
	}
}
