package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/abduss/transmute/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultDBTimeout = 5 * time.Second

// NewPostgresPool opens the pool backing the file, conversion and relation
// tables. Sessions are tagged with appName so they show up in pg_stat_activity.
func NewPostgresPool(ctx context.Context, cfg config.PostgresConfig, appName string) (*pgxpool.Pool, error) {
	poolCfg, err := postgresPoolConfig(cfg, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultDBTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	return pool, nil
}

func postgresPoolConfig(cfg config.PostgresConfig, appName string) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if appName != "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	poolCfg.ConnConfig.ConnectTimeout = defaultDBTimeout
	return poolCfg, nil
}
