package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/truthledger/truthledger/pkg/config"
)

// Postgres is the pgx/v5-backed Store implementation. It owns a
// connection pool and runs schema migrations on construction, mirroring
// the teacher's NewClient (spec §6 "Persisted state").
type Postgres struct {
	pool *pgxpool.Pool
}

// New opens a pool against cfg, applies pending migrations, and returns a
// ready Store. The caller must call Close when done.
func New(ctx context.Context, cfg *config.DatabaseConfig) (*Postgres, error) {
	if err := runMigrations(cfg); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("store: parse pool config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases all pooled connections.
func (s *Postgres) Close() {
	s.pool.Close()
}
