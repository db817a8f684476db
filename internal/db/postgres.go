package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultSeedMaxOpen     = 4
	defaultSeedMaxIdle     = 2
	defaultSeedMaxLifetime = 30 * time.Minute
	seedPingTimeout        = 5 * time.Second
)

// SeedPoolConfig sizes the read-only pool used to load seed questions. Zero
// fields take the package defaults.
type SeedPoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c SeedPoolConfig) withDefaults() SeedPoolConfig {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultSeedMaxOpen
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = min(defaultSeedMaxIdle, c.MaxOpenConns)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultSeedMaxLifetime
	}
	return c
}

// OpenSeedPool opens the pgx-backed pool for the seed table and checks it is
// reachable. The caller owns the returned pool.
func OpenSeedPool(ctx context.Context, dsn string, cfg SeedPoolConfig) (*sql.DB, error) {
	pool, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open seed db: %w", err)
	}

	cfg = cfg.withDefaults()
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, seedPingTimeout)
	defer cancel()
	if err := pool.PingContext(pingCtx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping seed db: %w", err)
	}
	return pool, nil
}
