package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing defaults, applied when the config leaves a field zero.
const (
	defaultMaxConns        = 25
	defaultMaxConnLifetime = time.Hour
	defaultMaxConnIdleTime = 30 * time.Minute
)

// Config holds connection-pool settings for the dictionary database.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// poolConfig translates the Config into a pgxpool configuration, filling
// defaults for unset fields.
func (c *Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pc.MaxConns = c.MaxConnections
	if pc.MaxConns <= 0 {
		pc.MaxConns = defaultMaxConns
	}
	pc.MaxConnLifetime = c.MaxConnLifetime
	if pc.MaxConnLifetime <= 0 {
		pc.MaxConnLifetime = defaultMaxConnLifetime
	}
	pc.MaxConnIdleTime = c.MaxConnIdleTime
	if pc.MaxConnIdleTime <= 0 {
		pc.MaxConnIdleTime = defaultMaxConnIdleTime
	}

	return pc, nil
}

// DB is the shared pgx pool the repositories run their transactions on.
// Close is promoted from the embedded pool.
type DB struct {
	*pgxpool.Pool
}

// NewConnection opens a pool and verifies connectivity before handing it
// out, so a bad URL or unreachable server fails at startup rather than on
// the first query.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}
