// Package database wraps the pgx connection pool backing the
// connection audit log (internal/audit). The broker's own state never
// touches this package — it exists purely for the ambient
// observability concern described in SPEC_FULL.md's domain stack.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// NewConnection parses dsn and opens a connection pool, verifying
// connectivity with a Ping before returning.
func NewConnection(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("database: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases every connection in the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Health verifies the pool still has connectivity.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
