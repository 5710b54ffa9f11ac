// Package repository provides the user access layer: a PostgreSQL-backed
// store and a process-local fallback behind the same contract.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const usersSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)
`

// Repository is the PostgreSQL implementation of UserStore.
type Repository struct {
	pool *pgxpool.Pool
}

var _ UserStore = (*Repository)(nil)

// New creates a new Repository with a connection pool.
// The pool is verified with a single round trip before returning.
func New(ctx context.Context, databaseURL string, maxConns int32) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if maxConns > 0 {
		config.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	var now time.Time
	if err := pool.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// EnsureSchema creates the users table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, usersSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
