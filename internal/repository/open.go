package repository

import (
	"context"
	"errors"
	"time"
)

// Backend identifiers reported by Backend.Mode.
const (
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)

// ErrDatabaseDisabled is the fallback reason when the execution mode
// suppresses the database connection.
var ErrDatabaseDisabled = errors.New("database connection disabled by execution mode")

// OpenConfig controls backend selection.
type OpenConfig struct {
	// Disabled skips the connection attempt entirely.
	Disabled       bool
	DatabaseURL    string
	MaxConns       int32
	ConnectTimeout time.Duration
}

// Backend is the store chosen for the lifetime of the process.
type Backend struct {
	Store UserStore
	// DB is set only when the PostgreSQL store was selected.
	DB *Repository
	// FallbackReason explains why the memory store was selected.
	FallbackReason error
}

// Mode returns ModePostgres or ModeMemory.
func (b *Backend) Mode() string {
	if b.DB != nil {
		return ModePostgres
	}
	return ModeMemory
}

// Connected reports whether the relational store was selected.
func (b *Backend) Connected() bool {
	return b.DB != nil
}

// Close releases the database pool, if any.
func (b *Backend) Close() {
	if b.DB != nil {
		b.DB.Close()
	}
}

// Open makes one attempt to reach PostgreSQL and bootstrap the users table.
// On success every call for the rest of the process goes to PostgreSQL;
// on any failure the memory store is selected and PostgreSQL is never
// retried. Open itself never fails.
func Open(ctx context.Context, cfg OpenConfig) *Backend {
	if cfg.Disabled {
		return &Backend{Store: NewMemory(), FallbackReason: ErrDatabaseDisabled}
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	db, err := New(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return &Backend{Store: NewMemory(), FallbackReason: err}
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return &Backend{Store: NewMemory(), FallbackReason: err}
	}

	return &Backend{Store: db, DB: db}
}
