package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/usersvc/usersvc/internal/model"
)

// Common errors for user store operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// UserStore is the persistence contract for users.
//
// Ids are taken as the literal path string. Each implementation decides how
// that string maps onto its own keys.
type UserStore interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, name, email string) (*model.User, error)
	// UpdateUser replaces name and email. A nil value is stored as absent.
	UpdateUser(ctx context.Context, id string, name, email *string) (*model.User, error)
	// DeleteUser removes the user and returns the removed row.
	DeleteUser(ctx context.Context, id string) (*model.User, error)
}

// StoreError wraps a failure reported by the underlying store that has no
// more specific meaning to the application.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "failed to " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Message returns the store's own description of the failure, without the
// operation prefix.
func (e *StoreError) Message() string {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Message
	}
	return e.Err.Error()
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// PostgreSQL SQLSTATE codes the repository distinguishes.
const (
	pgUniqueViolation = "23505"
)

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
