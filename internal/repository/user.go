package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/usersvc/usersvc/internal/model"
)

// Path ids reach SQL as text and are cast server-side, so PostgreSQL owns
// the numeric coercion of whatever the caller passed.
const (
	userColumns = `id, name, email, created_at`

	listUsersQuery = `SELECT ` + userColumns + ` FROM users ORDER BY id`

	getUserQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1::text::integer`

	createUserQuery = `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	updateUserQuery = `
		UPDATE users
		SET name = $1, email = $2
		WHERE id = $3::text::integer
		RETURNING ` + userColumns

	deleteUserQuery = `
		DELETE FROM users
		WHERE id = $1::text::integer
		RETURNING ` + userColumns
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user      model.User
		createdAt *time.Time
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &createdAt); err != nil {
		return nil, err
	}
	if createdAt != nil {
		user.CreatedAt = *createdAt
	}
	return &user, nil
}

// ListUsers returns every user ordered by ascending id.
func (r *Repository) ListUsers(ctx context.Context) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx, listUsersQuery)
	if err != nil {
		return nil, storeError("list users", err)
	}
	defer rows.Close()

	users := make([]*model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, storeError("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list users", err)
	}

	return users, nil
}

// GetUser retrieves a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, getUserQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("get user", err)
	}
	return user, nil
}

// CreateUser inserts a new user and returns it with its assigned id.
func (r *Repository) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, createUserQuery, name, email))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, storeError("create user", err)
	}
	return user, nil
}

// UpdateUser replaces the name and email of an existing user.
// Nil values are written as NULL and rejected by the column constraints.
func (r *Repository) UpdateUser(ctx context.Context, id string, name, email *string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, updateUserQuery, name, email, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("update user", err)
	}
	return user, nil
}

// DeleteUser removes a user by id.
func (r *Repository) DeleteUser(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, deleteUserQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("delete user", err)
	}
	return user, nil
}
