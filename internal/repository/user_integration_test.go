//go:build integration

package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/usersvc/usersvc/internal/testutil"
)

// ============================================================================
// User Repository Integration Tests
// ============================================================================

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	email := testutil.UniqueEmail("create")
	created, err := repo.CreateUser(ctx, "Test User", email)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("ID should be assigned")
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	retrieved, err := repo.GetUser(ctx, strconv.FormatInt(created.ID, 10))
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}

	if retrieved.Name != "Test User" || retrieved.Email != email {
		t.Errorf("user mismatch: got %+v", retrieved)
	}
	if !retrieved.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt mismatch: got %v, want %v", retrieved.CreatedAt, created.CreatedAt)
	}
}

func TestIntegrationUserRepository_CreateDuplicateEmail(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	email := testutil.UniqueEmail("dup")
	if _, err := repo.CreateUser(ctx, "First", email); err != nil {
		t.Fatalf("CreateUser (first) failed: %v", err)
	}

	_, err := repo.CreateUser(ctx, "Second", email)
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got: %v", err)
	}
}

func TestIntegrationUserRepository_GetNotFound(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	_, err := repo.GetUser(ctx, "999999")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_GetCoercesNumericID(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	created, err := repo.CreateUser(ctx, "Padded", testutil.UniqueEmail("pad"))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	retrieved, err := repo.GetUser(ctx, "0"+strconv.FormatInt(created.ID, 10))
	if err != nil {
		t.Fatalf("GetUser with zero-padded id failed: %v", err)
	}
	if retrieved.ID != created.ID {
		t.Errorf("ID mismatch: got %d, want %d", retrieved.ID, created.ID)
	}
}

func TestIntegrationUserRepository_GetNonNumericID(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	_, err := repo.GetUser(ctx, "abc")
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected *StoreError, got: %v", err)
	}
	if storeErr.Message() == "" {
		t.Error("StoreError should carry the database message")
	}
}

func TestIntegrationUserRepository_ListOrdered(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	for i := 0; i < 3; i++ {
		if _, err := repo.CreateUser(ctx, "List", testutil.UniqueEmail("list")); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	for i := 1; i < len(users); i++ {
		if users[i-1].ID >= users[i].ID {
			t.Errorf("users not ordered by id: %d then %d", users[i-1].ID, users[i].ID)
		}
	}
}

func TestIntegrationUserRepository_Update(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	created, err := repo.CreateUser(ctx, "Before", testutil.UniqueEmail("upd"))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	name := "After"
	email := testutil.UniqueEmail("after")
	updated, err := repo.UpdateUser(ctx, strconv.FormatInt(created.ID, 10), &name, &email)
	if err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("ID changed: got %d, want %d", updated.ID, created.ID)
	}
	if updated.Name != name || updated.Email != email {
		t.Errorf("fields not updated: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt should be immutable")
	}
}

func TestIntegrationUserRepository_UpdateNullName(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	created, err := repo.CreateUser(ctx, "Named", testutil.UniqueEmail("null"))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	email := testutil.UniqueEmail("null2")
	_, err = repo.UpdateUser(ctx, strconv.FormatInt(created.ID, 10), nil, &email)

	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected *StoreError for NULL name, got: %v", err)
	}
}

func TestIntegrationUserRepository_UpdateNotFound(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	name, email := "x", testutil.UniqueEmail("missing")
	_, err := repo.UpdateUser(ctx, "999999", &name, &email)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestIntegrationUserRepository_Delete(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	created, err := repo.CreateUser(ctx, "Delete", testutil.UniqueEmail("del"))
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	id := strconv.FormatInt(created.ID, 10)

	deleted, err := repo.DeleteUser(ctx, id)
	if err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if deleted.ID != created.ID {
		t.Errorf("deleted ID mismatch: got %d, want %d", deleted.ID, created.ID)
	}

	if _, err := repo.GetUser(ctx, id); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound after delete, got: %v", err)
	}

	if _, err := repo.DeleteUser(ctx, id); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound on second delete, got: %v", err)
	}
}

func TestIntegrationUserRepository_EnsureSchemaIdempotent(t *testing.T) {
	ctx, repo := newUserTestEnv(t)

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}
}

func TestIntegrationOpen_SelectsPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	backend := Open(context.Background(), OpenConfig{DatabaseURL: dbURL})
	defer backend.Close()

	if !backend.Connected() {
		t.Fatalf("expected postgres backend, fell back: %v", backend.FallbackReason)
	}
	if backend.Mode() != ModePostgres {
		t.Errorf("Mode() = %s, want %s", backend.Mode(), ModePostgres)
	}
}

func newUserTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	repo, err := New(ctx, dbURL, 0)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := testutil.DropUsersTable(ctx, repo.Pool()); err != nil {
		t.Fatalf("drop users table: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	return ctx, repo
}
