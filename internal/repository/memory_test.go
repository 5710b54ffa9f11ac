package repository

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemory_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	created, err := store.CreateUser(ctx, "Test User", "test@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero(), "CreatedAt should be set")

	got, err := store.GetUser(ctx, strconv.FormatInt(created.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestMemory_GetUsesLiteralKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.CreateUser(ctx, "A", "a@example.com")
	require.NoError(t, err)

	for _, id := range []string{"01", " 1", "1.0", "abc", ""} {
		_, err := store.GetUser(ctx, id)
		assert.ErrorIs(t, err, ErrUserNotFound, "id %q", id)
	}
}

func TestMemory_ListOrderedByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	for i := 0; i < 12; i++ {
		_, err := store.CreateUser(ctx, "user"+strconv.Itoa(i), "u"+strconv.Itoa(i)+"@example.com")
		require.NoError(t, err)
	}

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 12)
	for i, u := range users {
		assert.Equal(t, int64(i+1), u.ID)
	}
}

func TestMemory_ListEmpty(t *testing.T) {
	users, err := NewMemory().ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestMemory_DuplicateEmailAllowed(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	first, err := store.CreateUser(ctx, "A", "same@example.com")
	require.NoError(t, err)
	second, err := store.CreateUser(ctx, "B", "same@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMemory_Update(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	created, err := store.CreateUser(ctx, "Old", "old@example.com")
	require.NoError(t, err)

	updated, err := store.UpdateUser(ctx, "1", strPtr("New"), strPtr("new@example.com"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	got, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemory_UpdateAbsentFields(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.CreateUser(ctx, "Name", "name@example.com")
	require.NoError(t, err)

	updated, err := store.UpdateUser(ctx, "1", nil, strPtr("only@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "", updated.Name)
	assert.Equal(t, "only@example.com", updated.Email)
}

func TestMemory_UpdateNotFound(t *testing.T) {
	_, err := NewMemory().UpdateUser(context.Background(), "42", strPtr("x"), strPtr("y"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemory_DeleteThenGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	created, err := store.CreateUser(ctx, "Gone", "gone@example.com")
	require.NoError(t, err)

	deleted, err := store.DeleteUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)

	_, err = store.GetUser(ctx, "1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = store.DeleteUser(ctx, "1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemory_IDsNotReused(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.CreateUser(ctx, "A", "a@example.com")
	require.NoError(t, err)
	_, err = store.DeleteUser(ctx, "1")
	require.NoError(t, err)

	next, err := store.CreateUser(ctx, "B", "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	created, err := store.CreateUser(ctx, "Original", "o@example.com")
	require.NoError(t, err)
	created.Name = "mutated"

	got, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Name)
}

func TestMemory_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, err := store.CreateUser(ctx, "c", "c@example.com")
			if err != nil {
				t.Error(err)
				return
			}
			id := strconv.FormatInt(u.ID, 10)
			_, _ = store.UpdateUser(ctx, id, strPtr("updated"), strPtr("u@example.com"))
			if i%2 == 0 {
				_, _ = store.DeleteUser(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, n/2)

	seen := make(map[int64]bool)
	for _, u := range users {
		assert.False(t, seen[u.ID], "duplicate id %d", u.ID)
		seen[u.ID] = true
		assert.Equal(t, "updated", u.Name)
	}
}
