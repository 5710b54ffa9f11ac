package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/usersvc/usersvc/internal/model"
)

const (
	userKeyPrefix    = "user:"
	versionKeyPrefix = "user:ver:"

	// DefaultUserTTL is the TTL for cached user data.
	DefaultUserTTL = 5 * time.Minute
)

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleFill means the user changed after its version was read, so
	// the snapshot was not written.
	ErrStaleFill = errors.New("user changed since version was read")
)

func userKey(id string) string {
	return userKeyPrefix + id
}

func versionKey(id string) string {
	return versionKeyPrefix + id
}

// GetUser retrieves a user from cache by id.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetUser(ctx context.Context, id string) (*model.User, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		// Undecodable entries are dropped and treated as a miss.
		c.client.Del(ctx, userKey(id))
		return nil, ErrCacheMiss
	}

	return &user, nil
}

// UserVersion returns the invalidation counter for id, zero if the user
// was never invalidated. Read it before loading the user from the store
// and hand it to FillUser.
func (c *Cache) UserVersion(ctx context.Context, id string) (int64, error) {
	version, err := c.client.Get(ctx, versionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return version, nil
}

// FillUser caches user only if its version still equals version. The check
// and the write run in one WATCH transaction, so an InvalidateUser that
// lands after the store read makes the fill fail with ErrStaleFill.
func (c *Cache) FillUser(ctx context.Context, user *model.User, version int64) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	id := formatID(user.ID)
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(id)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return ErrStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(id), data, c.ttl)
			return nil
		})
		return err
	}

	err = c.client.Watch(ctx, txf, versionKey(id))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStaleFill), errors.Is(err, redis.TxFailedErr):
		return ErrStaleFill
	default:
		return fmt.Errorf("failed to cache user: %w", err)
	}
}

// InvalidateUser drops the cached entry and bumps the version so fills
// started before the change are rejected. The version outlives the entry
// TTL by a margin.
func (c *Cache) InvalidateUser(ctx context.Context, id int64) error {
	key := formatID(id)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(key))
		pipe.Expire(ctx, versionKey(key), 2*c.ttl)
		pipe.Del(ctx, userKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}
	return nil
}
