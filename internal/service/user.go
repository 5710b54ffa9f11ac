// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/usersvc/usersvc/internal/cache"
	"github.com/usersvc/usersvc/internal/metrics"
	"github.com/usersvc/usersvc/internal/model"
	"github.com/usersvc/usersvc/internal/repository"
)

// Service errors.
var (
	ErrMissingFields = errors.New("name and email are required")
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailExists   = errors.New("email already exists")
)

// UserCache is the optional read-through cache in front of the store.
//
// Only GetUser fills it, and only with the version read before the store
// load. Update and Delete invalidate after the store write, so a fill that
// raced with them is rejected instead of resurrecting stale data.
type UserCache interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	UserVersion(ctx context.Context, id string) (int64, error)
	FillUser(ctx context.Context, user *model.User, version int64) error
	InvalidateUser(ctx context.Context, id int64) error
}

// UserService handles user business logic over whichever store was
// selected at startup.
type UserService struct {
	store   repository.UserStore
	cache   UserCache
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewUserService creates a new UserService. cache may be nil.
func NewUserService(store repository.UserStore, userCache UserCache, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		store:   store,
		cache:   userCache,
		metrics: recorder,
		logger:  logger,
	}
}

// CreateUserInput defines input for creating a user.
type CreateUserInput struct {
	Name  string
	Email string
}

// UpdateUserInput defines input for updating a user.
// Nil fields are passed to the store as absent.
type UpdateUserInput struct {
	ID    string
	Name  *string
	Email *string
}

// ListUsers returns all users ordered by ascending id.
func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	start := time.Now()
	users, err := s.store.ListUsers(ctx)
	s.observe("list", start, err)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser retrieves a user by id, consulting the cache first when one is
// configured.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	cacheable := s.cache != nil && cache.CanonicalID(id)

	var (
		version  int64
		fillable bool
	)
	if cacheable {
		user, err := s.cache.GetUser(ctx, id)
		if err == nil {
			s.metrics.IncUserCacheHit()
			return user, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncUserCacheMiss()
		} else {
			s.logger.Warn("user_cache_get_failed", "user_id", id, "error", err)
		}

		version, err = s.cache.UserVersion(ctx, id)
		if err != nil {
			s.logger.Warn("user_cache_version_failed", "user_id", id, "error", err)
		} else {
			fillable = true
		}
	}

	start := time.Now()
	user, err := s.store.GetUser(ctx, id)
	s.observe("get", start, err)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if fillable {
		if err := s.cache.FillUser(ctx, user, version); err != nil && !errors.Is(err, cache.ErrStaleFill) {
			s.logger.Warn("user_cache_fill_failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// CreateUser validates presence of name and email and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, input CreateUserInput) (*model.User, error) {
	if input.Name == "" || input.Email == "" {
		return nil, ErrMissingFields
	}

	start := time.Now()
	user, err := s.store.CreateUser(ctx, input.Name, input.Email)
	s.observe("create", start, err)
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncUserCreated()

	return user, nil
}

// UpdateUser replaces name and email of an existing user. Values are not
// validated.
func (s *UserService) UpdateUser(ctx context.Context, input UpdateUserInput) (*model.User, error) {
	start := time.Now()
	user, err := s.store.UpdateUser(ctx, input.ID, input.Name, input.Email)
	s.observe("update", start, err)
	if err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncUserUpdated()
	s.invalidate(ctx, user.ID)

	return user, nil
}

// DeleteUser removes a user by id.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	start := time.Now()
	user, err := s.store.DeleteUser(ctx, id)
	s.observe("delete", start, err)
	if err != nil {
		return mapStoreError(err)
	}

	s.metrics.IncUserDeleted()
	s.invalidate(ctx, user.ID)

	return nil
}

func (s *UserService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, id); err != nil {
		s.logger.Warn("user_cache_invalidate_failed", "user_id", id, "error", err)
	}
}

// observe records store latency and counts failures that are not
// expected outcomes such as a missing user.
func (s *UserService) observe(op string, start time.Time, err error) {
	s.metrics.ObserveStoreDuration(time.Since(start))

	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		s.metrics.IncStoreError(op)
	}
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return ErrEmailExists
	default:
		return err
	}
}
