package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/usersvc/usersvc/internal/model"
)

// Memory is a process-local UserStore used when PostgreSQL is unavailable.
//
// Users are keyed by the decimal string of their id and looked up by the
// literal id the caller passes, so "01" does not match user 1. Email
// uniqueness and NOT NULL are not enforced.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]*model.User
	nextID int64
	now    func() time.Time
}

var _ UserStore = (*Memory)(nil)

// NewMemory returns an empty in-memory store whose ids start at 1.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*model.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers returns copies of all users ordered by ascending id.
func (m *Memory) ListUsers(ctx context.Context) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetUser returns the user stored under id.
func (m *Memory) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// CreateUser stores a new user under the next id. It never reports
// ErrEmailExists.
func (m *Memory) CreateUser(ctx context.Context, name, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	u := &model.User{
		ID:        m.nextID,
		Name:      name,
		Email:     email,
		CreatedAt: m.now(),
	}
	m.users[strconv.FormatInt(u.ID, 10)] = u
	return u.Clone(), nil
}

// UpdateUser replaces name and email. Nil values are stored as empty strings.
func (m *Memory) UpdateUser(ctx context.Context, id string, name, email *string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	u.Name = deref(name)
	u.Email = deref(email)
	return u.Clone(), nil
}

// DeleteUser removes the user stored under id. Its id is not reused.
func (m *Memory) DeleteUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	delete(m.users, id)
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
