package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agb/securityjwt/internal/model"
)

// Memory is a process-local user store keyed by email. It is meant for
// development and tests; contents are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	users map[string]model.User
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]model.User),
		now:   time.Now,
	}
}

func (m *Memory) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[user.Email]; exists {
		return nil, fmt.Errorf("%w: email %q", ErrDuplicate, user.Email)
	}

	stored := *user
	stored.CreatedAt = m.now()
	stored.UpdatedAt = stored.CreatedAt
	m.users[stored.Email] = stored

	out := stored
	return &out, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// Len reports the number of stored users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}
