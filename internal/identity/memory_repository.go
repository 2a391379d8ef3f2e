package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a map-backed Repository used by tests and single-node
// runs without Postgres.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uuid.UUID]User)}
}

func (r *MemoryRepository) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *MemoryRepository) FindUser(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}
