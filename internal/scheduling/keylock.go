package scheduling

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyLocker is an in-process Locker: one mutex per slot id. A booking
// attempt blocks until the current holder finishes, rather than failing
// fast like the Redis locker. Used by tests and single-node runs.
type KeyLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewKeyLocker() *KeyLocker {
	return &KeyLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *KeyLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[slotID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[slotID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}
