package locking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker implements Locker for single-node deployments. Multi-node
// deployments should use the PostgreSQL-backed locker so all processes share
// one lock store.
type MemoryLocker struct {
	mu      sync.Mutex
	current *Lock
	now     func() time.Time
}

// NewMemoryLocker creates an in-process leased lock
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{now: time.Now}
}

// TryAcquire claims the lock unless a live lease exists
func (l *MemoryLocker) TryAcquire(_ context.Context, lease time.Duration) (*Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil && l.current.ExpiresAt.After(l.now()) {
		return nil, nil
	}

	lock := &Lock{
		Name:      SyncLockName,
		Holder:    uuid.New(),
		ExpiresAt: l.now().Add(lease),
	}
	l.current = lock
	return lock, nil
}

// Release drops the lease if it is still the held one
func (l *MemoryLocker) Release(_ context.Context, lock *Lock) error {
	if lock == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current != nil && l.current.Holder == lock.Holder {
		l.current = nil
	}
	return nil
}

// Held reports whether a live lease exists
func (l *MemoryLocker) Held(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.current != nil && l.current.ExpiresAt.After(l.now()), nil
}
