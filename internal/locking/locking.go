// Package locking provides the leased global sync lock: advisory mutual
// exclusion across concurrent run attempts, with a bounded lease so a
// crashed run cannot lock the system out permanently.
package locking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncLockName is the lock guarding scheduled and manual full runs
const SyncLockName = "qonto_sync_running"

// Lock is a held lease. Holder identifies the acquiring process so a lock
// can only be released by its owner.
type Lock struct {
	Name      string
	Holder    uuid.UUID
	ExpiresAt time.Time
}

// Locker is a leased mutual-exclusion token over a shared store. TryAcquire
// never blocks: it returns nil when the lock is currently held by a live
// lease. An expired lease is claimable by the next TryAcquire; stale-lock
// recovery is implicit.
type Locker interface {
	TryAcquire(ctx context.Context, lease time.Duration) (*Lock, error)
	Release(ctx context.Context, lock *Lock) error
	Held(ctx context.Context) (bool, error)
}
