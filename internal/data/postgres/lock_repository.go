package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// LockRepository implements the locking.Locker interface on a lease row.
// Acquisition is a single upsert that only steals the row when the previous
// lease has expired, so stale locks left by crashed runs recover on their
// own without a watchdog.
type LockRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
	name    string
}

// NewLockRepository creates a lease-row locker for the named lock
func NewLockRepository(logger *slog.Logger, db *persistence.PostgresDB, name string) locking.Locker {
	return &LockRepository{
		querier: db.Pool(),
		logger:  logger,
		name:    name,
	}
}

// TryAcquire claims the lock for the given lease duration. Returns nil when
// the lock is held by a live lease.
func (r *LockRepository) TryAcquire(ctx context.Context, lease time.Duration) (*locking.Lock, error) {
	holder := uuid.New()
	expiresAt := time.Now().Add(lease)

	query := `
		INSERT INTO sync_locks (name, holder, expires_at, acquired_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at, acquired_at = NOW()
		WHERE sync_locks.expires_at <= NOW()
	`

	result, err := r.querier.Exec(ctx, query, r.name, holder, expiresAt)
	if err != nil {
		r.logger.Error("Failed to acquire sync lock", "name", r.name, "error", err)
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return nil, nil // Held by a live lease
	}

	return &locking.Lock{
		Name:      r.name,
		Holder:    holder,
		ExpiresAt: expiresAt,
	}, nil
}

// Release drops the lease. Only the holder that acquired the lock can
// release it; a lease stolen after expiry is left alone.
func (r *LockRepository) Release(ctx context.Context, lock *locking.Lock) error {
	query := `DELETE FROM sync_locks WHERE name = $1 AND holder = $2`

	_, err := r.querier.Exec(ctx, query, lock.Name, lock.Holder)
	if err != nil {
		r.logger.Error("Failed to release sync lock", "name", lock.Name, "error", err)
		return fmt.Errorf("failed to release sync lock: %w", err)
	}

	return nil
}

// Held reports whether a live lease currently exists
func (r *LockRepository) Held(ctx context.Context) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sync_locks WHERE name = $1 AND expires_at > NOW())`

	var held bool
	if err := r.querier.QueryRow(ctx, query, r.name).Scan(&held); err != nil {
		r.logger.Error("Failed to check sync lock", "name", r.name, "error", err)
		return false, fmt.Errorf("failed to check sync lock: %w", err)
	}

	return held, nil
}
