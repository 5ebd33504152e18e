package mapping

import (
	"context"
	"time"
)

// Repository defines account mapping persistence operations. Mappings are
// provisioned by configuration; the sync engine only reads them and advances
// watermarks.
type Repository interface {
	ListActive(ctx context.Context) ([]*AccountMapping, error)
	GetActiveByExternalID(ctx context.Context, externalAccountID string) (*AccountMapping, error)
	ListAll(ctx context.Context) ([]*AccountMapping, error)
	CountActive(ctx context.Context) (int64, error)

	// UpdateWatermark advances the mapping's last-synced timestamp. It is the
	// only mutation the sync engine performs on mappings.
	UpdateWatermark(ctx context.Context, externalAccountID string, syncedAt time.Time) error
}

// ErrMappingNotFound indicates there is no active mapping for an account
type ErrMappingNotFound struct {
	ExternalAccountID string
}

func (e ErrMappingNotFound) Error() string {
	return "no active mapping found for account: " + e.ExternalAccountID
}
