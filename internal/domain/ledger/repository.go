package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger transaction persistence. GetByExternalID returns
// (nil, nil) when no record exists so the upsert engine can distinguish
// first sight from lookup failure.
type Repository interface {
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	Create(ctx context.Context, tx *Transaction) error
	Update(ctx context.Context, tx *Transaction) error
	CountByLocalAccount(ctx context.Context, localAccountID uuid.UUID, company string) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateTransaction indicates an insert collided with the unique
// external id key. The guard applies to first inserts only; in-place updates
// of draft records bypass it.
type ErrDuplicateTransaction struct {
	ExternalID string
}

func (e ErrDuplicateTransaction) Error() string {
	return "ledger transaction already exists for external id: " + e.ExternalID
}

// Is implements the errors.Is interface for ErrDuplicateTransaction
func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.ExternalID == "" {
		return true
	}
	return e.ExternalID == t.ExternalID
}
