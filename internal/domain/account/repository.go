package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines local account persistence operations
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*LocalAccount, error)
}

// ErrAccountNotFound indicates a mapping points at a nonexistent local account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "local account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
