// Package account defines the local ledger account that synced bank
// transactions are attached to. Accounts are provisioned by configuration
// and never mutated by sync.
package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyName             = errors.New("account name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// LocalAccount is the sink-side bank account. Its configured currency takes
// precedence over the currency reported on individual transactions.
type LocalAccount struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IBAN      string    `json:"iban"`
	Company   string    `json:"company"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLocalAccount creates a local account with the given parameters
func NewLocalAccount(name, iban, company, currency string) (*LocalAccount, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if currency != "" && len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	now := time.Now()
	return &LocalAccount{
		ID:        uuid.New(),
		Name:      name,
		IBAN:      iban,
		Company:   company,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
