// Package mapping defines the link between a Qonto bank account and a local
// ledger account, together with the per-account sync watermark.
package mapping

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyExternalAccountID = errors.New("external account id cannot be empty")
	ErrEmptyLocalAccountID    = errors.New("local account id cannot be empty")
	ErrEmptyCompany           = errors.New("company cannot be empty")
)

// AccountMapping links one Qonto bank account to one local ledger account.
// LastSyncedAt is the sync watermark: transactions updated before it are
// assumed already synced. It is advanced only by the orchestrator after a
// fully successful per-account run.
type AccountMapping struct {
	ID                uuid.UUID  `json:"id"`
	ExternalAccountID string     `json:"external_account_id"` // Qonto bank account slug
	IBAN              string     `json:"iban"`
	Name              string     `json:"name"` // Display name reported by Qonto
	LocalAccountID    uuid.UUID  `json:"local_account_id"`
	Company           string     `json:"company"` // Owning organizational unit
	Active            bool       `json:"active"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewAccountMapping creates an active mapping with no watermark
func NewAccountMapping(externalAccountID, iban, name string, localAccountID uuid.UUID, company string) (*AccountMapping, error) {
	if externalAccountID == "" {
		return nil, ErrEmptyExternalAccountID
	}
	if localAccountID == uuid.Nil {
		return nil, ErrEmptyLocalAccountID
	}
	if company == "" {
		return nil, ErrEmptyCompany
	}

	now := time.Now()
	return &AccountMapping{
		ID:                uuid.New(),
		ExternalAccountID: externalAccountID,
		IBAN:              iban,
		Name:              name,
		LocalAccountID:    localAccountID,
		Company:           company,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// SyncedSince returns the incremental lower bound for the next sync: the
// stored watermark when one exists, otherwise now minus the lookback window.
func (m *AccountMapping) SyncedSince(now time.Time, lookbackDays int) time.Time {
	if m.LastSyncedAt != nil {
		return *m.LastSyncedAt
	}
	return now.AddDate(0, 0, -lookbackDays)
}
