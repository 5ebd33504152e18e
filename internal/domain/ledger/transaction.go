// Package ledger defines the sink-side bank transaction record. There is at
// most one ledger transaction per external transaction id, and once a record
// is finalized the sync engine never touches it again.
package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the approval state of a ledger transaction
type Status string

const (
	// StatusDraft records may still be updated in place by sync
	StatusDraft Status = "DRAFT"
	// StatusSubmitted and StatusPosted are finalized; new data for the same
	// external id is silently dropped
	StatusSubmitted Status = "SUBMITTED"
	StatusPosted    Status = "POSTED"
)

// Transaction is a ledger-side bank transaction. Withdrawal and Deposit are
// both non-negative; at most one of the pair is non-zero.
type Transaction struct {
	ID             uuid.UUID       `json:"id"`
	ExternalID     string          `json:"external_id"` // Qonto transaction id, unique
	Date           time.Time       `json:"date"`
	LocalAccountID uuid.UUID       `json:"local_account_id"`
	Company        string          `json:"company"`
	Description    string          `json:"description"`
	Currency       string          `json:"currency"`
	Withdrawal     decimal.Decimal `json:"withdrawal"`
	Deposit        decimal.Decimal `json:"deposit"`
	Status         Status          `json:"status"`
	RawPayload     json.RawMessage `json:"raw_payload,omitempty"` // Source payload kept for audit
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewTransaction creates a draft ledger transaction pre-seeded with the
// external natural key.
func NewTransaction(externalID string) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:         uuid.New(),
		ExternalID: externalID,
		Status:     StatusDraft,
		Withdrawal: decimal.Zero,
		Deposit:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsFinalized reports whether the record has passed the approval step and is
// immutable from the sync engine's perspective.
func (t *Transaction) IsFinalized() bool {
	return t.Status == StatusSubmitted || t.Status == StatusPosted
}

// SetAmount splits a signed amount into the withdrawal/deposit pair.
// Negative amounts are outflows.
func (t *Transaction) SetAmount(amount decimal.Decimal) {
	if amount.IsNegative() {
		t.Withdrawal = amount.Abs()
		t.Deposit = decimal.Zero
	} else {
		t.Deposit = amount
		t.Withdrawal = decimal.Zero
	}
}
