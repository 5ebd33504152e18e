// Package banking defines the canonical bank-transaction record produced by
// the Qonto client and consumed by the upsert engine. Records are immutable
// once fetched.
package banking

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state reported by the bank
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusSettled  TransactionStatus = "settled"
	StatusDeclined TransactionStatus = "declined"
	StatusCanceled TransactionStatus = "canceled"
)

// TransactionSide is the direction of the funds movement
type TransactionSide string

const (
	SideDebit  TransactionSide = "debit"
	SideCredit TransactionSide = "credit"
)

// Transaction is a normalized bank transaction. ExternalID is the natural
// key: globally unique on the bank side and used as the idempotency key on
// the ledger side. Amount is signed; debits are negative.
type Transaction struct {
	ExternalID    string
	PostingDate   time.Time
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Status        TransactionStatus
	Side          TransactionSide
	OperationType string
	AttachmentIDs []string
	Raw           json.RawMessage // Original payload, preserved verbatim for audit
}

// IsSettled reports whether the funds movement is confirmed
func (t *Transaction) IsSettled() bool {
	return t.Status == StatusSettled
}
