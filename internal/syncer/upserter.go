// Package syncer implements the transaction sync engine: idempotent upserts
// of normalized bank transactions into the ledger, and the orchestration of
// full and single-account runs under the global sync lock.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/qonto-ledger-sync/internal/domain/account"
	"github.com/qonto-ledger-sync/internal/domain/banking"
	"github.com/qonto-ledger-sync/internal/domain/ledger"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// BatchWriter accepts normalized transactions for one account. Add reports
// whether the item changed the ledger; finalized records and failed items do
// not. Close commits outstanding work, Abort discards it.
type BatchWriter interface {
	Add(ctx context.Context, tx *banking.Transaction) (bool, error)
	Close(ctx context.Context) error
	Abort(ctx context.Context)
}

// Writer opens per-account upsert batches
type Writer interface {
	BeginBatch(ctx context.Context, m *mapping.AccountMapping, acct *account.LocalAccount) (BatchWriter, error)
}

// Upserter writes normalized transactions into the ledger in durable
// batches. Each item runs inside a savepoint so one bad transaction cannot
// poison the rest of its batch, and the enclosing transaction is committed
// every batchSize items so a crashed run keeps its progress.
type Upserter struct {
	db        persistence.TxBeginner
	ledger    ledger.Repository
	batchSize int
	logger    *slog.Logger
}

// NewUpserter creates an upserter committing every batchSize items
func NewUpserter(logger *slog.Logger, db persistence.TxBeginner, ledgerRepo ledger.Repository, batchSize int) *Upserter {
	return &Upserter{
		db:        db,
		ledger:    ledgerRepo,
		batchSize: batchSize,
		logger:    logger,
	}
}

// BeginBatch opens an upsert batch for one mapped account
func (u *Upserter) BeginBatch(ctx context.Context, m *mapping.AccountMapping, acct *account.LocalAccount) (BatchWriter, error) {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin upsert batch: %w", err)
	}

	return &batch{
		upserter: u,
		mapping:  m,
		account:  acct,
		tx:       tx,
	}, nil
}

type batch struct {
	upserter *Upserter
	mapping  *mapping.AccountMapping
	account  *account.LocalAccount
	tx       pgx.Tx
	pending  int
}

// Add upserts one transaction inside a savepoint. On item failure the
// savepoint is rolled back and the batch stays usable.
func (b *batch) Add(ctx context.Context, bankTx *banking.Transaction) (bool, error) {
	sp, err := b.tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to open savepoint: %w", err)
	}

	changed, err := b.upserter.upsertOne(ctx, b.upserter.ledger.WithTx(sp), b.mapping, b.account, bankTx)
	if err != nil {
		_ = sp.Rollback(ctx)
		return false, err
	}
	if err := sp.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to release savepoint: %w", err)
	}

	if changed {
		b.pending++
	}
	if b.pending >= b.upserter.batchSize {
		if err := b.rotate(ctx); err != nil {
			return false, err
		}
	}

	return changed, nil
}

// rotate commits the current transaction and opens the next one, making the
// batch's progress durable mid-run.
func (b *batch) rotate(ctx context.Context) error {
	if err := b.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert batch: %w", err)
	}

	tx, err := b.upserter.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin next upsert batch: %w", err)
	}
	b.tx = tx
	b.pending = 0
	return nil
}

// Close commits whatever the batch still holds
func (b *batch) Close(ctx context.Context) error {
	if err := b.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert batch: %w", err)
	}
	return nil
}

// Abort rolls back uncommitted work. Earlier rotations stay committed.
func (b *batch) Abort(ctx context.Context) {
	_ = b.tx.Rollback(ctx)
}

// upsertOne applies one normalized transaction to the ledger, keyed by the
// external transaction id. Finalized records are never modified.
func (u *Upserter) upsertOne(ctx context.Context, repo ledger.Repository, m *mapping.AccountMapping, acct *account.LocalAccount, bankTx *banking.Transaction) (bool, error) {
	if bankTx.ExternalID == "" {
		return false, &ValidationError{Message: "transaction has no external id"}
	}

	existing, err := repo.GetByExternalID(ctx, bankTx.ExternalID)
	if err != nil {
		return false, err
	}

	if existing != nil && existing.IsFinalized() {
		u.logger.Debug("Skipping finalized ledger transaction",
			"external_id", bankTx.ExternalID,
			"status", string(existing.Status))
		return false, nil
	}

	// The local account's configured currency wins over the currency
	// reported on the transaction.
	currency := acct.Currency
	if currency == "" {
		currency = bankTx.Currency
	}

	record := existing
	if record == nil {
		record = ledger.NewTransaction(bankTx.ExternalID)
	}

	record.Date = bankTx.PostingDate
	record.LocalAccountID = acct.ID
	record.Company = m.Company
	record.Description = bankTx.Description
	record.Currency = currency
	record.SetAmount(bankTx.Amount)
	record.RawPayload = bankTx.Raw

	if existing == nil {
		if err := repo.Create(ctx, record); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := repo.Update(ctx, record); err != nil {
		return false, err
	}
	return true, nil
}
