package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/qonto-ledger-sync/internal/domain/ledger"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
const uniqueViolationCode = "23505"

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger transaction repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx rebinds the repository to a transaction so the upsert engine can
// batch writes with savepoint isolation per item.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByExternalID retrieves a ledger transaction by its external natural key.
// Returns (nil, nil) when no record exists.
func (r *LedgerRepository) GetByExternalID(ctx context.Context, externalID string) (*ledger.Transaction, error) {
	query := `
		SELECT id, external_id, date, local_account_id, company, description, currency,
		       withdrawal, deposit, status, raw_payload, created_at, updated_at
		FROM ledger_transactions
		WHERE external_id = $1
	`

	var tx ledger.Transaction
	err := r.querier.QueryRow(ctx, query, externalID).Scan(
		&tx.ID,
		&tx.ExternalID,
		&tx.Date,
		&tx.LocalAccountID,
		&tx.Company,
		&tx.Description,
		&tx.Currency,
		&tx.Withdrawal,
		&tx.Deposit,
		&tx.Status,
		&tx.RawPayload,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // First sight of this external id
		}
		r.logger.Error("Failed to get ledger transaction", "externalID", externalID, "error", err)
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}

	return &tx, nil
}

// Create stores a new ledger transaction. A collision on the unique external
// id key is reported as ErrDuplicateTransaction.
func (r *LedgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO ledger_transactions (id, external_id, date, local_account_id, company, description,
		                                 currency, withdrawal, deposit, status, raw_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.ExternalID,
		tx.Date,
		tx.LocalAccountID,
		tx.Company,
		tx.Description,
		tx.Currency,
		tx.Withdrawal,
		tx.Deposit,
		tx.Status,
		tx.RawPayload,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ledger.ErrDuplicateTransaction{ExternalID: tx.ExternalID}
		}
		r.logger.Error("Failed to create ledger transaction", "externalID", tx.ExternalID, "error", err)
		return fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	return nil
}

// Update rewrites a draft ledger transaction in place
func (r *LedgerRepository) Update(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		UPDATE ledger_transactions
		SET date = $1, local_account_id = $2, company = $3, description = $4, currency = $5,
		    withdrawal = $6, deposit = $7, raw_payload = $8, updated_at = NOW()
		WHERE id = $9
	`

	result, err := r.querier.Exec(ctx, query,
		tx.Date,
		tx.LocalAccountID,
		tx.Company,
		tx.Description,
		tx.Currency,
		tx.Withdrawal,
		tx.Deposit,
		tx.RawPayload,
		tx.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update ledger transaction", "externalID", tx.ExternalID, "error", err)
		return fmt.Errorf("failed to update ledger transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("ledger transaction not found: %s", tx.ID)
	}

	return nil
}

// CountByLocalAccount returns the number of ledger transactions attached to
// a local account within a company.
func (r *LedgerRepository) CountByLocalAccount(ctx context.Context, localAccountID uuid.UUID, company string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM ledger_transactions
		WHERE local_account_id = $1 AND company = $2
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query, localAccountID, company).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger transactions", "localAccountID", localAccountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger transactions: %w", err)
	}

	return count, nil
}
