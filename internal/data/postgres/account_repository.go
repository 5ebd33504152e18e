package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/qonto-ledger-sync/internal/domain/account"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL local account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// GetByID retrieves a local account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.LocalAccount, error) {
	query := `
		SELECT id, name, iban, company, currency, created_at, updated_at
		FROM local_accounts
		WHERE id = $1
	`

	var acc account.LocalAccount
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Name,
		&acc.IBAN,
		&acc.Company,
		&acc.Currency,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get local account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get local account: %w", err)
	}

	return &acc, nil
}
