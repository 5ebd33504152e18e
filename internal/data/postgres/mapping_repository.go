// Package postgres provides PostgreSQL implementations of the domain
// repositories. All write paths of the sync engine go through this package;
// repositories can be rebound to a transaction via WithTx where the domain
// interface exposes it.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// MappingRepository implements the mapping.Repository interface for PostgreSQL
type MappingRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewMappingRepository creates a new PostgreSQL account mapping repository
func NewMappingRepository(logger *slog.Logger, db *persistence.PostgresDB) mapping.Repository {
	return &MappingRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

const mappingColumns = `id, external_account_id, iban, name, local_account_id, company, active, last_synced_at, created_at, updated_at`

func scanMapping(row pgx.Row) (*mapping.AccountMapping, error) {
	var m mapping.AccountMapping
	err := row.Scan(
		&m.ID,
		&m.ExternalAccountID,
		&m.IBAN,
		&m.Name,
		&m.LocalAccountID,
		&m.Company,
		&m.Active,
		&m.LastSyncedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActive returns all mappings eligible for a full sync run, in a stable
// order so runs process accounts deterministically.
func (r *MappingRepository) ListActive(ctx context.Context) ([]*mapping.AccountMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM account_mappings
		WHERE active = TRUE
		ORDER BY external_account_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list active mappings", "error", err)
		return nil, fmt.Errorf("failed to list active mappings: %w", err)
	}
	defer rows.Close()

	return collectMappings(rows)
}

// ListAll returns every mapping regardless of active flag
func (r *MappingRepository) ListAll(ctx context.Context) ([]*mapping.AccountMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM account_mappings
		ORDER BY external_account_id
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list mappings", "error", err)
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	defer rows.Close()

	return collectMappings(rows)
}

func collectMappings(rows pgx.Rows) ([]*mapping.AccountMapping, error) {
	var mappings []*mapping.AccountMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mapping row: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mapping rows: %w", err)
	}
	return mappings, nil
}

// GetActiveByExternalID retrieves the active mapping for a Qonto account
func (r *MappingRepository) GetActiveByExternalID(ctx context.Context, externalAccountID string) (*mapping.AccountMapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM account_mappings
		WHERE external_account_id = $1 AND active = TRUE
	`

	m, err := scanMapping(r.querier.QueryRow(ctx, query, externalAccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mapping.ErrMappingNotFound{ExternalAccountID: externalAccountID}
		}
		r.logger.Error("Failed to get mapping", "externalAccountID", externalAccountID, "error", err)
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}

	return m, nil
}

// CountActive returns the number of active mappings
func (r *MappingRepository) CountActive(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM account_mappings WHERE active = TRUE`

	var count int64
	if err := r.querier.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to count active mappings", "error", err)
		return 0, fmt.Errorf("failed to count active mappings: %w", err)
	}

	return count, nil
}

// UpdateWatermark advances the mapping's last-synced timestamp
func (r *MappingRepository) UpdateWatermark(ctx context.Context, externalAccountID string, syncedAt time.Time) error {
	query := `
		UPDATE account_mappings
		SET last_synced_at = $1, updated_at = NOW()
		WHERE external_account_id = $2
	`

	result, err := r.querier.Exec(ctx, query, syncedAt, externalAccountID)
	if err != nil {
		r.logger.Error("Failed to update watermark", "externalAccountID", externalAccountID, "error", err)
		return fmt.Errorf("failed to update watermark: %w", err)
	}

	if result.RowsAffected() == 0 {
		return mapping.ErrMappingNotFound{ExternalAccountID: externalAccountID}
	}

	return nil
}
