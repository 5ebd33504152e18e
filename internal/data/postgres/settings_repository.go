package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
)

// syncStateID pins the singleton state row
const syncStateID = 1

// SettingsRepository implements the settings.Repository interface for PostgreSQL
type SettingsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettingsRepository creates a new PostgreSQL sync state repository
func NewSettingsRepository(logger *slog.Logger, db *persistence.PostgresDB) settings.Repository {
	return &SettingsRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Get returns the current sync state, or a zero-valued state when none was
// stored yet.
func (r *SettingsRepository) Get(ctx context.Context) (*settings.SyncState, error) {
	query := `
		SELECT connected, organization_id, organization_name, last_sync_at, last_error, updated_at
		FROM sync_state
		WHERE id = $1
	`

	var state settings.SyncState
	err := r.querier.QueryRow(ctx, query, syncStateID).Scan(
		&state.Connected,
		&state.OrganizationID,
		&state.OrganizationName,
		&state.LastSyncAt,
		&state.LastError,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &settings.SyncState{}, nil
		}
		r.logger.Error("Failed to get sync state", "error", err)
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}

// Save upserts the singleton sync state row
func (r *SettingsRepository) Save(ctx context.Context, state *settings.SyncState) error {
	query := `
		INSERT INTO sync_state (id, connected, organization_id, organization_name, last_sync_at, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE
		SET connected = EXCLUDED.connected,
		    organization_id = EXCLUDED.organization_id,
		    organization_name = EXCLUDED.organization_name,
		    last_sync_at = EXCLUDED.last_sync_at,
		    last_error = EXCLUDED.last_error,
		    updated_at = NOW()
	`

	_, err := r.querier.Exec(ctx, query,
		syncStateID,
		state.Connected,
		state.OrganizationID,
		state.OrganizationName,
		state.LastSyncAt,
		state.LastError,
	)
	if err != nil {
		r.logger.Error("Failed to save sync state", "error", err)
		return fmt.Errorf("failed to save sync state: %w", err)
	}

	return nil
}
