package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qonto-ledger-sync/internal/domain/settings"
)

func TestSettingsRepository_Get(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT connected, organization_id, organization_name, last_sync_at, last_error, updated_at
		FROM sync_state
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		lastSync := now.Add(-time.Hour)
		rows := pgxmock.NewRows([]string{"connected", "organization_id", "organization_name", "last_sync_at", "last_error", "updated_at"}).
			AddRow(true, "acme-corp", "ACME Corp SAS", &lastSync, "", now)

		mock.ExpectQuery(query).WithArgs(syncStateID).WillReturnRows(rows)

		state, err := repo.Get(ctx)
		assert.NoError(t, err)
		assert.True(t, state.Connected)
		assert.Equal(t, "acme-corp", state.OrganizationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no row yet", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(syncStateID).WillReturnError(pgx.ErrNoRows)

		state, err := repo.Get(ctx)
		assert.NoError(t, err)
		require.NotNil(t, state)
		assert.False(t, state.Connected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSettingsRepository_Save(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SettingsRepository{querier: mock, logger: newTestLogger()}
	lastSync := time.Now()
	state := &settings.SyncState{
		Connected:        true,
		OrganizationID:   "acme-corp",
		OrganizationName: "ACME Corp SAS",
		LastSyncAt:       &lastSync,
		LastError:        "",
	}

	mock.ExpectExec(`INSERT INTO sync_state`).
		WithArgs(syncStateID, state.Connected, state.OrganizationID, state.OrganizationName, state.LastSyncAt, state.LastError).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Save(ctx, state)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
