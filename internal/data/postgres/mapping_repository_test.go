package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qonto-ledger-sync/internal/domain/mapping"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var mappingCols = []string{"id", "external_account_id", "iban", "name", "local_account_id", "company", "active", "last_synced_at", "created_at", "updated_at"}

func TestMappingRepository_ListActive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MappingRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, external_account_id, iban, name, local_account_id, company, active, last_synced_at, created_at, updated_at
		FROM account_mappings
		WHERE active = TRUE
		ORDER BY external_account_id
	`

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		synced := now.Add(-time.Hour)
		rows := pgxmock.NewRows(mappingCols).
			AddRow(uuid.New(), "acct-1", "FR761", "Main", uuid.New(), "ACME", true, &synced, now, now).
			AddRow(uuid.New(), "acct-2", "FR762", "Payroll", uuid.New(), "ACME", true, (*time.Time)(nil), now, now)

		mock.ExpectQuery(query).WillReturnRows(rows)

		mappings, err := repo.ListActive(ctx)
		assert.NoError(t, err)
		require.Len(t, mappings, 2)
		assert.Equal(t, "acct-1", mappings[0].ExternalAccountID)
		assert.Nil(t, mappings[1].LastSyncedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WillReturnError(expectedErr)

		mappings, err := repo.ListActive(ctx)
		assert.Error(t, err)
		assert.Nil(t, mappings)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMappingRepository_GetActiveByExternalID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MappingRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, external_account_id, iban, name, local_account_id, company, active, last_synced_at, created_at, updated_at
		FROM account_mappings
		WHERE external_account_id = \$1 AND active = TRUE
	`

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		rows := pgxmock.NewRows(mappingCols).
			AddRow(uuid.New(), "acct-1", "FR761", "Main", uuid.New(), "ACME", true, (*time.Time)(nil), now, now)

		mock.ExpectQuery(query).WithArgs("acct-1").WillReturnRows(rows)

		m, err := repo.GetActiveByExternalID(ctx, "acct-1")
		assert.NoError(t, err)
		assert.Equal(t, "acct-1", m.ExternalAccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("acct-9").WillReturnError(pgx.ErrNoRows)

		m, err := repo.GetActiveByExternalID(ctx, "acct-9")
		assert.Nil(t, m)
		var notFound mapping.ErrMappingNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "acct-9", notFound.ExternalAccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMappingRepository_CountActive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MappingRepository{querier: mock, logger: newTestLogger()}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM account_mappings WHERE active = TRUE`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := repo.CountActive(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMappingRepository_UpdateWatermark(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &MappingRepository{querier: mock, logger: newTestLogger()}
	syncedAt := time.Now()

	query := `
		UPDATE account_mappings
		SET last_synced_at = \$1, updated_at = NOW\(\)
		WHERE external_account_id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(syncedAt, "acct-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateWatermark(ctx, "acct-1", syncedAt)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown mapping", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(syncedAt, "acct-9").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateWatermark(ctx, "acct-9", syncedAt)
		var notFound mapping.ErrMappingNotFound
		require.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
