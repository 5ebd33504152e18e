package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qonto-ledger-sync/internal/domain/ledger"
)

var ledgerCols = []string{"id", "external_id", "date", "local_account_id", "company", "description", "currency", "withdrawal", "deposit", "status", "raw_payload", "created_at", "updated_at"}

func sampleLedgerTx() *ledger.Transaction {
	now := time.Now()
	return &ledger.Transaction{
		ID:             uuid.New(),
		ExternalID:     "tx-1",
		Date:           now.Add(-24 * time.Hour),
		LocalAccountID: uuid.New(),
		Company:        "ACME",
		Description:    "Lunch — Cafe",
		Currency:       "EUR",
		Withdrawal:     decimal.RequireFromString("12.90"),
		Deposit:        decimal.Zero,
		Status:         ledger.StatusDraft,
		RawPayload:     json.RawMessage(`{"transaction_id":"tx-1"}`),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestLedgerRepository_GetByExternalID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}

	query := `
		SELECT id, external_id, date, local_account_id, company, description, currency,
		       withdrawal, deposit, status, raw_payload, created_at, updated_at
		FROM ledger_transactions
		WHERE external_id = \$1
	`

	t.Run("success", func(t *testing.T) {
		want := sampleLedgerTx()
		rows := pgxmock.NewRows(ledgerCols).
			AddRow(want.ID, want.ExternalID, want.Date, want.LocalAccountID, want.Company, want.Description,
				want.Currency, want.Withdrawal, want.Deposit, want.Status, want.RawPayload, want.CreatedAt, want.UpdatedAt)

		mock.ExpectQuery(query).WithArgs("tx-1").WillReturnRows(rows)

		got, err := repo.GetByExternalID(ctx, "tx-1")
		assert.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent returns nil nil", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("tx-new").WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByExternalID(ctx, "tx-new")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("tx-1").WillReturnError(expectedErr)

		got, err := repo.GetByExternalID(ctx, "tx-1")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	tx := sampleLedgerTx()

	query := `
		INSERT INTO ledger_transactions \(id, external_id, date, local_account_id, company, description,
		                                 currency, withdrawal, deposit, status, raw_payload, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11, \$12, \$13\)
	`

	args := []interface{}{
		tx.ID, tx.ExternalID, tx.Date, tx.LocalAccountID, tx.Company, tx.Description,
		tx.Currency, tx.Withdrawal, tx.Deposit, tx.Status, tx.RawPayload, tx.CreatedAt, tx.UpdatedAt,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate external id", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction{ExternalID: "tx-1"})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs(args...).WillReturnError(expectedErr)

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	tx := sampleLedgerTx()

	query := `
		UPDATE ledger_transactions
		SET date = \$1, local_account_id = \$2, company = \$3, description = \$4, currency = \$5,
		    withdrawal = \$6, deposit = \$7, raw_payload = \$8, updated_at = NOW\(\)
		WHERE id = \$9
	`

	args := []interface{}{
		tx.Date, tx.LocalAccountID, tx.Company, tx.Description, tx.Currency,
		tx.Withdrawal, tx.Deposit, tx.RawPayload, tx.ID,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_CountByLocalAccount(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	accountID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ledger_transactions`).
		WithArgs(accountID, "ACME").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.CountByLocalAccount(ctx, accountID, "ACME")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
