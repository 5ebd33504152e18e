package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/ledger"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/qonto"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// MockPublisher mocks producers.MessagePublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockMappingRepository mocks mapping.Repository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) ListActive(ctx context.Context) ([]*mapping.AccountMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*mapping.AccountMapping), args.Error(1)
}

func (m *MockMappingRepository) GetActiveByExternalID(ctx context.Context, externalAccountID string) (*mapping.AccountMapping, error) {
	args := m.Called(ctx, externalAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapping.AccountMapping), args.Error(1)
}

func (m *MockMappingRepository) ListAll(ctx context.Context) ([]*mapping.AccountMapping, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*mapping.AccountMapping), args.Error(1)
}

func (m *MockMappingRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMappingRepository) UpdateWatermark(ctx context.Context, externalAccountID string, syncedAt time.Time) error {
	args := m.Called(ctx, externalAccountID, syncedAt)
	return args.Error(0)
}

// MockSettingsRepository mocks settings.Repository
type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*settings.SyncState, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.SyncState), args.Error(1)
}

func (m *MockSettingsRepository) Save(ctx context.Context, state *settings.SyncState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockAuditRecorder mocks audit.Recorder
type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, record *audit.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditRecorder) ListRecent(ctx context.Context, limit int) ([]*audit.Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

// MockLedgerRepository mocks ledger.Repository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) GetByExternalID(ctx context.Context, externalID string) (*ledger.Transaction, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepository) Update(ctx context.Context, tx *ledger.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockLedgerRepository) CountByLocalAccount(ctx context.Context, localAccountID uuid.UUID, company string) (int64, error) {
	args := m.Called(ctx, localAccountID, company)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

// MockBankGateway mocks BankGateway
type MockBankGateway struct {
	mock.Mock
}

func (m *MockBankGateway) FetchOrganization(ctx context.Context) (*qonto.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*qonto.Organization), args.Error(1)
}

func (m *MockBankGateway) ListAccounts(ctx context.Context) ([]qonto.BankAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]qonto.BankAccount), args.Error(1)
}
