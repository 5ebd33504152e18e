package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/qonto"
)

type statusFixture struct {
	bank     *MockBankGateway
	settings *MockSettingsRepository
	mappings *MockMappingRepository
	ledger   *MockLedgerRepository
	locker   *locking.MemoryLocker
	audit    *MockAuditRecorder
	svc      StatusService
}

func newStatusFixture() *statusFixture {
	f := &statusFixture{
		bank:     new(MockBankGateway),
		settings: new(MockSettingsRepository),
		mappings: new(MockMappingRepository),
		ledger:   new(MockLedgerRepository),
		locker:   locking.NewMemoryLocker(),
		audit:    new(MockAuditRecorder),
	}
	f.svc = NewStatusService(newTestLogger(), f.bank, f.settings, f.mappings, f.ledger, f.locker, f.audit)
	return f
}

func TestStatusService_Status(t *testing.T) {
	t.Run("AggregatesStateLockAndHistory", func(t *testing.T) {
		f := newStatusFixture()

		lastSync := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		f.settings.On("Get", mock.Anything).Return(&settings.SyncState{
			Connected:        true,
			OrganizationID:   "acme-corp",
			OrganizationName: "ACME Corp",
			LastSyncAt:       &lastSync,
		}, nil).Once()
		f.mappings.On("CountActive", mock.Anything).Return(int64(3), nil).Once()
		f.audit.On("ListRecent", mock.Anything, recentRunLimit).Return([]*audit.Record{
			{Message: "Transaction sync run completed", Level: audit.LevelInfo},
		}, nil).Once()

		_, err := f.locker.TryAcquire(context.Background(), time.Minute)
		require.NoError(t, err)

		status, err := f.svc.Status(context.Background())

		require.NoError(t, err)
		assert.True(t, status.Connected)
		assert.True(t, status.SyncRunning)
		assert.Equal(t, "acme-corp", status.OrganizationID)
		assert.Equal(t, int64(3), status.ActiveMappings)
		assert.Equal(t, &lastSync, status.LastSyncAt)
		assert.Len(t, status.RecentRuns, 1)
	})

	t.Run("ToleratesMissingRunHistory", func(t *testing.T) {
		f := newStatusFixture()

		f.settings.On("Get", mock.Anything).Return(&settings.SyncState{}, nil).Once()
		f.mappings.On("CountActive", mock.Anything).Return(int64(0), nil).Once()
		f.audit.On("ListRecent", mock.Anything, recentRunLimit).Return(nil, assert.AnError).Once()

		status, err := f.svc.Status(context.Background())

		require.NoError(t, err)
		assert.False(t, status.Connected)
		assert.False(t, status.SyncRunning)
		assert.Empty(t, status.RecentRuns)
	})
}

func TestStatusService_Mappings(t *testing.T) {
	f := newStatusFixture()

	localID := uuid.New()
	f.mappings.On("ListAll", mock.Anything).Return([]*mapping.AccountMapping{
		{ExternalAccountID: "acct-1", IBAN: "FR761", LocalAccountID: localID, Company: "ACME", Active: true},
	}, nil).Once()
	f.ledger.On("CountByLocalAccount", mock.Anything, localID, "ACME").Return(int64(17), nil).Once()

	statuses, err := f.svc.Mappings(context.Background())

	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "acct-1", statuses[0].ExternalAccountID)
	assert.Equal(t, int64(17), statuses[0].TransactionCount)
}

func TestStatusService_TestConnection(t *testing.T) {
	t.Run("MarksConnectedOnSuccess", func(t *testing.T) {
		f := newStatusFixture()

		f.settings.On("Get", mock.Anything).Return(&settings.SyncState{
			LastError: "previous failure",
		}, nil).Once()
		f.bank.On("FetchOrganization", mock.Anything).Return(&qonto.Organization{
			Slug: "acme-corp",
			Name: "ACME Corp",
		}, nil).Once()
		f.settings.On("Save", mock.Anything, mock.MatchedBy(func(s *settings.SyncState) bool {
			return s.Connected && s.OrganizationID == "acme-corp" && s.LastError == ""
		})).Return(nil).Once()

		state, err := f.svc.TestConnection(context.Background())

		require.NoError(t, err)
		assert.True(t, state.Connected)
		assert.Equal(t, "ACME Corp", state.OrganizationName)
		f.settings.AssertExpectations(t)
	})

	t.Run("MarksDisconnectedOnAuthFailure", func(t *testing.T) {
		f := newStatusFixture()

		f.settings.On("Get", mock.Anything).Return(&settings.SyncState{
			Connected: true,
		}, nil).Once()
		authErr := &qonto.AuthError{Message: "invalid credentials"}
		f.bank.On("FetchOrganization", mock.Anything).Return(nil, authErr).Once()
		f.settings.On("Save", mock.Anything, mock.MatchedBy(func(s *settings.SyncState) bool {
			return !s.Connected && s.LastError != ""
		})).Return(nil).Once()

		state, err := f.svc.TestConnection(context.Background())

		var gotAuth *qonto.AuthError
		assert.ErrorAs(t, err, &gotAuth)
		require.NotNil(t, state)
		assert.False(t, state.Connected)
		f.settings.AssertExpectations(t)
	})
}

func TestStatusService_BankAccounts(t *testing.T) {
	f := newStatusFixture()

	f.bank.On("ListAccounts", mock.Anything).Return([]qonto.BankAccount{
		{Slug: "acme-main", Currency: "EUR"},
	}, nil).Once()

	accounts, err := f.svc.BankAccounts(context.Background())

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "acme-main", accounts[0].Slug)
}
