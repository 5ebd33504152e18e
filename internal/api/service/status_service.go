package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/ledger"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/qonto"
)

// recentRunLimit caps the audit records included in the status view
const recentRunLimit = 10

type statusService struct {
	logger   *slog.Logger
	bank     BankGateway
	settings settings.Repository
	mappings mapping.Repository
	ledger   ledger.Repository
	locker   locking.Locker
	audit    audit.Recorder
	now      func() time.Time
}

// NewStatusService creates the service behind the status endpoints
func NewStatusService(
	logger *slog.Logger,
	bank BankGateway,
	settingsRepo settings.Repository,
	mappings mapping.Repository,
	ledgerRepo ledger.Repository,
	locker locking.Locker,
	auditor audit.Recorder,
) StatusService {
	return &statusService{
		logger:   logger,
		bank:     bank,
		settings: settingsRepo,
		mappings: mappings,
		ledger:   ledgerRepo,
		locker:   locker,
		audit:    auditor,
		now:      time.Now,
	}
}

// Status aggregates connection state, lock state, mapping count, and the
// most recent run records.
func (s *statusService) Status(ctx context.Context) (*SyncStatus, error) {
	state, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	running, err := s.locker.Held(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync lock: %w", err)
	}

	activeMappings, err := s.mappings.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count mappings: %w", err)
	}

	recent, err := s.audit.ListRecent(ctx, recentRunLimit)
	if err != nil {
		// The status view is still useful without run history
		s.logger.Error("Failed to list recent audit records", "error", err)
		recent = nil
	}

	return &SyncStatus{
		Connected:        state.Connected,
		OrganizationID:   state.OrganizationID,
		OrganizationName: state.OrganizationName,
		SyncRunning:      running,
		LastSyncAt:       state.LastSyncAt,
		LastError:        state.LastError,
		ActiveMappings:   activeMappings,
		RecentRuns:       recent,
	}, nil
}

// Mappings lists every account mapping with its ledger transaction count
func (s *statusService) Mappings(ctx context.Context) ([]*MappingStatus, error) {
	all, err := s.mappings.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}

	statuses := make([]*MappingStatus, 0, len(all))
	for _, m := range all {
		count, err := s.ledger.CountByLocalAccount(ctx, m.LocalAccountID, m.Company)
		if err != nil {
			return nil, fmt.Errorf("failed to count transactions for %s: %w", m.ExternalAccountID, err)
		}

		statuses = append(statuses, &MappingStatus{
			ExternalAccountID: m.ExternalAccountID,
			IBAN:              m.IBAN,
			Name:              m.Name,
			Company:           m.Company,
			Active:            m.Active,
			LastSyncedAt:      m.LastSyncedAt,
			TransactionCount:  count,
		})
	}

	return statuses, nil
}

// TestConnection verifies the Qonto credentials by fetching the organization
// and records the outcome on the sync state. Sync runs stay disabled until a
// test has succeeded.
func (s *statusService) TestConnection(ctx context.Context) (*settings.SyncState, error) {
	state, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	org, fetchErr := s.bank.FetchOrganization(ctx)
	if fetchErr != nil {
		state.Connected = false
		state.LastError = fetchErr.Error()
		state.UpdatedAt = s.now()
		if err := s.settings.Save(ctx, state); err != nil {
			s.logger.Error("Failed to save sync state after connection test", "error", err)
		}

		var authErr *qonto.AuthError
		if errors.As(fetchErr, &authErr) {
			return state, fetchErr
		}
		return state, fmt.Errorf("connection test failed: %w", fetchErr)
	}

	state.Connected = true
	state.OrganizationID = org.Slug
	state.OrganizationName = org.DisplayName()
	state.LastError = ""
	state.UpdatedAt = s.now()

	if err := s.settings.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	s.logger.Info("Connection test succeeded",
		"organization", state.OrganizationID)

	return state, nil
}

// BankAccounts lists the organization's bank accounts from Qonto
func (s *statusService) BankAccounts(ctx context.Context) ([]qonto.BankAccount, error) {
	accounts, err := s.bank.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	return accounts, nil
}
