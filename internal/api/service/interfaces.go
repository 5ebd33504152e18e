// Package service implements the API-side application services: queueing
// sync triggers for the worker and reporting sync status.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/domain/shared"
	"github.com/qonto-ledger-sync/internal/qonto"
)

// ErrSyncInProgress is returned when a full sync trigger is rejected because
// a run currently holds the global lock.
var ErrSyncInProgress = errors.New("a sync run is already in progress")

// TriggerService queues sync runs for the worker process
type TriggerService interface {
	TriggerFullSync(ctx context.Context, correlationID string) (*shared.SyncTrigger, error)
	TriggerAccountSync(ctx context.Context, externalAccountID, correlationID string) (*shared.SyncTrigger, error)
}

// SyncStatus is the aggregated view served by the status endpoint
type SyncStatus struct {
	Connected        bool            `json:"connected"`
	OrganizationID   string          `json:"organization_id,omitempty"`
	OrganizationName string          `json:"organization_name,omitempty"`
	SyncRunning      bool            `json:"sync_running"`
	LastSyncAt       *time.Time      `json:"last_sync_at,omitempty"`
	LastError        string          `json:"last_error,omitempty"`
	ActiveMappings   int64           `json:"active_mappings"`
	RecentRuns       []*audit.Record `json:"recent_runs,omitempty"`
}

// MappingStatus is one account mapping with its ledger-side footprint
type MappingStatus struct {
	ExternalAccountID string     `json:"external_account_id"`
	IBAN              string     `json:"iban,omitempty"`
	Name              string     `json:"name,omitempty"`
	Company           string     `json:"company"`
	Active            bool       `json:"active"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	TransactionCount  int64      `json:"transaction_count"`
}

// StatusService exposes connection and run state to the API
type StatusService interface {
	Status(ctx context.Context) (*SyncStatus, error)
	Mappings(ctx context.Context) ([]*MappingStatus, error)
	TestConnection(ctx context.Context) (*settings.SyncState, error)
	BankAccounts(ctx context.Context) ([]qonto.BankAccount, error)
}

// BankGateway is the slice of the Qonto client the API process uses
type BankGateway interface {
	FetchOrganization(ctx context.Context) (*qonto.Organization, error)
	ListAccounts(ctx context.Context) ([]qonto.BankAccount, error)
}
