// Package settings defines the connection and run-level state shared between
// the trigger API and the sync worker. A single row backs it; sync runs and
// connection tests are the only writers.
package settings

import (
	"context"
	"time"
)

// SyncState is the run-level bookkeeping record
type SyncState struct {
	Connected        bool       `json:"connected"`
	OrganizationID   string     `json:"organization_id"`   // Qonto organization slug
	OrganizationName string     `json:"organization_name"` // Legal or display name
	LastSyncAt       *time.Time `json:"last_sync_at,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Repository persists the singleton sync state
type Repository interface {
	// Get returns the current state; a zero-valued state when none was
	// stored yet.
	Get(ctx context.Context) (*SyncState, error)
	Save(ctx context.Context, state *SyncState) error
}
