package syncer

import (
	"errors"
	"fmt"
)

// ErrSyncAlreadyRunning is returned when a run cannot take the global lock
var ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")

// ErrNotConnected is returned when sync is attempted before a successful
// connection test.
var ErrNotConnected = errors.New("qonto connection is not established")

// ValidationError indicates broken sync configuration, such as a mapping
// pointing at a missing local account. It is not retryable.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// SyncError wraps a failure inside a sync run with the account it belongs to
type SyncError struct {
	ExternalAccountID string
	Err               error
}

func (e *SyncError) Error() string {
	if e.ExternalAccountID == "" {
		return fmt.Sprintf("sync failed: %v", e.Err)
	}
	return fmt.Sprintf("sync failed for account %s: %v", e.ExternalAccountID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
