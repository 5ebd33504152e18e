// Package shared holds the message types exchanged between the trigger API
// and the sync worker over Kafka.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// SyncTrigger asks the worker to start a sync run. An empty
// ExternalAccountID means a full run over all active mappings; otherwise
// only the named account is synced (bypassing the global lock).
type SyncTrigger struct {
	TriggerID         uuid.UUID `json:"trigger_id"`
	ExternalAccountID string    `json:"external_account_id,omitempty"`
	RequestedAt       time.Time `json:"requested_at"`
	CorrelationID     string    `json:"correlation_id,omitempty"`
}
