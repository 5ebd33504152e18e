package handler

import (
	"time"

	"github.com/qonto-ledger-sync/internal/domain/shared"
)

// TriggerResponse acknowledges a queued sync trigger
type TriggerResponse struct {
	TriggerID         string    `json:"trigger_id"`
	ExternalAccountID string    `json:"external_account_id,omitempty"`
	RequestedAt       time.Time `json:"requested_at"`
}

func newTriggerResponse(trigger *shared.SyncTrigger) *TriggerResponse {
	return &TriggerResponse{
		TriggerID:         trigger.TriggerID.String(),
		ExternalAccountID: trigger.ExternalAccountID,
		RequestedAt:       trigger.RequestedAt,
	}
}

// ConnectionResponse reports the outcome of a connection test
type ConnectionResponse struct {
	Connected        bool   `json:"connected"`
	OrganizationID   string `json:"organization_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	Error            string `json:"error,omitempty"`
}
