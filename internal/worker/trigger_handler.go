// Package worker runs the sync engine: on a fixed schedule, and on demand
// when trigger messages arrive from the API process.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/qonto-ledger-sync/internal/domain/shared"
	"github.com/qonto-ledger-sync/internal/syncer"
)

// SyncRunner is the part of the engine the worker drives
type SyncRunner interface {
	RunAll(ctx context.Context) (*syncer.RunResult, error)
	SyncAccount(ctx context.Context, externalAccountID string) (*syncer.RunResult, error)
}

// TriggerHandler decodes trigger messages and dispatches them to the engine
type TriggerHandler struct {
	logger *slog.Logger
	runner SyncRunner
}

// NewTriggerHandler creates a handler for sync trigger messages
func NewTriggerHandler(logger *slog.Logger, runner SyncRunner) *TriggerHandler {
	return &TriggerHandler{
		logger: logger,
		runner: runner,
	}
}

// Handle processes one trigger message. It always returns nil for engine
// failures so the message is committed: a failed run is recorded in state
// and audit, and redelivering the trigger would only repeat the failure.
// Only undecodable messages are an error worth surfacing.
func (h *TriggerHandler) Handle(ctx context.Context, key []byte, value []byte) error {
	var trigger shared.SyncTrigger
	if err := json.Unmarshal(value, &trigger); err != nil {
		return fmt.Errorf("failed to decode sync trigger %s: %w", string(key), err)
	}

	logger := h.logger
	if trigger.CorrelationID != "" {
		logger = logger.With("correlation_id", trigger.CorrelationID)
	}

	logger.Info("Processing sync trigger",
		"trigger_id", trigger.TriggerID.String(),
		"external_account_id", trigger.ExternalAccountID,
	)

	var result *syncer.RunResult
	var err error
	if trigger.ExternalAccountID == "" {
		result, err = h.runner.RunAll(ctx)
	} else {
		result, err = h.runner.SyncAccount(ctx, trigger.ExternalAccountID)
	}

	switch {
	case errors.Is(err, syncer.ErrSyncAlreadyRunning):
		logger.Info("Trigger dropped, sync already running", "trigger_id", trigger.TriggerID.String())
	case errors.Is(err, syncer.ErrNotConnected):
		logger.Warn("Trigger dropped, connection not established", "trigger_id", trigger.TriggerID.String())
	case err != nil:
		logger.Error("Triggered sync failed",
			"trigger_id", trigger.TriggerID.String(),
			"error", err)
	default:
		logger.Info("Triggered sync completed",
			"trigger_id", trigger.TriggerID.String(),
			"synced", result.Synced,
			"failed", result.Failed)
	}

	return nil
}
