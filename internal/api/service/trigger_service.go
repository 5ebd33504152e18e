package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/domain/shared"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/platform/messaging/producers"
)

type triggerService struct {
	logger   *slog.Logger
	producer producers.MessagePublisher
	locker   locking.Locker
	mappings mapping.Repository
	audit    audit.Recorder
}

// NewTriggerService creates the service behind the manual trigger endpoints
func NewTriggerService(
	logger *slog.Logger,
	producer producers.MessagePublisher,
	locker locking.Locker,
	mappings mapping.Repository,
	auditor audit.Recorder,
) TriggerService {
	return &triggerService{
		logger:   logger,
		producer: producer,
		locker:   locker,
		mappings: mappings,
		audit:    auditor,
	}
}

// TriggerFullSync queues a full run. It is rejected up front when a run
// already holds the lock, so the caller gets immediate feedback instead of a
// trigger that the worker silently drops.
func (s *triggerService) TriggerFullSync(ctx context.Context, correlationID string) (*shared.SyncTrigger, error) {
	held, err := s.locker.Held(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check sync lock: %w", err)
	}
	if held {
		return nil, ErrSyncInProgress
	}

	trigger := &shared.SyncTrigger{
		TriggerID:     uuid.New(),
		RequestedAt:   time.Now(),
		CorrelationID: correlationID,
	}

	if err := s.publish(ctx, trigger); err != nil {
		return nil, err
	}
	return trigger, nil
}

// TriggerAccountSync queues a single-account sync. The lock is not checked:
// the account path bypasses it by design of the worker.
func (s *triggerService) TriggerAccountSync(ctx context.Context, externalAccountID, correlationID string) (*shared.SyncTrigger, error) {
	if _, err := s.mappings.GetActiveByExternalID(ctx, externalAccountID); err != nil {
		return nil, err
	}

	trigger := &shared.SyncTrigger{
		TriggerID:         uuid.New(),
		ExternalAccountID: externalAccountID,
		RequestedAt:       time.Now(),
		CorrelationID:     correlationID,
	}

	if err := s.publish(ctx, trigger); err != nil {
		return nil, err
	}
	return trigger, nil
}

func (s *triggerService) publish(ctx context.Context, trigger *shared.SyncTrigger) error {
	if err := s.producer.Publish(ctx, trigger.TriggerID.String(), trigger); err != nil {
		return fmt.Errorf("failed to queue sync trigger: %w", err)
	}

	s.logger.Info("Queued sync trigger",
		"trigger_id", trigger.TriggerID.String(),
		"external_account_id", trigger.ExternalAccountID,
	)

	record := &audit.Record{
		RunAt:   trigger.RequestedAt,
		Level:   audit.LevelInfo,
		Message: "Manual sync requested",
		Context: map[string]any{
			"trigger_id": trigger.TriggerID.String(),
		},
	}
	if trigger.ExternalAccountID != "" {
		record.Context["external_account_id"] = trigger.ExternalAccountID
	}
	if err := s.audit.Record(ctx, record); err != nil {
		s.logger.Error("Failed to write trigger audit record", "error", err)
	}

	return nil
}
