package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/qonto-ledger-sync/internal/config"
	"github.com/qonto-ledger-sync/internal/domain/account"
	"github.com/qonto-ledger-sync/internal/domain/audit"
	"github.com/qonto-ledger-sync/internal/domain/banking"
	"github.com/qonto-ledger-sync/internal/domain/mapping"
	"github.com/qonto-ledger-sync/internal/domain/settings"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/metrics"
)

// BankClient streams normalized transactions from the bank provider
type BankClient interface {
	Transactions(accountID string, updatedSince *time.Time, statuses []banking.TransactionStatus) banking.Stream
}

// RunResult summarizes one sync run
type RunResult struct {
	Accounts int           `json:"accounts"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// EngineParams bundles the engine's collaborators
type EngineParams struct {
	Bank     BankClient
	Writer   Writer
	Mappings mapping.Repository
	Accounts account.Repository
	Settings settings.Repository
	Audit    audit.Recorder
	Locker   locking.Locker
	Metrics  *metrics.SyncMetrics
}

// Engine orchestrates sync runs. A full run takes the global leased lock,
// fans account syncs out over a worker pool, isolates per-account failures,
// and advances watermarks only for accounts that synced cleanly.
type Engine struct {
	logger *slog.Logger
	cfg    config.SyncConfig
	pool   *ants.Pool

	bank     BankClient
	writer   Writer
	mappings mapping.Repository
	accounts account.Repository
	settings settings.Repository
	audit    audit.Recorder
	locker   locking.Locker
	metrics  *metrics.SyncMetrics

	now func() time.Time
}

// NewEngine creates a sync engine with a worker pool of the given size
func NewEngine(logger *slog.Logger, cfg config.SyncConfig, poolSize int, params EngineParams) (*Engine, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync worker pool: %w", err)
	}

	return &Engine{
		logger:   logger,
		cfg:      cfg,
		pool:     pool,
		bank:     params.Bank,
		writer:   params.Writer,
		mappings: params.Mappings,
		accounts: params.Accounts,
		settings: params.Settings,
		audit:    params.Audit,
		locker:   params.Locker,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

// Shutdown releases the worker pool
func (e *Engine) Shutdown() {
	e.pool.Release()
}

// RunAll executes a full sync run over every active mapping. It returns
// ErrSyncAlreadyRunning without doing any work when the global lock is held,
// and ErrNotConnected before the first successful connection test. Account
// failures do not fail the run; they are reported in the result.
func (e *Engine) RunAll(ctx context.Context) (*RunResult, error) {
	lock, err := e.locker.TryAcquire(ctx, e.cfg.LockLease)
	if err != nil {
		return nil, &SyncError{Err: fmt.Errorf("lock acquisition failed: %w", err)}
	}
	if lock == nil {
		e.logger.Info("Sync run skipped, lock is held")
		e.metrics.RunsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil, ErrSyncAlreadyRunning
	}
	defer func() {
		if err := e.locker.Release(ctx, lock); err != nil {
			e.logger.Error("Failed to release sync lock", "error", err)
		}
	}()

	state, err := e.settings.Get(ctx)
	if err != nil {
		return nil, &SyncError{Err: fmt.Errorf("failed to load sync state: %w", err)}
	}
	if !state.Connected {
		e.logger.Warn("Sync run skipped, connection not established")
		e.metrics.RunsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil, ErrNotConnected
	}

	start := e.now()

	active, err := e.mappings.ListActive(ctx)
	if err != nil {
		return nil, &SyncError{Err: fmt.Errorf("failed to list active mappings: %w", err)}
	}

	e.logger.Info("Starting sync run", "accounts", len(active))

	type accountResult struct {
		synced int
		err    error
	}

	results := make([]accountResult, len(active))
	var wg sync.WaitGroup
	for i, m := range active {
		i, m := i, m
		wg.Add(1)
		task := func() {
			defer wg.Done()
			synced, err := e.syncMapping(ctx, m)
			results[i] = accountResult{synced: synced, err: err}
		}
		if err := e.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	// Watermarks advance only after the whole run, and only for accounts
	// that synced without errors. A failed account keeps its old watermark
	// and re-fetches the same window next run.
	result := &RunResult{Accounts: len(active)}
	for i, m := range active {
		res := results[i]
		result.Synced += res.synced

		if res.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.ExternalAccountID, res.err))
			e.metrics.AccountErrors.WithLabelValues(m.ExternalAccountID).Inc()
			e.logger.Error("Account sync failed",
				"external_account_id", m.ExternalAccountID,
				"error", res.err)
			continue
		}

		if err := e.mappings.UpdateWatermark(ctx, m.ExternalAccountID, start); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: watermark update failed: %v", m.ExternalAccountID, err))
			e.metrics.AccountErrors.WithLabelValues(m.ExternalAccountID).Inc()
		}
	}

	result.Duration = e.now().Sub(start)

	e.recordRun(ctx, state, start, result)

	e.logger.Info("Sync run finished",
		"accounts", result.Accounts,
		"synced", result.Synced,
		"failed", result.Failed,
		"duration", result.Duration.String())

	return result, nil
}

// SyncAccount syncs one mapped account outside the global lock. Unlike
// RunAll it fails fast: the first error aborts the sync and is returned to
// the caller.
func (e *Engine) SyncAccount(ctx context.Context, externalAccountID string) (*RunResult, error) {
	state, err := e.settings.Get(ctx)
	if err != nil {
		return nil, &SyncError{ExternalAccountID: externalAccountID, Err: err}
	}
	if !state.Connected {
		return nil, ErrNotConnected
	}

	m, err := e.mappings.GetActiveByExternalID(ctx, externalAccountID)
	if err != nil {
		return nil, err
	}

	start := e.now()

	synced, err := e.syncMapping(ctx, m)
	if err != nil {
		e.metrics.AccountErrors.WithLabelValues(externalAccountID).Inc()
		return nil, err
	}

	if err := e.mappings.UpdateWatermark(ctx, externalAccountID, start); err != nil {
		return nil, &SyncError{ExternalAccountID: externalAccountID, Err: err}
	}

	e.metrics.TransactionsSynced.Add(float64(synced))

	result := &RunResult{Accounts: 1, Synced: synced, Duration: e.now().Sub(start)}
	e.recordAccountSync(ctx, externalAccountID, start, result)
	return result, nil
}

// syncMapping streams one account's settled transactions into the ledger.
// The returned count survives a partial failure; committed batches are not
// undone by a later error.
func (e *Engine) syncMapping(ctx context.Context, m *mapping.AccountMapping) (int, error) {
	acct, err := e.accounts.GetByID(ctx, m.LocalAccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return 0, &ValidationError{Message: fmt.Sprintf("mapping %s points at missing local account %s", m.ExternalAccountID, m.LocalAccountID)}
		}
		return 0, &SyncError{ExternalAccountID: m.ExternalAccountID, Err: err}
	}

	since := m.SyncedSince(e.now(), e.cfg.LookbackDays)

	e.logger.Info("Syncing account",
		"external_account_id", m.ExternalAccountID,
		"since", since.Format(time.RFC3339))

	stream := e.bank.Transactions(m.ExternalAccountID, &since, []banking.TransactionStatus{banking.StatusSettled})

	b, err := e.writer.BeginBatch(ctx, m, acct)
	if err != nil {
		return 0, &SyncError{ExternalAccountID: m.ExternalAccountID, Err: err}
	}

	var synced, failed int
	for stream.Next(ctx) {
		tx := stream.Current()
		if !tx.IsSettled() {
			continue
		}

		changed, err := b.Add(ctx, tx)
		if err != nil {
			failed++
			e.logger.Error("Failed to upsert transaction",
				"external_account_id", m.ExternalAccountID,
				"external_id", tx.ExternalID,
				"error", err)
			continue
		}
		if changed {
			synced++
		}
	}

	if err := stream.Err(); err != nil {
		b.Abort(ctx)
		return synced, &SyncError{ExternalAccountID: m.ExternalAccountID, Err: err}
	}

	if err := b.Close(ctx); err != nil {
		return synced, &SyncError{ExternalAccountID: m.ExternalAccountID, Err: err}
	}

	if failed > 0 {
		return synced, &SyncError{ExternalAccountID: m.ExternalAccountID, Err: fmt.Errorf("%d transactions failed to upsert", failed)}
	}

	return synced, nil
}

// recordRun persists run bookkeeping: state row, audit summary, metrics.
// All of it is best-effort relative to the synced data.
func (e *Engine) recordRun(ctx context.Context, state *settings.SyncState, start time.Time, result *RunResult) {
	outcome := metrics.OutcomeSuccess
	level := audit.LevelInfo
	switch {
	case result.Failed > 0 && result.Failed == result.Accounts && result.Accounts > 0:
		outcome = metrics.OutcomeFailure
		level = audit.LevelError
	case result.Failed > 0:
		outcome = metrics.OutcomePartial
		level = audit.LevelWarn
	}

	e.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	e.metrics.TransactionsSynced.Add(float64(result.Synced))
	e.metrics.RunDuration.Observe(result.Duration.Seconds())

	state.LastSyncAt = &start
	state.LastError = joinLastErrors(result.Errors, e.cfg.ErrorHistory)
	if err := e.settings.Save(ctx, state); err != nil {
		e.logger.Error("Failed to save sync state", "error", err)
	}

	durationMs := result.Duration.Milliseconds()
	items := result.Synced
	record := &audit.Record{
		RunAt:   start,
		Level:   level,
		Message: "Transaction sync run completed",
		Context: map[string]any{
			"accounts": result.Accounts,
			"failed":   result.Failed,
		},
		DurationMs:     &durationMs,
		ItemsProcessed: &items,
	}
	if len(result.Errors) > 0 {
		record.Context["errors"] = lastErrors(result.Errors, e.cfg.ErrorHistory)
	}
	if err := e.audit.Record(ctx, record); err != nil {
		e.logger.Error("Failed to write run audit record", "error", err)
	}
}

func (e *Engine) recordAccountSync(ctx context.Context, externalAccountID string, start time.Time, result *RunResult) {
	durationMs := result.Duration.Milliseconds()
	items := result.Synced
	record := &audit.Record{
		RunAt:   start,
		Level:   audit.LevelInfo,
		Message: "Single account sync completed",
		Context: map[string]any{
			"external_account_id": externalAccountID,
		},
		DurationMs:     &durationMs,
		ItemsProcessed: &items,
	}
	if err := e.audit.Record(ctx, record); err != nil {
		e.logger.Error("Failed to write account sync audit record", "error", err)
	}
}

// lastErrors keeps the newest limit entries
func lastErrors(errs []string, limit int) []string {
	if limit > 0 && len(errs) > limit {
		return errs[len(errs)-limit:]
	}
	return errs
}

func joinLastErrors(errs []string, limit int) string {
	return strings.Join(lastErrors(errs, limit), "; ")
}
