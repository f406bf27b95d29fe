package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"spendview/internal/api"
	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/ports"
	"spendview/internal/storage"
)

// SyncStore is the replication bookkeeping the processor needs.
type SyncStore interface {
	GetSyncRecord(ctx context.Context, id int64) (storage.SyncRecord, error)
	PendingSync(ctx context.Context, limit int) ([]storage.SyncRecord, error)
	PendingDeletes(ctx context.Context, limit int) ([]storage.SyncRecord, error)
	MarkSynced(ctx context.Context, id int64, remoteID string) error
	RecordSyncFailure(ctx context.Context, id int64, cause error, maxAttempts int) error
	PurgeExpense(ctx context.Context, id int64) error
}

// Remote is the API the processor mirrors local writes to.
type Remote interface {
	ports.ExpenseWriter
	ports.ExpenseDeleter
}

type SyncProcessorConfig struct {
	// PollInterval is how often pending rows are swept (default: 10s)
	PollInterval time.Duration

	// BatchSize caps the rows handled per sweep (default: 10)
	BatchSize int

	// MaxRetries is the number of failed pushes before a row is parked in the
	// error state (default: 3)
	MaxRetries int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// SyncProcessor mirrors locally stored expenses to the remote API. It handles
// single messages from the queue and sweeps pending rows on a timer, which
// covers lost messages and runs without a broker.
type SyncProcessor struct {
	storage SyncStore
	remote  Remote
	config  SyncProcessorConfig
	logger  *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(storage SyncStore, remote Remote, config SyncProcessorConfig, logger *log.Logger) *SyncProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncProcessor{
		storage: storage,
		remote:  remote,
		config:  config,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current sweep to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.sweep(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *SyncProcessor) sweep(ctx context.Context) {
	if _, err := p.ProcessPending(ctx); err != nil {
		p.logger.ErrorContext(ctx, "Sync sweep failed", log.FieldError, err)
	}
}

// SweepResult counts what one ProcessPending call did.
type SweepResult struct {
	Synced  int
	Deleted int
	Failed  int
}

// ProcessPending pushes pending rows and clears pending deletes, one batch
// of each.
func (p *SyncProcessor) ProcessPending(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	pending, err := p.storage.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		return res, fmt.Errorf("list pending expenses: %w", err)
	}
	for _, rec := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		ok, err := p.push(ctx, rec)
		if err != nil {
			return res, err
		}
		if ok {
			res.Synced++
		} else {
			res.Failed++
		}
	}

	deletes, err := p.storage.PendingDeletes(ctx, p.config.BatchSize)
	if err != nil {
		return res, fmt.Errorf("list pending deletes: %w", err)
	}
	for _, rec := range deletes {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		ok, err := p.removeRemote(ctx, rec.ID, rec.RemoteID)
		if err != nil {
			return res, err
		}
		if ok {
			res.Deleted++
		} else {
			res.Failed++
		}
	}

	if len(pending)+len(deletes) > 0 {
		p.logger.InfoContext(ctx, "Sync sweep completed",
			"synced", res.Synced, "deleted", res.Deleted, "failed", res.Failed)
	}
	return res, nil
}

// SyncExpense pushes one expense. Deleted and already synced rows are
// skipped, so redelivered messages are harmless. Remote failures are
// recorded on the row rather than returned.
func (p *SyncProcessor) SyncExpense(ctx context.Context, id int64) error {
	rec, err := p.storage.GetSyncRecord(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.WarnContext(ctx, "Sync requested for unknown expense", log.FieldExpenseID, id)
		return nil
	}
	if err != nil {
		return err
	}
	if rec.Deleted || rec.Status == storage.SyncSynced {
		return nil
	}
	_, err = p.push(ctx, rec)
	return err
}

// DeleteRemote removes the remote copy of a soft-deleted expense and then
// the local row. An empty remoteID is looked up from the row.
func (p *SyncProcessor) DeleteRemote(ctx context.Context, id int64, remoteID string) error {
	rec, err := p.storage.GetSyncRecord(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.Deleted {
		p.logger.WarnContext(ctx, "Delete requested for live expense, ignoring", log.FieldExpenseID, id)
		return nil
	}
	if remoteID == "" {
		remoteID = rec.RemoteID
	}
	_, err = p.removeRemote(ctx, id, remoteID)
	return err
}

// push reports whether the expense reached the remote. The error is only
// set when local bookkeeping failed.
func (p *SyncProcessor) push(ctx context.Context, rec storage.SyncRecord) (bool, error) {
	e := rec.Expense
	created, err := p.remote.CreateExpense(ctx, core.NewExpense{
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
	})
	if err != nil {
		// Rejected input will never succeed; park it at once.
		attempts := p.config.MaxRetries
		if errors.Is(err, api.ErrValidation) || core.IsValidation(err) {
			attempts = 1
		}
		if markErr := p.storage.RecordSyncFailure(ctx, rec.ID, err, attempts); markErr != nil {
			return false, fmt.Errorf("record sync failure: %w", markErr)
		}
		return false, nil
	}

	if err := p.storage.MarkSynced(ctx, rec.ID, created.ID); err != nil {
		return true, fmt.Errorf("mark expense %d synced: %w", rec.ID, err)
	}
	p.logger.InfoContext(ctx, "Synced expense to remote API",
		log.FieldExpenseID, rec.ID,
		"remote_id", created.ID,
		log.FieldAmountCents, e.Amount.Cents)
	return true, nil
}

func (p *SyncProcessor) removeRemote(ctx context.Context, id int64, remoteID string) (bool, error) {
	if remoteID != "" {
		err := p.remote.DeleteExpense(ctx, remoteID)
		if err != nil && !errors.Is(err, api.ErrNotFound) {
			p.logger.WarnContext(ctx, "Remote delete failed, will retry",
				log.FieldExpenseID, id, "remote_id", remoteID, log.FieldError, err)
			return false, nil
		}
	}
	if err := p.storage.PurgeExpense(ctx, id); err != nil {
		return false, err
	}
	p.logger.InfoContext(ctx, "Expense removed", log.FieldExpenseID, id, "remote_id", remoteID)
	return true, nil
}
