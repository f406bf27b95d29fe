// Package worker replays expenses written to the local sqlite store onto the
// remote API.
package worker

import (
	"context"
	"fmt"
	"time"

	"spendview/internal/amqp"
	"spendview/internal/log"
)

const stopTimeout = 10 * time.Second

// Processor does the actual replication.
type Processor interface {
	SyncExpense(ctx context.Context, id int64) error
	DeleteRemote(ctx context.Context, id int64, remoteID string) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Consumer delivers queue messages to a handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, h amqp.Handler) error
}

// SyncWorker turns queue messages into processor calls.
type SyncWorker struct {
	processor Processor
	logger    *log.Logger
}

func NewSyncWorker(processor Processor, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{processor: processor, logger: logger.WithComponent(log.ComponentWorker)}
}

func (w *SyncWorker) HandleSync(ctx context.Context, msg *amqp.ExpenseSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldExpenseID, msg.ID,
		"version", msg.Version)
	if err := w.processor.SyncExpense(ctx, msg.ID); err != nil {
		return fmt.Errorf("sync expense %d: %w", msg.ID, err)
	}
	return nil
}

func (w *SyncWorker) HandleDelete(ctx context.Context, msg *amqp.ExpenseDeleteMessage) error {
	w.logger.InfoContext(ctx, "Processing delete message",
		log.FieldExpenseID, msg.ID,
		"remote_id", msg.RemoteID)
	if err := w.processor.DeleteRemote(ctx, msg.ID, msg.RemoteID); err != nil {
		return fmt.Errorf("delete expense %d: %w", msg.ID, err)
	}
	return nil
}

// Run starts the polling sweep and, when a consumer is given, handles queue
// messages until ctx is cancelled. Without a consumer it only polls.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.processor.Start(ctx); err != nil {
		return fmt.Errorf("start sync processor: %w", err)
	}
	defer func() {
		// ctx is already done here; give the sweep its own deadline.
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := w.processor.Stop(stopCtx); err != nil {
			w.logger.Warn("Sync processor did not stop cleanly", log.FieldError, err)
		}
	}()

	if consumer == nil {
		w.logger.InfoContext(ctx, "No AMQP consumer configured, polling only")
		<-ctx.Done()
		return nil
	}

	err := consumer.Consume(ctx, w)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
