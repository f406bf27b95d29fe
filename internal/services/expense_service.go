package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"spendview/internal/core"
	"spendview/internal/log"
	"spendview/internal/storage"
)

// Publisher announces local writes to the sync worker.
type Publisher interface {
	PublishExpenseSync(ctx context.Context, id, version int64) error
	PublishExpenseDelete(ctx context.Context, id int64, remoteID string) error
}

// ExpenseService is the sqlite store with expense writes announced on the
// queue. Everything else is served by the embedded repository.
type ExpenseService struct {
	*storage.SQLiteRepository
	publisher Publisher
	logger    *log.Logger
}

// NewExpenseService wires the repository to an optional publisher. A nil
// publisher leaves replication to the worker's polling.
func NewExpenseService(repo *storage.SQLiteRepository, publisher Publisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		SQLiteRepository: repo,
		publisher:        publisher,
		logger:           logger.WithComponent(log.ComponentExpense),
	}
}

// CreateExpense saves locally first; a failed publish is logged and does not
// fail the request.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	created, err := s.SQLiteRepository.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	id, err := strconv.ParseInt(created.ID, 10, 64)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse expense ID", "ref", created.ID, log.FieldError, err)
		return created, nil
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseSync(ctx, id, 1); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldExpenseID, id, log.FieldError, err)
		}
	} else {
		s.logger.DebugContext(ctx, "No publisher configured, expense left for polling", log.FieldExpenseID, id)
	}
	return created, nil
}

// DeleteExpense hides the expense locally and asks the worker to remove the
// remote copy.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return fmt.Errorf("expense %q: %w", id, core.ErrNotFound)
	}
	rec, err := s.GetSyncRecord(ctx, n)
	if err != nil {
		return err
	}
	if rec.Deleted {
		return fmt.Errorf("expense %d: %w", n, core.ErrNotFound)
	}
	if err := s.SoftDeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseDelete(ctx, n, rec.RemoteID); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish delete message", log.FieldExpenseID, n, log.FieldError, err)
		}
	}
	return nil
}

// Close closes the repository and the publisher when it holds a connection.
func (s *ExpenseService) Close() error {
	var errs []error
	if s.SQLiteRepository != nil {
		if err := s.SQLiteRepository.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
