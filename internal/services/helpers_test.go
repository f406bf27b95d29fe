package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"spendview/internal/api"
	"spendview/internal/core"
	"spendview/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "sync.db"), time.UTC, nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newExpense(desc string) core.NewExpense {
	return core.NewExpense{
		Amount:      core.Money{Cents: 1500},
		Description: desc,
		Category:    "Food",
		Date:        core.NewDateIn(2024, 5, 2, time.UTC),
	}
}

type fakeRemote struct {
	mu        sync.Mutex
	created   []core.NewExpense
	deleted   []string
	createErr error
	deleteErr error
}

func (f *fakeRemote) CreateExpense(_ context.Context, e core.NewExpense) (core.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	f.created = append(f.created, e)
	return e.Expense(fmt.Sprintf("r-%d", len(f.created))), nil
}

func (f *fakeRemote) DeleteExpense(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type publishCall struct {
	kind     string
	id       int64
	remoteID string
}

type fakePublisher struct {
	calls  []publishCall
	err    error
	closed bool
}

func (f *fakePublisher) PublishExpenseSync(_ context.Context, id, _ int64) error {
	f.calls = append(f.calls, publishCall{kind: "sync", id: id})
	return f.err
}

func (f *fakePublisher) PublishExpenseDelete(_ context.Context, id int64, remoteID string) error {
	f.calls = append(f.calls, publishCall{kind: "delete", id: id, remoteID: remoteID})
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

var (
	errUpstream = &api.Error{Status: 503}
	errRejected = &api.Error{Status: 400, Message: "amount: invalid"}
	errGone     = &api.Error{Status: 404}
)
