package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendview/internal/amqp"
)

type fakeProcessor struct {
	synced  []int64
	deleted map[int64]string
	err     error
	started bool
	stopped bool
}

func (f *fakeProcessor) SyncExpense(_ context.Context, id int64) error {
	f.synced = append(f.synced, id)
	return f.err
}

func (f *fakeProcessor) DeleteRemote(_ context.Context, id int64, remoteID string) error {
	if f.deleted == nil {
		f.deleted = map[int64]string{}
	}
	f.deleted[id] = remoteID
	return f.err
}

func (f *fakeProcessor) Start(context.Context) error { f.started = true; return nil }
func (f *fakeProcessor) Stop(context.Context) error  { f.stopped = true; return nil }

type fakeConsumer struct {
	messages []any
	handled  chan struct{}
}

func (c *fakeConsumer) Consume(ctx context.Context, h amqp.Handler) error {
	for _, m := range c.messages {
		switch m := m.(type) {
		case *amqp.ExpenseSyncMessage:
			_ = h.HandleSync(ctx, m)
		case *amqp.ExpenseDeleteMessage:
			_ = h.HandleDelete(ctx, m)
		}
	}
	close(c.handled)
	<-ctx.Done()
	return ctx.Err()
}

func TestHandlersDelegate(t *testing.T) {
	p := &fakeProcessor{}
	w := NewSyncWorker(p, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleSync(ctx, amqp.NewExpenseSyncMessage(4, 1)))
	require.NoError(t, w.HandleDelete(ctx, amqp.NewExpenseDeleteMessage(5, "r-5")))
	assert.Equal(t, []int64{4}, p.synced)
	assert.Equal(t, map[int64]string{5: "r-5"}, p.deleted)

	p.err = errors.New("disk full")
	err := w.HandleSync(ctx, amqp.NewExpenseSyncMessage(6, 1))
	assert.ErrorIs(t, err, p.err)
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	p := &fakeProcessor{}
	c := &fakeConsumer{
		messages: []any{amqp.NewExpenseSyncMessage(1, 1), amqp.NewExpenseDeleteMessage(2, "")},
		handled:  make(chan struct{}),
	}
	w := NewSyncWorker(p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()

	select {
	case <-c.handled:
	case <-time.After(2 * time.Second):
		t.Fatal("messages were not consumed")
	}
	cancel()
	require.NoError(t, <-done)

	assert.True(t, p.started)
	assert.True(t, p.stopped)
	assert.Equal(t, []int64{1}, p.synced)
	assert.Contains(t, p.deleted, int64(2))
}

func TestRunWithoutConsumerPolls(t *testing.T) {
	p := &fakeProcessor{}
	w := NewSyncWorker(p, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Run(ctx, nil))
	assert.True(t, p.started)
	assert.True(t, p.stopped)
}
