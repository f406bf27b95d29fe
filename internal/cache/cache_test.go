package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreEvictsLeastRecentlyRead(t *testing.T) {
	s := newStore[int](2, time.Minute)
	s.put("a", []int{1})
	s.put("b", []int{2})
	_, _ = s.get("a")
	s.put("c", []int{3})

	_, ok := s.get("b")
	assert.False(t, ok, "b was least recently read")
	v, ok := s.get("a")
	assert.True(t, ok)
	assert.Equal(t, []int{1}, v)
	assert.Equal(t, 2, s.len())
}

func TestStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newStore[string](10, time.Second)
	s.now = func() time.Time { return now }

	s.put("k", []string{"v"})
	s.put("other", []string{"v"})
	now = now.Add(500 * time.Millisecond)
	_, ok := s.get("k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = s.get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, s.sweep())
	assert.Zero(t, s.len())
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Now()
	snaps := NewSnapshots[int](10, time.Second)
	snaps.store.now = func() time.Time { return now }
	_, _, err := snaps.Get(context.Background(), "tok", func(context.Context) ([]int, error) {
		return []int{1}, nil
	})
	require.NoError(t, err)

	m := NewManager(nil)
	m.Register(snaps)
	now = now.Add(2 * time.Second)
	assert.Equal(t, 1, m.CleanAll())
	assert.Zero(t, snaps.Size())

	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
}

func TestSnapshotsReturnCopies(t *testing.T) {
	s := NewSnapshots[int](4, time.Minute)
	ctx := context.Background()
	load := func(context.Context) ([]int, error) { return []int{1, 2, 3}, nil }

	first, hit, err := s.Get(ctx, "u", load)
	require.NoError(t, err)
	assert.False(t, hit)
	first[0] = 99

	second, hit, err := s.Get(ctx, "u", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []int{1, 2, 3}, second)
}

func TestSnapshotsShareConcurrentLoads(t *testing.T) {
	s := NewSnapshots[int](4, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]int, error) {
		calls.Add(1)
		<-release
		return []int{7}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := s.Get(context.Background(), "u", load)
			assert.NoError(t, err)
			assert.Equal(t, []int{7}, got)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestSnapshotsErrorsAreNotCached(t *testing.T) {
	s := NewSnapshots[int](4, time.Minute)
	boom := errors.New("upstream down")
	_, _, err := s.Get(context.Background(), "u", func(context.Context) ([]int, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	got, hit, err := s.Get(context.Background(), "u", func(context.Context) ([]int, error) { return []int{1}, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []int{1}, got)
}

func TestSnapshotsInvalidateDuringLoad(t *testing.T) {
	s := NewSnapshots[int](4, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _, _ = s.Get(context.Background(), "u", func(context.Context) ([]int, error) {
			close(started)
			<-release
			return []int{1}, nil
		})
	}()
	<-started
	s.Invalidate("u")
	close(release)
	<-done

	assert.Zero(t, s.Size(), "stale load must not be stored")
}

func TestSnapshotsCallerCancellation(t *testing.T) {
	s := NewSnapshots[int](4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)
	_, _, err := s.Get(ctx, "u", func(context.Context) ([]int, error) {
		<-release
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
