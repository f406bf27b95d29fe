package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshots caches one slice per key. Concurrent misses for the same key
// share a single load, and callers always receive their own copy.
type Snapshots[E any] struct {
	store *store[E]
	group singleflight.Group

	mu  sync.Mutex
	gen map[string]uint64
}

func NewSnapshots[E any](maxSize int, ttl time.Duration) *Snapshots[E] {
	return &Snapshots[E]{
		store: newStore[E](maxSize, ttl),
		gen:   make(map[string]uint64),
	}
}

// LoadFunc fetches a fresh snapshot.
type LoadFunc[E any] func(ctx context.Context) ([]E, error)

// Get returns the cached snapshot for key or loads it. hit reports whether
// the cache answered. The shared load is not cancelled when one waiting
// caller gives up; each caller stops waiting when its own ctx is done.
func (s *Snapshots[E]) Get(ctx context.Context, key string, load LoadFunc[E]) (items []E, hit bool, err error) {
	if data, ok := s.store.get(key); ok {
		return slices.Clone(data), true, nil
	}

	gen := s.generation(key)
	ch := s.group.DoChan(key, func() (any, error) {
		data, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// Skip the store when a write invalidated key mid-load.
		if s.generation(key) == gen {
			s.store.put(key, data)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return slices.Clone(res.Val.([]E)), false, nil
	}
}

// Invalidate drops key and any load already in flight for it.
func (s *Snapshots[E]) Invalidate(key string) {
	s.mu.Lock()
	s.gen[key]++
	s.mu.Unlock()
	s.group.Forget(key)
	s.store.drop(key)
}

func (s *Snapshots[E]) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[key]
}

// CleanExpired implements Cleaner.
func (s *Snapshots[E]) CleanExpired() int {
	return s.store.sweep()
}

func (s *Snapshots[E]) Size() int {
	return s.store.len()
}
