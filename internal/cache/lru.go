package cache

import (
	"container/list"
	"sync"
	"time"
)

// store keeps at most maxSize snapshots, most recently read first. A
// snapshot older than ttl reads as missing and is dropped on access.
type store[E any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	byKey   map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type snapshot[E any] struct {
	key      string
	items    []E
	loadedAt time.Time
}

func newStore[E any](maxSize int, ttl time.Duration) *store[E] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &store[E]{
		maxSize: maxSize,
		ttl:     ttl,
		byKey:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

func (s *store[E]) stale(snap *snapshot[E], now time.Time) bool {
	return now.Sub(snap.loadedAt) > s.ttl
}

// get returns the live snapshot for key.
func (s *store[E]) get(key string) ([]E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	snap := elem.Value.(*snapshot[E])
	if s.stale(snap, s.now()) {
		s.remove(elem)
		return nil, false
	}
	s.order.MoveToFront(elem)
	return snap.items, true
}

// put stores items for key, evicting the least recently read snapshot when
// full.
func (s *store[E]) put(key string, items []E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &snapshot[E]{key: key, items: items, loadedAt: s.now()}
	if elem, ok := s.byKey[key]; ok {
		elem.Value = snap
		s.order.MoveToFront(elem)
		return
	}
	s.byKey[key] = s.order.PushFront(snap)
	if s.order.Len() > s.maxSize {
		s.remove(s.order.Back())
	}
}

func (s *store[E]) drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.byKey[key]; ok {
		s.remove(elem)
	}
}

func (s *store[E]) remove(elem *list.Element) {
	delete(s.byKey, elem.Value.(*snapshot[E]).key)
	s.order.Remove(elem)
}

// sweep drops every stale snapshot and reports how many went.
func (s *store[E]) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for elem := s.order.Front(); elem != nil; {
		next := elem.Next()
		if s.stale(elem.Value.(*snapshot[E]), now) {
			s.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (s *store[E]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}
