package correlate

import (
	"sync"
	"time"
)

// ttlStore is a keyed in-memory store with a fixed time-to-live per entry.
//
// Expiry is swept inline: before every read and after every write. There is no
// background timer, so an entry past its TTL can linger until the next
// operation touches the store. That staleness is bounded and acceptable; the
// whole store lives and dies with the process.
//
// Iteration for Find is in insertion order. That order is part of the
// contract: first-match correlation must be deterministic across runs.
//
// A ttl of zero disables expiry entirely.
type ttlStore[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]entry[V]
	order   []string
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

func newTTLStore[V any](ttl time.Duration) *ttlStore[V] {
	return &ttlStore[V]{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]entry[V]),
	}
}

// Put inserts or replaces the entry for key, stamping it with the current time.
// Replacement moves the key to the back of the iteration order.
func (s *ttlStore[V]) Put(key string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.dropFromOrder(key)
	}
	s.entries[key] = entry[V]{value: v, storedAt: s.clock()}
	s.order = append(s.order, key)
	s.sweep()
}

// Get returns the live entry for key.
func (s *ttlStore[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Find returns the first live entry, in insertion order, satisfying pred.
func (s *ttlStore[V]) Find(pred func(V) bool) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	for _, key := range s.order {
		if e, ok := s.entries[key]; ok && pred(e.value) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Take returns and removes the live entry for key in one critical section,
// so concurrent takers cannot both receive the same entry. This is the only
// removal path besides expiry; consume-once semantics depend on it.
func (s *ttlStore[V]) Take(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	e, ok := s.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	delete(s.entries, key)
	s.dropFromOrder(key)
	return e.value, true
}

// Len reports the number of live entries.
func (s *ttlStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.entries)
}

// sweep removes every entry whose age exceeds the TTL. Callers must hold mu.
func (s *ttlStore[V]) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.clock()
	kept := s.order[:0]
	for _, key := range s.order {
		e, ok := s.entries[key]
		if !ok {
			continue
		}
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
}

func (s *ttlStore[V]) dropFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
