// Package store provides an observable in-memory collection.
//
// A Store holds an ordered slice of records. Readers get copies through
// Snapshot; writers go through Update, which runs under the store lock and
// notifies subscribers with the resulting snapshot once the lock is released.
package store

import (
	"sort"
	"sync"
)

// Listener receives the snapshot produced by an update.
type Listener[T any] func(snapshot []T)

// Store is a mutable, observable cell holding a slice of T.
type Store[T any] struct {
	mu      sync.RWMutex
	items   []T
	version uint64

	subMu     sync.Mutex
	listeners map[int]Listener[T]
	nextSub   int
}

// New creates a store seeded with a copy of initial.
func New[T any](initial []T) *Store[T] {
	return &Store[T]{
		items:     clone(initial),
		listeners: make(map[int]Listener[T]),
	}
}

// Snapshot returns a copy of the current items.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items)
}

// Len returns the number of items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Version increments on every successful update.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Find returns the first item matching pred.
func (s *Store[T]) Find(pred func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Update replaces the items with the result of fn. fn receives a copy it may
// modify freely; if it returns an error the store is left unchanged and no
// listener runs. Updates are serialized, so a check-then-append inside fn is
// atomic with respect to other updates.
func (s *Store[T]) Update(fn func(items []T) ([]T, error)) error {
	s.mu.Lock()
	next, err := fn(clone(s.items))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.version++
	snapshot := clone(next)
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Set replaces the items.
func (s *Store[T]) Set(items []T) {
	_ = s.Update(func([]T) ([]T, error) { return clone(items), nil })
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store[T]) notify(snapshot []T) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener[T], 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func clone[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
