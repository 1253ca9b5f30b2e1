// Package memory provides an in-memory seen-item store for tests and local runs.
package memory

import (
	"context"
	"sync"
)

// Store keeps seen ids in a map; contents are lost on exit.
type Store struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewStore returns an empty Store, optionally pre-seeded with ids.
func NewStore(ids ...int64) *Store {
	s := &Store{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// HasSeen reports whether id is present.
func (s *Store) HasSeen(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok, nil
}

// MarkSeen adds id.
func (s *Store) MarkSeen(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	return nil
}

// Count returns the number of ids held.
func (s *Store) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.ids)), nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
