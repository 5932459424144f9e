// Package memory implements domain.PositionStore as a mutex-guarded map.
// It is the system of record for open positions; process exit loses them by
// design, so nothing here touches disk or network.
package memory

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// PositionStore holds open positions keyed by ID. The zero value is not
// usable; construct with NewPositionStore.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[string]domain.Position
}

var _ domain.PositionStore = (*PositionStore)(nil)

// NewPositionStore creates an empty store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		positions: make(map[string]domain.Position),
	}
}

// Put inserts or replaces a position keyed by its ID.
func (s *PositionStore) Put(p domain.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[p.ID] = p
}

// Get returns the position with the given ID.
func (s *PositionStore) Get(id string) (domain.Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	return p, ok
}

// Remove atomically removes and returns the position with the given ID.
// Exactly one caller ever observes ok == true for a given ID; the lookup
// and the delete happen under one write lock.
func (s *PositionStore) Remove(id string) (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return domain.Position{}, false
	}
	delete(s.positions, id)
	return p, true
}

// Update applies fn to the stored position under the write lock and returns
// the updated copy.
func (s *PositionStore) Update(id string, fn func(*domain.Position)) (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return domain.Position{}, false
	}
	fn(&p)
	s.positions[id] = p
	return p, true
}

// List returns a point-in-time snapshot ordered by open time, then ID.
func (s *PositionStore) List() []domain.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of stored positions.
func (s *PositionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.positions)
}
