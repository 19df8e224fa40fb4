// Package memory provides the in-memory grant store (for testing/dev).
package memory

import (
	"context"
	"sync"

	"github.com/waveform/credit-engine/grant"
)

// Store implements grant.Store with maps. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	grants   map[string]grant.Grant // keyed by transaction id
	balances map[string]int64       // keyed by device id
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		grants:   make(map[string]grant.Grant),
		balances: make(map[string]int64),
	}
}

// Apply records the grant unless the transaction id was seen before.
func (s *Store) Apply(_ context.Context, g grant.Grant) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.grants[g.TransactionID]; seen {
		return false, s.balances[g.DeviceID], nil
	}
	s.grants[g.TransactionID] = g
	s.balances[g.DeviceID] += g.Credits
	return true, s.balances[g.DeviceID], nil
}

// Balance returns the device's balance; zero for unknown devices.
func (s *Store) Balance(_ context.Context, deviceID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[deviceID], nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Grants returns a copy of all recorded grants, for test inspection.
func (s *Store) Grants() []grant.Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]grant.Grant, 0, len(s.grants))
	for _, g := range s.grants {
		out = append(out, g)
	}
	return out
}

var _ grant.Store = (*Store)(nil)
