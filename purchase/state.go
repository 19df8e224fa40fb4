/*
state.go - Observable purchase state behind a single owner

PURPOSE:
  PurchaseState (products, loading flag, last error) is read by the UI
  and written by the purchase flow and the update listener - two
  concurrent tasks. All writes are funneled through one owning
  goroutine; other tasks communicate mutations as messages, never by
  touching fields directly. That serialization is what keeps a loading
  flag from being flipped mid-update by a racing path.

LIFECYCLE:
  Created at process start, closed at process exit. Nothing here is
  persisted - the state is always rebuildable by re-reading the
  catalog and re-querying the ledger.
*/
package purchase

import (
	"sync"

	"github.com/waveform/credit-engine/catalog"
)

// State is the UI-visible purchase state.
type State struct {
	// Products is the catalog of purchasable packs, in display order.
	Products []catalog.Product

	// IsLoading is set while a purchase or catalog load is in flight.
	IsLoading bool

	// LastError is the most recent user-visible failure, empty when the
	// last operation succeeded. It never blocks a retry.
	LastError string
}

// StateOwner serializes all State mutations onto one goroutine.
type StateOwner struct {
	ops       chan func(*State)
	quit      chan struct{}
	closeOnce sync.Once
}

// NewStateOwner starts the owning goroutine with an empty state.
func NewStateOwner() *StateOwner {
	o := &StateOwner{
		ops:  make(chan func(*State)),
		quit: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *StateOwner) run() {
	var state State
	for {
		select {
		case fn := <-o.ops:
			fn(&state)
		case <-o.quit:
			return
		}
	}
}

// Update applies a mutation on the owner goroutine. Blocks until the
// mutation is accepted; becomes a no-op after Close.
func (o *StateOwner) Update(fn func(*State)) {
	select {
	case o.ops <- fn:
	case <-o.quit:
	}
}

// Snapshot returns a copy of the current state.
func (o *StateOwner) Snapshot() State {
	reply := make(chan State, 1)
	o.Update(func(s *State) {
		cp := *s
		cp.Products = append([]catalog.Product(nil), s.Products...)
		reply <- cp
	})
	select {
	case st := <-reply:
		return st
	case <-o.quit:
		return State{}
	}
}

// Close stops the owner goroutine. Safe to call multiple times.
func (o *StateOwner) Close() {
	o.closeOnce.Do(func() { close(o.quit) })
}
