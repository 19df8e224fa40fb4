/*
events.go - Purchase-completed broadcast

PURPOSE:
  A process-wide, payload-free notification fired exactly once per
  successful redemption - never on failure or cancellation. The UI
  subscribes and re-queries the displayed balance when poked; it does
  not learn the amount from the event.

DELIVERY:
  Subscriber channels have a one-slot buffer and sends never block.
  Back-to-back publishes while a subscriber is busy coalesce into one
  pending notification, which is fine: the reaction is "refresh the
  balance", and refreshing once covers both.
*/
package purchase

import "sync"

// Broadcaster fans a no-payload signal out to subscribers.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// to release the subscription.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan struct{}, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
	return ch, cancel
}

// Publish signals all current subscribers without blocking.
func (b *Broadcaster) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default: // subscriber already has a pending signal
		}
	}
}
