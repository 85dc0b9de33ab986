package job

import "sync"

// Exchange is a single-slot, latest-wins snapshot mailbox between the
// polling path and a status watcher. Publish overwrites any unconsumed
// snapshot: a slow consumer sees a coalesced view of progress, never a
// backlog, and never snapshots out of order.
type Exchange struct {
	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// NewExchange creates an empty exchange.
func NewExchange() *Exchange {
	return &Exchange{ch: make(chan Snapshot, 1)}
}

// Publish deposits s as the latest snapshot, replacing any unconsumed one.
// It never blocks. Publishing to a closed exchange is a no-op.
func (e *Exchange) Publish(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	// Drop the unconsumed snapshot, if any, then deposit the new one.
	// Both steps run under the mutex, so the slot never holds two.
	select {
	case <-e.ch:
	default:
	}
	e.ch <- s
}

// Consume blocks until a snapshot is available, the exchange is closed, or
// stop is signalled. ok is false when no snapshot was received. A snapshot
// left in the slot at close time is still delivered before ok turns false.
func (e *Exchange) Consume(stop <-chan struct{}) (Snapshot, bool) {
	select {
	case s, ok := <-e.ch:
		return s, ok
	case <-stop:
		return Snapshot{}, false
	}
}

// TryConsume receives the latest snapshot without blocking. ok is false
// when the slot is empty or the exchange is closed.
func (e *Exchange) TryConsume() (Snapshot, bool) {
	select {
	case s, ok := <-e.ch:
		return s, ok
	default:
		return Snapshot{}, false
	}
}

// Close wakes every blocked consumer. Safe to call multiple times.
func (e *Exchange) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}
