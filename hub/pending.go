package hub

import (
	"context"
	"sync"
)

// pendingConnect is the hub-wide mutual-exclusion slot from spec.md §3/§9:
// only one Connect call may be mid-flight at a time, because the proxy
// listener's accept handler has no other way to learn which edge an
// inbound connection belongs to. It is a capacity-1 channel used as an
// asynchronous, cancellable mutex (acquire by receiving, release by
// sending) paired with a small locked struct holding the held edge, since
// a channel alone can be acquired but not peeked.
type pendingConnect struct {
	slot chan struct{}

	mu    sync.Mutex
	edge  DirectedEdge
	valid bool
}

func newPendingConnect() *pendingConnect {
	p := &pendingConnect{slot: make(chan struct{}, 1)}
	p.slot <- struct{}{}
	return p
}

// acquire blocks until the slot is free or ctx is done.
func (p *pendingConnect) acquire(ctx context.Context) error {
	select {
	case <-p.slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pendingConnect) release() {
	p.slot <- struct{}{}
}

// set records which edge currently holds the slot, so the listener's
// accept handler can look it up from a different goroutine.
func (p *pendingConnect) set(e DirectedEdge) {
	p.mu.Lock()
	p.edge, p.valid = e, true
	p.mu.Unlock()
}

func (p *pendingConnect) clear() {
	p.mu.Lock()
	p.valid = false
	p.mu.Unlock()
}

func (p *pendingConnect) current() (DirectedEdge, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edge, p.valid
}
