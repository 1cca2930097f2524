package control

import (
	"context"
	"sync"
)

// Call records a single invocation of FakeNodeController.AddNode.
type Call struct {
	NodeControlAddr string
	PeerHostPort    string
	Mode            Mode
}

// FakeNodeController is a NodeController test double that records calls
// instead of making HTTP requests, in the spirit of
// modules/gateway/gateway_test.go's newTestingGateway helper: the test
// suite needs a hub whose edges complete without a real node on the other
// end of the control channel.
type FakeNodeController struct {
	mu    sync.Mutex
	calls []Call
	err   error
}

// SetError makes every subsequent AddNode call fail with err.
func (f *FakeNodeController) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// AddNode implements NodeController.
func (f *FakeNodeController) AddNode(_ context.Context, nodeControlAddr, peerHostPort string, mode Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, Call{nodeControlAddr, peerHostPort, mode})
	return nil
}

// Calls returns a copy of every call recorded so far.
func (f *FakeNodeController) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
