package hub

import (
	"net"
	"sync"
	"time"

	"github.com/blocknetlabs/nodeshub/wire"
)

// edgeState is the Hub Controller's record of one connected edge: its two
// transports (spec.md §3's EdgeTransports, here collapsed into one struct
// per edge rather than two parallel maps, since both halves are always
// read and torn down together) and the signalling needed to start each
// relay pump only once both sides exist.
//
// The Hub Controller is the sole owner of senderConn and receiverConn;
// the pump goroutines hold non-owning references and never call Close on
// them directly, only on the Controller's behalf via disconnect.
type edgeState struct {
	id DirectedEdge

	mu           sync.Mutex
	senderConn   net.Conn
	receiverConn net.Conn

	ready     chan struct{}
	readyOnce sync.Once

	closed     chan struct{}
	closedOnce sync.Once
}

func newEdgeState(e DirectedEdge) *edgeState {
	return &edgeState{
		id:     e,
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (es *edgeState) registerSender(conn net.Conn) {
	es.mu.Lock()
	es.senderConn = conn
	both := es.receiverConn != nil
	es.mu.Unlock()
	if both {
		es.readyOnce.Do(func() { close(es.ready) })
	}
}

func (es *edgeState) registerReceiver(conn net.Conn) {
	es.mu.Lock()
	es.receiverConn = conn
	both := es.senderConn != nil
	es.mu.Unlock()
	if both {
		es.readyOnce.Do(func() { close(es.ready) })
	}
}

func (es *edgeState) getSenderConn() net.Conn {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.senderConn
}

func (es *edgeState) getReceiverConn() net.Conn {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.receiverConn
}

// teardown closes both transports exactly once. Safe to call from either
// pump goroutine, or from Disconnect directly.
func (es *edgeState) teardown() {
	es.closedOnce.Do(func() {
		close(es.closed)
		es.mu.Lock()
		sc, rc := es.senderConn, es.receiverConn
		es.mu.Unlock()
		if sc != nil {
			sc.Close()
		}
		if rc != nil {
			rc.Close()
		}
	})
}

// managedSleep sleeps for d, or returns early with completed=false if the
// edge is torn down while waiting. Grounded on
// modules/gateway/gateway.go's managedSleep, generalized from the
// gateway's single threadgroup-wide stop channel to a per-edge one so a
// delay on one edge can't be disrupted by activity on another.
func (es *edgeState) managedSleep(d time.Duration) (completed bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-es.closed:
		return false
	}
}

// pumpDirection relays bytes read from src to dst, applying delayEdge's
// configured delay to each read burst before scanning it for frames, per
// spec.md §4.3/§4.4. Running the whole read-delay-scan-write cycle
// sequentially inside one goroutine is what gives the per-edge FIFO
// ordering spec.md §9's design notes call for: unlike the original
// single-threaded source, which had to spawn one sleep task per burst and
// therefore needed an explicit queue to keep bursts from overtaking each
// other, a dedicated goroutine per direction can simply block in its own
// sleep, so the next burst is never scanned or written until the previous
// one finishes waiting.
func (c *Controller) pumpDirection(es *edgeState, fromSender bool, delayEdge DirectedEdge, label string) {
	defer c.Disconnect(es.id.Out, es.id.In)

	select {
	case <-es.ready:
	case <-es.closed:
		return
	}

	var src, dst net.Conn
	if fromSender {
		src, dst = es.getSenderConn(), es.getReceiverConn()
	} else {
		src, dst = es.getReceiverConn(), es.getSenderConn()
	}

	rewrite := c.portRewriter()
	buf := make([]byte, 0, relayBufSize)
	tmp := make([]byte, relayBufSize)
	for {
		n, readErr := src.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)

			if d := c.delayFor(delayEdge); d > 0 {
				if !es.managedSleep(d) {
					return
				}
			}

			written, rest, scanErr := wire.Scan(buf, rewrite)
			for _, frame := range written {
				if _, werr := dst.Write(frame); werr != nil {
					return
				}
			}
			buf = append(buf[:0], rest...)

			if scanErr != nil {
				c.log.Printf("WARN: %s %v: %v, tearing down edge", label, es.id, scanErr)
				return
			}
		}
		if readErr != nil {
			return
		}
	}
}
