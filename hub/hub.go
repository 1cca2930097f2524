// Package hub implements the Hub Controller described in spec.md §4: a
// test-harness TCP relay that sits between every pair of nodes in an
// experiment, forwarding bytes verbatim (with optional injected delay and
// handshake port rewriting) so that a fixed topology of peer connections
// can be driven and perturbed from one place.
//
// Grounded throughout on modules/gateway/gateway.go's Gateway: a
// long-lived controller owning a set of listeners and peer connections,
// started and torn down via a threadgroup, logging through a persistent
// file logger.
package hub

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/fastrand"
	"github.com/NebulousLabs/threadgroup"
	"github.com/blocknetlabs/nodeshub/build"
	"github.com/blocknetlabs/nodeshub/control"
	"github.com/blocknetlabs/nodeshub/nodetable"
	"github.com/blocknetlabs/nodeshub/persist"
	"github.com/blocknetlabs/nodeshub/wire"
)

var (
	// ErrBindFailed is returned by StartListeners when one of the experiment's proxy
	// listeners could not be bound.
	ErrBindFailed = errors.New("failed to bind proxy listener")
)

// NodeControlAddrFunc maps a node index to the host:port of that node's
// out-of-band control interface (spec.md §6), e.g. its RPC or daemon API.
type NodeControlAddrFunc func(i int) string

// Controller is the Hub Controller: it owns one proxy listener per node,
// the live edge table, and the delay table, and mediates every edge's
// lifecycle through the PendingConnect slot.
type Controller struct {
	host            string
	ports           nodetable.Ports
	portToNode      map[int]nodetable.NodeIndex
	nodeControlAddr NodeControlAddrFunc
	ctrl            control.NodeController

	mu     sync.Mutex
	edges  map[DirectedEdge]*edgeState
	delays map[DirectedEdge]time.Duration

	listeners map[nodetable.NodeIndex]net.Listener

	pending *pendingConnect

	threads     threadgroup.ThreadGroup // owns the listeners and their accept loops
	edgeThreads threadgroup.ThreadGroup // owns the per-edge pump goroutines

	log *persist.Logger

	// id distinguishes this controller's lines in a log shared across
	// several runs of the same experiment driver, the way Sia's gateway
	// tags itself by node id in debug output.
	id string
}

// New constructs a Controller for an experiment of ports.N nodes. persistDir
// is where the hub's log file is written; nodeControlAddr and ctrl are used
// to ask a sender node to dial the hub's proxy listener for a given peer,
// per spec.md §6.
func New(host string, ports nodetable.Ports, nodeControlAddr NodeControlAddrFunc, ctrl control.NodeController, persistDir string) (*Controller, error) {
	portToNode, err := nodetable.BuildPortTable(ports)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(persistDir, 0700); err != nil {
		return nil, err
	}
	log, err := persist.NewLogger(filepath.Join(persistDir, logFile))
	if err != nil {
		return nil, err
	}

	c := &Controller{
		host:            host,
		ports:           ports,
		portToNode:      portToNode,
		nodeControlAddr: nodeControlAddr,
		ctrl:            ctrl,
		edges:           make(map[DirectedEdge]*edgeState),
		delays:          make(map[DirectedEdge]time.Duration),
		listeners:       make(map[nodetable.NodeIndex]net.Listener),
		pending:         newPendingConnect(),
		log:             log,
		id:              hex.EncodeToString(fastrand.Bytes(4)),
	}
	c.log.Printf("INFO: hub %s controlling %d nodes on %s", c.id, ports.N, host)
	return c, nil
}

// portRewriter returns the pure PortRewriter the frame scanner uses to
// rewrite a version message's advertised port from a real node port to the
// proxy port impersonating that node, per spec.md §4.5.
func (c *Controller) portRewriter() wire.PortRewriter {
	return func(advertised uint16) (uint16, error) {
		idx, ok := c.portToNode[int(advertised)]
		if !ok {
			return 0, wire.ErrUnknownPort
		}
		return uint16(c.ports.ProxyPortOf(int(idx))), nil
	}
}

// StartListeners binds a proxy listener for every node in the experiment
// and begins accepting on each, per spec.md §4.2. It fails, and closes
// whatever it already bound, if any single bind fails.
func (c *Controller) StartListeners() error {
	n := c.ports.N
	listeners := make([]net.Listener, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			addr := net.JoinHostPort(c.host, strconv.Itoa(c.ports.ProxyPortOf(i)))
			l, err := net.Listen("tcp", addr)
			listeners[i], errs[i] = l, err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			for _, l := range listeners {
				if l != nil {
					l.Close()
				}
			}
			return errors.Extend(ErrBindFailed, err)
		}
	}

	c.mu.Lock()
	for i, l := range listeners {
		c.listeners[nodetable.NodeIndex(i)] = l
	}
	c.mu.Unlock()

	for i, l := range listeners {
		idx, ln := nodetable.NodeIndex(i), l
		if err := c.threads.Add(); err != nil {
			return err
		}
		c.threads.OnStop(func() error { return ln.Close() })
		go func() {
			defer c.threads.Done()
			c.acceptLoop(idx, ln)
		}()
	}
	return nil
}

// Connect opens edge (out,in): the hub dials node in directly to become
// its receiver-side transport, then asks node out (over its control
// interface) to dial the hub's proxy listener for in, which becomes the
// edge's sender-side transport once accepted. It blocks until both
// transports exist or ctx is done, per spec.md §4.1.
func (c *Controller) Connect(ctx context.Context, out, in nodetable.NodeIndex) error {
	if !c.validNode(out) || !c.validNode(in) {
		return ErrUnknownNode
	}

	acquireCtx, cancel := context.WithTimeout(ctx, pendingAcquireTimeout)
	defer cancel()
	if err := c.pending.acquire(acquireCtx); err != nil {
		return errors.Extend(errors.New("timed out waiting for a concurrent connect to finish"), err)
	}
	defer c.pending.release()

	edge := DirectedEdge{Out: out, In: in}

	c.mu.Lock()
	if _, exists := c.edges[edge]; exists {
		c.mu.Unlock()
		return errors.Extend(ErrEdgeExists, fmt.Errorf("edge %v", edge))
	}
	es := newEdgeState(edge)
	c.edges[edge] = es
	c.mu.Unlock()

	abort := func() {
		c.removeEdge(edge)
		es.teardown()
	}

	c.pending.set(edge)
	defer c.pending.clear()

	dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
	defer dialCancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", net.JoinHostPort(c.host, strconv.Itoa(c.ports.NodePortOf(int(in)))))
	if err != nil {
		abort()
		return errors.Extend(errors.New("failed to dial receiver node"), err)
	}
	es.registerReceiver(conn)
	if tgErr := c.edgeThreads.Add(); tgErr == nil {
		go func() {
			defer c.edgeThreads.Done()
			c.pumpDirection(es, false, edge.Reverse(), "receiver->sender")
		}()
	}

	proxyAddr := net.JoinHostPort(c.host, strconv.Itoa(c.ports.ProxyPortOf(int(in))))
	controlAddr := c.nodeControlAddr(int(out))
	if err := c.ctrl.AddNode(ctx, controlAddr, proxyAddr, control.ModeAdd); err != nil {
		abort()
		return errors.Extend(errors.New("failed to ask sender node to add peer"), err)
	}
	if err := c.ctrl.AddNode(ctx, controlAddr, proxyAddr, control.ModeOnetry); err != nil {
		abort()
		return errors.Extend(errors.New("failed to ask sender node to dial peer"), err)
	}

	select {
	case <-es.ready:
		return nil
	case <-ctx.Done():
		c.Disconnect(out, in)
		return ctx.Err()
	}
}

// Disconnect closes edge (out,in) and removes it from every edge-indexed
// table, per spec.md §3 invariant 2. It is idempotent: disconnecting an
// edge that doesn't exist, or that's already being torn down, is a no-op.
func (c *Controller) Disconnect(out, in nodetable.NodeIndex) {
	edge := DirectedEdge{Out: out, In: in}
	es := c.removeEdge(edge)
	if es == nil {
		return
	}
	es.teardown()
}

func (c *Controller) removeEdge(edge DirectedEdge) *edgeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	es, ok := c.edges[edge]
	if !ok {
		return nil
	}
	delete(c.edges, edge)
	return es
}

// ConnectGraph connects every edge in edges, deduplicating first, per
// spec.md §4.6's "connect_graph deduplicates its input edge set before
// dispatching". Edges are connected concurrently; ConnectGraph returns the
// composition of every failure encountered.
func (c *Controller) ConnectGraph(ctx context.Context, edges []DirectedEdge) error {
	seen := make(map[DirectedEdge]bool, len(edges))
	unique := make([]DirectedEdge, 0, len(edges))
	for _, e := range edges {
		if !seen[e] {
			seen[e] = true
			unique = append(unique, e)
		}
	}

	errs := make([]error, len(unique))
	var wg sync.WaitGroup
	wg.Add(len(unique))
	for i, e := range unique {
		go func(i int, e DirectedEdge) {
			defer wg.Done()
			errs[i] = c.Connect(ctx, e.Out, e.In)
		}(i, e)
	}
	wg.Wait()
	return build.ComposeErrors(errs...)
}

// ConnectLine connects every consecutive pair in indices in both
// directions, forming a bidirectional chain, per spec.md §4.6.
func (c *Controller) ConnectLine(ctx context.Context, indices []nodetable.NodeIndex) error {
	edges := make([]DirectedEdge, 0, 2*len(indices))
	for i := 0; i+1 < len(indices); i++ {
		edges = append(edges, DirectedEdge{Out: indices[i], In: indices[i+1]})
		edges = append(edges, DirectedEdge{Out: indices[i+1], In: indices[i]})
	}
	return c.ConnectGraph(ctx, edges)
}

// SetDelay sets the per-edge forwarding delay, per spec.md §3/§4.4.
// A non-positive seconds value removes the entry, restoring zero delay.
func (c *Controller) SetDelay(out, in nodetable.NodeIndex, seconds float64) {
	edge := DirectedEdge{Out: out, In: in}
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds <= 0 {
		delete(c.delays, edge)
		return
	}
	c.delays[edge] = time.Duration(seconds * float64(time.Second))
}

func (c *Controller) delayFor(edge DirectedEdge) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delays[edge]
}

// Edges returns a snapshot of every currently-connected edge.
func (c *Controller) Edges() []DirectedEdge {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DirectedEdge, 0, len(c.edges))
	for e := range c.edges {
		out = append(out, e)
	}
	return out
}

// Delays returns a snapshot of the delay table.
func (c *Controller) Delays() map[DirectedEdge]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[DirectedEdge]time.Duration, len(c.delays))
	for e, d := range c.delays {
		out[e] = d
	}
	return out
}

// Close stops every listener, disconnects every edge, and waits for all
// pump goroutines to exit.
func (c *Controller) Close() error {
	err1 := c.threads.Stop()
	for _, e := range c.Edges() {
		c.Disconnect(e.Out, e.In)
	}
	err2 := c.edgeThreads.Stop()
	err3 := c.log.Close()
	return build.ComposeErrors(err1, err2, err3)
}
