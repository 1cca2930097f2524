package hub

import (
	"net"

	"github.com/blocknetlabs/nodeshub/nodetable"
)

// acceptLoop runs the Proxy Listener for node idx: every inbound
// connection is matched against the PendingConnect slot to learn which
// edge it belongs to, per spec.md §4.2. A connection that doesn't match a
// currently-pending edge for this node is unexpected (no concurrent
// Connect is waiting on this listener) and is dropped.
func (c *Controller) acceptLoop(idx nodetable.NodeIndex, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}

		edge, ok := c.pending.current()
		if !ok || edge.In != idx {
			c.log.Printf("WARN: listener %d: unexpected connection from %s with no matching pending edge", idx, conn.RemoteAddr())
			conn.Close()
			continue
		}

		c.mu.Lock()
		es := c.edges[edge]
		c.mu.Unlock()
		if es == nil {
			conn.Close()
			continue
		}

		es.registerSender(conn)
		if err := c.edgeThreads.Add(); err != nil {
			conn.Close()
			continue
		}
		go func() {
			defer c.edgeThreads.Done()
			c.pumpDirection(es, true, edge, "sender->receiver")
		}()
	}
}
