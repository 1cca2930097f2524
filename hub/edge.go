package hub

import (
	"fmt"

	"github.com/NebulousLabs/errors"
	"github.com/blocknetlabs/nodeshub/nodetable"
)

var (
	// ErrEdgeExists is returned by Connect when the requested edge already
	// has at least one transport registered, per spec.md §4.1's "connect is
	// rejected if the edge already exists" rule.
	ErrEdgeExists = errors.New("edge already connected")

	// ErrUnknownNode is returned when an operation names a node index
	// outside [0, N).
	ErrUnknownNode = errors.New("unknown node index")
)

// DirectedEdge identifies a one-way relay path from Out to In, per spec.md
// §3's EdgeTable. (out, in) and (in, out) are distinct edges: the line and
// graph builders connect both directions explicitly when they want a
// bidirectional link.
type DirectedEdge struct {
	Out nodetable.NodeIndex
	In  nodetable.NodeIndex
}

func (e DirectedEdge) String() string {
	return fmt.Sprintf("%d->%d", e.Out, e.In)
}

// Reverse returns the edge carrying traffic the other way, used to look up
// the delay that applies to the backward leg of a connected edge (spec.md
// §4.4: "the delay consulted is that of the reverse edge").
func (e DirectedEdge) Reverse() DirectedEdge {
	return DirectedEdge{Out: e.In, In: e.Out}
}

func (c *Controller) validNode(i nodetable.NodeIndex) bool {
	return i >= 0 && int(i) < c.ports.N
}
