// Package nodetable holds the small, pure pieces of the hub's data model
// that don't need a live connection: node indices, the node/proxy port
// convention, and the port-to-node lookup table built from it.
//
// Grounded on modules/gateway's get_node_port/get_proxy_port pair (here
// NodePortFunc/Ports.ProxyPortOf) and on the port-allocator-as-external-dependency
// pattern used throughout Sia's test helpers (p2p_port in the original
// Python, NodePort here): the allocation scheme itself is out of scope per
// spec.md §1, so it is injected as a function rather than computed here.
package nodetable

import (
	"fmt"

	"github.com/NebulousLabs/errors"
)

// ErrDuplicatePort is returned by BuildPortTable when two node/proxy ports
// collide, violating spec.md §3 invariant 3.
var ErrDuplicatePort = errors.New("duplicate port in node/proxy allocation")

// NodeIndex identifies a node in the experiment by its position in the
// ordered node list. N = the number of nodes in the experiment.
type NodeIndex int

// NodePortFunc maps a node index to the TCP port its real node instance
// listens on. It is supplied by the embedding test framework (spec.md §1,
// §6: "an external function maps a node index to a TCP port").
type NodePortFunc func(i int) int

// Ports computes the proxy-port convention for an experiment with N nodes,
// given the external node-port allocator.
//
// proxy_port(i) = node_port(N + 1 + i), per spec.md §6.
type Ports struct {
	N        int
	NodePort NodePortFunc
}

// NodePortOf returns the real listening port of node i.
func (p Ports) NodePortOf(i int) int {
	return p.NodePort(i)
}

// ProxyPortOf returns the hub's listening port that impersonates node i.
func (p Ports) ProxyPortOf(i int) int {
	return p.NodePort(p.N + 1 + i)
}

// BuildPortTable populates the PortToNode map for every node in [0, N),
// from both its node port and its proxy port, per spec.md §3 ("PortToNode
// map") and invariant 3. It fails with ErrDuplicatePort if the allocator
// produces a collision, since the map's keys must be unique.
func BuildPortTable(p Ports) (map[int]NodeIndex, error) {
	table := make(map[int]NodeIndex, p.N*2)
	insert := func(port int, idx NodeIndex) error {
		if existing, ok := table[port]; ok && existing != idx {
			return errors.Extend(ErrDuplicatePort, fmt.Errorf("port %d maps to both node %d and node %d", port, existing, idx))
		}
		table[port] = idx
		return nil
	}
	for i := 0; i < p.N; i++ {
		idx := NodeIndex(i)
		if err := insert(p.NodePortOf(i), idx); err != nil {
			return nil, err
		}
		if err := insert(p.ProxyPortOf(i), idx); err != nil {
			return nil, err
		}
	}
	return table, nil
}
