// Package control implements the caller side of the out-of-band interface
// the hub uses to ask a node to dial a peer. The node implementation itself
// is out of scope (spec.md §1); this package only knows how to speak the
// two verbs spec.md §6 describes.
//
// Grounded on cmd/siac/main.go's apiPost/apiGet JSON-over-HTTP helpers,
// generalized from Sia's own daemon API to the generic "addnode" RPC shape
// that spec.md §6 specifies for the upstream nodes.
package control

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Mode names the two addnode verbs from spec.md §6.
type Mode string

const (
	// ModeAdd registers a peer as persistent.
	ModeAdd Mode = "add"
	// ModeOnetry dials a peer once, immediately.
	ModeOnetry Mode = "onetry"
)

// NodeController is the hub's view of a node's control interface: it can be
// told to add (and optionally dial) a peer address. Implementations are
// swapped out in tests for a FakeNodeController that records calls instead
// of making network requests.
type NodeController interface {
	AddNode(ctx context.Context, nodeControlAddr, peerHostPort string, mode Mode) error
}

// addNodeRequest is the JSON-RPC-shaped body POSTed to a node's control
// interface, mirroring bitcoind-family nodes' "addnode" RPC.
type addNodeRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// HTTPNodeController drives a real node's JSON-RPC control interface over
// HTTP, the way cmd/siac drives siad's daemon API.
type HTTPNodeController struct {
	Client *http.Client
}

// NewHTTPNodeController returns a controller using a client with a sane
// default timeout, so a wedged node can't hang Connect forever.
func NewHTTPNodeController() *HTTPNodeController {
	return &HTTPNodeController{Client: &http.Client{Timeout: 10 * time.Second}}
}

// AddNode calls the node's "addnode" RPC with the given mode, per spec.md
// §6: "The hub calls add followed immediately by onetry toward
// host:proxy_port(in) to initiate edge (out,in)." Each mode is a single
// call; the caller is responsible for issuing both in sequence.
func (c *HTTPNodeController) AddNode(ctx context.Context, nodeControlAddr, peerHostPort string, mode Mode) error {
	body, err := json.Marshal(addNodeRequest{
		Method: "addnode",
		Params: []interface{}{peerHostPort, string(mode)},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/", nodeControlAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("addnode %s %s: unexpected status %s", mode, peerHostPort, resp.Status)
	}
	return nil
}
