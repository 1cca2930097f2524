package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/blocknetlabs/nodeshub/build"
	"github.com/blocknetlabs/nodeshub/control"
	"github.com/blocknetlabs/nodeshub/hub"
	"github.com/blocknetlabs/nodeshub/nodetable"
)

var errEdgeStillConnected = errors.New("edge not yet removed")

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestServer(t *testing.T) (*Server, *hub.Controller, nodetable.Ports) {
	t.Helper()
	table := make([]int, 5)
	for i := range table {
		table[i] = freePort(t)
	}
	ports := nodetable.Ports{N: 2, NodePort: func(i int) int { return table[i] }}

	c, err := hub.New("127.0.0.1", ports, func(int) string { return "unused" }, &control.FakeNodeController{}, build.TempDir("api", t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.StartListeners(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })

	srv, err := NewServer("127.0.0.1:0", c)
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()
	t.Cleanup(func() { srv.Close() })
	return srv, c, ports
}

func TestHandleVersion(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get("http://" + srv.Addr() + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["version"] != build.Version {
		t.Fatalf("expected version %s, got %s", build.Version, body["version"])
	}
}

func TestHandleDelaySetsControllerState(t *testing.T) {
	srv, c, _ := newTestServer(t)
	body, _ := json.Marshal(delayRequest{Out: 0, In: 1, Seconds: 1.5})
	resp, err := http.Post("http://"+srv.Addr()+"/edges/delay", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	edge := hub.DirectedEdge{Out: 0, In: 1}
	if d := c.Delays()[edge]; d.Seconds() != 1.5 {
		t.Fatalf("expected delay to be applied via the API, got %v", d)
	}
}

// TestHandleConnectAndDisconnectRoundTrip exercises the two routes no
// other test reaches: /edges/connect and /edges/disconnect, using the same
// real-loopback-listener pattern hub/hub_test.go uses to stand in for the
// edge's receiver-side node.
func TestHandleConnectAndDisconnectRoundTrip(t *testing.T) {
	srv, c, ports := newTestServer(t)

	receiverNode, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(ports.NodePortOf(1))))
	if err != nil {
		t.Fatal(err)
	}
	defer receiverNode.Close()
	go func() {
		for {
			conn, err := receiverNode.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	body, _ := json.Marshal(edgeRequest{Out: 0, In: 1})
	type result struct {
		status int
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		resp, err := http.Post("http://"+srv.Addr()+"/edges/connect", "application/json", bytes.NewReader(body))
		if err != nil {
			resultCh <- result{err: err}
			return
		}
		resp.Body.Close()
		resultCh <- result{status: resp.StatusCode}
	}()

	// Stand in for node 0 dialing the hub's proxy listener for node 1,
	// the way a real sender node would after the control API's
	// /edges/connect asks it to.
	var senderSide net.Conn
	if err := build.Retry(50, 20*time.Millisecond, func() error {
		var dialErr error
		senderSide, dialErr = net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(ports.ProxyPortOf(1))))
		return dialErr
	}); err != nil {
		t.Fatal(err)
	}
	defer senderSide.Close()

	res := <-resultCh
	if res.err != nil {
		t.Fatal(res.err)
	}
	if res.status != http.StatusNoContent {
		t.Fatalf("unexpected status %d", res.status)
	}

	edge := hub.DirectedEdge{Out: 0, In: 1}
	edges := c.Edges()
	if len(edges) != 1 || edges[0] != edge {
		t.Fatalf("expected edge %v to be connected via the API, got %+v", edge, edges)
	}

	disconnectResp, err := http.Post("http://"+srv.Addr()+"/edges/disconnect", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	disconnectResp.Body.Close()
	if disconnectResp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %s", disconnectResp.Status)
	}

	if err := build.Retry(50, 20*time.Millisecond, func() error {
		if len(c.Edges()) != 0 {
			return errEdgeStillConnected
		}
		return nil
	}); err != nil {
		t.Fatal("edge was not removed after /edges/disconnect")
	}
}

func TestHandleListEdgesEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get("http://" + srv.Addr() + "/edges")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var edges []edgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&edges); err != nil {
		t.Fatal(err)
	}
	if len(edges) != 0 {
		t.Fatalf("expected no edges, got %+v", edges)
	}
}
