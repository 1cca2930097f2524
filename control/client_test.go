package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPNodeControllerAddNode(t *testing.T) {
	var got addNodeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPNodeController()
	addr := srv.Listener.Addr().String()
	if err := c.AddNode(context.Background(), addr, "1.2.3.4:9000", ModeOnetry); err != nil {
		t.Fatal(err)
	}
	if got.Method != "addnode" {
		t.Fatalf("expected method addnode, got %q", got.Method)
	}
	if len(got.Params) != 2 || got.Params[0] != "1.2.3.4:9000" || got.Params[1] != string(ModeOnetry) {
		t.Fatalf("unexpected params: %+v", got.Params)
	}
}

func TestHTTPNodeControllerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPNodeController()
	addr := srv.Listener.Addr().String()
	if err := c.AddNode(context.Background(), addr, "1.2.3.4:9000", ModeAdd); err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
