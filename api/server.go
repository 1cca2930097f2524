// Package api implements the hub's control-plane HTTP server: the thin
// JSON interface an experiment driver uses to connect and disconnect
// edges, inject delay, and build whole topologies, per spec.md §4.7.
//
// Grounded on cmd/siad/server.go's Server: a net.Listener owned directly
// (so Close is just closing it out from under the http.Server), a single
// httprouter.Router as the handler, reasonable timeouts to keep a slow or
// vanished client from leaking file descriptors.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/blocknetlabs/nodeshub/hub"
)

// Error is the JSON shape of every non-2xx response body.
type Error struct {
	Message string `json:"message"`
}

// Server is the hub's control-plane HTTP server.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	hub        *hub.Controller
}

// NewServer binds bindAddr and wires every route against c.
func NewServer(bindAddr string, c *hub.Controller) (*Server, error) {
	l, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	srv := &Server{listener: l, hub: c}
	router := httprouter.New()
	router.POST("/edges/connect", srv.handleConnect)
	router.POST("/edges/disconnect", srv.handleDisconnect)
	router.POST("/edges/delay", srv.handleDelay)
	router.POST("/graph/line", srv.handleConnectLine)
	router.POST("/graph/edges", srv.handleConnectGraph)
	router.GET("/edges", srv.handleListEdges)
	router.GET("/version", srv.handleVersion)

	srv.httpServer = &http.Server{
		Handler:           router,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       time.Minute * 5,
	}
	return srv, nil
}

// Addr returns the address the server is listening on.
func (srv *Server) Addr() string {
	return srv.listener.Addr().String()
}

// Serve blocks, serving requests until Close is called.
func (srv *Server) Serve() error {
	err := srv.httpServer.Serve(srv.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close shuts down the HTTP server and its listener.
func (srv *Server) Close() error {
	return srv.httpServer.Close()
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Error{Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
