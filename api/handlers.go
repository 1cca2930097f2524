package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/blocknetlabs/nodeshub/build"
	"github.com/blocknetlabs/nodeshub/hub"
	"github.com/blocknetlabs/nodeshub/nodetable"
)

type edgeRequest struct {
	Out int `json:"out"`
	In  int `json:"in"`
}

type delayRequest struct {
	Out     int     `json:"out"`
	In      int     `json:"in"`
	Seconds float64 `json:"seconds"`
}

type lineRequest struct {
	Nodes []int `json:"nodes"`
}

type graphRequest struct {
	Edges []edgeRequest `json:"edges"`
}

type edgeResponse struct {
	Out int `json:"out"`
	In  int `json:"in"`
}

// daemonVersion is the /version response shape, mirroring
// cmd/siad/server.go's DaemonVersion.
type daemonVersion struct {
	Version     string `json:"version"`
	GitRevision string `json:"gitrevision"`
	BuildTime   string `json:"buildtime"`
}

func (srv *Server) handleConnect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := srv.hub.Connect(r.Context(), nodetable.NodeIndex(req.Out), nodetable.NodeIndex(req.In)); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleDisconnect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	srv.hub.Disconnect(nodetable.NodeIndex(req.Out), nodetable.NodeIndex(req.In))
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleDelay(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req delayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	srv.hub.SetDelay(nodetable.NodeIndex(req.Out), nodetable.NodeIndex(req.In), req.Seconds)
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleConnectLine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req lineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	indices := make([]nodetable.NodeIndex, len(req.Nodes))
	for i, n := range req.Nodes {
		indices[i] = nodetable.NodeIndex(n)
	}
	if err := srv.hub.ConnectLine(r.Context(), indices); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleConnectGraph(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req graphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	edges := make([]hub.DirectedEdge, len(req.Edges))
	for i, e := range req.Edges {
		edges[i] = hub.DirectedEdge{Out: nodetable.NodeIndex(e.Out), In: nodetable.NodeIndex(e.In)}
	}
	if err := srv.hub.ConnectGraph(r.Context(), edges); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) handleListEdges(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	edges := srv.hub.Edges()
	resp := make([]edgeResponse, len(edges))
	for i, e := range edges {
		resp[i] = edgeResponse{Out: int(e.Out), In: int(e.In)}
	}
	writeJSON(w, resp)
}

func (srv *Server) handleVersion(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, daemonVersion{
		Version:     build.Version,
		GitRevision: build.GitRevision,
		BuildTime:   build.BuildTime,
	})
}
