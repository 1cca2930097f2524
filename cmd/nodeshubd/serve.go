package main

import (
	"net"
	"strconv"

	"github.com/blocknetlabs/nodeshub/api"
	"github.com/blocknetlabs/nodeshub/build"
	"github.com/blocknetlabs/nodeshub/control"
	"github.com/blocknetlabs/nodeshub/hub"
	"github.com/blocknetlabs/nodeshub/nodetable"
)

// newDaemon wires a Hub Controller and its control-plane API server from
// the flags parsed onto the package-level cfg* variables.
func newDaemon() (*api.Server, *hub.Controller, error) {
	ports := nodetable.Ports{
		N: cfgNodes,
		NodePort: func(i int) int {
			return cfgNodePortBase + i
		},
	}

	nodeControlAddr := func(i int) string {
		return net.JoinHostPort(cfgNodeCtrlHost, strconv.Itoa(cfgNodeCtrlBase+i))
	}

	ctrl, err := hub.New(cfgHost, ports, nodeControlAddr, control.NewHTTPNodeController(), cfgPersistDir)
	if err != nil {
		return nil, nil, build.ExtendErr("failed to construct hub controller", err)
	}

	if err := ctrl.StartListeners(); err != nil {
		ctrl.Close()
		return nil, nil, build.ExtendErr("failed to start proxy listeners", err)
	}

	srv, err := api.NewServer(cfgControlAddr, ctrl)
	if err != nil {
		ctrl.Close()
		return nil, nil, build.ExtendErr("failed to start control-plane API server", err)
	}

	return srv, ctrl, nil
}
