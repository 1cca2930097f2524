// Command nodeshubd runs the Hub Controller as a standalone daemon,
// exposing its control-plane API over HTTP so that an experiment driver
// (a test harness, a shell script, or nodeshubc) can shape the topology of
// a running set of nodes, per spec.md §4 and §4.7.
//
// Grounded on cmd/siad's cobra-rooted daemon entrypoint and on
// cmd/siad/server.go's Server, generalized from a single blockchain
// daemon's API to the hub's edge/delay control surface.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blocknetlabs/nodeshub/build"
)

var (
	cfgHost            string
	cfgControlAddr     string
	cfgNodes           int
	cfgNodePortBase    int
	cfgNodeCtrlBase    int
	cfgNodeCtrlHost    string
	cfgPersistDir      string
)

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "nodeshub daemon v" + build.Version,
		Long:  "nodeshub daemon v" + build.Version + "\n\nRuns the test-harness relay hub and its control-plane API.",
		Run:   runServe,
	}

	root.PersistentFlags().StringVar(&cfgHost, "host", "127.0.0.1", "host every node and proxy listener binds to")
	root.PersistentFlags().StringVar(&cfgControlAddr, "addr", "127.0.0.1:9980", "address the control-plane API listens on")
	root.PersistentFlags().IntVar(&cfgNodes, "nodes", 0, "number of nodes in the experiment (required)")
	root.PersistentFlags().IntVar(&cfgNodePortBase, "node-port-base", 20000, "node i's real port is node-port-base+i")
	root.PersistentFlags().IntVar(&cfgNodeCtrlBase, "node-control-port-base", 21000, "node i's control-interface port is node-control-port-base+i")
	root.PersistentFlags().StringVar(&cfgNodeCtrlHost, "node-control-host", "127.0.0.1", "host every node's control interface listens on")
	root.PersistentFlags().StringVar(&cfgPersistDir, "persist-dir", "nodeshub-persist", "directory for the hub's log file")

	root.AddCommand(versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(64)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("nodeshub daemon v" + build.Version)
		if build.GitRevision != "" {
			fmt.Println("\tGit Revision " + build.GitRevision)
			fmt.Println("\tBuild Time " + build.BuildTime)
		}
	},
}

func runServe(_ *cobra.Command, _ []string) {
	if cfgNodes <= 0 {
		die("--nodes must be set to a positive number of nodes")
	}

	srv, ctrl, err := newDaemon()
	if err != nil {
		die("failed to start nodeshub daemon:", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("caught stop signal, shutting down...")
		srv.Close()
		ctrl.Close()
	}()

	fmt.Printf("nodeshub daemon v%s listening on %s (%d nodes)\n", build.Version, srv.Addr(), cfgNodes)
	if err := srv.Serve(); err != nil {
		die("control-plane API server stopped with an error:", err)
	}
}
