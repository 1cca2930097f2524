package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var (
	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Build topologies",
		Long:  "Connect many edges at once by describing a topology.",
	}

	graphLineCmd = &cobra.Command{
		Use:   "line [node] [node] ...",
		Short: "Connect a bidirectional chain of nodes",
		Long:  "Connect each consecutive pair of nodes in both directions, forming a line topology.",
		Run:   graphlinecmd,
	}
)

func graphlinecmd(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		cmd.UsageFunc()(cmd)
		os.Exit(exitCodeUsage)
	}
	nodes := make([]int, len(args))
	for i, a := range args {
		nodes[i] = parseIndex(a, "node")
	}
	req := map[string][]int{"nodes": nodes}
	resp, err := apiPost("/graph/line", req)
	if err != nil {
		die("Could not connect line:", err)
	}
	resp.Body.Close()
	strs := make([]string, len(nodes))
	for i, n := range nodes {
		strs[i] = strconv.Itoa(n)
	}
	fmt.Println("Connected line:", strings.Join(strs, " - "))
}
