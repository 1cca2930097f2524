package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	edgesCmd = &cobra.Command{
		Use:   "edges",
		Short: "Manage relayed edges",
		Long:  "Connect, disconnect, delay, and list the hub's relayed edges.",
	}

	edgesConnectCmd = &cobra.Command{
		Use:   "connect [out] [in]",
		Short: "Connect an edge",
		Long:  "Ask the hub to open the directed edge out->in.",
		Run:   wrap(edgesconnectcmd),
	}

	edgesDisconnectCmd = &cobra.Command{
		Use:   "disconnect [out] [in]",
		Short: "Disconnect an edge",
		Long:  "Ask the hub to close the directed edge out->in.",
		Run:   wrap(edgesdisconnectcmd),
	}

	edgesDelayCmd = &cobra.Command{
		Use:   "delay [out] [in] [seconds]",
		Short: "Set an edge's forwarding delay",
		Long:  "Set the delay, in seconds, the hub applies to bytes forwarded on out->in. A non-positive value clears the delay.",
		Run:   wrap(edgesdelaycmd),
	}

	edgesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List connected edges",
		Run:   wrap(edgeslistcmd),
	}
)

func parseIndex(s, what string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		die(fmt.Sprintf("invalid %s node index %q: %v", what, s, err))
	}
	return n
}

func edgesconnectcmd(out, in string) {
	req := map[string]int{"out": parseIndex(out, "out"), "in": parseIndex(in, "in")}
	resp, err := apiPost("/edges/connect", req)
	if err != nil {
		die("Could not connect edge:", err)
	}
	resp.Body.Close()
	fmt.Printf("Connected %s->%s.\n", out, in)
}

func edgesdisconnectcmd(out, in string) {
	req := map[string]int{"out": parseIndex(out, "out"), "in": parseIndex(in, "in")}
	resp, err := apiPost("/edges/disconnect", req)
	if err != nil {
		die("Could not disconnect edge:", err)
	}
	resp.Body.Close()
	fmt.Printf("Disconnected %s->%s.\n", out, in)
}

func edgesdelaycmd(out, in, seconds string) {
	s, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		die("invalid delay:", err)
	}
	req := map[string]interface{}{"out": parseIndex(out, "out"), "in": parseIndex(in, "in"), "seconds": s}
	resp, err := apiPost("/edges/delay", req)
	if err != nil {
		die("Could not set delay:", err)
	}
	resp.Body.Close()
	fmt.Printf("Set delay on %s->%s to %ss.\n", out, in, seconds)
}

func edgeslistcmd() {
	var edges []struct {
		Out int `json:"out"`
		In  int `json:"in"`
	}
	if err := apiGet("/edges", &edges); err != nil {
		die("Could not list edges:", err)
	}
	if len(edges) == 0 {
		fmt.Println("No connected edges.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Out\tIn")
	for _, e := range edges {
		fmt.Fprintf(w, "%d\t%d\n", e.Out, e.In)
	}
	w.Flush()
}
