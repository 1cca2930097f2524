// Command nodeshubc is a thin HTTP client for nodeshubd's control-plane
// API: it lets an experiment driver connect/disconnect edges, inject
// delay, and build line/graph topologies from the command line, per
// spec.md §4.7.
//
// Grounded on cmd/siac/main.go's apiGet/apiPost helpers and exit-code
// conventions, trimmed to this API's much smaller surface (no
// authentication: the control plane is loopback-only per spec.md §1).
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/blocknetlabs/nodeshub/build"
)

var addr string // control-plane API address

const (
	exitCodeGeneral = 1
	exitCodeUsage   = 64
)

func die(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(exitCodeGeneral)
}

func non2xx(code int) bool {
	return code < 200 || code > 299
}

type apiError struct {
	Message string `json:"message"`
}

func resolvedAddr() string {
	if host, port, _ := net.SplitHostPort(addr); host == "" {
		return net.JoinHostPort("localhost", port)
	}
	return addr
}

// apiPost POSTs a JSON-encoded body and returns the response if its status
// is 2xx, or the decoded error otherwise.
func apiPost(call string, body interface{}) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post("http://"+resolvedAddr()+call, "application/json", bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("no response from nodeshubd: %w", err)
	}
	if non2xx(resp.StatusCode) {
		defer resp.Body.Close()
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return nil, fmt.Errorf("nodeshubd returned status %s", resp.Status)
		}
		return nil, fmt.Errorf("nodeshubd: %s", apiErr.Message)
	}
	return resp, nil
}

// apiGet GETs and decodes a JSON response into obj.
func apiGet(call string, obj interface{}) error {
	resp, err := http.Get("http://" + resolvedAddr() + call)
	if err != nil {
		return fmt.Errorf("no response from nodeshubd: %w", err)
	}
	defer resp.Body.Close()
	if non2xx(resp.StatusCode) {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("nodeshubd returned status %s", resp.Status)
		}
		return fmt.Errorf("nodeshubd: %s", apiErr.Message)
	}
	return json.NewDecoder(resp.Body).Decode(obj)
}

// wrap wraps a generic command with a check that it was passed the right
// number of string arguments, mirroring cmd/siac/main.go's wrap.
func wrap(fn interface{}) func(*cobra.Command, []string) {
	fnVal, fnType := reflect.ValueOf(fn), reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		panic("wrapped function has wrong type signature")
	}
	for i := 0; i < fnType.NumIn(); i++ {
		if fnType.In(i).Kind() != reflect.String {
			panic("wrapped function has wrong type signature")
		}
	}
	return func(cmd *cobra.Command, args []string) {
		if len(args) != fnType.NumIn() {
			cmd.UsageFunc()(cmd)
			os.Exit(exitCodeUsage)
		}
		argVals := make([]reflect.Value, fnType.NumIn())
		for i := range args {
			argVals[i] = reflect.ValueOf(args[i])
		}
		fnVal.Call(argVals)
	}
}

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "nodeshub client v" + build.Version,
		Long:  "nodeshub client v" + build.Version,
	}

	root.AddCommand(versionCmd)
	root.AddCommand(edgesCmd)
	edgesCmd.AddCommand(edgesConnectCmd, edgesDisconnectCmd, edgesDelayCmd, edgesListCmd)
	root.AddCommand(graphCmd)
	graphCmd.AddCommand(graphLineCmd)

	root.PersistentFlags().StringVarP(&addr, "addr", "a", "localhost:9980", "address nodeshubd's control-plane API is listening on")

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeUsage)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client's and daemon's version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("nodeshub client")
		fmt.Println("\tVersion " + build.Version)
		if build.GitRevision != "" {
			fmt.Println("\tGit Revision " + build.GitRevision)
			fmt.Println("\tBuild Time " + build.BuildTime)
		}

		var dv struct {
			Version     string `json:"version"`
			GitRevision string `json:"gitrevision"`
			BuildTime   string `json:"buildtime"`
		}
		if err := apiGet("/version", &dv); err != nil {
			fmt.Println("Could not get daemon version:", err)
			return
		}
		fmt.Println("nodeshub daemon")
		fmt.Println("\tVersion " + dv.Version)
		if dv.GitRevision != "" {
			fmt.Println("\tGit Revision " + dv.GitRevision)
			fmt.Println("\tBuild Time " + dv.BuildTime)
		}
	},
}
