// Command polarisdb is a small CLI driving a local collection directory: a
// demonstration and maintenance tool for the library, not a network
// service. Modeled on cmd/root.go's cobra command tree and output helpers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/goccy/go-json"

	"github.com/polarisdb/polarisdb"
)

var (
	jsonOutput bool
	metric     string
)

var rootCmd = &cobra.Command{
	Use:     "polarisdb",
	Short:   "Drive a local PolarisDB collection directory",
	Version: "0.1.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.AddCommand(insertCmd, searchCmd, statsCmd, compactCmd)
}

func exitError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func parsePayload(s string) (polarisdb.Payload, error) {
	m := make(map[string]any)
	if s == "" {
		return polarisdb.NewPayload(), nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return polarisdb.Payload(m), nil
}
