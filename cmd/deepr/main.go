// Command deepr runs the deep-research agent: one-shot from the CLI, as
// an OpenAI-compatible HTTP server, or as an MCP tool server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "deepr",
		Short: "A deep-research agent: search, read, reflect, and answer with citations",
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a deepr.yaml config file")

	root.AddCommand(
		newResearchCommand(&configPath),
		newServeCommand(&configPath),
		newMCPCommand(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
