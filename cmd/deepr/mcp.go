package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deeprlabs/deepr/config"
	"github.com/deeprlabs/deepr/internal/mcpsrv"
)

func newMCPCommand(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the research agent as an MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.MCP.Address
			}

			agent, shutdown, err := buildAgent(cfg)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())

			return mcpsrv.New(agent).ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config mcp.address)")
	return cmd
}
