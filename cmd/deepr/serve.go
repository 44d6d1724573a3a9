package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/deeprlabs/deepr/config"
	"github.com/deeprlabs/deepr/internal/server"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an OpenAI-compatible chat-completions server backed by the research agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Address
			}

			agent, shutdown, err := buildAgent(cfg)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())

			return server.New(agent).Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config server.address)")
	return cmd
}
