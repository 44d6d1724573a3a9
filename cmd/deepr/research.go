package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deeprlabs/deepr/config"
)

func newResearchCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research [question]",
		Short: "Ask the research agent a question and print its cited answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			agent, shutdown, err := buildAgent(cfg)
			if err != nil {
				return err
			}
			defer shutdown(context.Background())

			result, err := agent.Answer(cmd.Context(), question)
			if err != nil {
				return fmt.Errorf("research: %w", err)
			}

			fmt.Println(result.Answer.AnswerText)
			if len(result.Answer.References) > 0 {
				fmt.Println("\nReferences:")
				for _, ref := range result.Answer.References {
					fmt.Printf("- %s (%s)\n", ref.Title, ref.URL)
				}
			}
			return nil
		},
	}
	return cmd
}
