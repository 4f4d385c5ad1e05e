package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bryantinsley/flashcards/quiz/pkg/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a commented config file unless one exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := config.EnsureTemplate(a.cfg.DataDir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				shown := *a.cfg
				if shown.APIKey != "" {
					shown.APIKey = "(set)"
				}
				out, err := yaml.Marshal(shown)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# data dir: %s\n%s", shown.DataDir, out)
				return nil
			},
		},
	)
	return cmd
}
