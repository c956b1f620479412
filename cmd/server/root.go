package main

import (
	"github.com/spf13/cobra"
	"github.com/yoola/core/internal/config"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "yoola",
		Short:         "Terms of Service summary backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newFingerprintCmd(),
		newLanguagesCmd(&configPath),
	)
	return root
}
