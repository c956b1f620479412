package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yoola/core/internal/app"
	"github.com/yoola/core/internal/config"
	"github.com/yoola/core/internal/modules/language"
	"go.uber.org/zap"
)

func newLanguagesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "Manage the language reference table",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in language list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return errors.New("languages seed needs a durable database driver")
			}

			store, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close(cmd.Context())

			n, err := language.NewService(store, zap.NewNop()).Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed languages: %w", err)
			}
			cmd.Printf("seeded %d languages into %s\n", n, store.Kind())
			return nil
		},
	})
	return cmd
}
