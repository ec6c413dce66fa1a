package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(false); err != nil {
			return err
		}
		db, err := storage.Open(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.Migrate(db, log.Logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		v, err := storage.MigrationVersion(db)
		if err != nil {
			return err
		}
		color.New(color.FgGreen, color.Bold).Printf("✅ schema at version %d (%s)\n", v, db.Dialect)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
