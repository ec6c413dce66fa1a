package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jose-valero/away-tracker-bot/internal/infra/config"
	"github.com/jose-valero/away-tracker-bot/internal/infra/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "awaybot",
	Short: "Discord away-time tracker",
	Long: `awaybot tracks "N min away" / "back" messages in Discord, records
late returns and daily allowances, and reports them per user or per server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env es opcional; en prod llegan variables de entorno
		_ = godotenv.Load()

		c, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = c
		log.Logger = logging.New(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// sin subcomando corre el bot
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an optional configuration file (env vars always apply)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
