package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jose-valero/away-tracker-bot/internal/infra/config"
	"github.com/jose-valero/away-tracker-bot/internal/infra/logging"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog/log"
)

// cutoffDay es el primer día que se conserva.
func cutoffDay(now time.Time, retentionDays int) string {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return now.UTC().AddDate(0, 0, -retentionDays).Format("2006-01-02")
}

func handler(ctx context.Context) (string, error) {
	cfg, err := config.Load("")
	if err != nil {
		return "", err
	}
	log.Logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	if cfg.DatabaseURL == "" {
		return "no DATABASE_URL", nil
	}

	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	day := cutoffDay(time.Now(), cfg.RetentionDays)
	n, err := storage.NewLedgerRepo(db).PurgeSessionsBefore(cctx, day)
	if err != nil {
		log.Error().Err(err).Str("before", day).Msg("purge session log")
		return "", err
	}
	log.Info().Int64("deleted", n).Str("before", day).Msg("session log purged")
	return fmt.Sprintf("ok: %d sessions before %s", n, day), nil
}

func main() { lambda.Start(handler) }
