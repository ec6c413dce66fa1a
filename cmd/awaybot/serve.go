package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/coreos/go-systemd/v22/daemon"
	discordrouter "github.com/jose-valero/away-tracker-bot/internal/adapters/discord"
	"github.com/jose-valero/away-tracker-bot/internal/adapters/httpapi"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Discord bot, scheduler and HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}
	logger := log.Logger
	logger.Info().Str("version", version).Msg("starting awaybot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(db, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("dialect", string(db.Dialect)).Msg("✅ DB lista y migrada")

	// Lock por usuario y claims de jobs: redis si hay varias instancias
	var (
		locker  lock.Locker  = lock.NewMemLocker()
		claims  lock.Claimer // nil con una sola instancia
		setOpts = []service.SettingsOption{service.WithCacheTTL(cfg.SettingsCacheTTL)}
	)
	if cfg.RedisURL != "" {
		client, err := lock.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		rl := lock.NewRedisLocker(client, 2*cfg.OpTimeout)
		locker, claims = rl, rl
		setOpts = []service.SettingsOption{service.WithoutCache()}
		logger.Info().Int("shard", cfg.ShardID).Int("shards", cfg.ShardCount).Msg("using redis locks")
	}

	// Repos y services
	settingsRepo := storage.NewSettingsRepo(db, cfg.Defaults)
	sessionRepo := storage.NewSessionRepo(db)
	ledgerRepo := storage.NewLedgerRepo(db)

	settingsSvc, err := service.NewSettingsService(settingsRepo, cfg.SettingsCacheSize, logger, setOpts...)
	if err != nil {
		return err
	}
	awaySvc := service.NewAwayService(settingsSvc, sessionRepo, ledgerRepo, locker, logger)

	// Discord
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return err
	}
	s.ShardID = cfg.ShardID
	s.ShardCount = cfg.ShardCount
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	if err := s.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer s.Close()
	logger.Info().Str("user", s.State.User.Username).Str("id", s.State.User.ID).Msg("✅ conectado a Discord")

	r := discordrouter.NewRouter(s, discordrouter.RouterConfig{
		GuildID:      cfg.DiscordGuild,
		AdminRoleIDs: cfg.AdminRoleIDs,
		OpTimeout:    cfg.OpTimeout,
	}, awaySvc, settingsSvc, logger)
	if err := r.Register(); err != nil {
		return fmt.Errorf("registrando comandos: %w", err)
	}
	r.Handlers()
	logger.Info().Str("guild", cfg.DiscordGuild).Msg("✅ comandos registrados")

	// Scheduler
	loc, err := time.LoadLocation(cfg.CronTimezone)
	if err != nil {
		return fmt.Errorf("CRON_TIMEZONE: %w", err)
	}
	sched, err := service.NewScheduler(service.SchedulerConfig{
		DigestSpec:   cfg.DigestCron,
		ReminderSpec: cfg.ReminderCron,
		Location:     loc,
		JobTimeout:   cfg.OpTimeout,
		Claims:       claims,
	}, awaySvc, settingsSvc, sessionRepo, r, logger)
	if err != nil {
		return err
	}
	sched.Start()

	// HTTP: health, metrics y reportes
	api := httpapi.New(awaySvc, db, cfg.ReportAPISecret, logger)
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- api.Serve(ctx, cfg.HTTPAddr)
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn().Err(err).Msg("sd_notify ready")
	}
	logger.Info().Str("addr", cfg.HTTPAddr).Msg("awaybot running")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sched.Stop(stopCtx)
	stop()
	return nil
}
