package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string   // opcional: scope de registro de slash commands y guild "home" para DMs
	AdminRoleIDs []string // roles con permisos de admin además de Administrator
	HTTPAddr     string   // opcional, default :8080

	ReportAPISecret string // vacío = /api deshabilitado
	RedisURL        string // vacío = lock en memoria y una sola instancia

	LogLevel  string
	LogFormat string

	OpTimeout         time.Duration
	SettingsCacheSize int
	SettingsCacheTTL  time.Duration // ignorado con REDIS_URL: varias instancias leen sin cache

	// gateway sharding: cada instancia recibe sólo los guilds de su shard
	ShardID    int
	ShardCount int

	DigestCron    string
	ReminderCron  string
	CronTimezone  string
	RetentionDays int

	Defaults domain.Defaults
}

// Load lee .env ya cargado, variables de entorno y opcionalmente un archivo.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		DatabaseURL:       v.GetString("database_url"),
		DiscordToken:      v.GetString("discord_bot_token"),
		DiscordGuild:      v.GetString("discord_guild_id"),
		AdminRoleIDs:      splitList(v.GetString("admin_role_ids")),
		HTTPAddr:          v.GetString("http_addr"),
		ReportAPISecret:   v.GetString("report_api_secret"),
		RedisURL:          v.GetString("redis_url"),
		LogLevel:          strings.ToLower(v.GetString("log_level")),
		LogFormat:         strings.ToLower(v.GetString("log_format")),
		OpTimeout:         v.GetDuration("op_timeout"),
		SettingsCacheSize: v.GetInt("settings_cache_size"),
		SettingsCacheTTL:  v.GetDuration("settings_cache_ttl"),
		ShardID:           v.GetInt("shard_id"),
		ShardCount:        v.GetInt("shard_count"),
		DigestCron:        v.GetString("digest_cron"),
		ReminderCron:      v.GetString("reminder_cron"),
		CronTimezone:      v.GetString("cron_timezone"),
		RetentionDays:     v.GetInt("session_retention_days"),
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	d, err := loadDefaults(v)
	if err != nil {
		return Config{}, err
	}
	cfg.Defaults = d
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	for _, k := range []string{"database_url", "discord_bot_token", "discord_guild_id", "admin_role_ids",
		"report_api_secret", "redis_url"} {
		v.SetDefault(k, "")
	}
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("op_timeout", "12s")
	v.SetDefault("settings_cache_size", 256)
	v.SetDefault("settings_cache_ttl", "30s")
	v.SetDefault("shard_id", 0)
	v.SetDefault("shard_count", 1)
	v.SetDefault("digest_cron", "0 18 * * 1-5")
	v.SetDefault("reminder_cron", "@every 1m")
	v.SetDefault("cron_timezone", "UTC")
	v.SetDefault("session_retention_days", 365)

	b := domain.BuiltinDefaults()
	v.SetDefault("default_command_prefix", b.CommandPrefix)
	v.SetDefault("default_grace_minutes", b.GracePeriodMinutes)
	v.SetDefault("default_fee_model", string(b.FeeModel))
	v.SetDefault("default_fee_rate", b.FeeRate.String())
	v.SetDefault("default_max_single_minutes", b.MaxSingleAwayMinutes)
	v.SetDefault("default_max_daily_minutes", b.MaxDailyAwayMinutes)
	v.SetDefault("default_work_start", b.WorkStart.String())
	v.SetDefault("default_work_end", b.WorkEnd.String())
	v.SetDefault("default_enforce_work_hours", b.EnforceWorkHours)
	v.SetDefault("default_timezone", b.Timezone)
}

func loadDefaults(v *viper.Viper) (domain.Defaults, error) {
	d := domain.Defaults{
		CommandPrefix:        v.GetString("default_command_prefix"),
		GracePeriodMinutes:   v.GetInt("default_grace_minutes"),
		MaxSingleAwayMinutes: v.GetInt("default_max_single_minutes"),
		MaxDailyAwayMinutes:  v.GetInt("default_max_daily_minutes"),
		EnforceWorkHours:     v.GetBool("default_enforce_work_hours"),
		Timezone:             v.GetString("default_timezone"),
	}

	var err error
	if d.FeeModel, err = domain.ParseFeeModel(v.GetString("default_fee_model")); err != nil {
		return d, fmt.Errorf("DEFAULT_FEE_MODEL: %w", err)
	}
	if d.FeeRate, err = decimal.NewFromString(v.GetString("default_fee_rate")); err != nil {
		return d, fmt.Errorf("DEFAULT_FEE_RATE: %w", err)
	}
	if d.WorkStart, err = domain.ParseClock(v.GetString("default_work_start")); err != nil {
		return d, fmt.Errorf("DEFAULT_WORK_START: %w", err)
	}
	if d.WorkEnd, err = domain.ParseClock(v.GetString("default_work_end")); err != nil {
		return d, fmt.Errorf("DEFAULT_WORK_END: %w", err)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return d, fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	return d, nil
}

// Validate chequea lo requerido por el comando que corre.
func (c Config) Validate(needDiscord bool) error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("faltante env DATABASE_URL"))
	}
	if needDiscord && c.DiscordToken == "" {
		errs = append(errs, errors.New("faltante env DISCORD_BOT_TOKEN"))
	}
	if c.OpTimeout <= 0 {
		errs = append(errs, fmt.Errorf("OP_TIMEOUT must be positive, got %s", c.OpTimeout))
	}
	if c.SettingsCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("SETTINGS_CACHE_TTL must be positive, got %s", c.SettingsCacheTTL))
	}
	if c.ShardCount < 1 || c.ShardID < 0 || c.ShardID >= c.ShardCount {
		errs = append(errs, fmt.Errorf("SHARD_ID must be in [0, SHARD_COUNT), got %d/%d", c.ShardID, c.ShardCount))
	}
	if c.ShardCount > 1 && c.RedisURL == "" {
		errs = append(errs, errors.New("SHARD_COUNT > 1 requires REDIS_URL"))
	}
	if c.Defaults.MaxSingleAwayMinutes <= 0 || c.Defaults.MaxDailyAwayMinutes <= 0 {
		errs = append(errs, errors.New("default away caps must be positive"))
	}
	if c.Defaults.GracePeriodMinutes < 0 || c.Defaults.GracePeriodMinutes > 60 {
		errs = append(errs, errors.New("DEFAULT_GRACE_MINUTES must be between 0 and 60"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
