package service

import (
	"context"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsRepo interface {
	Get(ctx context.Context, guildID string) (domain.ServerSettings, error)
	Provision(ctx context.Context, guildID string) error
	Set(ctx context.Context, guildID string, field storage.SettingField, value any) error
	List(ctx context.Context) ([]domain.ServerSettings, error)
}

// Lo implementa internal/infra/storage.SessionRepo
type SessionRepo interface {
	GetActive(ctx context.Context, guildID, userID string) (domain.ActiveSession, error)
	Start(ctx context.Context, s domain.ActiveSession) error
	End(ctx context.Context, guildID, userID string) (bool, error)
	ListActive(ctx context.Context, guildID string) ([]domain.ActiveSession, error)
	ListUnreminded(ctx context.Context) ([]domain.ActiveSession, error)
	MarkReminded(ctx context.Context, guildID, userID string, at time.Time) error
}

// Lo implementa internal/infra/storage.LedgerRepo
type LedgerRepo interface {
	TotalMinutes(ctx context.Context, guildID, userID, day string) (int, error)
	CloseSession(ctx context.Context, in storage.CloseInput) (domain.DailyLedger, error)
	DailyForUser(ctx context.Context, guildID, userID, day string) (domain.DailyLedger, error)
	DailyForGuild(ctx context.Context, guildID, day string) ([]domain.DailyLedger, error)
	SessionsForUser(ctx context.Context, guildID, userID, day string) ([]domain.SessionRecord, error)
	SessionsForGuild(ctx context.Context, guildID, day string) ([]domain.SessionRecord, error)
	SessionsForUsers(ctx context.Context, guildID, day string, userIDs []string) ([]domain.SessionRecord, error)
}

// Lo implementa SettingsService (con cache).
type SettingsReader interface {
	Get(ctx context.Context, guildID string) (domain.ServerSettings, error)
}

// Lo implementa el router de Discord.
type Notifier interface {
	Notify(ctx context.Context, channelID, content string) error
}
