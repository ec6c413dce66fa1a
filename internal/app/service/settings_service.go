package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type SettingsService struct {
	repo  SettingsRepo
	cache *expirable.LRU[string, domain.ServerSettings] // nil = sin cache
	log   zerolog.Logger
}

type settingsOptions struct {
	ttl      time.Duration
	disabled bool
}

type SettingsOption func(*settingsOptions)

// WithCacheTTL acota cuánto vive una entrada; otra instancia puede haber
// escrito el row en el medio.
func WithCacheTTL(ttl time.Duration) SettingsOption {
	return func(o *settingsOptions) { o.ttl = ttl }
}

// WithoutCache lee siempre de la DB (varias instancias sobre la misma DB).
func WithoutCache() SettingsOption {
	return func(o *settingsOptions) { o.disabled = true }
}

func NewSettingsService(r SettingsRepo, cacheSize int, log zerolog.Logger, opts ...SettingsOption) (*SettingsService, error) {
	o := settingsOptions{ttl: 30 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	s := &SettingsService{repo: r, log: log.With().Str("component", "settings").Logger()}
	if o.disabled {
		return s, nil
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	s.cache = expirable.NewLRU[string, domain.ServerSettings](cacheSize, nil, o.ttl)
	return s, nil
}

// SettingsPatch: nil = no tocar.
type SettingsPatch struct {
	CommandPrefix        *string
	AnnouncementChannel  *string
	GracePeriodMinutes   *int
	FeeModel             *string
	FeeRate              *string
	MaxSingleAwayMinutes *int
	MaxDailyAwayMinutes  *int
	WorkStart            *string
	WorkEnd              *string
	EnforceWorkHours     *bool
	Timezone             *string
}

func (p SettingsPatch) Empty() bool {
	return p == SettingsPatch{}
}

type fieldValue struct {
	field storage.SettingField
	value any
}

func (s *SettingsService) Get(ctx context.Context, guildID string) (domain.ServerSettings, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(guildID); ok {
			return v, nil
		}
	}
	v, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return domain.ServerSettings{}, err
	}
	if s.cache != nil {
		s.cache.Add(guildID, v)
	}
	return v, nil
}

func (s *SettingsService) invalidate(guildID string) {
	if s.cache != nil {
		s.cache.Remove(guildID)
	}
}

func (s *SettingsService) Provision(ctx context.Context, guildID string) error {
	defer s.invalidate(guildID)
	return s.repo.Provision(ctx, guildID)
}

func (s *SettingsService) List(ctx context.Context) ([]domain.ServerSettings, error) {
	return s.repo.List(ctx)
}

// Validate convierte el patch en escrituras de un campo; no muta nada.
func (s *SettingsService) Validate(p SettingsPatch) ([]fieldValue, error) {
	var out []fieldValue
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{domain.ErrMalformedInput}, args...)...)
	}

	if p.CommandPrefix != nil {
		v := strings.TrimSpace(*p.CommandPrefix)
		if v == "" || len([]rune(v)) > 5 {
			return nil, bad("prefix must be 1 to 5 characters")
		}
		out = append(out, fieldValue{storage.FieldCommandPrefix, v})
	}
	if p.AnnouncementChannel != nil {
		out = append(out, fieldValue{storage.FieldAnnouncementChan, strings.TrimSpace(*p.AnnouncementChannel)})
	}
	if p.GracePeriodMinutes != nil {
		if v := *p.GracePeriodMinutes; v < 0 || v > 60 {
			return nil, bad("grace period must be between 0 and 60 minutes")
		}
		out = append(out, fieldValue{storage.FieldGracePeriod, *p.GracePeriodMinutes})
	}
	if p.FeeModel != nil {
		m, err := domain.ParseFeeModel(*p.FeeModel)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldValue{storage.FieldFeeModel, m})
	}
	if p.FeeRate != nil {
		r, err := decimal.NewFromString(strings.TrimSpace(*p.FeeRate))
		if err != nil || r.IsNegative() {
			return nil, bad("fee rate must be a non-negative decimal")
		}
		// la columna es NUMERIC(12,6)
		if !r.Equal(r.Round(6)) {
			return nil, bad("fee rate supports at most 6 decimal places")
		}
		out = append(out, fieldValue{storage.FieldFeeRate, r})
	}
	if p.MaxSingleAwayMinutes != nil {
		if *p.MaxSingleAwayMinutes <= 0 {
			return nil, bad("max single away must be positive")
		}
		out = append(out, fieldValue{storage.FieldMaxSingleAway, *p.MaxSingleAwayMinutes})
	}
	if p.MaxDailyAwayMinutes != nil {
		if *p.MaxDailyAwayMinutes <= 0 {
			return nil, bad("max daily away must be positive")
		}
		out = append(out, fieldValue{storage.FieldMaxDailyAway, *p.MaxDailyAwayMinutes})
	}
	if p.WorkStart != nil {
		c, err := domain.ParseClock(*p.WorkStart)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldValue{storage.FieldWorkStart, c})
	}
	if p.WorkEnd != nil {
		c, err := domain.ParseClock(*p.WorkEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldValue{storage.FieldWorkEnd, c})
	}
	if p.EnforceWorkHours != nil {
		out = append(out, fieldValue{storage.FieldEnforceWorkHours, *p.EnforceWorkHours})
	}
	if p.Timezone != nil {
		tz := strings.TrimSpace(*p.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, bad("unknown timezone %q", tz)
		}
		out = append(out, fieldValue{storage.FieldTimezone, tz})
	}
	return out, nil
}

// Update valida todo el patch antes de escribir. Cada campo es una escritura
// independiente: un fallo a mitad deja aplicados los anteriores.
func (s *SettingsService) Update(ctx context.Context, guildID string, patch SettingsPatch) (string, error) {
	writes, err := s.Validate(patch)
	if err != nil {
		return "", err
	}
	for _, w := range writes {
		if err := s.repo.Set(ctx, guildID, w.field, w.value); err != nil {
			s.invalidate(guildID)
			return "", fmt.Errorf("set %s: %w", w.field, err)
		}
		s.log.Info().Str("guild", guildID).Str("field", string(w.field)).Msg("settings updated")
	}
	s.invalidate(guildID)
	return s.Show(ctx, guildID)
}

// BindChannel provisiona y fija el canal de anuncios (/setup).
func (s *SettingsService) BindChannel(ctx context.Context, guildID, channelID string) (string, error) {
	if err := s.Provision(ctx, guildID); err != nil {
		return "", err
	}
	return s.Update(ctx, guildID, SettingsPatch{AnnouncementChannel: &channelID})
}

func (s *SettingsService) Show(ctx context.Context, guildID string) (string, error) {
	p, err := s.Get(ctx, guildID)
	if err != nil {
		return "", err
	}

	channel := "*(any channel)*"
	if p.AnnouncementChannelID != "" {
		channel = "<#" + p.AnnouncementChannelID + ">"
	}
	return fmt.Sprintf(
		"**Away settings**\n• prefix: `%s`\n• channel: %s\n• grace_period: **%d min**\n• fee: **%s** per minute (%s)\n"+
			"• max_single_away: **%d min**\n• max_daily_away: **%d min**\n• work_hours: **%s–%s** %s (enforced: **%v**)",
		p.CommandPrefix, channel, p.GracePeriodMinutes, p.FeeModel.Format(p.FeeRate), p.FeeModel,
		p.MaxSingleAwayMinutes, p.MaxDailyAwayMinutes, p.WorkStart, p.WorkEnd, p.Timezone, p.EnforceWorkHours,
	), nil
}
