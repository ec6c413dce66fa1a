package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/shopspring/decimal"
)

// ReportQuery: Date vacío = hoy en el timezone del guild. Un admin sin UserID
// ve todo el guild; UserIDs acota la vista de admin a un set.
type ReportQuery struct {
	GuildID string
	Date    string
	UserID  string
	Admin   bool
	UserIDs []string
}

type UserReport struct {
	Daily    domain.DailyLedger     `json:"daily"`
	LateFees decimal.Decimal        `json:"late_fees"`
	Sessions []domain.SessionRecord `json:"sessions"`
}

type Report struct {
	GuildID   string                 `json:"guild_id"`
	Date      string                 `json:"date"`
	FeeModel  domain.FeeModel        `json:"fee_model"`
	Timezone  string                 `json:"timezone"`
	GuildWide bool                   `json:"guild_wide"`
	User      *UserReport            `json:"user,omitempty"`
	Daily     []domain.DailyLedger   `json:"daily,omitempty"`
	Sessions  []domain.SessionRecord `json:"sessions,omitempty"`
}

// Report es sólo lectura y puede correr en paralelo con cierres en curso.
func (s *AwayService) Report(ctx context.Context, q ReportQuery) (Report, error) {
	set, err := s.settings.Get(ctx, q.GuildID)
	if err != nil {
		return Report{}, fmt.Errorf("load settings: %w", err)
	}

	day := set.DayOf(s.now())
	if q.Date != "" {
		if day, err = domain.ParseDay(q.Date); err != nil {
			return Report{}, err
		}
	}
	rep := Report{GuildID: q.GuildID, Date: day, FeeModel: set.FeeModel, Timezone: set.Timezone}

	if q.Admin && q.UserID == "" {
		return s.guildReport(ctx, rep, q.UserIDs)
	}

	userID := q.UserID
	if userID == "" {
		return Report{}, fmt.Errorf("%w: user required", domain.ErrMalformedInput)
	}
	daily, err := s.ledger.DailyForUser(ctx, q.GuildID, userID, day)
	if errors.Is(err, storage.ErrNotFound) {
		return Report{}, domain.ErrNoRecords
	}
	if err != nil {
		return Report{}, fmt.Errorf("daily for user: %w", err)
	}
	sessions, err := s.ledger.SessionsForUser(ctx, q.GuildID, userID, day)
	if err != nil {
		return Report{}, fmt.Errorf("sessions for user: %w", err)
	}

	late := decimal.Zero
	for _, r := range sessions {
		late = late.Add(r.Fee)
	}
	rep.User = &UserReport{Daily: daily, LateFees: late, Sessions: sessions}
	return rep, nil
}

func (s *AwayService) guildReport(ctx context.Context, rep Report, only []string) (Report, error) {
	daily, err := s.ledger.DailyForGuild(ctx, rep.GuildID, rep.Date)
	if err != nil {
		return Report{}, fmt.Errorf("daily for guild: %w", err)
	}

	var sessions []domain.SessionRecord
	if len(only) > 0 {
		keep := make(map[string]bool, len(only))
		for _, id := range only {
			keep[id] = true
		}
		filtered := daily[:0]
		for _, d := range daily {
			if keep[d.UserID] {
				filtered = append(filtered, d)
			}
		}
		daily = filtered
		sessions, err = s.ledger.SessionsForUsers(ctx, rep.GuildID, rep.Date, only)
	} else {
		sessions, err = s.ledger.SessionsForGuild(ctx, rep.GuildID, rep.Date)
	}
	if err != nil {
		return Report{}, fmt.Errorf("sessions for guild: %w", err)
	}
	if len(daily) == 0 {
		return Report{}, domain.ErrNoRecords
	}

	rep.GuildWide = true
	rep.Daily = daily
	rep.Sessions = sessions
	return rep, nil
}
