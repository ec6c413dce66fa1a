package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/metrics"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AwayService corre el ciclo away/return. Toda mutación de (guild, user)
// pasa por el Locker.
type AwayService struct {
	settings SettingsReader
	sessions SessionRepo
	ledger   LedgerRepo
	locks    lock.Locker
	now      func() time.Time
	log      zerolog.Logger
}

type AwayOption func(*AwayService)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) AwayOption {
	return func(s *AwayService) { s.now = now }
}

func NewAwayService(settings SettingsReader, sessions SessionRepo, ledger LedgerRepo, locks lock.Locker, log zerolog.Logger, opts ...AwayOption) *AwayService {
	s := &AwayService{
		settings: settings,
		sessions: sessions,
		ledger:   ledger,
		locks:    locks,
		now:      time.Now,
		log:      log.With().Str("component", "away").Logger(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type AwayRequest struct {
	GuildID  string
	UserID   string
	UserName string
	Minutes  int
}

type AwayResult struct {
	Session   domain.ActiveSession
	Requested int
	Clamped   bool
	Advice    domain.Advice
	Settings  domain.ServerSettings
}

type ReturnResult struct {
	Session     domain.ActiveSession
	Record      domain.SessionRecord
	Daily       domain.DailyLedger
	LateMinutes int
	SessionFee  decimal.Decimal
	Outcome     domain.Outcome
	Settings    domain.ServerSettings
}

// TotalFee suma el fee de la sesión y el fee diario acumulado.
func (r ReturnResult) TotalFee() decimal.Decimal { return r.SessionFee.Add(r.Daily.Fee) }

func (s *AwayService) lockUser(ctx context.Context, guildID, userID string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, lock.Key(guildID, userID))
	if err != nil {
		return nil, fmt.Errorf("lock %s/%s: %w", guildID, userID, err)
	}
	return unlock, nil
}

// GoAway abre una sesión. Los avisos (clamp, presupuesto) van en el resultado
// y nunca bloquean.
func (s *AwayService) GoAway(ctx context.Context, req AwayRequest) (AwayResult, error) {
	if req.Minutes <= 0 {
		return AwayResult{}, fmt.Errorf("%w: minutes must be a positive number", domain.ErrMalformedInput)
	}
	unlock, err := s.lockUser(ctx, req.GuildID, req.UserID)
	if err != nil {
		return AwayResult{}, err
	}
	defer unlock()

	set, err := s.settings.Get(ctx, req.GuildID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("settings_get").Inc()
		return AwayResult{}, fmt.Errorf("load settings: %w", err)
	}
	now := s.now().UTC()
	if set.EnforceWorkHours && !set.InWorkHours(now) {
		return AwayResult{Settings: set}, domain.ErrOutsideWorkHours
	}

	if _, err := s.sessions.GetActive(ctx, req.GuildID, req.UserID); err == nil {
		return AwayResult{Settings: set}, domain.ErrSessionActive
	} else if !errors.Is(err, storage.ErrNotFound) {
		metrics.StoreErrors.WithLabelValues("session_get").Inc()
		return AwayResult{}, fmt.Errorf("get active session: %w", err)
	}

	minutes, clamped := domain.ClampMinutes(req.Minutes, set.MaxSingleAwayMinutes)

	used, err := s.ledger.TotalMinutes(ctx, req.GuildID, req.UserID, set.DayOf(now))
	if err != nil {
		// no bloquea: se asume 0 usado hoy
		metrics.StoreErrors.WithLabelValues("ledger_total").Inc()
		s.log.Warn().Err(err).Str("guild", req.GuildID).Str("user", req.UserID).Msg("daily total unavailable; assuming 0")
		used = 0
	}
	advice := domain.AdviseBudget(used, set.MaxDailyAwayMinutes, minutes)

	sess := domain.ActiveSession{
		GuildID:         req.GuildID,
		UserID:          req.UserID,
		UserName:        req.UserName,
		StartedAt:       now,
		ExpectedMinutes: minutes,
	}
	if err := s.sessions.Start(ctx, sess); err != nil {
		if !errors.Is(err, domain.ErrSessionActive) {
			metrics.StoreErrors.WithLabelValues("session_start").Inc()
		}
		return AwayResult{Settings: set}, err
	}

	metrics.SessionsStarted.WithLabelValues("self").Inc()
	if clamped {
		metrics.Advisories.WithLabelValues("clamped").Inc()
	}
	if advice.Kind != domain.AdviceNone {
		metrics.Advisories.WithLabelValues(string(advice.Kind)).Inc()
	}
	s.log.Info().Str("guild", req.GuildID).Str("user", req.UserID).
		Int("minutes", minutes).Bool("clamped", clamped).Str("advice", string(advice.Kind)).
		Msg("away started")

	return AwayResult{Session: sess, Requested: req.Minutes, Clamped: clamped, Advice: advice, Settings: set}, nil
}

// Return cierra la sesión y contabiliza. Si la escritura falla la sesión
// activa se conserva y el error sube.
func (s *AwayService) Return(ctx context.Context, guildID, userID string) (ReturnResult, error) {
	unlock, err := s.lockUser(ctx, guildID, userID)
	if err != nil {
		return ReturnResult{}, err
	}
	defer unlock()

	active, err := s.sessions.GetActive(ctx, guildID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ReturnResult{}, domain.ErrNoActiveSession
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("session_get").Inc()
		return ReturnResult{}, fmt.Errorf("get active session: %w", err)
	}

	set, err := s.settings.Get(ctx, guildID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("settings_get").Inc()
		return ReturnResult{}, fmt.Errorf("load settings: %w", err)
	}

	now := s.now().UTC()
	actual := domain.ElapsedMinutes(active.StartedAt, now)
	late := domain.LateMinutes(actual, active.ExpectedMinutes, set.GracePeriodMinutes)
	fee := domain.Fee(late, set.FeeRate)

	rec := domain.SessionRecord{
		ID:              uuid.NewString(),
		GuildID:         guildID,
		UserID:          userID,
		UserName:        active.UserName,
		Day:             set.DayOf(active.StartedAt),
		StartedAt:       active.StartedAt,
		EndedAt:         now,
		ExpectedMinutes: active.ExpectedMinutes,
		ActualMinutes:   actual,
		LateMinutes:     late,
		Fee:             fee,
	}
	daily, err := s.ledger.CloseSession(ctx, storage.CloseInput{
		Record:   rec,
		MaxDaily: set.MaxDailyAwayMinutes,
		Rate:     set.FeeRate,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSession) {
			return ReturnResult{}, err
		}
		metrics.StoreErrors.WithLabelValues("close_session").Inc()
		s.log.Error().Err(err).Str("guild", guildID).Str("user", userID).Msg("close session failed; session kept")
		return ReturnResult{}, fmt.Errorf("close session: %w", err)
	}

	outcome := domain.Classify(late, daily.OverLimitMinutes)
	metrics.SessionsClosed.WithLabelValues(string(outcome)).Inc()
	metrics.AwayMinutes.Add(float64(actual))
	metrics.LateMinutes.Add(float64(late))
	s.log.Info().Str("guild", guildID).Str("user", userID).
		Int("actual", actual).Int("late", late).Int("over_limit", daily.OverLimitMinutes).
		Str("outcome", string(outcome)).Msg("away closed")

	return ReturnResult{
		Session:     active,
		Record:      rec,
		Daily:       daily,
		LateMinutes: late,
		SessionFee:  fee,
		Outcome:     outcome,
		Settings:    set,
	}, nil
}

// ForceAway es el set-away de admin: sin clamp ni avisos de presupuesto.
func (s *AwayService) ForceAway(ctx context.Context, req AwayRequest) (domain.ActiveSession, error) {
	if req.Minutes <= 0 {
		return domain.ActiveSession{}, fmt.Errorf("%w: minutes must be a positive number", domain.ErrMalformedInput)
	}
	unlock, err := s.lockUser(ctx, req.GuildID, req.UserID)
	if err != nil {
		return domain.ActiveSession{}, err
	}
	defer unlock()

	sess := domain.ActiveSession{
		GuildID:         req.GuildID,
		UserID:          req.UserID,
		UserName:        req.UserName,
		StartedAt:       s.now().UTC(),
		ExpectedMinutes: req.Minutes,
	}
	if err := s.sessions.Start(ctx, sess); err != nil {
		return domain.ActiveSession{}, err
	}
	metrics.SessionsStarted.WithLabelValues("admin").Inc()
	s.log.Info().Str("guild", req.GuildID).Str("user", req.UserID).Int("minutes", req.Minutes).Msg("away forced by admin")
	return sess, nil
}

// Clear borra la sesión sin contabilizar.
func (s *AwayService) Clear(ctx context.Context, guildID, userID string) error {
	unlock, err := s.lockUser(ctx, guildID, userID)
	if err != nil {
		return err
	}
	defer unlock()

	ok, err := s.sessions.End(ctx, guildID, userID)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("session_end").Inc()
		return fmt.Errorf("clear session: %w", err)
	}
	if !ok {
		return domain.ErrNoActiveSession
	}
	metrics.SessionsCleared.Inc()
	s.log.Info().Str("guild", guildID).Str("user", userID).Msg("away cleared by admin")
	return nil
}

type StatusView struct {
	Away             bool
	Session          domain.ActiveSession
	ElapsedMinutes   int
	RemainingMinutes int // en la sesión; negativo = pasado
	UsedToday        int // incluye la sesión en curso
	DailyLimit       int
	DailyRemaining   int
	Settings         domain.ServerSettings
}

// Status es sólo lectura: no toma el lock.
func (s *AwayService) Status(ctx context.Context, guildID, userID string) (StatusView, error) {
	set, err := s.settings.Get(ctx, guildID)
	if err != nil {
		return StatusView{}, fmt.Errorf("load settings: %w", err)
	}
	now := s.now().UTC()
	v := StatusView{DailyLimit: set.MaxDailyAwayMinutes, Settings: set}

	used, err := s.ledger.TotalMinutes(ctx, guildID, userID, set.DayOf(now))
	if err != nil {
		metrics.StoreErrors.WithLabelValues("ledger_total").Inc()
		s.log.Warn().Err(err).Str("guild", guildID).Str("user", userID).Msg("daily total unavailable; assuming 0")
	}
	v.UsedToday = used

	active, err := s.sessions.GetActive(ctx, guildID, userID)
	switch {
	case err == nil:
		v.Away = true
		v.Session = active
		v.ElapsedMinutes = domain.ElapsedMinutes(active.StartedAt, now)
		v.RemainingMinutes = active.ExpectedMinutes - v.ElapsedMinutes
		// al cerrar, los minutos cuentan para el día de inicio
		if set.DayOf(active.StartedAt) == set.DayOf(now) {
			v.UsedToday += v.ElapsedMinutes
		}
	case !errors.Is(err, storage.ErrNotFound):
		return StatusView{}, fmt.Errorf("get active session: %w", err)
	}
	v.DailyRemaining = v.DailyLimit - v.UsedToday
	return v, nil
}

// Active lista las sesiones abiertas del guild.
func (s *AwayService) Active(ctx context.Context, guildID string) ([]domain.ActiveSession, error) {
	return s.sessions.ListActive(ctx, guildID)
}
