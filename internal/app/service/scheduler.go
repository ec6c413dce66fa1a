package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/metrics"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type SchedulerConfig struct {
	DigestSpec   string // vacío = sin digest
	ReminderSpec string // vacío = sin recordatorios
	Location     *time.Location
	JobTimeout   time.Duration
	Claims       lock.Claimer // nil = cada instancia corre todo
}

// Scheduler corre el digest diario y los recordatorios de sesiones vencidas.
type Scheduler struct {
	c        *cron.Cron
	away     *AwayService
	settings *SettingsService
	sessions SessionRepo
	notifier Notifier
	claims   lock.Claimer
	timeout  time.Duration
	log      zerolog.Logger
}

// claimTTL cubre el desfasaje de reloj entre instancias.
const claimTTL = 5 * time.Minute

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func NewScheduler(cfg SchedulerConfig, away *AwayService, settings *SettingsService, sessions SessionRepo, notifier Notifier, log zerolog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Scheduler{
		c:        cron.New(cron.WithParser(cronParser), cron.WithLocation(loc)),
		away:     away,
		settings: settings,
		sessions: sessions,
		notifier: notifier,
		claims:   cfg.Claims,
		timeout:  timeout,
		log:      log.With().Str("component", "scheduler").Logger(),
	}

	if cfg.DigestSpec != "" {
		if _, err := s.c.AddFunc(cfg.DigestSpec, s.job("digest", s.RunDigest)); err != nil {
			return nil, fmt.Errorf("digest schedule %q: %w", cfg.DigestSpec, err)
		}
	}
	if cfg.ReminderSpec != "" {
		if _, err := s.c.AddFunc(cfg.ReminderSpec, s.job("reminder", s.RunReminders)); err != nil {
			return nil, fmt.Errorf("reminder schedule %q: %w", cfg.ReminderSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if s.claims != nil {
			key := "job:" + name + ":" + s.away.now().UTC().Format("200601021504")
			ok, err := s.claims.Claim(ctx, key, claimTTL)
			if err != nil {
				metrics.JobRuns.WithLabelValues(name, "error").Inc()
				s.log.Error().Err(err).Str("job", name).Msg("claim job")
				return
			}
			if !ok {
				metrics.JobRuns.WithLabelValues(name, "skipped").Inc()
				s.log.Debug().Str("job", name).Msg("job taken by another instance")
				return
			}
		}
		if err := fn(ctx); err != nil {
			metrics.JobRuns.WithLabelValues(name, "error").Inc()
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	}
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop espera a que terminen los jobs en curso o a que ctx expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunDigest publica el reporte del día en el canal de anuncios de cada guild.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	guilds, err := s.settings.List(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}
	var errs []error
	for _, g := range guilds {
		if g.AnnouncementChannelID == "" {
			continue
		}
		rep, err := s.away.Report(ctx, ReportQuery{GuildID: g.GuildID, Admin: true})
		if errors.Is(err, domain.ErrNoRecords) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", g.GuildID, err))
			continue
		}
		if err := s.notifier.Notify(ctx, g.AnnouncementChannelID, rep.Text()); err != nil {
			errs = append(errs, fmt.Errorf("guild %s notify: %w", g.GuildID, err))
			continue
		}
		s.log.Info().Str("guild", g.GuildID).Str("date", rep.Date).Int("users", len(rep.Daily)).Msg("digest posted")
	}
	return errors.Join(errs...)
}

// RunReminders avisa una sola vez por sesión cuando pasa expected+grace.
func (s *Scheduler) RunReminders(ctx context.Context) error {
	pending, err := s.sessions.ListUnreminded(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	now := s.away.now().UTC()
	var errs []error
	for _, a := range pending {
		set, err := s.settings.Get(ctx, a.GuildID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		due := a.DueAt(set.GracePeriodMinutes)
		if now.Before(due) || set.AnnouncementChannelID == "" {
			continue
		}
		if err := s.remind(ctx, a, set, now); err != nil {
			errs = append(errs, fmt.Errorf("remind %s/%s: %w", a.GuildID, a.UserID, err))
		}
	}
	return errors.Join(errs...)
}

// remind re-lee la sesión bajo el lock del usuario: otra instancia pudo
// avisar o cerrarla mientras tanto.
func (s *Scheduler) remind(ctx context.Context, a domain.ActiveSession, set domain.ServerSettings, now time.Time) error {
	unlock, err := s.away.lockUser(ctx, a.GuildID, a.UserID)
	if err != nil {
		return err
	}
	defer unlock()

	cur, err := s.sessions.GetActive(ctx, a.GuildID, a.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if cur.RemindedAt != nil || !cur.StartedAt.Equal(a.StartedAt) {
		return nil
	}

	over := domain.ElapsedMinutes(cur.StartedAt, now) - cur.ExpectedMinutes
	msg := fmt.Sprintf("⏰ <@%s> you said %d min away and it has been %d min over. Late fees are accruing (%s per minute).",
		cur.UserID, cur.ExpectedMinutes, over, set.FeeModel.Format(set.FeeRate))
	if err := s.notifier.Notify(ctx, set.AnnouncementChannelID, msg); err != nil {
		return err
	}
	return s.sessions.MarkReminded(ctx, cur.GuildID, cur.UserID, now)
}
