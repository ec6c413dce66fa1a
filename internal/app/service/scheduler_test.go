package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/rs/zerolog"
)

type sentMsg struct {
	channel string
	content string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMsg
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMsg{channelID, content})
	return nil
}

func newTestScheduler(t *testing.T, e *testEnv, n Notifier) *Scheduler {
	t.Helper()
	s, err := NewScheduler(SchedulerConfig{}, e.away, e.settings, e.sessionRepo, n, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}
	return s
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	e := newTestEnv(t)
	_, err := NewScheduler(SchedulerConfig{DigestSpec: "every tuesday"}, e.away, e.settings, e.sessionRepo, &fakeNotifier{}, zerolog.Nop())
	if err == nil {
		t.Fatal("NewScheduler() should reject a bad cron spec")
	}
	if _, err := NewScheduler(SchedulerConfig{DigestSpec: "0 18 * * 1-5", ReminderSpec: "@every 1m"}, e.away, e.settings, e.sessionRepo, &fakeNotifier{}, zerolog.Nop()); err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}
}

func TestRunRemindersOncePerSession(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.settings.BindChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	n := &fakeNotifier{}
	s := newTestScheduler(t, e, n)

	if _, err := e.away.GoAway(ctx, away("g1", "u1", 10)); err != nil {
		t.Fatalf("GoAway() error: %v", err)
	}

	// dentro de expected + grace: nada
	e.clock.advance(11 * time.Minute)
	if err := s.RunReminders(ctx); err != nil {
		t.Fatalf("RunReminders() error: %v", err)
	}
	if len(n.sent) != 0 {
		t.Fatalf("reminded too early: %+v", n.sent)
	}

	e.clock.advance(2 * time.Minute)
	if err := s.RunReminders(ctx); err != nil {
		t.Fatalf("RunReminders() error: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].channel != "c1" || !strings.Contains(n.sent[0].content, "<@u1>") {
		t.Fatalf("sent = %+v", n.sent)
	}

	e.clock.advance(5 * time.Minute)
	if err := s.RunReminders(ctx); err != nil {
		t.Fatalf("RunReminders() error: %v", err)
	}
	if len(n.sent) != 1 {
		t.Errorf("reminded twice: %d", len(n.sent))
	}
}

func TestRunRemindersRetriesAfterNotifyFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.settings.BindChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	n := &fakeNotifier{err: errors.New("discord down")}
	s := newTestScheduler(t, e, n)

	if _, err := e.away.GoAway(ctx, away("g1", "u1", 5)); err != nil {
		t.Fatalf("GoAway() error: %v", err)
	}
	e.clock.advance(20 * time.Minute)
	if err := s.RunReminders(ctx); err == nil {
		t.Fatal("RunReminders() should surface notify failure")
	}

	n.err = nil
	if err := s.RunReminders(ctx); err != nil {
		t.Fatalf("RunReminders() error: %v", err)
	}
	if len(n.sent) != 1 {
		t.Errorf("sent = %d, want 1 after recovery", len(n.sent))
	}
}

func TestRunRemindersSkipsGuildWithoutChannel(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	n := &fakeNotifier{}
	s := newTestScheduler(t, e, n)

	if _, err := e.away.GoAway(ctx, away("g1", "u1", 5)); err != nil {
		t.Fatalf("GoAway() error: %v", err)
	}
	e.clock.advance(time.Hour)
	if err := s.RunReminders(ctx); err != nil {
		t.Fatalf("RunReminders() error: %v", err)
	}
	if len(n.sent) != 0 {
		t.Errorf("sent = %+v, want none", n.sent)
	}
}

func TestRunDigest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.settings.BindChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	// g2 provisionado pero sin actividad
	if _, err := e.settings.BindChannel(ctx, "g2", "c2"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	seedDay(t, e)

	n := &fakeNotifier{}
	s := newTestScheduler(t, e, n)
	if err := s.RunDigest(ctx); err != nil {
		t.Fatalf("RunDigest() error: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0].channel != "c1" {
		t.Fatalf("sent = %+v, want one digest to c1", n.sent)
	}
	if !strings.Contains(n.sent[0].content, "Away Time Report - 2025-03-10") {
		t.Errorf("digest:\n%s", n.sent[0].content)
	}
}

// Dos instancias con el mismo Claimer: cada disparo corre una sola vez.
func TestJobRunsOnceAcrossInstances(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.settings.BindChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	seedDay(t, e)

	claims := lock.NewMemLocker()
	n := &fakeNotifier{}
	var instances []*Scheduler
	for i := 0; i < 2; i++ {
		s, err := NewScheduler(SchedulerConfig{Claims: claims}, e.away, e.settings, e.sessionRepo, n, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewScheduler() error: %v", err)
		}
		instances = append(instances, s)
	}

	for _, s := range instances {
		s.job("digest", s.RunDigest)()
	}
	if len(n.sent) != 1 {
		t.Fatalf("digests sent = %d, want 1", len(n.sent))
	}

	// el minuto siguiente es otro disparo
	e.clock.advance(time.Minute)
	instances[1].job("digest", instances[1].RunDigest)()
	if len(n.sent) != 2 {
		t.Errorf("digests sent = %d, want 2 after next fire", len(n.sent))
	}
}

func TestRunRemindersConcurrentInstances(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	if _, err := e.settings.BindChannel(ctx, "g1", "c1"); err != nil {
		t.Fatalf("BindChannel() error: %v", err)
	}
	if _, err := e.away.GoAway(ctx, away("g1", "u1", 5)); err != nil {
		t.Fatalf("GoAway() error: %v", err)
	}
	e.clock.advance(20 * time.Minute)

	n := &fakeNotifier{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		s := newTestScheduler(t, e, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.RunReminders(ctx); err != nil {
				t.Errorf("RunReminders() error: %v", err)
			}
		}()
	}
	wg.Wait()
	if len(n.sent) != 1 {
		t.Errorf("reminders sent = %d, want 1", len(n.sent))
	}
}
