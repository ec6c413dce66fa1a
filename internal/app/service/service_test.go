package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db           *storage.DB
	settingsRepo *storage.SettingsRepo
	sessionRepo  *storage.SessionRepo
	ledgerRepo   *storage.LedgerRepo
	settings     *SettingsService
	away         *AwayService
	clock        *testClock
}

// monday 2025-03-10 10:00 UTC
var t0 = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "away.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	e := &testEnv{
		db:           db,
		settingsRepo: storage.NewSettingsRepo(db, domain.BuiltinDefaults()),
		sessionRepo:  storage.NewSessionRepo(db),
		ledgerRepo:   storage.NewLedgerRepo(db),
		clock:        &testClock{t: t0},
	}
	e.settings, err = NewSettingsService(e.settingsRepo, 16, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSettingsService() error: %v", err)
	}
	e.away = e.newAway(e.ledgerRepo)
	return e
}

func (e *testEnv) newAway(ledger LedgerRepo) *AwayService {
	return NewAwayService(e.settings, e.sessionRepo, ledger, lock.NewMemLocker(), zerolog.Nop(), WithClock(e.clock.now))
}

func away(guild, user string, minutes int) AwayRequest {
	return AwayRequest{GuildID: guild, UserID: user, UserName: "user-" + user, Minutes: minutes}
}
