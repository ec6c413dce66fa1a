package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog"
)

type stubSettings struct{ err error }

func (f stubSettings) Get(_ context.Context, guildID string) (domain.ServerSettings, error) {
	if f.err != nil {
		return domain.ServerSettings{}, f.err
	}
	return domain.DefaultSettings(guildID, domain.BuiltinDefaults()), nil
}
func (f stubSettings) Provision(context.Context, string) error { return f.err }
func (f stubSettings) Set(context.Context, string, storage.SettingField, any) error {
	return f.err
}
func (f stubSettings) List(context.Context) ([]domain.ServerSettings, error) { return nil, f.err }

type sent struct{ channel, content string }

// newTestRouter arma un Router sin sesión de Discord; las respuestas quedan en out.
func newTestRouter(t *testing.T, repo service.SettingsRepo) (*Router, *[]sent) {
	t.Helper()
	settings, err := service.NewSettingsService(repo, 8, zerolog.Nop(), service.WithoutCache())
	if err != nil {
		t.Fatalf("NewSettingsService() error: %v", err)
	}
	out := &[]sent{}
	r := &Router{
		settings:  settings,
		limiter:   newUserLimiter(time.Hour, 1),
		opTimeout: time.Second,
		log:       zerolog.Nop(),
		send: func(channelID, content string) error {
			*out = append(*out, sent{channelID, content})
			return nil
		},
	}
	return r, out
}

func guildMessage(content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "ana"},
	}}
}

func TestOnMessageSettingsFailureReplies(t *testing.T) {
	r, out := newTestRouter(t, stubSettings{err: errors.New("db down")})

	r.onMessage(nil, guildMessage("15 min away"))
	if len(*out) != 1 || (*out)[0].channel != "c1" || !strings.Contains((*out)[0].content, "Something went wrong") {
		t.Fatalf("replies = %+v, want one failure notice", *out)
	}

	// charla normal no recibe avisos
	r.onMessage(nil, guildMessage("lunch was great"))
	if len(*out) != 1 {
		t.Errorf("replies = %+v, chat should stay quiet", *out)
	}
}

func TestOnMessageRateLimitedPrefixReplies(t *testing.T) {
	r, out := newTestRouter(t, stubSettings{})
	r.limiter.Allow("u1") // agota el burst de 1

	r.onMessage(nil, guildMessage("!awaystatus"))
	if len(*out) != 1 || (*out)[0].content != slowDown {
		t.Fatalf("replies = %+v, want slow-down notice", *out)
	}
}

func TestLooksLikeRequest(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"10 min away", true},
		{"I'm back", true},
		{"?awayreport 2025-03-10", true},
		{"0 min away", true},
		{"see you tomorrow", false},
	}
	for _, tt := range tests {
		if got := looksLikeRequest(tt.in); got != tt.want {
			t.Errorf("looksLikeRequest(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
