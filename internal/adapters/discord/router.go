package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/rs/zerolog"
)

type Router struct {
	s       *discordgo.Session
	guildID string // registro de comandos y guild "home" para DMs; vacío = global

	away         *service.AwayService
	settings     *service.SettingsService
	adminRoleIDs []string

	limiter   *userLimiter
	opTimeout time.Duration
	log       zerolog.Logger

	send func(channelID, content string) error // SendChannel sobre s
}

type RouterConfig struct {
	GuildID      string
	AdminRoleIDs []string
	OpTimeout    time.Duration
}

func NewRouter(
	s *discordgo.Session,
	cfg RouterConfig,
	away *service.AwayService,
	settings *service.SettingsService,
	log zerolog.Logger,
) *Router {
	timeout := cfg.OpTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Router{
		s:            s,
		guildID:      cfg.GuildID,
		away:         away,
		settings:     settings,
		adminRoleIDs: cfg.AdminRoleIDs,
		limiter:      newUserLimiter(time.Second, 3),
		opTimeout:    timeout,
		log:          log.With().Str("component", "discord").Logger(),
		send:         func(channelID, content string) error { return SendChannel(s, channelID, content) },
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})
	r.s.AddHandler(r.onMessage)
	r.s.AddHandler(r.onGuildCreate)
}

// Notify implementa service.Notifier para el scheduler.
func (r *Router) Notify(_ context.Context, channelID, content string) error {
	return r.send(channelID, content)
}

func (r *Router) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.opTimeout)
}

// onGuildCreate provisiona settings al entrar (o reconectar) a un guild.
func (r *Router) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	ctx, cancel := r.opCtx()
	defer cancel()
	if err := r.settings.Provision(ctx, g.ID); err != nil {
		r.log.Error().Err(err).Str("guild", g.ID).Msg("provision settings")
		return
	}
	r.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("guild ready")
}

// announceChannel: canal de anuncios si está configurado, si no el de origen.
func announceChannel(announce, source string) string {
	if announce != "" {
		return announce
	}
	return source
}
