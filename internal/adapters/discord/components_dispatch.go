package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	user := interactionUser(ic)
	if user == nil || ic.GuildID == "" {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("component", data.CustomID).Msg("panic in component")
			ReplyEphemeral(s, ic, "❌ Unexpected error. Contact an administrator.")
		}
	}()

	_ = DeferEphemeral(s, ic)

	ctx, cancel := r.opCtx()
	defer cancel()

	switch data.CustomID {

	//--> el botón cierra la sesión de quien hace click, no la del autor del ack
	case customIDReturn:
		defer r.step("component.away_return")()
		if !r.limiter.Allow(user.ID) {
			ReplyEphemeral(s, ic, "⏳ Slow down a second…")
			return
		}
		out, err := r.away.Return(ctx, ic.GuildID, user.ID)
		if errors.Is(err, domain.ErrNoActiveSession) {
			ReplyEphemeral(s, ic, "ℹ️ You're not marked as away.")
			return
		}
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
			return
		}
		channel := announceChannel(out.Settings.AnnouncementChannelID, ic.ChannelID)
		_ = SendChannel(s, channel, returnOutcome(user.ID, out))
		ReplyEphemeral(s, ic, "✅ Welcome back!")
	}
}
