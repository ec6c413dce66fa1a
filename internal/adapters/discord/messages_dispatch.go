// mensajes de texto: triggers "N min away" / "back" y comandos con prefijo
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

const customIDReturn = "away_return"

const slowDown = "⏳ Slow down a second…"

// looksLikeRequest: algo que el bot respondería con cualquier prefix.
func looksLikeRequest(content string) bool {
	if t, err := ParseTrigger(content); err != nil || t.Kind != TriggerNone {
		return true
	}
	lower := strings.ToLower(content)
	return strings.Contains(lower, "awayreport") || strings.Contains(lower, "awaystatus")
}

func (r *Router) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("user", m.Author.ID).Msg("panic in message handler")
		}
	}()

	ctx, cancel := r.opCtx()
	defer cancel()

	if m.GuildID == "" {
		r.handleDM(ctx, m)
		return
	}

	set, err := r.settings.Get(ctx, m.GuildID)
	if err != nil {
		// sin settings no sabemos si es trigger o comando; sólo avisamos si lo parece
		if looksLikeRequest(m.Content) {
			_ = r.send(m.ChannelID, r.failure(m.GuildID, m.Author.ID, domain.ServerSettings{}, fmt.Errorf("load settings: %w", err)))
		} else {
			r.log.Error().Err(err).Str("guild", m.GuildID).Msg("load settings")
		}
		return
	}

	if cmd, arg, ok := prefixCommand(m.Content, set.CommandPrefix); ok {
		if !r.limiter.Allow(m.Author.ID) {
			_ = r.send(m.ChannelID, slowDown)
			return
		}
		admin := r.isAdmin(m.GuildID, messageMember(m))
		reply := r.prefixReply(ctx, m.GuildID, m.Author.ID, admin, cmd, arg)
		if cmd == "awayreport" {
			// el reporte va por DM; si los DMs están cerrados, al canal
			if err := SendDM(s, m.Author.ID, reply); err == nil {
				_ = r.send(m.ChannelID, "📬 "+mention(m.Author.ID)+" I've sent you the report by DM.")
				return
			}
		}
		_ = r.send(m.ChannelID, reply)
		return
	}

	if set.AnnouncementChannelID != "" && m.ChannelID != set.AnnouncementChannelID {
		return
	}

	trig, err := ParseTrigger(m.Content)
	if err != nil {
		_ = r.send(m.ChannelID, "❌ "+mention(m.Author.ID)+" I couldn't read that away time. Try something like `15 min away`.")
		return
	}
	switch trig.Kind {
	case TriggerAway:
		r.handleAway(ctx, s, m, set, trig.Minutes)
	case TriggerReturn:
		r.handleReturn(ctx, s, m, set)
	}
}

// messageMember completa el Member parcial de MessageCreate con el autor.
func messageMember(m *discordgo.MessageCreate) *discordgo.Member {
	if m.Member == nil {
		return nil
	}
	cp := *m.Member
	if cp.User == nil {
		cp.User = m.Author
	}
	return &cp
}

func (r *Router) handleAway(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, set domain.ServerSettings, minutes int) {
	defer r.step("trigger.away")()

	res, err := r.away.GoAway(ctx, service.AwayRequest{
		GuildID:  m.GuildID,
		UserID:   m.Author.ID,
		UserName: displayName(m.Member, m.Author),
		Minutes:  minutes,
	})
	if err != nil {
		_ = r.send(m.ChannelID, r.failure(m.GuildID, m.Author.ID, set, err))
		return
	}

	for _, msg := range advisories(m.Author.ID, res) {
		_ = r.send(m.ChannelID, msg)
	}
	r.sendAck(s, announceChannel(set.AnnouncementChannelID, m.ChannelID), m.Author.ID, res)
}

// sendAck publica el ack con el botón de regreso.
func (r *Router) sendAck(s *discordgo.Session, channelID, userID string, res service.AwayResult) {
	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: awayAck(userID, res),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "✅ I'm back", Style: discordgo.SuccessButton, CustomID: customIDReturn},
			}},
		},
	})
	if err != nil {
		r.log.Warn().Err(err).Str("channel", channelID).Msg("send away ack")
	}
}

func (r *Router) handleReturn(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, set domain.ServerSettings) {
	defer r.step("trigger.return")()

	out, err := r.away.Return(ctx, m.GuildID, m.Author.ID)
	if errors.Is(err, domain.ErrNoActiveSession) {
		// "back" sin sesión abierta es conversación normal
		return
	}
	if err != nil {
		_ = r.send(m.ChannelID, r.failure(m.GuildID, m.Author.ID, set, err))
		return
	}
	_ = r.send(announceChannel(set.AnnouncementChannelID, m.ChannelID), returnOutcome(m.Author.ID, out))
}

// handleDM atiende awayreport/awaystatus contra el guild home.
func (r *Router) handleDM(ctx context.Context, m *discordgo.MessageCreate) {
	prefixes := []string{"/"}
	if r.guildID != "" {
		if set, err := r.settings.Get(ctx, r.guildID); err == nil {
			prefixes = append([]string{set.CommandPrefix}, prefixes...)
		}
	}

	for _, p := range prefixes {
		cmd, arg, ok := prefixCommand(m.Content, p)
		if !ok {
			continue
		}
		if !r.limiter.Allow(m.Author.ID) {
			_ = r.send(m.ChannelID, slowDown)
			return
		}
		if r.guildID == "" {
			_ = r.send(m.ChannelID, "ℹ️ DM commands are not available here. Use `/away report` inside your server.")
			return
		}
		admin := r.isAdminByID(r.guildID, m.Author.ID)
		_ = r.send(m.ChannelID, r.prefixReply(ctx, r.guildID, m.Author.ID, admin, cmd, arg))
		return
	}
}

func (r *Router) prefixReply(ctx context.Context, guildID, userID string, admin bool, cmd, arg string) string {
	defer r.step("prefix." + cmd)()

	switch cmd {
	case "awaystatus":
		v, err := r.away.Status(ctx, guildID, userID)
		if err != nil {
			return r.failure(guildID, userID, domain.ServerSettings{}, err)
		}
		return statusText(userID, v)

	case "awayreport":
		q := service.ReportQuery{GuildID: guildID, Date: arg, Admin: admin}
		if !admin {
			q.UserID = userID
		}
		rep, err := r.away.Report(ctx, q)
		if err != nil {
			return r.failure(guildID, userID, domain.ServerSettings{}, err)
		}
		return rep.Text()
	}
	return ""
}

// failure loguea lo inesperado y devuelve el aviso para el usuario.
func (r *Router) failure(guildID, userID string, set domain.ServerSettings, err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrOutsideWorkHours),
		errors.Is(err, domain.ErrNoRecords),
		errors.Is(err, domain.ErrMalformedInput):
	default:
		r.log.Error().Err(err).Str("guild", guildID).Str("user", userID).Msg("request failed")
	}
	return errorNotice(userID, set, err)
}
