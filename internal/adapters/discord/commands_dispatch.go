// esta es la logica de InteractionApplicationCommand de discordgo
// aqui solo manejamos la interaccion del usuario y despachamos a los servicios
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

type cmdOptions = map[string]*discordgo.ApplicationCommandInteractionDataOption

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	cmd := ic.ApplicationCommandData()
	user := interactionUser(ic)
	if user == nil {
		return
	}
	r.log.Debug().Str("cmd", cmd.Name).Str("user", user.ID).Str("guild", ic.GuildID).Msg("slash")

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("cmd", cmd.Name).Msg("panic in slash command")
			ReplyEphemeral(s, ic, "❌ Unexpected error processing the command. Contact an administrator.")
		}
	}()

	if ic.GuildID == "" {
		_ = SendEphemeral(s, ic, "ℹ️ Use this command inside a server, or DM me `!awayreport`.")
		return
	}
	_ = DeferEphemeral(s, ic)
	if !r.limiter.Allow(user.ID) {
		ReplyEphemeral(s, ic, "⏳ Slow down a second…")
		return
	}

	ctx, cancel := r.opCtx()
	defer cancel()
	sub, opts := subOptions(ic)
	defer r.step("cmd." + cmd.Name)()

	switch cmd.Name {
	//--> away status/report/set/clear/active
	case "away":
		r.slashAway(ctx, s, ic, user, sub, opts)

	//--> settings: sólo admins
	case "settings":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		switch sub {
		case "show":
			msg, err := r.settings.Show(ctx, ic.GuildID)
			if err != nil {
				ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
				return
			}
			ReplyEphemeral(s, ic, msg)
		case "set":
			patch := settingsPatch(opts)
			if patch.Empty() {
				ReplyEphemeral(s, ic, "ℹ️ Nothing to change. Pass at least one option.")
				return
			}
			msg, err := r.settings.Update(ctx, ic.GuildID, patch)
			if err != nil {
				ReplyEphemeral(s, ic, "⚠️ Could not update settings: "+r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
				return
			}
			ReplyEphemeral(s, ic, "✅ Settings updated.\n"+msg)
		}

	//--> provisiona y fija el canal de anuncios
	case "setup":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		channelID, ok := optChannel(opts, "channel")
		if !ok {
			channelID = ic.ChannelID
		}
		msg, err := r.settings.BindChannel(ctx, ic.GuildID, channelID)
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Bot setup complete. Away announcements will go to <#"+channelID+">.\n"+msg)
	}
}

func (r *Router) slashAway(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, user *discordgo.User, sub string, opts cmdOptions) {
	switch sub {
	case "status":
		v, err := r.away.Status(ctx, ic.GuildID, user.ID)
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
			return
		}
		ReplyEphemeral(s, ic, statusText(user.ID, v))

	case "report":
		admin := r.interactionAdmin(ic)
		q := service.ReportQuery{GuildID: ic.GuildID, Admin: admin}
		q.Date, _ = optStr(opts, "date")
		if target, ok := optUser(opts, "user"); ok {
			if !admin && target != user.ID {
				ReplyEphemeral(s, ic, "🔒 Only admins can view other users' reports.")
				return
			}
			q.UserID = target
		} else if !admin {
			q.UserID = user.ID
		}
		if raw, ok := optStr(opts, "users"); ok && admin {
			q.UserIDs = parseIDs(raw)
		}
		rep, err := r.away.Report(ctx, q)
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
			return
		}
		ReplyReport(s, ic, rep.Text())

	case "set":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		target, _ := optUser(opts, "user")
		minutes, _ := optInt(opts, "minutes")
		sess, err := r.away.ForceAway(ctx, service.AwayRequest{
			GuildID:  ic.GuildID,
			UserID:   target,
			UserName: resolvedName(ic, target),
			Minutes:  minutes,
		})
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, target, domain.ServerSettings{}, err))
			return
		}
		r.log.Info().Str("admin", user.ID).Str("user", target).Int("minutes", sess.ExpectedMinutes).Msg("manual away")
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ %s has been manually marked as away for %d minutes.", mention(target), sess.ExpectedMinutes))

	case "clear":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		target, _ := optUser(opts, "user")
		if err := r.away.Clear(ctx, ic.GuildID, target); err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, target, domain.ServerSettings{}, err))
			return
		}
		r.log.Info().Str("admin", user.ID).Str("user", target).Msg("away cleared")
		ReplyEphemeral(s, ic, fmt.Sprintf("✅ %s's away status has been cleared.", mention(target)))

	case "active":
		if !r.requireAdminOrRoles(s, ic) {
			return
		}
		list, err := r.away.Active(ctx, ic.GuildID)
		if err != nil {
			ReplyEphemeral(s, ic, r.failure(ic.GuildID, user.ID, domain.ServerSettings{}, err))
			return
		}
		ReplyEphemeral(s, ic, activeList(list))

	default:
		ReplyEphemeral(s, ic, "Use `/away status`, `/away report`, `/away set`, `/away clear` or `/away active`.")
	}
}

// settingsPatch arma el patch sólo con las opciones presentes.
func settingsPatch(opts cmdOptions) service.SettingsPatch {
	var p service.SettingsPatch
	if v, ok := optStr(opts, "prefix"); ok {
		p.CommandPrefix = &v
	}
	if v, ok := optChannel(opts, "channel"); ok {
		p.AnnouncementChannel = &v
	}
	if v, ok := optInt(opts, "grace_period"); ok {
		p.GracePeriodMinutes = &v
	}
	if v, ok := optStr(opts, "fee_model"); ok {
		p.FeeModel = &v
	}
	if v, ok := optStr(opts, "fee_rate"); ok {
		p.FeeRate = &v
	}
	if v, ok := optInt(opts, "max_single_away"); ok {
		p.MaxSingleAwayMinutes = &v
	}
	if v, ok := optInt(opts, "max_daily_away"); ok {
		p.MaxDailyAwayMinutes = &v
	}
	if v, ok := optStr(opts, "work_start"); ok {
		p.WorkStart = &v
	}
	if v, ok := optStr(opts, "work_end"); ok {
		p.WorkEnd = &v
	}
	if v, ok := optBool(opts, "enforce_work_hours"); ok {
		p.EnforceWorkHours = &v
	}
	if v, ok := optStr(opts, "timezone"); ok {
		p.Timezone = &v
	}
	return p
}
