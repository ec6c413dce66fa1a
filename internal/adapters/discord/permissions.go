package discord

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

const adminPerms = discordgo.PermissionAdministrator | discordgo.PermissionManageGuild

// hasAdmin: bit de Administrator/ManageServer o alguno de los roles del bot.
func hasAdmin(perms int64, memberRoles, adminRoleIDs []string) bool {
	if perms&adminPerms != 0 {
		return true
	}
	for _, want := range adminRoleIDs {
		if slices.Contains(memberRoles, want) {
			return true
		}
	}
	return false
}

// memberPerms suma los permisos de los roles del miembro (owner = todo).
func (r *Router) memberPerms(guildID string, m *discordgo.Member) int64 {
	if m == nil || m.User == nil {
		return 0
	}
	if g, _ := r.s.State.Guild(guildID); g != nil && m.User.ID == g.OwnerID {
		return discordgo.PermissionAll
	}

	var roles []*discordgo.Role
	if g, _ := r.s.State.Guild(guildID); g != nil && len(g.Roles) > 0 {
		roles = g.Roles
	} else if rs, err := r.s.GuildRoles(guildID); err == nil {
		roles = rs
	}

	var perms int64
	for _, ro := range roles {
		// @everyone tiene el mismo ID que el guild
		if ro.ID == guildID || slices.Contains(m.Roles, ro.ID) {
			perms |= ro.Permissions
		}
	}
	return perms
}

func (r *Router) isAdmin(guildID string, m *discordgo.Member) bool {
	if m == nil {
		return false
	}
	return hasAdmin(r.memberPerms(guildID, m), m.Roles, r.adminRoleIDs)
}

// isAdminByID resuelve al miembro en el guild (DMs no traen Member).
func (r *Router) isAdminByID(guildID, userID string) bool {
	if guildID == "" {
		return false
	}
	m, err := r.s.State.Member(guildID, userID)
	if err != nil || m == nil {
		if m, err = r.s.GuildMember(guildID, userID); err != nil {
			return false
		}
	}
	return r.isAdmin(guildID, m)
}

// interactionAdmin no responde; sirve para vistas que cambian según el rol.
func (r *Router) interactionAdmin(ic *discordgo.InteractionCreate) bool {
	if ic.Member == nil {
		return false
	}
	// Member.Permissions ya viene calculado en interacciones
	return hasAdmin(ic.Member.Permissions, ic.Member.Roles, r.adminRoleIDs) || r.isAdmin(ic.GuildID, ic.Member)
}

func (r *Router) requireAdminOrRoles(s *discordgo.Session, ic *discordgo.InteractionCreate) bool {
	if r.interactionAdmin(ic) {
		return true
	}
	ReplyEphemeral(s, ic, "🔒 You don't have permission for this action.")
	return false
}
