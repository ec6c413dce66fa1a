package discord

import (
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

var reMention = regexp.MustCompile(`<@!?(\d+)>`)

// parseIDs acepta menciones o IDs crudos separados por espacios o comas.
func parseIDs(raw string) []string {
	ids := []string{}
	for _, tok := range strings.FieldsFunc(raw, func(r rune) bool { return r == ' ' || r == ',' }) {
		if m := reMention.FindStringSubmatch(tok); len(m) == 2 {
			ids = append(ids, m[1])
			continue
		}
		allDigits := tok != ""
		for _, r := range tok {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			ids = append(ids, tok)
		}
	}
	return ids
}

func timeMinutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// subOptions devuelve el subcomando y sus opciones por nombre.
func subOptions(ic *discordgo.InteractionCreate) (string, map[string]*discordgo.ApplicationCommandInteractionDataOption) {
	opts := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", opts
	}
	sub := ""
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			sub = o.Name
			for _, so := range o.Options {
				opts[so.Name] = so
			}
			continue
		}
		opts[o.Name] = o
	}
	return sub, opts
}

func optStr(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return o.StringValue(), true
}

func optBool(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (bool, bool) {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionBoolean {
		return false, false
	}
	return o.BoolValue(), true
}

func optInt(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int, bool) {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

// optUser devuelve el ID; UserValue(nil) no consulta la API.
func optUser(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	o, found := opts[name]
	if !found || o.Type != discordgo.ApplicationCommandOptionUser {
		return "", false
	}
	u := o.UserValue(nil)
	if u == nil || u.ID == "" {
		return "", false
	}
	return u.ID, true
}

// resolvedName busca el nombre del usuario en los datos resueltos del comando.
func resolvedName(ic *discordgo.InteractionCreate, userID string) string {
	res := ic.ApplicationCommandData().Resolved
	if res == nil {
		return userID
	}
	var m *discordgo.Member
	if res.Members != nil {
		m = res.Members[userID]
	}
	if name := displayName(m, res.Users[userID]); name != "" {
		return name
	}
	return userID
}

func optChannel(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (string, bool) {
	o, found := opts[name]
	if !found || o.Type != discordgo.ApplicationCommandOptionChannel {
		return "", false
	}
	ch := o.ChannelValue(nil)
	if ch == nil || ch.ID == "" {
		return "", false
	}
	return ch.ID, true
}

// interactionUser cubre interacciones de guild (Member) y DM (User).
func interactionUser(ic *discordgo.InteractionCreate) *discordgo.User {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User
	}
	return ic.User
}

// displayName: nick del guild, global name o username.
func displayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
