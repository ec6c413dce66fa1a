package discord

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func slash(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func sub(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func opt(name string, typ discordgo.ApplicationCommandOptionType, v any) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: v}
}

func TestParseIDs(t *testing.T) {
	got := parseIDs("<@123> <@!456>, 789 bob 12a")
	want := []string{"123", "456", "789"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseIDs() = %v, want %v", got, want)
	}
	if got := parseIDs(""); len(got) != 0 {
		t.Errorf("parseIDs(\"\") = %v", got)
	}
}

func TestSubOptions(t *testing.T) {
	ic := slash("away", sub("set",
		opt("user", discordgo.ApplicationCommandOptionUser, "42"),
		opt("minutes", discordgo.ApplicationCommandOptionInteger, float64(15)),
	))

	name, opts := subOptions(ic)
	if name != "set" {
		t.Fatalf("sub = %q, want set", name)
	}
	if id, ok := optUser(opts, "user"); !ok || id != "42" {
		t.Errorf("optUser = %q, %v", id, ok)
	}
	if n, ok := optInt(opts, "minutes"); !ok || n != 15 {
		t.Errorf("optInt = %d, %v", n, ok)
	}
	if _, ok := optStr(opts, "minutes"); ok {
		t.Error("optStr should reject an integer option")
	}
	if _, ok := optBool(opts, "missing"); ok {
		t.Error("optBool should report a missing option")
	}
}

func TestSettingsPatchFromOptions(t *testing.T) {
	ic := slash("settings", sub("set",
		opt("grace_period", discordgo.ApplicationCommandOptionInteger, float64(3)),
		opt("fee_model", discordgo.ApplicationCommandOptionString, "flat"),
		opt("enforce_work_hours", discordgo.ApplicationCommandOptionBoolean, true),
		opt("channel", discordgo.ApplicationCommandOptionChannel, "c9"),
	))
	_, opts := subOptions(ic)
	p := settingsPatch(opts)

	if p.GracePeriodMinutes == nil || *p.GracePeriodMinutes != 3 {
		t.Errorf("grace = %v", p.GracePeriodMinutes)
	}
	if p.FeeModel == nil || *p.FeeModel != "flat" {
		t.Errorf("fee model = %v", p.FeeModel)
	}
	if p.EnforceWorkHours == nil || !*p.EnforceWorkHours {
		t.Errorf("enforce = %v", p.EnforceWorkHours)
	}
	if p.AnnouncementChannel == nil || *p.AnnouncementChannel != "c9" {
		t.Errorf("channel = %v", p.AnnouncementChannel)
	}
	if p.Timezone != nil || p.FeeRate != nil {
		t.Error("unset options should stay nil")
	}

	_, empty := subOptions(slash("settings", sub("set")))
	if !settingsPatch(empty).Empty() {
		t.Error("patch without options should be empty")
	}
}

func TestHasAdmin(t *testing.T) {
	tests := []struct {
		name   string
		perms  int64
		roles  []string
		admins []string
		want   bool
	}{
		{"administrator bit", discordgo.PermissionAdministrator, nil, nil, true},
		{"manage server", discordgo.PermissionManageGuild, nil, nil, true},
		{"bot role", discordgo.PermissionSendMessages, []string{"r1", "r2"}, []string{"r2"}, true},
		{"plain member", discordgo.PermissionSendMessages, []string{"r1"}, []string{"r2"}, false},
		{"no roles", 0, nil, nil, false},
	}
	for _, tt := range tests {
		if got := hasAdmin(tt.perms, tt.roles, tt.admins); got != tt.want {
			t.Errorf("%s: hasAdmin() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(time.Hour, 2)
	if !l.Allow("u1") || !l.Allow("u1") {
		t.Fatal("burst should allow two calls")
	}
	if l.Allow("u1") {
		t.Error("third call should be limited")
	}
	if !l.Allow("u2") {
		t.Error("other users have their own bucket")
	}
}

func TestDisplayName(t *testing.T) {
	u := &discordgo.User{ID: "1", Username: "ana_x", GlobalName: "Ana"}
	if got := displayName(&discordgo.Member{Nick: "Boss"}, u); got != "Boss" {
		t.Errorf("nick: %q", got)
	}
	if got := displayName(nil, u); got != "Ana" {
		t.Errorf("global name: %q", got)
	}
	if got := displayName(nil, &discordgo.User{Username: "ana_x"}); got != "ana_x" {
		t.Errorf("username: %q", got)
	}
}

func TestReportAttachment(t *testing.T) {
	short := "```\nsmall\n```"
	if asFile(short) {
		t.Error("short report should stay inline")
	}
	long := "```\n" + strings.Repeat("row\n", 600) + "```"
	if !asFile(long) {
		t.Fatal("long report should be attached")
	}
	f := reportFile(long)
	if f.Name != reportFileName || f.ContentType != "text/plain" {
		t.Errorf("file = %+v", f)
	}
}

func TestAnnounceChannel(t *testing.T) {
	if got := announceChannel("a1", "src"); got != "a1" {
		t.Errorf("configured: %q", got)
	}
	if got := announceChannel("", "src"); got != "src" {
		t.Errorf("fallback: %q", got)
	}
}
