package discord

import "github.com/bwmarrin/discordgo"

var adminOnly = int64(discordgo.PermissionManageGuild)

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "away",
		Description: "Away time tracking",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "Your current away status and daily allowance"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "report",
				Description: "Away time report for a day (admins see everyone)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "date", Description: "YYYY-MM-DD (default: today)"},
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Only this user (admins)"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "users", Description: "Mentions or IDs to include (admins)"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Mark a user as away (admins)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "minutes", Description: "Expected minutes away", Required: true, MinValue: ptrFloat(1)},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Clear a user's away status without recording it (admins)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User", Required: true},
				},
			},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "active", Description: "Who is away right now (admins)"},
		},
	},
	{
		Name:                     "settings",
		Description:              "View or change away settings (admins)",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Show current settings"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Update settings (only what you pass)",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "prefix", Description: "Prefix for text commands"},
					{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Announcement channel",
						ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "grace_period", Description: "Grace period in minutes"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "fee_model", Description: "How fees are shown",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "percentage", Value: "percentage"},
							{Name: "flat", Value: "flat"},
						}},
					{Type: discordgo.ApplicationCommandOptionString, Name: "fee_rate", Description: "Fee per late minute (e.g. 0.0007)"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "max_single_away", Description: "Max minutes per away"},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "max_daily_away", Description: "Daily away allowance in minutes"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "work_start", Description: "Work day start HH:MM"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "work_end", Description: "Work day end HH:MM"},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enforce_work_hours", Description: "Only track during work hours"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "timezone", Description: "IANA timezone, e.g. America/New_York"},
				},
			},
		},
	},
	{
		Name:                     "setup",
		Description:              "Set up the bot and bind the announcement channel (admins)",
		DefaultMemberPermissions: &adminOnly,
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Announcement channel (default: this one)",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText}},
		},
	},
}

func ptrFloat(v float64) *float64 { return &v }
