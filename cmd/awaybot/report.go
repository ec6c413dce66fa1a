package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/infra/lock"
	"github.com/jose-valero/away-tracker-bot/internal/infra/storage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	reportGuild string
	reportDate  string
	reportUser  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the away report of a server for a day",
	Example: `  awaybot report --guild 1234567890 --date 2025-03-10
  awaybot report --guild 1234567890 --user 42`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportGuild, "guild", "", "Guild ID (default: DISCORD_GUILD_ID)")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Day as YYYY-MM-DD (default: today in the guild timezone)")
	reportCmd.Flags().StringVar(&reportUser, "user", "", "Only this user ID")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(false); err != nil {
		return err
	}
	guild := reportGuild
	if guild == "" {
		guild = cfg.DiscordGuild
	}
	if guild == "" {
		return fmt.Errorf("--guild is required when DISCORD_GUILD_ID is not set")
	}

	ctx := cmd.Context()
	db, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	away, err := reportService(db)
	if err != nil {
		return err
	}
	rep, err := away.Report(ctx, service.ReportQuery{GuildID: guild, Date: reportDate, UserID: reportUser, Admin: true})
	if err != nil {
		return err
	}
	printReport(os.Stdout, rep)
	return nil
}

// reportService arma un AwayService de sólo lectura sobre db.
func reportService(db *storage.DB) (*service.AwayService, error) {
	settings, err := service.NewSettingsService(storage.NewSettingsRepo(db, cfg.Defaults), cfg.SettingsCacheSize, log.Logger)
	if err != nil {
		return nil, err
	}
	return service.NewAwayService(settings, storage.NewSessionRepo(db), storage.NewLedgerRepo(db), lock.NewMemLocker(), log.Logger), nil
}

func printReport(out io.Writer, rep service.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)

	cyan.Fprintf(out, "Away report %s (%s, %s)\n\n", rep.Date, rep.Timezone, rep.FeeModel)

	daily := rep.Daily
	if rep.User != nil {
		daily = append(daily, rep.User.Daily)
	}
	fmt.Fprintf(out, "%-20s %8s %8s  %s\n", "USER", "TOTAL", "OVER", "FEE")
	for _, d := range daily {
		name := d.UserName
		if name == "" {
			name = d.UserID
		}
		line := fmt.Sprintf("%-20s %7dm %7dm  %s", name, d.TotalMinutes, d.OverLimitMinutes, rep.FeeModel.Format(d.Fee))
		if d.OverLimitMinutes > 0 {
			red.Fprintln(out, line)
		} else {
			fmt.Fprintln(out, line)
		}
	}

	sessions := rep.Sessions
	if rep.User != nil {
		sessions = rep.User.Sessions
	}
	if len(sessions) == 0 {
		return
	}
	fmt.Fprintln(out)
	cyan.Fprintln(out, "Sessions")
	fmt.Fprintf(out, "%-20s %-5s %-5s %8s %8s %6s  %s\n", "USER", "START", "END", "EXPECTED", "ACTUAL", "LATE", "FEE")
	loc := rep.Location()
	for _, s := range sessions {
		line := fmt.Sprintf("%-20s %-5s %-5s %7dm %7dm %5dm  %s", s.UserName,
			s.StartedAt.In(loc).Format("15:04"), s.EndedAt.In(loc).Format("15:04"),
			s.ExpectedMinutes, s.ActualMinutes, s.LateMinutes, rep.FeeModel.Format(s.Fee))
		if s.LateMinutes > 0 {
			red.Fprintln(out, line)
		} else {
			fmt.Fprintln(out, line)
		}
	}
}
