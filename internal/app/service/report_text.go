package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

const nameWidth = 16

// Text renderiza el reporte como tablas en bloques de código.
func (r Report) Text() string {
	loc := r.Location()
	feeHdr := "Fees"
	if r.FeeModel != domain.FeeFlat {
		feeHdr = "Fees(%)"
	}

	var b strings.Builder
	if r.GuildWide {
		fmt.Fprintf(&b, "📊 **Away Time Report - %s**\n```\n", r.Date)
		fmt.Fprintf(&b, "%-*s | %16s | %16s | %s\n", nameWidth, "Name", "Total Away(Mins)", "Over Limit(Mins)", feeHdr)
		b.WriteString(strings.Repeat("-", nameWidth+1) + "|------------------|------------------|--------\n")
		for _, d := range r.Daily {
			fmt.Fprintf(&b, "%-*s | %16d | %16d | %s\n", nameWidth, clip(d.UserName, nameWidth), d.TotalMinutes, d.OverLimitMinutes, r.FeeModel.Format(d.Fee))
		}
		b.WriteString("```\n**Individual Away Sessions**\n```\n")
		fmt.Fprintf(&b, "%-*s | %-5s | %-5s | %8s | %8s | %s\n", nameWidth, "Name", "Start", "End", "Expected", "Actual", feeHdr)
		b.WriteString(strings.Repeat("-", nameWidth+1) + "|-------|-------|----------|----------|--------\n")
		for _, s := range r.Sessions {
			fmt.Fprintf(&b, "%-*s | %-5s | %-5s | %8d | %8d | %s\n", nameWidth, clip(s.UserName, nameWidth),
				s.StartedAt.In(loc).Format("15:04"), s.EndedAt.In(loc).Format("15:04"),
				s.ExpectedMinutes, s.ActualMinutes, r.FeeModel.Format(s.Fee))
		}
		b.WriteString("```")
		return b.String()
	}

	if r.User == nil {
		return fmt.Sprintf("ℹ️ No away records for %s.", r.Date)
	}
	u := r.User
	fmt.Fprintf(&b, "📊 **Your Away Time Report - %s**\n```\n", r.Date)
	fmt.Fprintf(&b, "Total minutes: %d\nOver limit minutes: %d\n", u.Daily.TotalMinutes, u.Daily.OverLimitMinutes)
	fmt.Fprintf(&b, "Daily fee: %s\nLate fees: %s\n```", r.FeeModel.Format(u.Daily.Fee), r.FeeModel.Format(u.LateFees))
	if len(u.Sessions) > 0 {
		b.WriteString("\n**Your Individual Away Sessions**\n```\n")
		fmt.Fprintf(&b, "%-5s | %-5s | %8s | %8s | %s\n", "Start", "End", "Expected", "Actual", feeHdr)
		b.WriteString("------|-------|----------|----------|--------\n")
		for _, s := range u.Sessions {
			fmt.Fprintf(&b, "%-5s | %-5s | %8d | %8d | %s\n",
				s.StartedAt.In(loc).Format("15:04"), s.EndedAt.In(loc).Format("15:04"),
				s.ExpectedMinutes, s.ActualMinutes, r.FeeModel.Format(s.Fee))
		}
		b.WriteString("```")
	}
	return b.String()
}

// Location cae a UTC si el timezone guardado no carga.
func (r Report) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
