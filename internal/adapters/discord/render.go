package discord

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jose-valero/away-tracker-bot/internal/app/service"
	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

func mention(userID string) string { return "<@" + userID + ">" }

func awayAck(userID string, res service.AwayResult) string {
	back := res.Session.StartedAt.Add(timeMinutes(res.Session.ExpectedMinutes))
	return fmt.Sprintf("👋 %s is now marked as away for **%d** minutes. Expected back <t:%d:t>.",
		mention(userID), res.Session.ExpectedMinutes, back.Unix())
}

func clampNotice(userID string, res service.AwayResult) string {
	return fmt.Sprintf("⚠️ %s requested %d minutes but the maximum single away time is %d minutes. Recorded %d minutes.",
		mention(userID), res.Requested, res.Settings.MaxSingleAwayMinutes, res.Session.ExpectedMinutes)
}

func adviceNotice(userID string, res service.AwayResult) string {
	switch res.Advice.Kind {
	case domain.AdviceExhausted:
		return fmt.Sprintf("⚠️ %s has reached the daily away limit of %d minutes. Any more away time today counts as over the limit.",
			mention(userID), res.Settings.MaxDailyAwayMinutes)
	case domain.AdviceWillExceed:
		return fmt.Sprintf("⚠️ %s You only have %d minutes of away time remaining today. If you use all %d minutes, you'll exceed your daily limit and incur lateness penalties.",
			mention(userID), res.Advice.Remaining, res.Session.ExpectedMinutes)
	}
	return ""
}

// advisories devuelve los avisos no bloqueantes del away, en orden.
func advisories(userID string, res service.AwayResult) []string {
	var out []string
	if res.Clamped {
		out = append(out, clampNotice(userID, res))
	}
	if msg := adviceNotice(userID, res); msg != "" {
		out = append(out, msg)
	}
	return out
}

func returnOutcome(userID string, out service.ReturnResult) string {
	fm := out.Settings.FeeModel
	who := mention(userID)
	switch out.Outcome {
	case domain.OutcomeLate:
		return fmt.Sprintf("⏰ %s you returned after %d minutes (expected %d). Late by %d minutes beyond the grace period. Fee: **%s**.",
			who, out.Record.ActualMinutes, out.Record.ExpectedMinutes, out.LateMinutes, fm.Format(out.SessionFee))
	case domain.OutcomeOverBudget:
		return fmt.Sprintf("⚠️ %s returned on time, but has exceeded the daily away allowance by %d minutes. Daily fee: **%s**.",
			who, out.Daily.OverLimitMinutes, fm.Format(out.Daily.Fee))
	case domain.OutcomeLateAndOverBudget:
		return fmt.Sprintf("⏰ %s has returned after %d minutes (expected %d). Late by %d minutes and %d minutes over the daily limit. Total fee: **%s**.",
			who, out.Record.ActualMinutes, out.Record.ExpectedMinutes, out.LateMinutes, out.Daily.OverLimitMinutes, fm.Format(out.TotalFee()))
	}
	return fmt.Sprintf("✅ %s has returned after %d minutes. On time!", who, out.Record.ActualMinutes)
}

func statusText(userID string, v service.StatusView) string {
	if !v.Away {
		return fmt.Sprintf("ℹ️ %s You're currently not marked as away. You've used %d minutes of your %d minute daily allowance. Remaining: %d minutes.",
			mention(userID), v.UsedToday, v.DailyLimit, max(0, v.DailyRemaining))
	}
	return fmt.Sprintf("🕒 %s You've been away for %d minutes in this session. You stated you'd be away for %d minutes, so you have %d minutes remaining in this session.\n"+
		"Today's total: %d minutes used out of %d minute allowance. Daily remaining: %d minutes.",
		mention(userID), v.ElapsedMinutes, v.Session.ExpectedMinutes, max(0, v.RemainingMinutes),
		v.UsedToday, v.DailyLimit, max(0, v.DailyRemaining))
}

func activeList(sessions []domain.ActiveSession) string {
	if len(sessions) == 0 {
		return "ℹ️ Nobody is away right now."
	}
	var b strings.Builder
	b.WriteString("**Currently away**\n")
	for _, s := range sessions {
		fmt.Fprintf(&b, "• %s since <t:%d:t> for %d min\n", mention(s.UserID), s.StartedAt.Unix(), s.ExpectedMinutes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// errorNotice traduce errores de dominio a un mensaje para el usuario.
func errorNotice(userID string, set domain.ServerSettings, err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionActive):
		return fmt.Sprintf("⏳ %s is already away. Say `back` when you return.", mention(userID))
	case errors.Is(err, domain.ErrNoActiveSession):
		return fmt.Sprintf("❌ %s is not currently marked as away.", mention(userID))
	case errors.Is(err, domain.ErrOutsideWorkHours):
		return fmt.Sprintf("ℹ️ Away time is only tracked during work hours (%s–%s %s).", set.WorkStart, set.WorkEnd, set.Timezone)
	case errors.Is(err, domain.ErrNoRecords):
		return "ℹ️ No away time records found for that date."
	case errors.Is(err, domain.ErrMalformedInput):
		return "❌ " + strings.TrimPrefix(err.Error(), domain.ErrMalformedInput.Error()+": ")
	}
	return "❌ Something went wrong. Please try again in a moment."
}
