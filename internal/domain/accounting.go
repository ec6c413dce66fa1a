package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClampMinutes acota lo pedido al máximo por sesión. maxSingle <= 0 = sin tope.
func ClampMinutes(requested, maxSingle int) (int, bool) {
	if maxSingle > 0 && requested > maxSingle {
		return maxSingle, true
	}
	return requested, false
}

// ElapsedMinutes trunca al minuto; nunca negativo.
func ElapsedMinutes(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

func LateMinutes(actual, expected, grace int) int {
	return max(0, actual-expected-grace)
}

func Fee(minutes int, rate decimal.Decimal) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(int64(minutes)))
}

type DailyTotals struct {
	TotalMinutes     int
	OverLimitMinutes int
	Fee              decimal.Decimal
}

// RecomputeDaily suma la sesión al total del día y re-deriva over-limit y fee
// desde el total nuevo (no es un delta incremental).
func RecomputeDaily(prevTotal, actual, maxDaily int, rate decimal.Decimal) DailyTotals {
	total := prevTotal + max(0, actual)
	over := 0
	if maxDaily > 0 {
		over = max(0, total-maxDaily)
	}
	return DailyTotals{TotalMinutes: total, OverLimitMinutes: over, Fee: Fee(over, rate)}
}

// AdviseBudget compara lo usado hoy contra el tope diario antes de iniciar.
func AdviseBudget(usedToday, maxDaily, minutes int) Advice {
	a := Advice{Kind: AdviceNone, UsedToday: usedToday, Remaining: maxDaily - usedToday}
	if maxDaily <= 0 {
		return a
	}
	switch {
	case a.Remaining <= 0:
		a.Kind = AdviceExhausted
	case a.Remaining < minutes:
		a.Kind = AdviceWillExceed
	}
	return a
}

func Classify(lateMinutes, overLimitMinutes int) Outcome {
	switch {
	case lateMinutes > 0 && overLimitMinutes > 0:
		return OutcomeLateAndOverBudget
	case lateMinutes > 0:
		return OutcomeLate
	case overLimitMinutes > 0:
		return OutcomeOverBudget
	}
	return OutcomeOnTime
}
