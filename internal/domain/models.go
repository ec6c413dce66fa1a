package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActiveSession es la sesión away en curso; a lo sumo una por (guild, user).
type ActiveSession struct {
	GuildID         string     `json:"guild_id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name"`
	StartedAt       time.Time  `json:"started_at"`
	ExpectedMinutes int        `json:"expected_minutes"`
	RemindedAt      *time.Time `json:"reminded_at,omitempty"`
}

// DueAt es el momento a partir del cual la sesión empieza a contar como tarde.
func (a ActiveSession) DueAt(graceMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(a.ExpectedMinutes+graceMinutes) * time.Minute)
}

// SessionRecord es la fila inmutable del log histórico.
type SessionRecord struct {
	ID              string          `json:"id"`
	GuildID         string          `json:"guild_id"`
	UserID          string          `json:"user_id"`
	UserName        string          `json:"user_name"`
	Day             string          `json:"day"`
	StartedAt       time.Time       `json:"started_at"`
	EndedAt         time.Time       `json:"ended_at"`
	ExpectedMinutes int             `json:"expected_minutes"`
	ActualMinutes   int             `json:"actual_minutes"`
	LateMinutes     int             `json:"late_minutes"`
	Fee             decimal.Decimal `json:"fee"`
}

// DailyLedger agrega por (guild, user, day). OverLimitMinutes y Fee siempre
// se derivan de TotalMinutes.
type DailyLedger struct {
	GuildID          string          `json:"guild_id"`
	UserID           string          `json:"user_id"`
	UserName         string          `json:"user_name"`
	Day              string          `json:"day"`
	TotalMinutes     int             `json:"total_minutes"`
	OverLimitMinutes int             `json:"over_limit_minutes"`
	Fee              decimal.Decimal `json:"fee"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type Outcome string

const (
	OutcomeOnTime            Outcome = "on_time"
	OutcomeLate              Outcome = "late"
	OutcomeOverBudget        Outcome = "over_budget"
	OutcomeLateAndOverBudget Outcome = "late_and_over_budget"
)

type AdviceKind string

const (
	AdviceNone       AdviceKind = "none"
	AdviceExhausted  AdviceKind = "exhausted"
	AdviceWillExceed AdviceKind = "will_exceed"
)

// Advice es informativa: nunca bloquea el inicio de una sesión.
type Advice struct {
	Kind      AdviceKind `json:"kind"`
	UsedToday int        `json:"used_today"`
	Remaining int        `json:"remaining"`
}
