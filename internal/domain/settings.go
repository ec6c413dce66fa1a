package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FeeModel string

const (
	FeePercentage FeeModel = "percentage"
	FeeFlat       FeeModel = "flat"
)

func ParseFeeModel(s string) (FeeModel, error) {
	switch FeeModel(strings.ToLower(strings.TrimSpace(s))) {
	case FeePercentage:
		return FeePercentage, nil
	case FeeFlat:
		return FeeFlat, nil
	}
	return "", fmt.Errorf("%w: fee model must be %q or %q", ErrMalformedInput, FeePercentage, FeeFlat)
}

// Format presenta un monto de fee: fracción como porcentaje o moneda plana.
func (m FeeModel) Format(amount decimal.Decimal) string {
	if m == FeeFlat {
		return amount.StringFixed(2)
	}
	return amount.Mul(decimal.NewFromInt(100)).String() + "%"
}

// ClockTime es una hora del día "HH:MM".
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClock(s string) (ClockTime, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ClockTime{}, fmt.Errorf("%w: time %q must be HH:MM", ErrMalformedInput, s)
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 || len(m) != 2 {
		return ClockTime{}, fmt.Errorf("%w: time %q must be HH:MM", ErrMalformedInput, s)
	}
	return ClockTime{Hour: hh, Minute: mm}, nil
}

func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }

// Defaults son los valores con los que se provisiona un guild nuevo.
type Defaults struct {
	CommandPrefix        string
	GracePeriodMinutes   int
	FeeModel             FeeModel
	FeeRate              decimal.Decimal
	MaxSingleAwayMinutes int
	MaxDailyAwayMinutes  int
	WorkStart            ClockTime
	WorkEnd              ClockTime
	EnforceWorkHours     bool
	Timezone             string
}

func BuiltinDefaults() Defaults {
	return Defaults{
		CommandPrefix:        "!",
		GracePeriodMinutes:   1,
		FeeModel:             FeePercentage,
		FeeRate:              decimal.RequireFromString("0.0007"),
		MaxSingleAwayMinutes: 40,
		MaxDailyAwayMinutes:  90,
		WorkStart:            ClockTime{Hour: 9},
		WorkEnd:              ClockTime{Hour: 17},
		Timezone:             "UTC",
	}
}

type ServerSettings struct {
	GuildID               string
	CommandPrefix         string
	AnnouncementChannelID string
	GracePeriodMinutes    int
	FeeModel              FeeModel
	FeeRate               decimal.Decimal
	MaxSingleAwayMinutes  int
	MaxDailyAwayMinutes   int
	WorkStart             ClockTime
	WorkEnd               ClockTime
	EnforceWorkHours      bool
	Timezone              string
	CreatedAt, UpdatedAt  time.Time
}

func DefaultSettings(guildID string, d Defaults) ServerSettings {
	return ServerSettings{
		GuildID:              guildID,
		CommandPrefix:        d.CommandPrefix,
		GracePeriodMinutes:   d.GracePeriodMinutes,
		FeeModel:             d.FeeModel,
		FeeRate:              d.FeeRate,
		MaxSingleAwayMinutes: d.MaxSingleAwayMinutes,
		MaxDailyAwayMinutes:  d.MaxDailyAwayMinutes,
		WorkStart:            d.WorkStart,
		WorkEnd:              d.WorkEnd,
		EnforceWorkHours:     d.EnforceWorkHours,
		Timezone:             d.Timezone,
	}
}

// Location cae a UTC si el timezone guardado no carga.
func (s ServerSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayOf devuelve la fecha (YYYY-MM-DD) de t en el timezone del guild.
func (s ServerSettings) DayOf(t time.Time) string {
	return t.In(s.Location()).Format(DayLayout)
}

// InWorkHours: lunes a viernes dentro de [WorkStart, WorkEnd). Si la ventana
// cruza medianoche (start > end) se interpreta como turno nocturno.
func (s ServerSettings) InWorkHours(t time.Time) bool {
	local := t.In(s.Location())
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	now := local.Hour()*60 + local.Minute()
	start, end := s.WorkStart.minutes(), s.WorkEnd.minutes()
	if start == end {
		return true
	}
	if start < end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

const DayLayout = "2006-01-02"

// ParseDay valida una fecha YYYY-MM-DD.
func ParseDay(s string) (string, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrMalformedInput, s)
	}
	return t.Format(DayLayout), nil
}
