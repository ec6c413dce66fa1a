package storage

import (
	"errors"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownField = errors.New("unknown settings field")
)

// SettingField es el nombre de columna de guild_settings editable vía Set.
type SettingField string

const (
	FieldCommandPrefix    SettingField = "command_prefix"
	FieldAnnouncementChan SettingField = "announcement_channel_id"
	FieldGracePeriod      SettingField = "grace_period_minutes"
	FieldFeeModel         SettingField = "fee_model"
	FieldFeeRate          SettingField = "fee_rate_per_minute"
	FieldMaxSingleAway    SettingField = "max_single_away_minutes"
	FieldMaxDailyAway     SettingField = "max_daily_away_minutes"
	FieldWorkStart        SettingField = "work_start"
	FieldWorkEnd          SettingField = "work_end"
	FieldEnforceWorkHours SettingField = "enforce_work_hours"
	FieldTimezone         SettingField = "timezone"
)

var settingFields = map[SettingField]bool{
	FieldCommandPrefix:    true,
	FieldAnnouncementChan: true,
	FieldGracePeriod:      true,
	FieldFeeModel:         true,
	FieldFeeRate:          true,
	FieldMaxSingleAway:    true,
	FieldMaxDailyAway:     true,
	FieldWorkStart:        true,
	FieldWorkEnd:          true,
	FieldEnforceWorkHours: true,
	FieldTimezone:         true,
}

// ApplyInput alimenta el upsert del ledger diario.
type ApplyInput struct {
	GuildID       string
	UserID        string
	UserName      string
	Day           string
	ActualMinutes int
	MaxDaily      int
	Rate          decimal.Decimal
}

// CloseInput: registro histórico ya calculado + política para el ledger.
type CloseInput struct {
	Record   domain.SessionRecord
	MaxDaily int
	Rate     decimal.Decimal
}
