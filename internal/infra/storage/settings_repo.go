package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

type SettingsRepo struct {
	db       *DB
	defaults domain.Defaults
	now      func() time.Time
}

func NewSettingsRepo(db *DB, defaults domain.Defaults) *SettingsRepo {
	return &SettingsRepo{db: db, defaults: defaults, now: time.Now}
}

const settingsColumns = `guild_id, command_prefix, announcement_channel_id, grace_period_minutes, fee_model,
       fee_rate_per_minute, max_single_away_minutes, max_daily_away_minutes, work_start, work_end,
       enforce_work_hours, timezone, created_at, updated_at`

// Get no escribe: sin fila devuelve los defaults materializados.
func (r *SettingsRepo) Get(ctx context.Context, guildID string) (domain.ServerSettings, error) {
	row := r.db.conn().queryRow(ctx, `
SELECT `+settingsColumns+`
  FROM guild_settings
 WHERE guild_id = ?
`, guildID)
	s, err := scanSettings(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(guildID, r.defaults), nil
	}
	return s, err
}

// Provision crea la fila con los defaults si no existe.
func (r *SettingsRepo) Provision(ctx context.Context, guildID string) error {
	return r.provision(ctx, r.db.conn(), guildID)
}

func (r *SettingsRepo) provision(ctx context.Context, c sqlConn, guildID string) error {
	d := domain.DefaultSettings(guildID, r.defaults)
	now := r.now().UTC()
	_, err := c.exec(ctx, `
INSERT INTO guild_settings
  (guild_id, command_prefix, announcement_channel_id, grace_period_minutes, fee_model,
   fee_rate_per_minute, max_single_away_minutes, max_daily_away_minutes, work_start, work_end,
   enforce_work_hours, timezone, created_at, updated_at)
VALUES
  (?, ?, '', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (guild_id) DO NOTHING
`, d.GuildID, d.CommandPrefix, d.GracePeriodMinutes, string(d.FeeModel), d.FeeRate,
		d.MaxSingleAwayMinutes, d.MaxDailyAwayMinutes, d.WorkStart.String(), d.WorkEnd.String(),
		d.EnforceWorkHours, d.Timezone, now, now)
	return err
}

// Set persiste un único campo (escritura atómica de una fila). Provisiona
// antes si hace falta. La validación es del llamador.
func (r *SettingsRepo) Set(ctx context.Context, guildID string, field SettingField, value any) error {
	if !settingFields[field] {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	switch v := value.(type) {
	case domain.ClockTime:
		value = v.String()
	case domain.FeeModel:
		value = string(v)
	}
	return r.db.inTx(ctx, func(c sqlConn) error {
		if err := r.provision(ctx, c, guildID); err != nil {
			return err
		}
		_, err := c.exec(ctx, `
UPDATE guild_settings
   SET `+string(field)+` = ?,
       updated_at = ?
 WHERE guild_id = ?
`, value, r.now().UTC(), guildID)
		return err
	})
}

// List devuelve todos los guilds provisionados.
func (r *SettingsRepo) List(ctx context.Context) ([]domain.ServerSettings, error) {
	rows, err := r.db.conn().query(ctx, `
SELECT `+settingsColumns+`
  FROM guild_settings
 ORDER BY guild_id
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ServerSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row rowScanner) (domain.ServerSettings, error) {
	var (
		s                  domain.ServerSettings
		feeModel           string
		workStart, workEnd string
	)
	err := row.Scan(
		&s.GuildID, &s.CommandPrefix, &s.AnnouncementChannelID, &s.GracePeriodMinutes, &feeModel,
		&s.FeeRate, &s.MaxSingleAwayMinutes, &s.MaxDailyAwayMinutes, &workStart, &workEnd,
		&s.EnforceWorkHours, &s.Timezone, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.ServerSettings{}, err
	}
	s.FeeModel = domain.FeeModel(feeModel)
	if s.WorkStart, err = domain.ParseClock(workStart); err != nil {
		return domain.ServerSettings{}, fmt.Errorf("guild %s work_start: %w", s.GuildID, err)
	}
	if s.WorkEnd, err = domain.ParseClock(workEnd); err != nil {
		return domain.ServerSettings{}, fmt.Errorf("guild %s work_end: %w", s.GuildID, err)
	}
	return s, nil
}
