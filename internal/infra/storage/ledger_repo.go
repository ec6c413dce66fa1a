package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
	pq "github.com/lib/pq"
)

// LedgerRepo es dueño de away_daily y del log away_session_log.
type LedgerRepo struct {
	db  *DB
	now func() time.Time
}

func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db, now: time.Now} }

// TotalMinutes devuelve 0 si no hay fila para el día.
func (r *LedgerRepo) TotalMinutes(ctx context.Context, guildID, userID, day string) (int, error) {
	return totalMinutes(ctx, r.db.conn(), guildID, userID, day)
}

func totalMinutes(ctx context.Context, c sqlConn, guildID, userID, day string) (int, error) {
	var total int
	err := c.queryRow(ctx, `
SELECT total_minutes
  FROM away_daily
 WHERE guild_id = ? AND user_id = ? AND day = ?
`, guildID, userID, day).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return total, err
}

// ApplySession suma los minutos al día y re-deriva over-limit y fee.
func (r *LedgerRepo) ApplySession(ctx context.Context, in ApplyInput) (domain.DailyLedger, error) {
	var out domain.DailyLedger
	err := r.db.inTx(ctx, func(c sqlConn) error {
		var err error
		out, err = r.apply(ctx, c, in)
		return err
	})
	return out, err
}

func (r *LedgerRepo) apply(ctx context.Context, c sqlConn, in ApplyInput) (domain.DailyLedger, error) {
	prev, err := totalMinutes(ctx, c, in.GuildID, in.UserID, in.Day)
	if err != nil {
		return domain.DailyLedger{}, err
	}
	t := domain.RecomputeDaily(prev, in.ActualMinutes, in.MaxDaily, in.Rate)
	now := r.now().UTC()

	_, err = c.exec(ctx, `
INSERT INTO away_daily
  (guild_id, user_id, user_name, day, total_minutes, over_limit_minutes, fee_amount, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (guild_id, user_id, day) DO UPDATE SET
  user_name          = EXCLUDED.user_name,
  total_minutes      = EXCLUDED.total_minutes,
  over_limit_minutes = EXCLUDED.over_limit_minutes,
  fee_amount         = EXCLUDED.fee_amount,
  updated_at         = EXCLUDED.updated_at
`, in.GuildID, in.UserID, in.UserName, in.Day, t.TotalMinutes, t.OverLimitMinutes, t.Fee, now)
	if err != nil {
		return domain.DailyLedger{}, err
	}
	return domain.DailyLedger{
		GuildID:          in.GuildID,
		UserID:           in.UserID,
		UserName:         in.UserName,
		Day:              in.Day,
		TotalMinutes:     t.TotalMinutes,
		OverLimitMinutes: t.OverLimitMinutes,
		Fee:              t.Fee,
		UpdatedAt:        now,
	}, nil
}

// CloseSession registra la sesión, actualiza el día y borra la sesión activa
// en una sola transacción. Si algo falla la sesión activa queda intacta.
func (r *LedgerRepo) CloseSession(ctx context.Context, in CloseInput) (domain.DailyLedger, error) {
	rec := in.Record
	var out domain.DailyLedger
	err := r.db.inTx(ctx, func(c sqlConn) error {
		_, err := c.exec(ctx, `
INSERT INTO away_session_log
  (id, guild_id, user_id, user_name, day, started_at, ended_at,
   expected_minutes, actual_minutes, late_minutes, fee_amount)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.GuildID, rec.UserID, rec.UserName, rec.Day, rec.StartedAt.UTC(), rec.EndedAt.UTC(),
			rec.ExpectedMinutes, rec.ActualMinutes, rec.LateMinutes, rec.Fee)
		if err != nil {
			return err
		}

		out, err = r.apply(ctx, c, ApplyInput{
			GuildID:       rec.GuildID,
			UserID:        rec.UserID,
			UserName:      rec.UserName,
			Day:           rec.Day,
			ActualMinutes: rec.ActualMinutes,
			MaxDaily:      in.MaxDaily,
			Rate:          in.Rate,
		})
		if err != nil {
			return err
		}

		existed, err := endSession(ctx, c, rec.GuildID, rec.UserID)
		if err != nil {
			return err
		}
		if !existed {
			// alguien la limpió en el medio: no contabilizar
			return domain.ErrNoActiveSession
		}
		return nil
	})
	return out, err
}

const dailyColumns = `guild_id, user_id, user_name, day, total_minutes, over_limit_minutes, fee_amount, updated_at`

func (r *LedgerRepo) DailyForUser(ctx context.Context, guildID, userID, day string) (domain.DailyLedger, error) {
	row := r.db.conn().queryRow(ctx, `
SELECT `+dailyColumns+`
  FROM away_daily
 WHERE guild_id = ? AND user_id = ? AND day = ?
`, guildID, userID, day)
	d, err := scanDaily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyLedger{}, ErrNotFound
	}
	return d, err
}

// DailyForGuild ordena por total_minutes DESC.
func (r *LedgerRepo) DailyForGuild(ctx context.Context, guildID, day string) ([]domain.DailyLedger, error) {
	rows, err := r.db.conn().query(ctx, `
SELECT `+dailyColumns+`
  FROM away_daily
 WHERE guild_id = ? AND day = ?
 ORDER BY total_minutes DESC, user_id ASC
`, guildID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyLedger
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const recordColumns = `id, guild_id, user_id, user_name, day, started_at, ended_at,
       expected_minutes, actual_minutes, late_minutes, fee_amount`

func (r *LedgerRepo) SessionsForUser(ctx context.Context, guildID, userID, day string) ([]domain.SessionRecord, error) {
	return r.records(ctx, `
SELECT `+recordColumns+`
  FROM away_session_log
 WHERE guild_id = ? AND user_id = ? AND day = ?
 ORDER BY started_at ASC
`, guildID, userID, day)
}

func (r *LedgerRepo) SessionsForGuild(ctx context.Context, guildID, day string) ([]domain.SessionRecord, error) {
	return r.records(ctx, `
SELECT `+recordColumns+`
  FROM away_session_log
 WHERE guild_id = ? AND day = ?
 ORDER BY started_at ASC
`, guildID, day)
}

// SessionsForUsers filtra por un set de usuarios (postgres usa ANY con pq.Array).
func (r *LedgerRepo) SessionsForUsers(ctx context.Context, guildID, day string, userIDs []string) ([]domain.SessionRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if r.db.Dialect == Postgres {
		return r.records(ctx, `
SELECT `+recordColumns+`
  FROM away_session_log
 WHERE guild_id = ? AND day = ? AND user_id = ANY(?)
 ORDER BY started_at ASC
`, guildID, day, pq.Array(userIDs))
	}

	args := make([]any, 0, len(userIDs)+2)
	args = append(args, guildID, day)
	for _, id := range userIDs {
		args = append(args, id)
	}
	return r.records(ctx, `
SELECT `+recordColumns+`
  FROM away_session_log
 WHERE guild_id = ? AND day = ? AND user_id IN (`+placeholders(len(userIDs))+`)
 ORDER BY started_at ASC
`, args...)
}

// PurgeSessionsBefore borra el log histórico anterior a day. El ledger diario
// se conserva.
func (r *LedgerRepo) PurgeSessionsBefore(ctx context.Context, day string) (int64, error) {
	res, err := r.db.conn().exec(ctx, `
DELETE FROM away_session_log
 WHERE day < ?
`, day)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *LedgerRepo) records(ctx context.Context, query string, args ...any) ([]domain.SessionRecord, error) {
	rows, err := r.db.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		var s domain.SessionRecord
		if err := rows.Scan(&s.ID, &s.GuildID, &s.UserID, &s.UserName, &s.Day, &s.StartedAt, &s.EndedAt,
			&s.ExpectedMinutes, &s.ActualMinutes, &s.LateMinutes, &s.Fee); err != nil {
			return nil, err
		}
		s.StartedAt, s.EndedAt = s.StartedAt.UTC(), s.EndedAt.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanDaily(row rowScanner) (domain.DailyLedger, error) {
	var d domain.DailyLedger
	err := row.Scan(&d.GuildID, &d.UserID, &d.UserName, &d.Day, &d.TotalMinutes, &d.OverLimitMinutes, &d.Fee, &d.UpdatedAt)
	if err != nil {
		return domain.DailyLedger{}, err
	}
	d.UpdatedAt = d.UpdatedAt.UTC()
	return d, nil
}
