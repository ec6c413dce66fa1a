package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jose-valero/away-tracker-bot/internal/domain"
)

type SessionRepo struct{ db *DB }

func NewSessionRepo(db *DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `guild_id, user_id, user_name, started_at, expected_minutes, reminded_at`

func (r *SessionRepo) GetActive(ctx context.Context, guildID, userID string) (domain.ActiveSession, error) {
	row := r.db.conn().queryRow(ctx, `
SELECT `+sessionColumns+`
  FROM away_sessions
 WHERE guild_id = ? AND user_id = ?
`, guildID, userID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ActiveSession{}, ErrNotFound
	}
	return s, err
}

// Start inserta la sesión; si ya hay una para (guild, user) no pisa nada y
// devuelve domain.ErrSessionActive.
func (r *SessionRepo) Start(ctx context.Context, s domain.ActiveSession) error {
	res, err := r.db.conn().exec(ctx, `
INSERT INTO away_sessions (guild_id, user_id, user_name, started_at, expected_minutes)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (guild_id, user_id) DO NOTHING
`, s.GuildID, s.UserID, s.UserName, s.StartedAt.UTC(), s.ExpectedMinutes)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionActive
	}
	return nil
}

// End borra la sesión sin contabilizar; informa si existía.
func (r *SessionRepo) End(ctx context.Context, guildID, userID string) (bool, error) {
	return endSession(ctx, r.db.conn(), guildID, userID)
}

func endSession(ctx context.Context, c sqlConn, guildID, userID string) (bool, error) {
	res, err := c.exec(ctx, `
DELETE FROM away_sessions
 WHERE guild_id = ? AND user_id = ?
`, guildID, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SessionRepo) ListActive(ctx context.Context, guildID string) ([]domain.ActiveSession, error) {
	return r.list(ctx, `
SELECT `+sessionColumns+`
  FROM away_sessions
 WHERE guild_id = ?
 ORDER BY started_at ASC
`, guildID)
}

// ListUnreminded: sesiones de todos los guilds que todavía no recibieron aviso.
func (r *SessionRepo) ListUnreminded(ctx context.Context) ([]domain.ActiveSession, error) {
	return r.list(ctx, `
SELECT `+sessionColumns+`
  FROM away_sessions
 WHERE reminded_at IS NULL
 ORDER BY started_at ASC
`)
}

func (r *SessionRepo) MarkReminded(ctx context.Context, guildID, userID string, at time.Time) error {
	_, err := r.db.conn().exec(ctx, `
UPDATE away_sessions
   SET reminded_at = ?
 WHERE guild_id = ? AND user_id = ?
`, at.UTC(), guildID, userID)
	return err
}

func (r *SessionRepo) list(ctx context.Context, query string, args ...any) ([]domain.ActiveSession, error) {
	rows, err := r.db.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActiveSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (domain.ActiveSession, error) {
	var s domain.ActiveSession
	err := row.Scan(&s.GuildID, &s.UserID, &s.UserName, &s.StartedAt, &s.ExpectedMinutes, &s.RemindedAt)
	if err != nil {
		return domain.ActiveSession{}, err
	}
	s.StartedAt = s.StartedAt.UTC()
	return s, nil
}
