package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

// DB envuelve *sql.DB con el dialecto para reescribir placeholders.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open abre la conexión según el esquema de la URL y verifica health.
// postgres:// | postgresql:// -> pgx stdlib; sqlite://path | file:path -> modernc.
func Open(ctx context.Context, url string) (*DB, error) {
	var (
		driver, dsn string
		dialect     Dialect
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		driver, dsn, dialect = "pgx", url, Postgres
	case strings.HasPrefix(url, "sqlite://"):
		driver, dsn, dialect = "sqlite", strings.TrimPrefix(url, "sqlite://"), SQLite
	case strings.HasPrefix(url, "file:"):
		driver, dsn, dialect = "sqlite", url, SQLite
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", url)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db := &DB{DB: sqlDB, Dialect: dialect}

	if dialect == SQLite {
		// un solo writer; las pragmas quedan en la única conexión
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		_, _ = sqlDB.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
		_, _ = sqlDB.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(1 * time.Hour)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Migrate aplica todas las migraciones embebidas.
func Migrate(db *DB, log zerolog.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log.With().Str("component", "migrate").Logger()})
	if err := goose.SetDialect(string(db.Dialect)); err != nil {
		return err
	}
	return goose.Up(db.DB, "migrations")
}

// MigrationVersion devuelve la versión aplicada.
func MigrationVersion(db *DB) (int64, error) {
	if err := goose.SetDialect(string(db.Dialect)); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db.DB)
}

type gooseLogger struct{ log zerolog.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	g.log.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.log.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlConn ejecuta sobre *sql.DB o *sql.Tx; las queries se escriben con `?`.
type sqlConn struct {
	q       querier
	dialect Dialect
}

func (db *DB) conn() sqlConn { return sqlConn{q: db.DB, dialect: db.Dialect} }

func (c sqlConn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.dialect.rebind(query), args...)
}

func (c sqlConn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.dialect.rebind(query), args...)
}

func (c sqlConn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.dialect.rebind(query), args...)
}

// inTx corre fn en una transacción; cualquier error hace rollback.
func (db *DB) inTx(ctx context.Context, fn func(c sqlConn) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(sqlConn{q: tx, dialect: db.Dialect}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// rebind pasa `?` a `$n` para postgres. Las queries no llevan `?` literales.
func (d Dialect) rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders arma "?, ?, ?" para cláusulas IN.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
