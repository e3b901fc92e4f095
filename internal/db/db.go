package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// sqlitePragmas run on every new SQLite connection, not only the first.
const sqlitePragmas = "_pragma=foreign_keys(1)"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		owner_id INTEGER NOT NULL REFERENCES users(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		owner_id BIGINT NOT NULL REFERENCES users(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id);`,
}

// ParseURL maps a DATABASE_URL onto a database/sql driver name and DSN.
// postgres:// and postgresql:// URLs go to pgx; sqlite:// URLs and bare
// paths go to SQLite with foreign keys enforced.
func ParseURL(databaseURL string) (driver, dsn string, err error) {
	switch {
	case databaseURL == "":
		return "", "", errors.New("empty database url")
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DriverPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn = strings.TrimPrefix(databaseURL, "sqlite://")
	case strings.Contains(databaseURL, "://"):
		return "", "", fmt.Errorf("unsupported database url scheme in %q", databaseURL)
	default:
		dsn = databaseURL
	}
	if dsn == "" || strings.HasPrefix(dsn, "?") {
		return "", "", fmt.Errorf("missing sqlite path in %q", databaseURL)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return DriverSQLite, dsn + sep + sqlitePragmas, nil
}

// Connect opens and pings the database described by databaseURL.
func Connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	driver, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection also keeps :memory: databases alive.
		pool.SetMaxOpenConns(1)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.InfoContext(ctx, "Connected to database", "db.driver", driver)
	return pool, nil
}

// InitializeDB creates the schema if it doesn't exist.
func InitializeDB(ctx context.Context, db *sqlx.DB) error {
	schema := postgresSchema
	if db.DriverName() == DriverSQLite {
		schema = sqliteSchema
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	slog.InfoContext(ctx, "DB connection initialized and schema verified.")
	return nil
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
