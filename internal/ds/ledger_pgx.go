package ds

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrate
)

//go:embed migrations
var migrationsFS embed.FS

// PgxLedger is the optional durable LockoutLedger backed by PostgreSQL
// (spec.md section 4.4.1 supplement). It records every auth attempt for
// operator audit; the live lockout decision always stays with the
// in-memory LockoutTracker.
type PgxLedger struct {
	pool *pgxpool.Pool
}

// NewPgxLedger connects to dsn, runs pending migrations, and returns a
// ready-to-use PgxLedger.
func NewPgxLedger(ctx context.Context, dsn string) (*PgxLedger, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("ds: run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("ds: connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ds: ping postgres: %w", err)
	}

	return &PgxLedger{pool: pool}, nil
}

func runMigrations(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("build postgres migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// RecordAttempt implements LockoutLedger.
func (l *PgxLedger) RecordAttempt(ctx context.Context, ip, username string, success bool) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO auth_attempts (ip, username, success) VALUES ($1, $2, $3)`,
		ip, username, success)
	if err != nil {
		return fmt.Errorf("ds: insert auth attempt: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (l *PgxLedger) Close() {
	l.pool.Close()
}
