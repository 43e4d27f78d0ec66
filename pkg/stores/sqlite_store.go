package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when no spilled state exists for an identity.
var ErrNotFound = errors.New("spilled state not found")

// SQLiteStore persists spilled states in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// PutState stores one serialized state, replacing any previous payload for
// the same identity.
func (s *SQLiteStore) PutState(ctx context.Context, id string, addr uint64, payload []byte) error {
	query := `
		INSERT INTO spilled_states (id, addr, payload, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET addr = excluded.addr, payload = excluded.payload
	`
	if _, err := s.db.ExecContext(ctx, query, id, int64(addr), payload, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store state %s: %w", id, err)
	}
	return nil
}

// GetState retrieves one serialized state by identity.
func (s *SQLiteStore) GetState(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM spilled_states WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state %s: %w", id, err)
	}
	return payload, nil
}

// DeleteState removes one serialized state after restoration.
func (s *SQLiteStore) DeleteState(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM spilled_states WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete state %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("state %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountStates returns the number of spilled states currently stored.
func (s *SQLiteStore) CountStates(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spilled_states").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count states: %w", err)
	}
	return n, nil
}
