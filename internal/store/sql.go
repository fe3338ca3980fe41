package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // Pure-Go SQLite driver

	"github.com/soyeahso/wayfarer/internal/domain"
	"github.com/soyeahso/wayfarer/internal/logging"
	"github.com/soyeahso/wayfarer/internal/metrics"
)

// Dialect captures the differences between the supported SQL databases.
type Dialect struct {
	Name       string
	driver     string
	migrations []migration
	// bind returns the placeholder for the n-th (1-based) parameter.
	bind   func(n int) string
	upsert string
	read   string
}

var (
	SQLite = Dialect{
		Name:       "sqlite",
		driver:     "sqlite",
		migrations: sqliteMigrations,
		bind:       func(int) string { return "?" },
		upsert: `INSERT INTO itineraries (conversation_id, itinerary_json) VALUES (?, ?)
			ON CONFLICT (conversation_id) DO UPDATE SET itinerary_json = excluded.itinerary_json`,
		read: `SELECT itinerary_json FROM itineraries WHERE conversation_id = ?`,
	}
	Postgres = Dialect{
		Name:       "postgres",
		driver:     "pgx",
		migrations: postgresMigrations,
		bind:       func(n int) string { return fmt.Sprintf("$%d", n) },
		upsert: `insert into itineraries (conversation_id, itinerary_json) values ($1, $2::jsonb)
			on conflict (conversation_id) do update set itinerary_json = excluded.itinerary_json`,
		read: `select itinerary_json::text from itineraries where conversation_id = $1`,
	}
)

// SQLStore keeps itineraries in a relational table with a JSON column and
// a trigger-maintained updated_at.
type SQLStore struct {
	sql     *sql.DB
	dialect Dialect
	log     *logging.Logger
}

// OpenSQL opens the database and runs pending migrations. For SQLite, dsn
// is a file path or ":memory:".
func OpenSQL(ctx context.Context, d Dialect, dsn string, log *logging.Logger) (*SQLStore, error) {
	if d.Name == SQLite.Name && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", d.Name, err)
	}

	if d.Name == SQLite.Name {
		// One connection: ":memory:" databases are per-connection and
		// SQLite serializes writers anyway.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", d.Name, err)
	}

	s := &SQLStore{sql: db, dialect: d, log: log.Sub("store")}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	s.log.Info().Str("dialect", d.Name).Msg("database opened")
	return s, nil
}

// Backend implements ItineraryStore.
func (s *SQLStore) Backend() string { return s.dialect.Name }

// SQL returns the underlying *sql.DB for direct queries.
func (s *SQLStore) SQL() *sql.DB { return s.sql }

// Close closes the database connection.
func (s *SQLStore) Close() error {
	s.log.Info().Msg("closing database")
	return s.sql.Close()
}

// Read implements ItineraryStore.
func (s *SQLStore) Read(ctx context.Context, conversationID string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	var doc string
	err := s.sql.QueryRowContext(ctx, s.dialect.read, conversationID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NewNotFound(conversationID)
	}
	if err != nil {
		return "", fmt.Errorf("reading itinerary: %w", err)
	}
	return doc, nil
}

// Write implements ItineraryStore with a single upsert statement.
func (s *SQLStore) Write(ctx context.Context, conversationID, doc string) (string, error) {
	if err := checkID(conversationID); err != nil {
		return "", err
	}
	if err := validate(doc); err != nil {
		return "", err
	}
	if _, err := s.sql.ExecContext(ctx, s.dialect.upsert, conversationID, doc); err != nil {
		return "", fmt.Errorf("writing itinerary: %w", err)
	}
	metrics.ItineraryWrites.WithLabelValues(s.Backend()).Inc()
	s.log.Debug().Str("conversation", conversationID).Int("bytes", len(doc)).Msg("itinerary written")
	return doc, nil
}

// UpdatedAt returns the row's last-modified timestamp as the database
// renders it.
func (s *SQLStore) UpdatedAt(ctx context.Context, conversationID string) (string, error) {
	q := fmt.Sprintf("SELECT CAST(updated_at AS TEXT) FROM itineraries WHERE conversation_id = %s", s.dialect.bind(1))
	var ts string
	err := s.sql.QueryRowContext(ctx, q, conversationID).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.NewNotFound(conversationID)
	}
	return ts, err
}

// migrate runs all pending migrations.
func (s *SQLStore) migrate(ctx context.Context) error {
	if _, err := s.sql.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	for _, m := range s.dialect.migrations {
		applied, err := s.isMigrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		s.log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")

		tx, err := s.sql.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		insert := fmt.Sprintf("INSERT INTO schema_migrations (version) VALUES (%s)", s.dialect.bind(1))
		if _, err := tx.ExecContext(ctx, insert, m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *SQLStore) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM schema_migrations WHERE version = %s", s.dialect.bind(1))
	var count int
	if err := s.sql.QueryRowContext(ctx, q, version).Scan(&count); err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return count > 0, nil
}
