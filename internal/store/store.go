// Package store persists calculations and their computed results in a SQL
// database. PostgreSQL (through lib/pq or pgx) and SQLite (modernc, no cgo)
// share one portable schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Stoky555/ownership-graph/internal/logger"
)

// Store is a calculation repository backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the id assigned to calculations saved without one.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	if !d.IsPostgres() {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	return New(db, d, opts...), nil
}

// New wraps an already open database.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: d,
		log:     logger.Nop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Status summarizes the state of the store.
type Status struct {
	Driver        string           `json:"driver"`
	Migrated      bool             `json:"migrated"`
	UpToDate      bool             `json:"upToDate"`
	LastMigration *MigrationRecord `json:"lastMigration,omitempty"`
	Calculations  int              `json:"calculations"`
}

// Status reports the migration state and number of stored calculations.
func (s *Store) Status(ctx context.Context) (*Status, error) {
	st := &Status{Driver: s.dialect.Driver}

	last, err := s.lastMigration(ctx, s.db)
	if err != nil {
		return nil, err
	}
	st.LastMigration = last
	st.Migrated = last != nil
	st.UpToDate = shouldSkipMigration(last, SchemaChecksum())
	if !st.Migrated {
		return st, nil
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calculations`).Scan(&st.Calculations); err != nil {
		return nil, fmt.Errorf("counting calculations: %w", err)
	}
	return st, nil
}
