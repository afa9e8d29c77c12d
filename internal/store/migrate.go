package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// SchemaVersion is bumped whenever schemaStatements changes shape.
const SchemaVersion = 1

const migrationsTable = "ownership_migrations"

// schemaStatements are portable between PostgreSQL and SQLite. Timestamps
// are RFC 3339 text so both drivers scan them into strings.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ownership_migrations (
		version INTEGER PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		meta TEXT NOT NULL,
		checksum TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS calculation_entities (
		calculation_id TEXT NOT NULL REFERENCES calculations (id),
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (calculation_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS calculation_objects (
		calculation_id TEXT NOT NULL REFERENCES calculations (id),
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (calculation_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS calculation_ownerships (
		calculation_id TEXT NOT NULL REFERENCES calculations (id),
		position INTEGER NOT NULL,
		id TEXT NOT NULL,
		owner_kind TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		object_id TEXT NOT NULL,
		percent DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (calculation_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS calculation_results (
		calculation_id TEXT NOT NULL REFERENCES calculations (id),
		layer TEXT NOT NULL,
		source_key TEXT NOT NULL,
		object_id TEXT NOT NULL,
		percent DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (calculation_id, layer, source_key, object_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calculation_ownerships_object
		ON calculation_ownerships (calculation_id, object_id)`,
}

// SchemaChecksum returns the SHA256 of the store DDL.
func SchemaChecksum() string {
	h := sha256.Sum256([]byte(strings.Join(schemaStatements, ";\n")))
	return hex.EncodeToString(h[:])
}

// MigrateOptions controls migration behavior.
type MigrateOptions struct {
	// DryRun writes the DDL to the writer without touching the database.
	DryRun io.Writer

	// Force re-applies the DDL even when the recorded checksum matches.
	Force bool
}

// MigrateResult reports what Migrate did.
type MigrateResult struct {
	Version  int
	Checksum string
	Skipped  bool
	DryRun   bool
}

// MigrationRecord is a row of the migrations table.
type MigrationRecord struct {
	Version   int
	Checksum  string
	AppliedAt string
}

// Migrate creates the store tables. It is idempotent: when the last recorded
// migration carries the current checksum it does nothing unless forced.
func (s *Store) Migrate(ctx context.Context, opts MigrateOptions) (MigrateResult, error) {
	res := MigrateResult{Version: SchemaVersion, Checksum: SchemaChecksum()}

	if opts.DryRun != nil {
		res.DryRun = true
		return res, writeDryRun(opts.DryRun, res.Checksum)
	}

	if !opts.Force {
		last, err := s.lastMigration(ctx, s.db)
		if err != nil {
			return res, err
		}
		if shouldSkipMigration(last, res.Checksum) {
			res.Skipped = true
			s.log.Debug("store schema unchanged, skipping migration", "version", SchemaVersion)
			return res, nil
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("starting migration transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return res, fmt.Errorf("applying store DDL: %w", err)
		}
	}
	if err := s.recordMigration(ctx, tx, res.Checksum); err != nil {
		return res, err
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing migration: %w", err)
	}

	s.log.Info("store schema migrated", "version", SchemaVersion, "driver", s.dialect.Driver)
	return res, nil
}

func shouldSkipMigration(last *MigrationRecord, checksum string) bool {
	return last != nil && last.Version == SchemaVersion && last.Checksum == checksum
}

// LastMigration returns the most recent migration record, or nil when the
// store has never been migrated.
func (s *Store) LastMigration(ctx context.Context) (*MigrationRecord, error) {
	return s.lastMigration(ctx, s.db)
}

func (s *Store) lastMigration(ctx context.Context, db Execer) (*MigrationRecord, error) {
	ok, err := tableExists(ctx, db, s.dialect, migrationsTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var rec MigrationRecord
	err = db.QueryRowContext(ctx,
		`SELECT version, checksum, applied_at FROM ownership_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&rec.Version, &rec.Checksum, &rec.AppliedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last migration: %w", err)
	}
	return &rec, nil
}

func (s *Store) recordMigration(ctx context.Context, db Execer, checksum string) error {
	_, err := db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO ownership_migrations (version, checksum, applied_at) VALUES (?, ?, ?)
		 ON CONFLICT (version) DO UPDATE SET checksum = excluded.checksum, applied_at = excluded.applied_at`),
		SchemaVersion, checksum, s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func writeDryRun(w io.Writer, checksum string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-- ownership store schema version %d\n", SchemaVersion)
	fmt.Fprintf(&b, "-- checksum %s\n\n", checksum)
	for _, stmt := range schemaStatements {
		b.WriteString(stmt)
		b.WriteString(";\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Store) requireMigrated(ctx context.Context) error {
	ok, err := tableExists(ctx, s.db, s.dialect, "calculations")
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMigrated
	}
	return nil
}
