package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Stoky555/ownership-graph/pkg/model"
	"github.com/Stoky555/ownership-graph/pkg/snapshot"
)

// CalculationInfo is a stored calculation without its network.
type CalculationInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Checksum  string `json:"checksum"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SaveOptions controls SaveCalculation.
type SaveOptions struct {
	// Force rewrites the calculation even if its checksum is unchanged.
	Force bool
}

// SaveResult reports what SaveCalculation did.
type SaveResult struct {
	ID       string `json:"id"`
	Checksum string `json:"checksum"`
	Skipped  bool   `json:"skipped"`
}

// Checksum returns the SHA256 of the calculation's canonical JSON encoding.
func Checksum(calc snapshot.Calculation) (string, error) {
	data, err := snapshot.Marshal(calc)
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

// SaveCalculation stores calc under id, replacing any previous content. An
// empty id gets a generated one. When the stored checksum matches, the write
// is skipped unless opts.Force is set. Changing the content drops any stored
// results for the calculation.
func (s *Store) SaveCalculation(ctx context.Context, id string, calc snapshot.Calculation, opts SaveOptions) (SaveResult, error) {
	if err := s.requireMigrated(ctx); err != nil {
		return SaveResult{}, err
	}
	if id == "" {
		id = s.newID()
	}
	sum, err := Checksum(calc)
	if err != nil {
		return SaveResult{}, fmt.Errorf("encoding calculation: %w", err)
	}
	res := SaveResult{ID: id, Checksum: sum}

	meta := ""
	if calc.Meta != nil {
		b, err := json.Marshal(calc.Meta)
		if err != nil {
			return res, fmt.Errorf("encoding meta: %w", err)
		}
		meta = string(b)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing string
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT checksum FROM calculations WHERE id = ?`), id).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return res, fmt.Errorf("reading calculation %s: %w", id, err)
	case existing == sum && !opts.Force:
		res.Skipped = true
		s.log.Debug("calculation unchanged, skipping save", "id", id)
		return res, nil
	}

	now := s.now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO calculations (id, name, meta, checksum, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, meta = excluded.meta,
		   checksum = excluded.checksum, updated_at = excluded.updated_at`),
		id, calc.Name(), meta, sum, now, now,
	); err != nil {
		return res, fmt.Errorf("writing calculation %s: %w", id, err)
	}

	if err := s.deleteChildren(ctx, tx, id); err != nil {
		return res, err
	}
	if err := s.insertNetwork(ctx, tx, id, calc); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing calculation %s: %w", id, err)
	}
	s.log.Info("calculation saved", "id", id,
		"entities", len(calc.Entities), "objects", len(calc.Objects), "ownerships", len(calc.Ownerships))
	return res, nil
}

func (s *Store) insertNetwork(ctx context.Context, db Execer, id string, calc snapshot.Calculation) error {
	insEntity := s.dialect.Rebind(`INSERT INTO calculation_entities (calculation_id, position, id, name) VALUES (?, ?, ?, ?)`)
	for i, e := range calc.Entities {
		if _, err := db.ExecContext(ctx, insEntity, id, i, e.ID, e.Name); err != nil {
			return fmt.Errorf("writing entity %s: %w", e.ID, err)
		}
	}
	insObject := s.dialect.Rebind(`INSERT INTO calculation_objects (calculation_id, position, id, name) VALUES (?, ?, ?, ?)`)
	for i, o := range calc.Objects {
		if _, err := db.ExecContext(ctx, insObject, id, i, o.ID, o.Name); err != nil {
			return fmt.Errorf("writing object %s: %w", o.ID, err)
		}
	}
	insOwnership := s.dialect.Rebind(`INSERT INTO calculation_ownerships
		(calculation_id, position, id, owner_kind, owner_id, object_id, percent) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for i, o := range calc.Ownerships {
		if _, err := db.ExecContext(ctx, insOwnership, id, i, o.ID, string(o.Owner.Kind), o.Owner.ID, o.ObjectID, o.Percent); err != nil {
			return fmt.Errorf("writing ownership %s: %w", o.ID, err)
		}
	}
	return nil
}

// childTables are deleted before their parent row; SQLite does not enforce
// foreign keys unless asked to, so cascades are done by hand.
var childTables = []string{"calculation_results", "calculation_ownerships", "calculation_objects", "calculation_entities"}

func (s *Store) deleteChildren(ctx context.Context, db Execer, id string) error {
	for _, table := range childTables {
		if _, err := db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM `+table+` WHERE calculation_id = ?`), id); err != nil {
			return fmt.Errorf("clearing %s for %s: %w", table, id, err)
		}
	}
	return nil
}

// LoadCalculation reads a calculation back in its saved order.
func (s *Store) LoadCalculation(ctx context.Context, id string) (snapshot.Calculation, error) {
	if err := s.requireMigrated(ctx); err != nil {
		return snapshot.Calculation{}, err
	}

	var meta string
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT meta FROM calculations WHERE id = ?`), id).Scan(&meta)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Calculation{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return snapshot.Calculation{}, fmt.Errorf("reading calculation %s: %w", id, err)
	}

	calc := snapshot.Calculation{
		Version:    snapshot.FormatVersion,
		Entities:   []model.Entity{},
		Objects:    []model.OwnedObject{},
		Ownerships: []model.Ownership{},
	}
	if meta != "" {
		calc.Meta = &snapshot.Meta{}
		if err := json.Unmarshal([]byte(meta), calc.Meta); err != nil {
			return snapshot.Calculation{}, fmt.Errorf("decoding meta of %s: %w", id, err)
		}
	}

	if err := s.scanNodes(ctx, "calculation_entities", id, func(nodeID, name string) {
		calc.Entities = append(calc.Entities, model.Entity{ID: nodeID, Name: name})
	}); err != nil {
		return snapshot.Calculation{}, err
	}
	if err := s.scanNodes(ctx, "calculation_objects", id, func(nodeID, name string) {
		calc.Objects = append(calc.Objects, model.OwnedObject{ID: nodeID, Name: name})
	}); err != nil {
		return snapshot.Calculation{}, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT id, owner_kind, owner_id, object_id, percent
		FROM calculation_ownerships WHERE calculation_id = ? ORDER BY position`), id)
	if err != nil {
		return snapshot.Calculation{}, fmt.Errorf("reading ownerships of %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			o    model.Ownership
			kind string
		)
		if err := rows.Scan(&o.ID, &kind, &o.Owner.ID, &o.ObjectID, &o.Percent); err != nil {
			return snapshot.Calculation{}, fmt.Errorf("scanning ownership: %w", err)
		}
		o.Owner.Kind = model.Kind(kind)
		calc.Ownerships = append(calc.Ownerships, o)
	}
	if err := rows.Err(); err != nil {
		return snapshot.Calculation{}, fmt.Errorf("reading ownerships of %s: %w", id, err)
	}
	return calc, nil
}

func (s *Store) scanNodes(ctx context.Context, table, id string, fn func(id, name string)) error {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, name FROM `+table+` WHERE calculation_id = ? ORDER BY position`), id)
	if err != nil {
		return fmt.Errorf("reading %s of %s: %w", table, id, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var nodeID, name string
		if err := rows.Scan(&nodeID, &name); err != nil {
			return fmt.Errorf("scanning %s: %w", table, err)
		}
		fn(nodeID, name)
	}
	return rows.Err()
}

// ListCalculations returns all stored calculations, most recently updated first.
func (s *Store) ListCalculations(ctx context.Context) ([]CalculationInfo, error) {
	if err := s.requireMigrated(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, checksum, created_at, updated_at FROM calculations ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing calculations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []CalculationInfo{}
	for rows.Next() {
		var info CalculationInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Checksum, &info.CreatedAt, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning calculation: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteCalculation removes a calculation together with its network and results.
func (s *Store) DeleteCalculation(ctx context.Context, id string) error {
	if err := s.requireMigrated(ctx); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteChildren(ctx, tx, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM calculations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting calculation %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
