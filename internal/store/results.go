package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Stoky555/ownership-graph/pkg/engine"
)

// Layer names a stored result table.
type Layer string

const (
	LayerDirect   Layer = "direct"
	LayerIndirect Layer = "indirect"
)

func (l Layer) valid() bool {
	return l == LayerDirect || l == LayerIndirect
}

// SaveResults replaces the stored totals of one layer for a calculation.
func (s *Store) SaveResults(ctx context.Context, id string, layer Layer, totals engine.Totals) error {
	if !layer.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLayer, layer)
	}
	if err := s.requireMigrated(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.requireCalculation(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(
		`DELETE FROM calculation_results WHERE calculation_id = ? AND layer = ?`), id, string(layer)); err != nil {
		return fmt.Errorf("clearing %s results of %s: %w", layer, id, err)
	}

	ins := s.dialect.Rebind(`INSERT INTO calculation_results
		(calculation_id, layer, source_key, object_id, percent) VALUES (?, ?, ?, ?, ?)`)
	for _, e := range totals.Entries() {
		if _, err := tx.ExecContext(ctx, ins, id, string(layer), e.SourceKey, e.ObjectID, e.Percent); err != nil {
			return fmt.Errorf("writing result %s: %w", e.ID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results of %s: %w", id, err)
	}
	s.log.Debug("results saved", "id", id, "layer", string(layer), "rows", totals.Len())
	return nil
}

// LoadResults returns the stored totals of one layer. A calculation without
// stored results yields an empty table.
func (s *Store) LoadResults(ctx context.Context, id string, layer Layer) (engine.Totals, error) {
	if !layer.valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLayer, layer)
	}
	if err := s.requireMigrated(ctx); err != nil {
		return nil, err
	}
	if err := s.requireCalculation(ctx, s.db, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT source_key, object_id, percent
		FROM calculation_results WHERE calculation_id = ? AND layer = ?`), id, string(layer))
	if err != nil {
		return nil, fmt.Errorf("reading %s results of %s: %w", layer, id, err)
	}
	defer func() { _ = rows.Close() }()

	totals := engine.Totals{}
	for rows.Next() {
		var e engine.Entry
		if err := rows.Scan(&e.SourceKey, &e.ObjectID, &e.Percent); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if totals[e.SourceKey] == nil {
			totals[e.SourceKey] = map[string]float64{}
		}
		totals[e.SourceKey][e.ObjectID] = e.Percent
	}
	return totals, rows.Err()
}

func (s *Store) requireCalculation(ctx context.Context, db Execer, id string) error {
	var one int
	err := db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT 1 FROM calculations WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("reading calculation %s: %w", id, err)
	}
	return nil
}
