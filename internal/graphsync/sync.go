package graphsync

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Stoky555/ownership-graph/pkg/graphview"
)

const (
	constraintCypher = `CREATE CONSTRAINT ownership_node_unique IF NOT EXISTS
FOR (n:OwnershipNode) REQUIRE (n.calculation_id, n.id) IS UNIQUE`

	clearCypher = `MATCH (n:OwnershipNode {calculation_id: $calculation_id}) DETACH DELETE n`

	nodesCypher = `
UNWIND $rows AS r
MERGE (n:OwnershipNode {calculation_id: r.calculation_id, id: r.id})
SET n.kind = r.kind,
    n.label = r.label,
    n.synced_at = r.synced_at
FOREACH (_ IN CASE WHEN r.kind = 'entity' THEN [1] ELSE [] END | SET n:Entity)
FOREACH (_ IN CASE WHEN r.kind = 'object' THEN [1] ELSE [] END | SET n:Object)
`

	edgesCypher = `
UNWIND $rows AS r
MATCH (s:OwnershipNode {calculation_id: r.calculation_id, id: r.source})
MATCH (t:OwnershipNode {calculation_id: r.calculation_id, id: r.target})
MERGE (s)-[o:OWNS {id: r.id}]->(t)
SET o.kind = r.kind,
    o.percent = r.percent,
    o.label = r.label,
    o.synced_at = r.synced_at
`
)

// ErrNoCalculationID is returned when Sync is called without an id.
var ErrNoCalculationID = errors.New("graphsync: calculation id required")

// Result counts what a sync wrote.
type Result struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// NodeRows converts graph nodes into UNWIND parameter rows.
func NodeRows(calculationID string, g graphview.Graph, syncedAt time.Time) []map[string]any {
	ts := syncedAt.UTC().Format(time.RFC3339Nano)
	rows := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		rows = append(rows, map[string]any{
			"calculation_id": calculationID,
			"id":             n.ID,
			"kind":           string(n.Kind),
			"label":          n.Label,
			"synced_at":      ts,
		})
	}
	return rows
}

// EdgeRows converts graph edges into UNWIND parameter rows.
func EdgeRows(calculationID string, g graphview.Graph, syncedAt time.Time) []map[string]any {
	ts := syncedAt.UTC().Format(time.RFC3339Nano)
	rows := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		rows = append(rows, map[string]any{
			"calculation_id": calculationID,
			"id":             e.ID,
			"source":         e.Source,
			"target":         e.Target,
			"kind":           string(e.Kind),
			"label":          e.Label,
			"percent":        e.Percent,
			"synced_at":      ts,
		})
	}
	return rows
}

// Sync replaces the calculation's subgraph with g in one write transaction.
func (c *Client) Sync(ctx context.Context, calculationID string, g graphview.Graph) (Result, error) {
	if calculationID == "" {
		return Result{}, ErrNoCalculationID
	}
	now := time.Now()
	nodes := NodeRows(calculationID, g, now)
	edges := EdgeRows(calculationID, g, now)

	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer func() { _ = session.Close(ctx) }()

	// Best-effort schema init.
	if res, err := session.Run(ctx, constraintCypher, nil); err != nil {
		c.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := run(ctx, tx, clearCypher, map[string]any{"calculation_id": calculationID}); err != nil {
			return nil, err
		}
		if len(nodes) > 0 {
			if err := run(ctx, tx, nodesCypher, map[string]any{"rows": nodes}); err != nil {
				return nil, err
			}
		}
		if len(edges) > 0 {
			if err := run(ctx, tx, edgesCypher, map[string]any{"rows": edges}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return Result{}, err
	}

	c.log.Info("graph synced", "calculation", calculationID, "nodes", len(nodes), "edges", len(edges))
	return Result{Nodes: len(nodes), Edges: len(edges)}, nil
}

// Remove deletes the calculation's subgraph.
func (c *Client) Remove(ctx context.Context, calculationID string) error {
	if calculationID == "" {
		return ErrNoCalculationID
	}
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.Database,
	})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, run(ctx, tx, clearCypher, map[string]any{"calculation_id": calculationID})
	})
	return err
}

// Owners returns, for one target node, the ids of nodes with an OWNS edge of
// the given kind into it. Used to read a synced subgraph back.
func (c *Client) Owners(ctx context.Context, calculationID, targetID string, kind graphview.EdgeKind) ([]string, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.Database,
	})
	defer func() { _ = session.Close(ctx) }()

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:OwnershipNode)-[o:OWNS {kind: $kind}]->(t:OwnershipNode {calculation_id: $calculation_id, id: $target})
RETURN s.id AS id ORDER BY id`, map[string]any{
			"calculation_id": calculationID,
			"target":         targetID,
			"kind":           string(kind),
		})
		if err != nil {
			return nil, err
		}
		ids := []string{}
		for res.Next(ctx) {
			if id, ok := res.Record().Get("id"); ok {
				if s, ok := id.(string); ok {
					ids = append(ids, s)
				}
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, cypher string, params map[string]any) error {
	res, err := tx.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}
