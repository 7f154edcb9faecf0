package graphstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

const (
	upsertActorsCypher = `
UNWIND $actors AS actor
MERGE (a:Actor {address: actor.address, caseId: $caseId})
SET a.role = actor.role,
    a.betweenness = actor.betweenness,
    a.closeness = actor.closeness,
    a.eigenvector = actor.eigenvector,
    a.powerScore = actor.powerScore`

	upsertEdgesCypher = `
UNWIND $edges AS edge
MATCH (f:Actor {address: edge.from, caseId: $caseId})
MATCH (t:Actor {address: edge.to, caseId: $caseId})
MERGE (f)-[r:CORRESPONDS {kind: edge.kind}]->(t)
SET r.weight = edge.weight`

	caseEdgesCypher = `
MATCH (f:Actor {caseId: $caseId})-[r:CORRESPONDS]->(t:Actor {caseId: $caseId})
RETURN f.address AS from, t.address AS to, r.weight AS weight, r.kind AS kind
ORDER BY from, to, kind`
)

// ErrMissingCaseID indicates an export without a case identifier
var ErrMissingCaseID = errors.New("case id is required")

// Exporter writes relationship graph snapshots through a Client
type Exporter struct {
	client Client
	roles  core.RoleClassifier
	logger *zap.Logger
}

// NewExporter creates an exporter; roles may be nil
func NewExporter(client Client, roles core.RoleClassifier, logger *zap.Logger) *Exporter {
	return &Exporter{client: client, roles: roles, logger: logger}
}

// Export implements core.GraphSink. Actors are merged before edges so every edge finds both ends.
func (e *Exporter) Export(ctx context.Context, caseID string, graph core.GraphResult) error {
	if caseID == "" {
		return ErrMissingCaseID
	}

	if _, err := e.client.ExecuteWrite(ctx, upsertActorsCypher, map[string]any{
		"caseId": caseID,
		"actors": e.actorParams(graph),
	}); err != nil {
		return fmt.Errorf("export actors for case %s: %w", caseID, err)
	}

	if len(graph.Edges) > 0 {
		if _, err := e.client.ExecuteWrite(ctx, upsertEdgesCypher, map[string]any{
			"caseId": caseID,
			"edges":  edgeParams(graph.Edges),
		}); err != nil {
			return fmt.Errorf("export edges for case %s: %w", caseID, err)
		}
	}

	e.logger.Debug("Exported relationship graph",
		zap.String("case_id", caseID),
		zap.Int("actors", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)))
	return nil
}

// Edges reads back the exported edges of one case
func (e *Exporter) Edges(ctx context.Context, caseID string) ([]core.RelationshipEdge, error) {
	if caseID == "" {
		return nil, ErrMissingCaseID
	}
	res, err := e.client.ExecuteRead(ctx, caseEdgesCypher, map[string]any{"caseId": caseID})
	if err != nil {
		return nil, fmt.Errorf("read edges for case %s: %w", caseID, err)
	}

	edges := make([]core.RelationshipEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, core.RelationshipEdge{
			From:   toString(rec["from"]),
			To:     toString(rec["to"]),
			Weight: toFloat64(rec["weight"]),
			Kind:   core.EdgeKind(toString(rec["kind"])),
		})
	}
	return edges, nil
}

// Close releases the underlying client
func (e *Exporter) Close(ctx context.Context) error {
	return e.client.Close(ctx)
}

func (e *Exporter) actorParams(graph core.GraphResult) []map[string]any {
	nodes := append([]string(nil), graph.Nodes...)
	sort.Strings(nodes)

	actors := make([]map[string]any, 0, len(nodes))
	for _, addr := range nodes {
		p := graph.Profiles[addr]
		role := "unknown"
		if e.roles != nil {
			role = e.roles.Role(addr, "")
		}
		actors = append(actors, map[string]any{
			"address":     addr,
			"role":        role,
			"betweenness": p.Betweenness,
			"closeness":   p.Closeness,
			"eigenvector": p.Eigenvector,
			"powerScore":  p.OverallPowerScore,
		})
	}
	return actors
}

func edgeParams(edges []core.RelationshipEdge) []map[string]any {
	out := make([]map[string]any, 0, len(edges))
	for _, edge := range edges {
		out = append(out, map[string]any{
			"from":   edge.From,
			"to":     edge.To,
			"weight": edge.Weight,
			"kind":   string(edge.Kind),
		})
	}
	return out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}
