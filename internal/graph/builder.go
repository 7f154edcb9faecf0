package graph

import (
	"sort"
	"strings"

	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
)

type edgeKey struct {
	from, to string
}

// Builder implements core.RelationshipGraphBuilder
type Builder struct {
	legalWeight float64
	maxIter     int
	tolerance   float64
	logger      *zap.Logger
}

// NewBuilder creates a graph builder from the graph settings
func NewBuilder(cfg config.GraphConfig, logger *zap.Logger) *Builder {
	b := &Builder{
		legalWeight: cfg.LegalEdgeWeight,
		maxIter:     cfg.EigenvectorMaxIter,
		tolerance:   cfg.EigenvectorTolerance,
		logger:      logger,
	}
	if b.legalWeight <= 0 {
		b.legalWeight = 5
	}
	if b.maxIter <= 0 {
		b.maxIter = 1000
	}
	if b.tolerance <= 0 {
		b.tolerance = 1e-6
	}
	return b
}

// Build creates the correspondent graph and computes every node's power profile
func (b *Builder) Build(records []core.AnalyzedRecord, docs []core.LegalDocument) core.GraphResult {
	var nodes []string
	seen := map[string]struct{}{}
	addNode := func(addr string) string {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return ""
		}
		if _, ok := seen[addr]; !ok {
			seen[addr] = struct{}{}
			nodes = append(nodes, addr)
		}
		return addr
	}

	edges := map[edgeKey]*core.RelationshipEdge{}
	addEdge := func(from, to string, w float64, kind core.EdgeKind) {
		if from == "" || to == "" || from == to {
			return
		}
		k := edgeKey{from, to}
		e, ok := edges[k]
		if !ok {
			e = &core.RelationshipEdge{From: from, To: to, Kind: kind}
			edges[k] = e
		}
		e.Weight += w
		if kind == core.EdgeLegal {
			e.Kind = core.EdgeLegal
		}
	}

	for i := range records {
		rec := &records[i].Record
		from := addNode(rec.Sender.Address)
		for _, r := range rec.Recipients() {
			to := addNode(r)
			addEdge(from, to, 1, core.EdgeCommunication)
		}
	}
	for _, d := range docs {
		parties := make([]string, 0, len(d.Parties))
		for _, p := range d.Parties {
			if p = addNode(p); p != "" {
				parties = append(parties, p)
			}
		}
		for i := 0; i < len(parties); i++ {
			for j := i + 1; j < len(parties); j++ {
				addEdge(parties[i], parties[j], b.legalWeight, core.EdgeLegal)
			}
		}
	}

	edgeList := make([]core.RelationshipEdge, 0, len(edges))
	for _, e := range edges {
		edgeList = append(edgeList, *e)
	}
	sort.Slice(edgeList, func(i, j int) bool {
		if edgeList[i].From != edgeList[j].From {
			return edgeList[i].From < edgeList[j].From
		}
		return edgeList[i].To < edgeList[j].To
	})
	if nodes == nil {
		nodes = []string{}
	}

	profiles, warnings := b.profiles(nodes, edgeList)

	b.logger.Debug("Built relationship graph",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edgeList)),
		zap.Int("warnings", len(warnings)))

	return core.GraphResult{
		Nodes:    nodes,
		Edges:    edgeList,
		Profiles: profiles,
		Warnings: warnings,
	}
}
