package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mikey/forensic-intel/internal/config"
	"github.com/mikey/forensic-intel/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func msg(from string, to ...string) core.AnalyzedRecord {
	return core.AnalyzedRecord{Record: core.EmailRecord{
		Sender:       core.Address{Address: from},
		RecipientsTo: to,
	}}
}

func defaultBuilder() *Builder {
	return NewBuilder(config.GraphConfig{EigenvectorMaxIter: 1000, EigenvectorTolerance: 1e-6, LegalEdgeWeight: 5}, zap.NewNop())
}

func TestBuild_EdgesAndNodeOrder(t *testing.T) {
	g := defaultBuilder().Build([]core.AnalyzedRecord{
		msg("b@x.com", "a@x.com"),
		msg("a@x.com", "b@x.com", "a@x.com"),
		msg("b@x.com", "a@x.com"),
	}, nil)

	assert.Equal(t, []string{"b@x.com", "a@x.com"}, g.Nodes)
	assert.Equal(t, []core.RelationshipEdge{
		{From: "a@x.com", To: "b@x.com", Weight: 1, Kind: core.EdgeCommunication},
		{From: "b@x.com", To: "a@x.com", Weight: 2, Kind: core.EdgeCommunication},
	}, g.Edges)
}

func TestBuild_LegalEdges(t *testing.T) {
	g := defaultBuilder().Build(
		[]core.AnalyzedRecord{msg("x@x.com", "y@x.com")},
		[]core.LegalDocument{{Type: "order", Parties: []string{"x@x.com", "y@x.com", "z@x.com"}}},
	)

	require.Len(t, g.Edges, 3)
	assert.Equal(t, core.RelationshipEdge{From: "x@x.com", To: "y@x.com", Weight: 6, Kind: core.EdgeLegal}, g.Edges[0])
	assert.Equal(t, core.RelationshipEdge{From: "x@x.com", To: "z@x.com", Weight: 5, Kind: core.EdgeLegal}, g.Edges[1])
	assert.Equal(t, core.RelationshipEdge{From: "y@x.com", To: "z@x.com", Weight: 5, Kind: core.EdgeLegal}, g.Edges[2])
}

func TestBuild_StarCentrality(t *testing.T) {
	g := defaultBuilder().Build([]core.AnalyzedRecord{
		msg("hub@x.com", "a@x.com", "b@x.com", "c@x.com"),
		msg("a@x.com", "hub@x.com"),
		msg("b@x.com", "hub@x.com"),
		msg("c@x.com", "hub@x.com"),
	}, nil)

	require.Empty(t, g.Warnings)
	hub := g.Profiles["hub@x.com"]
	leaf := g.Profiles["a@x.com"]

	assert.InDelta(t, 1.0, hub.Betweenness, 1e-9)
	assert.InDelta(t, 0.0, leaf.Betweenness, 1e-9)
	assert.InDelta(t, 1.0, hub.Closeness, 1e-9)
	assert.InDelta(t, 0.6, leaf.Closeness, 1e-9)
	assert.Greater(t, hub.Eigenvector, leaf.Eigenvector)
	assert.Greater(t, hub.OverallPowerScore, leaf.OverallPowerScore)
	assert.False(t, hub.Degenerate)

	for addr, p := range g.Profiles {
		for _, v := range []float64{p.Betweenness, p.Closeness, p.Eigenvector, p.OverallPowerScore} {
			assert.GreaterOrEqual(t, v, 0.0, addr)
			assert.LessOrEqual(t, v, 1.0, addr)
		}
	}
}

func TestBuild_TwoNodeGraph(t *testing.T) {
	g := defaultBuilder().Build([]core.AnalyzedRecord{
		msg("a@x.com", "b@x.com"),
		msg("b@x.com", "a@x.com"),
	}, nil)

	a := g.Profiles["a@x.com"]
	assert.Zero(t, a.Betweenness)
	assert.InDelta(t, 1.0, a.Closeness, 1e-9)
	assert.InDelta(t, 0.707107, a.Eigenvector, 1e-6)
	assert.Equal(t, a, g.Profiles["b@x.com"])
}

func TestBuild_DegenerateGraphs(t *testing.T) {
	cases := map[string][]core.AnalyzedRecord{
		"empty":        nil,
		"self loop":    {msg("a@x.com", "a@x.com")},
		"disconnected": {msg("a@x.com", "b@x.com"), msg("c@x.com", "d@x.com")},
	}
	for name, recs := range cases {
		t.Run(name, func(t *testing.T) {
			g := defaultBuilder().Build(recs, nil)
			assert.NotNil(t, g.Nodes)
			assert.Empty(t, g.Warnings)
			for _, p := range g.Profiles {
				assert.True(t, p.Degenerate)
				assert.Zero(t, p.OverallPowerScore)
			}
		})
	}
}

func TestBuild_EigenvectorNonConvergence(t *testing.T) {
	b := NewBuilder(config.GraphConfig{EigenvectorMaxIter: 1, EigenvectorTolerance: 1e-6}, zap.NewNop())
	g := b.Build([]core.AnalyzedRecord{
		msg("a@x.com", "b@x.com"),
		msg("b@x.com", "c@x.com"),
	}, nil)

	require.Len(t, g.Warnings, 1)
	assert.Equal(t, core.WarnConvergence, g.Warnings[0].Kind)
	for _, p := range g.Profiles {
		assert.True(t, p.Unconverged)
		assert.Zero(t, p.Eigenvector)
	}
	assert.Greater(t, g.Profiles["b@x.com"].Betweenness, 0.0)
}

func TestBuild_Deterministic(t *testing.T) {
	recs := []core.AnalyzedRecord{
		msg("hub@x.com", "a@x.com", "b@x.com"),
		msg("a@x.com", "b@x.com"),
		msg("b@x.com", "hub@x.com"),
	}
	b := defaultBuilder()
	if diff := cmp.Diff(b.Build(recs, nil), b.Build(recs, nil)); diff != "" {
		t.Errorf("graph build not deterministic (-first +second):\n%s", diff)
	}
}
