package graph

import (
	"math"

	"github.com/mikey/forensic-intel/internal/core"
	"go.uber.org/zap"
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// digraph is the unweighted topology plus the in-edge weights used by the
// eigenvector iteration, indexed by node position.
type digraph struct {
	g   *simple.DirectedGraph
	n   int
	in  [][]int
	win [][]float64
}

func newDigraph(nodes []string, edges []core.RelationshipEdge) *digraph {
	idx := make(map[string]int, len(nodes))
	d := &digraph{
		g:   simple.NewDirectedGraph(),
		n:   len(nodes),
		in:  make([][]int, len(nodes)),
		win: make([][]float64, len(nodes)),
	}
	for i, n := range nodes {
		idx[n] = i
		d.g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		u, v := idx[e.From], idx[e.To]
		d.g.SetEdge(d.g.NewEdge(simple.Node(u), simple.Node(v)))
		d.in[v] = append(d.in[v], u)
		d.win[v] = append(d.win[v], e.Weight)
	}
	return d
}

func (d *digraph) weaklyConnected() bool {
	return len(topo.ConnectedComponents(gonum.Undirect{G: d.g})) == 1
}

func (b *Builder) profiles(nodes []string, edges []core.RelationshipEdge) (map[string]core.ActorPowerProfile, []core.Warning) {
	profiles := make(map[string]core.ActorPowerProfile, len(nodes))
	d := newDigraph(nodes, edges)

	if d.n < 2 || len(edges) == 0 || !d.weaklyConnected() {
		for _, n := range nodes {
			profiles[n] = core.ActorPowerProfile{Degenerate: true}
		}
		return profiles, nil
	}

	var warnings []core.Warning
	betweenness := d.betweenness()
	closeness := d.closeness()
	eigen, converged := d.eigenvector(b.maxIter, b.tolerance)
	if !converged {
		warnings = append(warnings, core.NewWarning(core.WarnConvergence, "",
			"eigenvector centrality did not converge in %d iterations", b.maxIter))
		b.logger.Warn("Eigenvector centrality did not converge", zap.Int("max_iter", b.maxIter))
	}

	for i, n := range nodes {
		p := core.ActorPowerProfile{
			Betweenness: round(betweenness[i]),
			Closeness:   round(closeness[i]),
			Eigenvector: round(eigen[i]),
			Unconverged: !converged,
		}
		p.OverallPowerScore = round((p.Betweenness + p.Closeness + p.Eigenvector) / 3)
		profiles[n] = p
	}
	return profiles, warnings
}

// betweenness is normalized by 1/((n-1)(n-2)) for directed graphs with n > 2
func (d *digraph) betweenness() []float64 {
	out := make([]float64, d.n)
	if d.n <= 2 {
		return out
	}
	scale := 1 / float64((d.n-1)*(d.n-2))
	for id, v := range network.Betweenness(d.g) {
		out[id] = v * scale
	}
	return out
}

// closeness uses inward distances with the Wasserman-Faust correction for
// nodes that are not reached by every other node
func (d *digraph) closeness() []float64 {
	out := make([]float64, d.n)
	if d.n < 2 {
		return out
	}
	paths := path.DijkstraAllPaths(d.g)
	for v := 0; v < d.n; v++ {
		var total float64
		reached := 0
		for u := 0; u < d.n; u++ {
			if u == v {
				continue
			}
			w := paths.Weight(int64(u), int64(v))
			if math.IsInf(w, 1) {
				continue
			}
			total += w
			reached++
		}
		if total > 0 {
			r := float64(reached)
			out[v] = (r / total) * (r / float64(d.n-1))
		}
	}
	return out
}

// eigenvector runs a power iteration over in-edges (x <- x + A^T x with L2
// normalization). It reports false and all zeros when it does not converge.
func (d *digraph) eigenvector(maxIter int, tol float64) ([]float64, bool) {
	x := make([]float64, d.n)
	for i := range x {
		x[i] = 1 / float64(d.n)
	}
	for iter := 0; iter < maxIter; iter++ {
		last := x
		x = make([]float64, d.n)
		copy(x, last)
		for v := 0; v < d.n; v++ {
			for k, u := range d.in[v] {
				x[v] += last[u] * d.win[v][k]
			}
		}
		var norm float64
		for _, xi := range x {
			norm += xi * xi
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			norm = 1
		}
		var delta float64
		for i := range x {
			x[i] /= norm
			delta += math.Abs(x[i] - last[i])
		}
		if delta < float64(d.n)*tol {
			return x, true
		}
	}
	return make([]float64, d.n), false
}

func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
