package ch

import (
	"math"
	"math/rand"
	"testing"

	"github.com/dkonyndyk/chroute/pkg/graph"
)

// buildTestGraph creates a small bidirectional grid for testing:
//
//	10 ---100--- 20 ---200--- 30
//	|                         |
//	300                      400
//	|                         |
//	40 ---500--- 50 ---600--- 60
func buildTestGraph() *graph.Graph {
	g := graph.New(nil)
	edges := []struct {
		from, to uint64
		weight   float64
	}{
		{10, 20, 100},
		{20, 30, 200},
		{10, 40, 300},
		{30, 60, 400},
		{40, 50, 500},
		{50, 60, 600},
	}
	for _, e := range edges {
		if err := g.AddEdgeSimple(e.from, e.to, e.weight, true); err != nil {
			panic(err)
		}
	}
	return g
}

// plainDijkstra runs ordinary single-direction Dijkstra directly over
// the graph's adjacency maps, ignoring contraction order entirely. It
// is the ground truth contracted output is checked against.
func plainDijkstra(g *graph.Graph, source, target uint64) float64 {
	dist := map[uint64]float64{source: 0}
	visited := map[uint64]bool{}

	for {
		var cur uint64
		curDist := math.Inf(1)
		found := false
		for id, d := range dist {
			if !visited[id] && d < curDist {
				cur, curDist, found = id, d, true
			}
		}
		if !found {
			break
		}
		if cur == target {
			return curDist
		}
		visited[cur] = true

		v, ok := g.Vertex(cur)
		if !ok {
			continue
		}
		for neighbor, w := range v.OutEdges {
			nd := curDist + w
			if d, seen := dist[neighbor]; !seen || nd < d {
				dist[neighbor] = nd
			}
		}
	}
	if d, ok := dist[target]; ok {
		return d
	}
	return math.Inf(1)
}

// chDijkstra runs the upward-only bidirectional search directly: forward
// over OutEdges (already pruned to upward-only by OptimizeEdges) and
// backward over InEdges (pruned to the mirrored downward-only view),
// meeting in the middle.
func chDijkstra(g *graph.Graph, source, target uint64) float64 {
	distFwd := map[uint64]float64{source: 0}
	distBwd := map[uint64]float64{target: 0}
	visitedFwd := map[uint64]bool{}
	visitedBwd := map[uint64]bool{}

	best := math.Inf(1)

	popMin := func(dist map[uint64]float64, visited map[uint64]bool) (uint64, float64, bool) {
		var cur uint64
		curDist := math.Inf(1)
		found := false
		for id, d := range dist {
			if !visited[id] && d < curDist {
				cur, curDist, found = id, d, true
			}
		}
		return cur, curDist, found
	}

	for {
		fwdID, fwdDist, fwdOK := popMin(distFwd, visitedFwd)
		bwdID, bwdDist, bwdOK := popMin(distBwd, visitedBwd)

		if (!fwdOK || fwdDist >= best) && (!bwdOK || bwdDist >= best) {
			break
		}

		if fwdOK && fwdDist < best {
			visitedFwd[fwdID] = true
			if d, ok := distBwd[fwdID]; ok && fwdDist+d < best {
				best = fwdDist + d
			}
			if v, ok := g.Vertex(fwdID); ok {
				for neighbor, w := range v.OutEdges {
					nd := fwdDist + w
					if d, seen := distFwd[neighbor]; !seen || nd < d {
						distFwd[neighbor] = nd
					}
				}
			}
		}

		if bwdOK && bwdDist < best {
			visitedBwd[bwdID] = true
			if d, ok := distFwd[bwdID]; ok && bwdDist+d < best {
				best = bwdDist + d
			}
			if v, ok := g.Vertex(bwdID); ok {
				for neighbor, w := range v.InEdges {
					nd := bwdDist + w
					if d, seen := distBwd[neighbor]; !seen || nd < d {
						distBwd[neighbor] = nd
					}
				}
			}
		}
	}

	return best
}

func TestContractSmallGraph(t *testing.T) {
	g := buildTestGraph()
	if g.NumVertices() != 6 {
		t.Fatalf("test graph has %d vertices, want 6", g.NumVertices())
	}

	Contract(g, 0, 0)

	orderSeen := make(map[uint64]bool)
	for id, v := range g.Vertices() {
		if v.Order >= uint64(g.NumVertices()) {
			t.Errorf("vertex %d order %d out of range [0,%d)", id, v.Order, g.NumVertices())
		}
		orderSeen[v.Order] = true
	}
	if len(orderSeen) != g.NumVertices() {
		t.Errorf("orders are not a permutation: saw %d unique values, want %d", len(orderSeen), g.NumVertices())
	}

	// Upward property: every surviving out-edge points to a higher order.
	for id, v := range g.Vertices() {
		for neighbor := range v.OutEdges {
			if nv, ok := g.Vertex(neighbor); ok && nv.Order < v.Order {
				t.Errorf("downward edge %d->%d survived contraction", id, neighbor)
			}
		}
	}
}

func TestCHCorrectnessAllPairs(t *testing.T) {
	reference := buildTestGraph()
	contracted := buildTestGraph()
	Contract(contracted, 0, 0)

	ids := []uint64{10, 20, 30, 40, 50, 60}
	for _, s := range ids {
		for _, d := range ids {
			if s == d {
				continue
			}
			want := plainDijkstra(reference, s, d)
			got := chDijkstra(contracted, s, d)
			if math.Abs(want-got) > 1e-9 {
				t.Errorf("s=%d d=%d: CH=%v, Dijkstra=%v", s, d, got, want)
			}
		}
	}
}

func TestCHCorrectnessRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		const n = 25
		reference := graph.New(nil)
		contracted := graph.New(nil)

		for i := 0; i < 3*n; i++ {
			from := uint64(rng.Intn(n) + 1)
			to := uint64(rng.Intn(n) + 1)
			if from == to {
				continue
			}
			weight := float64(rng.Intn(1000) + 1)
			bidi := rng.Intn(2) == 0
			// Repeated pairs overwrite; both graphs see the same sequence
			// so they stay identical.
			_ = reference.AddEdgeSimple(from, to, weight, bidi)
			_ = contracted.AddEdgeSimple(from, to, weight, bidi)
		}

		Contract(contracted, 0, 0)

		var ids []uint64
		for id := range reference.Vertices() {
			ids = append(ids, id)
		}
		for _, s := range ids {
			for _, d := range ids {
				if s == d {
					continue
				}
				want := plainDijkstra(reference, s, d)
				got := chDijkstra(contracted, s, d)
				if math.Abs(want-got) > 1e-9 && !(math.IsInf(want, 1) && math.IsInf(got, 1)) {
					t.Fatalf("trial %d s=%d d=%d: CH=%v, Dijkstra=%v", trial, s, d, got, want)
				}
			}
		}
	}
}

func TestContractSingleVertex(t *testing.T) {
	g := graph.New(nil)
	g.AddOrdering(1, 0) // force the vertex to exist with no edges
	Contract(g, 0, 0)
	if g.NumVertices() != 1 {
		t.Fatalf("NumVertices = %d, want 1", g.NumVertices())
	}
}

func TestContractEmptyGraph(t *testing.T) {
	g := graph.New(nil)
	Contract(g, 0, 0) // must not panic on an empty graph
	if g.NumVertices() != 0 {
		t.Errorf("NumVertices = %d, want 0", g.NumVertices())
	}
}

func TestContractLinearChain(t *testing.T) {
	reference := graph.New(nil)
	contracted := graph.New(nil)
	edges := []struct {
		from, to uint64
		weight   float64
	}{
		{1, 2, 100},
		{2, 3, 200},
		{3, 4, 300},
		{4, 5, 400},
	}
	for _, e := range edges {
		_ = reference.AddEdgeSimple(e.from, e.to, e.weight, false)
		_ = contracted.AddEdgeSimple(e.from, e.to, e.weight, false)
	}

	Contract(contracted, 0, 0)

	want := plainDijkstra(reference, 1, 5)
	got := chDijkstra(contracted, 1, 5)
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("linear chain: CH=%v, Dijkstra=%v", got, want)
	}
	if want != 1000 {
		t.Fatalf("sanity check failed: plain dijkstra = %v, want 1000", want)
	}
}

func TestContractTriangleProducesNoUnnecessaryShortcut(t *testing.T) {
	// A triangle where the direct edge is already shortest: contracting
	// the middle vertex should find a witness path and skip the shortcut.
	g := graph.New(nil)
	_ = g.AddEdgeSimple(1, 2, 1, false)
	_ = g.AddEdgeSimple(2, 3, 1, false)
	_ = g.AddEdgeSimple(1, 3, 1, false) // direct edge already as cheap as 1->2->3

	Contract(g, 0, 0)

	if _, ok := g.ShortcutThrough(1, 3); ok {
		t.Error("shortcut 1->3 was added although the direct edge is a witness")
	}

	want := plainDijkstra(graphTriangleReference(), 1, 3)
	got := chDijkstra(g, 1, 3)
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("triangle: CH=%v, Dijkstra=%v", got, want)
	}
}

func graphTriangleReference() *graph.Graph {
	g := graph.New(nil)
	_ = g.AddEdgeSimple(1, 2, 1, false)
	_ = g.AddEdgeSimple(2, 3, 1, false)
	_ = g.AddEdgeSimple(1, 3, 1, false)
	return g
}
