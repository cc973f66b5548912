// Package routing implements the upward-only bidirectional Dijkstra query
// engine that answers point-to-point shortest-path queries against a
// contracted graph.Graph. It never mutates the graph: ch.Contract is the
// sole mutator, and every query here starts from fresh, empty per-query
// state, so concurrent queries against the same graph need no locking.
package routing

import (
	"fmt"
	"math"

	"github.com/dkonyndyk/chroute/pkg/graph"
	"github.com/dkonyndyk/chroute/pkg/heap"
)

// noNode is the sentinel "no meeting vertex found yet" value, distinct
// from any valid id because the caller's graph can never contain it
// (vertex ids are derived from 64-bit OSM node ids, which never reach the
// max uint64). Predecessor chains use plain map absence for "no
// predecessor" instead of storing this sentinel as a value, which is the
// more idiomatic Go equivalent of the same requirement.
const noNode = ^uint64(0)

// searchState is the fresh, per-query scratch space for one bidirectional
// search. Nothing here is retained across calls to ShortestPath.
type searchState struct {
	distFwd, distRev   map[uint64]float64
	prevFwd, prevRev   map[uint64]uint64
	visitFwd, visitRev map[uint64]bool
	heap               *heap.MinHeap
}

func newSearchState() *searchState {
	return &searchState{
		distFwd:  make(map[uint64]float64),
		distRev:  make(map[uint64]float64),
		prevFwd:  make(map[uint64]uint64),
		prevRev:  make(map[uint64]uint64),
		visitFwd: make(map[uint64]bool),
		visitRev: make(map[uint64]bool),
		heap:     heap.New(128),
	}
}

// ShortestPath answers a point-to-point query against g, which must
// already be fully contracted (ch.Contract). It returns the expanded
// sequence of OSM node ids along the route (original vertices, unpacked
// shortcuts, and spliced shape nodes) and the route's cost in g's primary
// weight units. A (nil, -1) result means no path exists; that is not an
// error. Passing standard=true runs a plain bidirectional Dijkstra with no
// upward filter and no shortcut unpacking — used to check the contracted
// search against ground truth in tests.
func ShortestPath(g *graph.Graph, source, target uint64, standard bool) ([]uint64, float64, error) {
	if _, ok := g.Vertex(source); !ok {
		return nil, 0, fmt.Errorf("%w: source %d", ErrUnknownVertex, source)
	}
	if _, ok := g.Vertex(target); !ok {
		return nil, 0, fmt.Errorf("%w: target %d", ErrUnknownVertex, target)
	}

	return search(g, map[uint64]float64{source: 0}, map[uint64]float64{target: 0}, standard)
}

// search runs the bidirectional query from possibly multiple weighted
// seeds in each direction, used directly by ShortestPath's single-seed
// case and by Engine.Route to seed both directions from a snapped point's
// two edge endpoints at their partial distances.
func search(g *graph.Graph, fwdSeeds, revSeeds map[uint64]float64, standard bool) ([]uint64, float64, error) {
	st := newSearchState()
	for id, d := range fwdSeeds {
		st.distFwd[id] = d
		st.heap.Push(heap.Element{ID: id, Value: d, Direction: heap.DirForward})
	}
	for id, d := range revSeeds {
		st.distRev[id] = d
		st.heap.Push(heap.Element{ID: id, Value: d, Direction: heap.DirBackward})
	}

	best := math.Inf(1)
	meet := noNode

	for !st.heap.Empty() {
		top, err := st.heap.Peek()
		if err != nil {
			break
		}
		u, d := top.ID, top.Direction

		relax(g, st, u, d, standard)

		if st.visitFwd[u] && st.visitRev[u] {
			if candidate := st.distFwd[u] + st.distRev[u]; candidate < best {
				if candidate < 0 {
					panic(fmt.Sprintf("routing: corrupt state: negative path distance %v", candidate))
				}
				meet = u
				best = candidate
				if st.heap.Empty() {
					break
				}
				if newTop, err := st.heap.Peek(); err == nil && best <= newTop.Value {
					break
				}
			}
		}
	}

	if meet == noNode {
		return nil, -1, nil
	}

	overlayPath := reconstructPath(meet, st.prevFwd, st.prevRev)
	vertexPath := overlayPath
	if !standard {
		vertexPath = unpackPath(g, overlayPath)
	}
	fullPath := expandGeography(g, vertexPath)

	return fullPath, best, nil
}

// relax pops u (already peeked by the caller) from the heap, settles it in
// the direction d's visited set, and relaxes every edge reachable from u in
// that direction. In CH mode (standard=false) only edges to strictly
// higher-order vertices are relaxed — the upward filter that makes the
// restricted bidirectional search exact on a contracted graph.
func relax(g *graph.Graph, st *searchState, u uint64, d heap.Direction, standard bool) {
	st.heap.Pop()

	vtx, ok := g.Vertex(u)
	if !ok {
		return
	}

	var dist map[uint64]float64
	var prev map[uint64]uint64
	var visited map[uint64]bool
	var edges map[uint64]float64

	if d == heap.DirForward {
		dist, prev, visited, edges = st.distFwd, st.prevFwd, st.visitFwd, vtx.OutEdges
	} else {
		dist, prev, visited, edges = st.distRev, st.prevRev, st.visitRev, vtx.InEdges
	}
	visited[u] = true

	for neighbor, weight := range edges {
		if visited[neighbor] {
			continue
		}
		if !standard {
			if nv, ok := g.Vertex(neighbor); ok && nv.Order < vtx.Order {
				continue
			}
		}
		candidate := dist[u] + weight
		if cur, seen := dist[neighbor]; !seen || candidate < cur {
			dist[neighbor] = candidate
			prev[neighbor] = u
			st.heap.Push(heap.Element{ID: neighbor, Value: candidate, Direction: d})
		}
	}
}

// reconstructPath walks prevFwd from meet back to the source (reversing
// it along the way) and prevRev from meet forward to the target,
// producing the overlay vertex sequence with meet appearing exactly once.
func reconstructPath(meet uint64, prevFwd, prevRev map[uint64]uint64) []uint64 {
	path := []uint64{meet}
	for cur, ok := prevFwd[meet]; ok; cur, ok = prevFwd[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	for cur, ok := prevRev[meet]; ok; cur, ok = prevRev[cur] {
		path = append(path, cur)
	}
	return path
}
