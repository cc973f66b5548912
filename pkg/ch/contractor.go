// Package ch implements Contraction Hierarchies preprocessing: ordering
// every vertex by importance, contracting them in that order, and
// recording the shortcuts each contraction needs to preserve shortest
// distances. The result is an annotated graph.Graph ready for the
// upward-only bidirectional search in pkg/routing.
package ch

import (
	"log"

	"github.com/dkonyndyk/chroute/pkg/graph"
	"github.com/dkonyndyk/chroute/pkg/heap"
)

// Default priority-term coefficients: edge difference dominates, but a
// vertex whose neighbors have mostly already been contracted is nudged
// later so contraction doesn't race ahead of the hierarchy it's building.
const (
	DefaultEdgeDifferenceWeight  = 170.0
	DefaultDeletedNeighborWeight = 190.0
)

// shortcutCandidate is a shortcut a contraction needs, not yet written
// to the graph.
type shortcutCandidate struct {
	from, to, through uint64
	weight            float64
}

// Contract performs Contraction Hierarchies preprocessing on g in place:
// every vertex is assigned a contraction order, shortcuts are added to
// preserve shortest-path distances, and finally every edge whose far
// endpoint has a lower order is dropped, leaving only the upward graph
// each bidirectional query needs. ce and cn are the edge-difference and
// deleted-neighbor coefficients of the priority term; pass 0, 0 to use
// the package defaults.
func Contract(g *graph.Graph, ce, cn float64) {
	if ce == 0 && cn == 0 {
		ce, cn = DefaultEdgeDifferenceWeight, DefaultDeletedNeighborWeight
	}

	n := g.NumVertices()
	if n == 0 {
		return
	}

	contracted := make(map[uint64]bool, n)
	ws := newWitnessState()

	ids := make([]uint64, 0, n)
	for id := range g.Vertices() {
		ids = append(ids, id)
	}

	pq := heap.New(n)
	for _, id := range ids {
		shortcuts, activeIn, activeOut := simulateContraction(g, id, contracted, ws)
		priority := priorityTerm(g, id, shortcuts, activeIn, activeOut, ce, cn)
		pq.Push(heap.Element{ID: id, Value: priority})
	}

	log.Printf("ch: starting contraction of %d vertices", n)

	var order uint64
	var totalShortcuts int
	logInterval := logIntervalFor(uint64(n))

	for !pq.Empty() {
		top, err := pq.Peek()
		if err != nil {
			break
		}

		shortcuts, activeIn, activeOut := simulateContraction(g, top.ID, contracted, ws)
		recomputed := priorityTerm(g, top.ID, shortcuts, activeIn, activeOut, ce, cn)
		if recomputed != top.Value {
			pq.ReplaceTop(heap.Element{ID: top.ID, Value: recomputed})
			continue
		}

		elem, _ := pq.Pop()
		vertex := elem.ID

		for _, sc := range shortcuts {
			g.AddShortcut(sc.from, sc.to, vertex, sc.weight)
		}
		totalShortcuts += len(shortcuts)

		g.AddOrdering(vertex, order)
		order++
		contracted[vertex] = true
		markNeighborsDeleted(g, vertex, contracted)

		remaining := uint64(n) - order
		if remaining%logInterval == 0 {
			log.Printf("ch: contracted %d/%d vertices, %d shortcuts so far", order, n, totalShortcuts)
		}
	}

	log.Printf("ch: contraction complete, %d shortcuts created", totalShortcuts)
	g.OptimizeEdges()
}

// priorityTerm computes Ce*edgeDifference + Cn*deletedNeighbors for a
// vertex given the shortcuts its contraction would introduce.
func priorityTerm(g *graph.Graph, id uint64, shortcuts []shortcutCandidate, activeIn, activeOut int, ce, cn float64) float64 {
	edgeDifference := float64(len(shortcuts) - (activeIn + activeOut))
	deleted := 0
	if v, ok := g.Vertex(id); ok {
		deleted = v.DeletedNeighbors
	}
	return ce*edgeDifference + cn*float64(deleted)
}

// markNeighborsDeleted increments DeletedNeighbors on every still-active
// neighbor of a vertex that was just contracted. A neighbor reachable
// via both an in-edge and an out-edge is only counted once.
func markNeighborsDeleted(g *graph.Graph, vertex uint64, contracted map[uint64]bool) {
	v, ok := g.Vertex(vertex)
	if !ok {
		return
	}
	seen := make(map[uint64]bool, len(v.OutEdges)+len(v.InEdges))
	mark := func(neighbor uint64) {
		if contracted[neighbor] || seen[neighbor] {
			return
		}
		seen[neighbor] = true
		if nv, ok := g.Vertex(neighbor); ok {
			nv.DeletedNeighbors++
		}
	}
	for neighbor := range v.OutEdges {
		mark(neighbor)
	}
	for neighbor := range v.InEdges {
		mark(neighbor)
	}
}

// simulateContraction computes the shortcuts that contracting vertex
// would require, without mutating the graph. It is used both to score
// a vertex's priority and, when the caller goes on to actually apply
// the returned shortcuts, to perform the contraction itself — the two
// modes share all of their work except whether AddShortcut is called.
func simulateContraction(g *graph.Graph, vertex uint64, contracted map[uint64]bool, ws *witnessState) (shortcuts []shortcutCandidate, activeIn, activeOut int) {
	v, ok := g.Vertex(vertex)
	if !ok {
		return nil, 0, 0
	}

	incoming := make(map[uint64]float64)
	for neighbor, w := range v.InEdges {
		if neighbor == vertex || contracted[neighbor] {
			continue
		}
		incoming[neighbor] = w
	}
	outgoing := make(map[uint64]float64)
	for neighbor, w := range v.OutEdges {
		if neighbor == vertex || contracted[neighbor] {
			continue
		}
		outgoing[neighbor] = w
	}
	activeIn, activeOut = len(incoming), len(outgoing)

	if activeIn == 0 || activeOut == 0 {
		return nil, activeIn, activeOut
	}

	for in, inWeight := range incoming {
		var maxOut float64
		targets := make(map[uint64]bool, len(outgoing))
		for out, outWeight := range outgoing {
			if out == in {
				continue
			}
			targets[out] = true
			if outWeight > maxOut {
				maxOut = outWeight
			}
		}
		if len(targets) == 0 {
			continue
		}

		maxWeight := inWeight + maxOut
		ws.search(g, in, vertex, contracted, maxWeight, targets)

		for out, outWeight := range outgoing {
			if out == in {
				continue
			}
			scWeight := inWeight + outWeight
			if witnessDist, found := ws.dist[out]; !found || witnessDist > scWeight {
				shortcuts = append(shortcuts, shortcutCandidate{from: in, to: out, through: vertex, weight: scWeight})
			}
		}
	}

	return shortcuts, activeIn, activeOut
}

// logIntervalFor picks a progress-log cadence that grows with graph
// size: graphs under 1000 vertices log every contraction, graphs under
// 100000 every 1000th, and larger ones every 50000th, so million-vertex
// imports don't go silent for minutes.
func logIntervalFor(n uint64) uint64 {
	switch {
	case n < 1000:
		return 1
	case n < 100000:
		return 1000
	default:
		return 50000
	}
}
