package ch

import (
	"github.com/dkonyndyk/chroute/pkg/graph"
	"github.com/dkonyndyk/chroute/pkg/heap"
)

// hopLimit bounds witness search by settled-vertex count rather than wall
// clock: a search that has already looked at this many vertices without
// satisfying its targets is assumed not to find a cheaper path.
const hopLimit = 1000

// witnessState is reusable Dijkstra scratch space for witness searches
// run during contraction. One instance is shared across every call to
// simulateContraction so a fresh map and heap never need allocating per
// incoming neighbor; touched records exactly which entries reset must
// clear.
type witnessState struct {
	dist    map[uint64]float64
	settled map[uint64]bool
	touched []uint64
	pq      *heap.MinHeap
}

func newWitnessState() *witnessState {
	return &witnessState{
		dist:    make(map[uint64]float64),
		settled: make(map[uint64]bool),
		pq:      heap.New(0),
	}
}

func (ws *witnessState) reset() {
	for _, id := range ws.touched {
		delete(ws.dist, id)
		delete(ws.settled, id)
	}
	ws.touched = ws.touched[:0]
	ws.pq.Clear()
}

// search runs a bounded Dijkstra from source, excluding exclude (the
// vertex currently being contracted) and every already-contracted vertex
// from the relaxed graph: a path through a contracted vertex is not a
// valid witness, since that vertex is gone from the remaining graph and
// only its shortcuts survive. It stops as soon as every id in targets
// has been settled, the frontier's minimum distance exceeds maxDistance,
// the hop limit is reached, or the queue empties — whichever comes
// first. Callers read ws.dist afterward.
func (ws *witnessState) search(g *graph.Graph, source, exclude uint64, contracted map[uint64]bool, maxDistance float64, targets map[uint64]bool) {
	ws.reset()

	ws.dist[source] = 0
	ws.touched = append(ws.touched, source)
	ws.pq.Push(heap.Element{ID: source, Value: 0})

	targetsSeen := 0
	settledCount := 0

	for !ws.pq.Empty() {
		if settledCount >= hopLimit {
			break
		}
		top, err := ws.pq.Peek()
		if err != nil {
			break
		}
		if top.Value > maxDistance {
			break
		}
		if targetsSeen >= len(targets) {
			break
		}

		elem, _ := ws.pq.Pop()
		if ws.settled[elem.ID] {
			continue
		}
		if elem.Value > ws.dist[elem.ID] {
			continue // stale entry from an earlier, worse push
		}
		ws.settled[elem.ID] = true
		settledCount++
		if targets[elem.ID] {
			targetsSeen++
		}

		v, ok := g.Vertex(elem.ID)
		if !ok {
			continue
		}
		for neighbor, w := range v.OutEdges {
			if neighbor == exclude || contracted[neighbor] {
				continue
			}
			nd := elem.Value + w
			if nd > maxDistance {
				continue
			}
			if cur, seen := ws.dist[neighbor]; !seen || nd < cur {
				if !seen {
					ws.touched = append(ws.touched, neighbor)
				}
				ws.dist[neighbor] = nd
				ws.pq.Push(heap.Element{ID: neighbor, Value: nd})
			}
		}
	}
}
