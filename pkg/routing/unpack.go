package routing

import "github.com/dkonyndyk/chroute/pkg/graph"

// shortcutPair is one (from, to) edge awaiting expansion.
type shortcutPair struct {
	from, to uint64
}

// unpackPath expands every shortcut edge along an overlay vertex path into
// the original vertices it stands for, using an explicit stack so deep
// hierarchies never recurse. path[0] is emitted as is; every following
// pair contributes its expansion, exclusive of the pair's first vertex.
func unpackPath(g *graph.Graph, path []uint64) []uint64 {
	if len(path) == 0 {
		return nil
	}
	out := []uint64{path[0]}
	for i := 0; i+1 < len(path); i++ {
		out = append(out, unpackEdge(g, path[i], path[i+1])...)
	}
	return out
}

// unpackEdge returns the sequence of original-graph vertices between a and
// b, exclusive of a, inclusive of b. If (a, b) is a recorded shortcut
// through m, it expands to unpack(a, m) followed by unpack(m, b); since
// the stack is LIFO, the left half must be pushed last so it pops first.
func unpackEdge(g *graph.Graph, a, b uint64) []uint64 {
	var out []uint64
	stack := []shortcutPair{{a, b}}

	for len(stack) > 0 {
		pair := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if through, ok := g.ShortcutThrough(pair.from, pair.to); ok {
			stack = append(stack, shortcutPair{through, pair.to})
			stack = append(stack, shortcutPair{pair.from, through})
			continue
		}
		out = append(out, pair.to)
	}
	return out
}

// expandGeography splices each original edge's intermediate OSM shape
// nodes between its endpoints, turning an unpacked vertex path into the
// full sequence of OSM node ids the route actually traverses.
func expandGeography(g *graph.Graph, path []uint64) []uint64 {
	if len(path) == 0 {
		return nil
	}
	out := []uint64{path[0]}
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		if e, ok := g.Edge(a, b); ok {
			out = append(out, e.Nodes...)
		}
		out = append(out, b)
	}
	return out
}
