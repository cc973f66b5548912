package graph

// UnionFind implements a disjoint-set data structure over arbitrary
// uint64 element ids, with path halving and union by rank. Unlike the
// CSR-indexed variant this keys on a map rather than a dense slice,
// since vertex ids here are sparse OSM node ids, not compact indices.
type UnionFind struct {
	parent map[uint64]uint64
	rank   map[uint64]byte
	size   map[uint64]uint32
}

// NewUnionFind creates a UnionFind with ids as the starting singleton sets.
func NewUnionFind(ids []uint64) *UnionFind {
	uf := &UnionFind{
		parent: make(map[uint64]uint64, len(ids)),
		rank:   make(map[uint64]byte, len(ids)),
		size:   make(map[uint64]uint32, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
		uf.size[id] = 1
	}
	return uf
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint64) uint64 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already the same set.
func (uf *UnionFind) Union(x, y uint64) bool {
	rx := uf.Find(x)
	ry := uf.Find(y)
	if rx == ry {
		return false
	}

	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// LargestComponent returns the vertex ids belonging to the largest weakly
// connected component, treating every directed edge as undirected. Run
// before contraction: a hierarchy built over a disconnected road network
// wastes shortcuts bridging components that no query will ever cross.
func LargestComponent(g *Graph) []uint64 {
	if len(g.vertices) == 0 {
		return nil
	}

	ids := make([]uint64, 0, len(g.vertices))
	for id := range g.vertices {
		ids = append(ids, id)
	}
	uf := NewUnionFind(ids)

	for id, v := range g.vertices {
		for neighbor := range v.OutEdges {
			uf.Union(id, neighbor)
		}
	}

	bestRoot := ids[0]
	bestSize := uint32(0)
	for _, id := range ids {
		root := uf.Find(id)
		if uf.size[root] > bestSize {
			bestRoot = root
			bestSize = uf.size[root]
		}
	}

	component := make([]uint64, 0, bestSize)
	for _, id := range ids {
		if uf.Find(id) == bestRoot {
			component = append(component, id)
		}
	}
	return component
}

// FilterToComponent builds a new graph containing only the given vertex
// ids, along with the edges, shortcuts, and locations between them.
// Vertex order fields are not preserved — contraction runs fresh on the
// filtered graph.
func FilterToComponent(g *Graph, ids []uint64) *Graph {
	keep := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	locations := make(map[uint64][2]float64)
	for id := range keep {
		if loc, ok := g.locations[id]; ok {
			locations[id] = loc
		}
	}

	out := New(locations)
	for id := range keep {
		out.ensureVertex(id)
	}

	for start, edges := range g.edges {
		if !keep[start] {
			continue
		}
		for end, e := range edges {
			if !keep[end] {
				continue
			}
			out.addDirectedEdge(start, end, append([]uint64(nil), e.Nodes...), e.TimeWeight, e.DistanceWeight, g.vertices[start].OutEdges[end])
		}
	}

	for start, shortcuts := range g.shortcuts {
		if !keep[start] {
			continue
		}
		for end, through := range shortcuts {
			if !keep[end] || !keep[through] {
				continue
			}
			out.AddShortcut(start, end, through, g.vertices[start].OutEdges[end])
		}
	}

	return out
}
