package routing

import (
	"errors"
	"math"

	"github.com/tidwall/rtree"

	"github.com/dkonyndyk/chroute/pkg/geo"
	"github.com/dkonyndyk/chroute/pkg/graph"
)

const maxSnapDistMeters = 500.0

// ErrPointTooFar is returned when the query point is too far from any road.
var ErrPointTooFar = errors.New("routing: point too far from road")

// SnapResult represents a point snapped to a road segment.
type SnapResult struct {
	From, To uint64  // original-graph edge the point snapped onto
	Ratio    float64 // 0.0 = at From, 1.0 = at To
	Dist     float64 // distance in meters from query point to snapped point
}

type snapEdge struct {
	from, to uint64
}

// Snapper indexes a graph's edges in an R-tree keyed by each edge's
// bounding box, so nearest-road queries touch only candidates whose box
// overlaps the query point's neighborhood instead of scanning every edge.
type Snapper struct {
	tree rtree.RTreeG[snapEdge]
	g    *graph.Graph
}

// NewSnapper builds a spatial index over every original road segment in
// g's geographic edge table — not the adjacency maps, which after
// contraction hold shortcuts and have had their downward entries pruned.
// Edges are indexed by (lon, lat) point order to match rtree's
// [2]float64 (x, y) convention.
func NewSnapper(g *graph.Graph) *Snapper {
	s := &Snapper{g: g}

	for from, m := range g.Edges() {
		uLat, uLon := 0.0, 0.0
		if loc, ok := g.Location(from); ok {
			uLat, uLon = loc[0], loc[1]
		}
		for to := range m {
			vLat, vLon := 0.0, 0.0
			if loc, ok := g.Location(to); ok {
				vLat, vLon = loc[0], loc[1]
			}

			min := [2]float64{math.Min(uLon, vLon), math.Min(uLat, vLat)}
			max := [2]float64{math.Max(uLon, vLon), math.Max(uLat, vLat)}
			s.tree.Insert(min, max, snapEdge{from: from, to: to})
		}
	}

	return s
}

// snapSearchMargin widens the R-tree query box beyond maxSnapDistMeters so
// edges whose bounding box starts outside the margin but whose nearest
// point still falls within range are not missed; 0.01 degrees is ~1.1km
// of latitude, larger than the 500m snap cutoff. A 0.01-degree longitude
// span shrinks with cos(latitude) and falls below 500m above about 63°,
// so there the box can miss edges that are within the cutoff.
const snapSearchMargin = 0.01

// Snap finds the nearest road segment to the given lat/lon.
func (s *Snapper) Snap(lat, lon float64) (SnapResult, error) {
	min := [2]float64{lon - snapSearchMargin, lat - snapSearchMargin}
	max := [2]float64{lon + snapSearchMargin, lat + snapSearchMargin}

	bestDist := math.Inf(1)
	var best SnapResult
	found := false

	s.tree.Search(min, max, func(_, _ [2]float64, e snapEdge) bool {
		uLoc, _ := s.g.Location(e.from)
		vLoc, _ := s.g.Location(e.to)

		dist, ratio := geo.PointToSegmentDist(lat, lon, uLoc[0], uLoc[1], vLoc[0], vLoc[1])
		if dist < bestDist {
			bestDist = dist
			best = SnapResult{From: e.from, To: e.to, Ratio: ratio, Dist: dist}
			found = true
		}
		return true
	})

	if !found || bestDist > maxSnapDistMeters {
		return SnapResult{}, ErrPointTooFar
	}

	return best, nil
}
