package routing

import (
	"context"
	"errors"

	"github.com/dkonyndyk/chroute/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("routing: no route found")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment represents a road segment in the route result.
type Segment struct {
	DistanceMeters float64
	Geometry       []LatLng
}

// RouteResult is the output of a route query.
type RouteResult struct {
	TotalDistanceMeters float64
	Segments            []Segment
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Router against a contracted graph, snapping free-form
// coordinates onto the nearest road segment before querying.
type Engine struct {
	g       *graph.Graph
	snapper *Snapper
}

// NewEngine creates a routing engine from a fully contracted graph.
func NewEngine(g *graph.Graph) *Engine {
	return &Engine{g: g, snapper: NewSnapper(g)}
}

// Route computes the shortest path between two free-form coordinates,
// snapping each to its nearest road segment and seeding the bidirectional
// search from both of that segment's endpoints at their partial distance.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startSnap, err := e.snapper.Snap(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endSnap, err := e.snapper.Snap(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fwdSeeds := seedDistances(e.g, startSnap)
	revSeeds := seedDistances(e.g, endSnap)

	overlayPath, cost, err := search(e.g, fwdSeeds, revSeeds, false)
	if err != nil {
		return nil, err
	}
	if overlayPath == nil {
		return nil, ErrNoRoute
	}

	coords, err := PathToCoordinates(e.g, overlayPath)
	if err != nil {
		return nil, err
	}

	// The geometry starts and ends at the snapped points, which the
	// route's cost already includes through the seed distances.
	snapPoint := func(s SnapResult) LatLng {
		u, _ := e.g.Location(s.From)
		v, _ := e.g.Location(s.To)
		return LatLng{Lat: u[0] + s.Ratio*(v[0]-u[0]), Lng: u[1] + s.Ratio*(v[1]-u[1])}
	}
	geometry := make([]LatLng, 0, len(coords)+2)
	geometry = append(geometry, snapPoint(startSnap))
	for _, c := range coords {
		geometry = append(geometry, LatLng{Lat: c[0], Lng: c[1]})
	}
	geometry = append(geometry, snapPoint(endSnap))

	return &RouteResult{
		TotalDistanceMeters: cost,
		Segments: []Segment{
			{DistanceMeters: cost, Geometry: geometry},
		},
	}, nil
}

// seedDistances returns the snapped edge's two endpoints keyed by the
// partial edge weight from the snap point to each, scaled by the edge's
// distance weight since Snap reports ratio along the geographic segment.
func seedDistances(g *graph.Graph, snap SnapResult) map[uint64]float64 {
	edge, ok := g.Edge(snap.From, snap.To)
	weight := 0.0
	if ok {
		weight = edge.DistanceWeight
	}
	return map[uint64]float64{
		snap.From: weight * snap.Ratio,
		snap.To:   weight * (1 - snap.Ratio),
	}
}
