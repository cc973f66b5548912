package routing

import (
	"context"
	"testing"

	"github.com/dkonyndyk/chroute/pkg/ch"
	"github.com/dkonyndyk/chroute/pkg/graph"
)

func buildEngineTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	locations := map[uint64][2]float64{
		1: {1.3500, 103.8200},
		2: {1.3600, 103.8200},
		3: {1.3700, 103.8200},
	}
	g := graph.New(locations)
	mustAddEdge(t, g, 1, 2, 1000, true)
	mustAddEdge(t, g, 2, 3, 1000, true)
	return g
}

func TestEngineRouteEndToEnd(t *testing.T) {
	g := buildEngineTestGraph(t)
	ch.Contract(g, 0, 0)

	engine := NewEngine(g)
	result, err := engine.Route(context.Background(), LatLng{Lat: 1.3501, Lng: 103.8201}, LatLng{Lat: 1.3699, Lng: 103.8201})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if result.TotalDistanceMeters <= 0 {
		t.Errorf("TotalDistanceMeters = %v, want > 0", result.TotalDistanceMeters)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("Segments length = %d, want 1", len(result.Segments))
	}
	if len(result.Segments[0].Geometry) < 2 {
		t.Errorf("Geometry length = %d, want >= 2", len(result.Segments[0].Geometry))
	}
}

func TestEngineRoutePointTooFar(t *testing.T) {
	g := buildEngineTestGraph(t)
	ch.Contract(g, 0, 0)

	engine := NewEngine(g)
	_, err := engine.Route(context.Background(), LatLng{Lat: 10, Lng: 10}, LatLng{Lat: 1.3699, Lng: 103.8201})
	if err == nil {
		t.Fatal("expected ErrPointTooFar, got nil")
	}
}
