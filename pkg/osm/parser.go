// Package osm parses OSM PBF extracts into the id-and-weight inputs
// graph.AddEdge expects: one directed RawEdge per consecutive pair of
// nodes along a car-accessible way, oriented by the way's oneway tags.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/dkonyndyk/chroute/pkg/graph"
	"github.com/dkonyndyk/chroute/pkg/weighting"
)

// RawEdge is a directed edge parsed from OSM data, not yet inserted into
// a graph.Graph.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Highway    string
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	forward = true
	backward = true

	hw := tags.Find("highway")

	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		forward = false
		backward = false
	}

	return forward, backward
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs  []osm.NodeID
	Forward  bool
	Backward bool
	Highway  string
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter edges to this bounding box
}

// Parse reads an OSM PBF file and returns directed edges for car routing.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		w, ok := obj.(*osm.Way)
		if !ok {
			continue
		}

		if !isCarAccessible(w.Tags) {
			continue
		}
		if len(w.Nodes) < 2 {
			continue
		}

		fwd, bwd := directionFlags(w.Tags)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
			Highway:  w.Tags.Find("highway"),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		obj := scanner.Object()
		n, ok := obj.(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("pass 2 complete: %d node coordinates collected", len(nodeLat))

	var edges []RawEdge
	var skippedEdges, bboxFiltered int

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID, toID := w.NodeIDs[i], w.NodeIDs[i+1]

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]

			if !fromOk || !toOk {
				skippedEdges++
				continue
			}
			if useBBox && (!opt.BBox.Contains(fromLat, fromLon) || !opt.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Highway: w.Highway})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Highway: w.Highway})
			}
		}
	}

	if skippedEdges > 0 {
		log.Printf("warning: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("built %d directed edges", len(edges))

	return &ParseResult{Edges: edges, NodeLat: nodeLat, NodeLon: nodeLon}, nil
}

// BuildGraph turns a ParseResult into a routable graph.Graph: every node
// with coordinates gets its (lat, lon) recorded, every endpoint of a
// RawEdge becomes a vertex (nodes touched by no RawEdge get a location
// but no vertex), and every RawEdge becomes a directed graph.AddEdge call weighted by
// weighting.DistanceMeters/TimeSeconds for the way's highway tag. Parallel
// directed edges discovered for the same (from, to) pair (a way split
// into forward and backward RawEdges that happen to share an endpoint
// order) are harmless: AddEdge overwrites rather than duplicating.
func BuildGraph(result *ParseResult) (*graph.Graph, error) {
	locations := make(map[uint64][2]float64, len(result.NodeLat))
	for id, lat := range result.NodeLat {
		locations[uint64(id)] = [2]float64{lat, result.NodeLon[id]}
	}

	g := graph.New(locations)

	for _, e := range result.Edges {
		fromLoc, fromOk := locations[uint64(e.FromNodeID)]
		toLoc, toOk := locations[uint64(e.ToNodeID)]
		if !fromOk || !toOk {
			return nil, fmt.Errorf("%w: edge %d->%d references a node with no recorded coordinates", graph.ErrInvalidInput, e.FromNodeID, e.ToNodeID)
		}
		speedLimit := weighting.SpeedLimitKPH(e.Highway)
		dist := weighting.DistanceMeters(fromLoc[0], fromLoc[1], toLoc[0], toLoc[1])
		timeSec := weighting.TimeSeconds(fromLoc[0], fromLoc[1], toLoc[0], toLoc[1], speedLimit)

		// Distance is the primary weight: the query engine and the HTTP
		// API both report route cost in meters, and snapped-edge seeds are
		// partial distances along the snapped segment.
		err := g.AddEdge(uint64(e.FromNodeID), uint64(e.ToNodeID), nil, timeSec, dist, false, false)
		if err != nil {
			return nil, fmt.Errorf("osm: building edge %d->%d: %w", e.FromNodeID, e.ToNodeID, err)
		}
	}

	return g, nil
}
