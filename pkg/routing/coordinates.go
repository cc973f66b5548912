package routing

import (
	"fmt"

	"github.com/dkonyndyk/chroute/pkg/graph"
)

// PathToCoordinates converts a node sequence returned by ShortestPath into
// (lat, lon) pairs via the graph's location table.
func PathToCoordinates(g *graph.Graph, path []uint64) ([][2]float64, error) {
	coords := make([][2]float64, 0, len(path))
	for _, id := range path {
		loc, ok := g.Location(id)
		if !ok {
			return nil, fmt.Errorf("%w: vertex %d", ErrMissingLocation, id)
		}
		coords = append(coords, loc)
	}
	return coords, nil
}
