package routing

import (
	"fmt"

	"github.com/dkonyndyk/chroute/pkg/graph"
)

// ErrUnknownVertex wraps graph.ErrInvalidInput: the caller asked for a
// shortest path between a source or target id the graph has never seen.
var ErrUnknownVertex = fmt.Errorf("%w: unknown vertex", graph.ErrInvalidInput)

// ErrMissingLocation wraps graph.ErrInvalidInput: PathToCoordinates was
// asked to render a vertex that never got a (lat, lon) recorded.
var ErrMissingLocation = fmt.Errorf("%w: vertex has no recorded location", graph.ErrInvalidInput)
