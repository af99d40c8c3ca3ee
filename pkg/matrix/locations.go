package matrix

import "github.com/paulmach/orb"

// InvalidNode marks a location that could not be resolved to a node.
const InvalidNode int32 = -1

// Locations is one side of a matrix request after snapping. NodeIDs[i] is
// InvalidNode when location i could not be placed on the graph.
type Locations struct {
	NodeIDs []int32
	// Points holds the snapped coordinates; zero for invalid locations.
	Points []orb.Point
	// SnapDistances holds meters from the input coordinate to the snapped
	// point; zero for pre-snapped node ids.
	SnapDistances []float64
}

// NewLocations returns n locations, all invalid.
func NewLocations(n int) *Locations {
	l := &Locations{
		NodeIDs:       make([]int32, n),
		Points:        make([]orb.Point, n),
		SnapDistances: make([]float64, n),
	}
	for i := range l.NodeIDs {
		l.NodeIDs[i] = InvalidNode
	}
	return l
}

// LocationsFromNodes wraps already resolved node ids.
func LocationsFromNodes(nodes []int32) *Locations {
	l := NewLocations(len(nodes))
	copy(l.NodeIDs, nodes)
	return l
}

// Set resolves location i.
func (l *Locations) Set(i int, node int32, p orb.Point, snapDist float64) {
	l.NodeIDs[i] = node
	l.Points[i] = p
	l.SnapDistances[i] = snapDist
}

func (l *Locations) Len() int { return len(l.NodeIDs) }

// Valid reports whether location i resolved to a node.
func (l *Locations) Valid(i int) bool { return l.NodeIDs[i] >= 0 }

// HasValidNodes reports whether at least one location resolved.
func (l *Locations) HasValidNodes() bool {
	for _, n := range l.NodeIDs {
		if n >= 0 {
			return true
		}
	}
	return false
}
