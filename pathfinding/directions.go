package pathfinding

import "math"

// Octant is one of the eight compass directions, counter-clockwise from east.
type Octant int

const (
	East Octant = iota
	NorthEast
	North
	NorthWest
	West
	SouthWest
	South
	SouthEast
)

var octantNames = [8]string{"E", "NE", "N", "NW", "W", "SW", "S", "SE"}

func (o Octant) String() string { return octantNames[floorMod(int(o), 8)] }

// neighbourOffsets maps each octant to its cell offset. Order matters:
// NextPos breaks ties by it.
var neighbourOffsets = [8]Cell{
	{X: 1, Y: 0},
	{X: 1, Y: 1},
	{X: 0, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: 0},
	{X: -1, Y: -1},
	{X: 0, Y: -1},
	{X: 1, Y: -1},
}

// Offset returns the cell offset for an octant.
func (o Octant) Offset() Cell { return neighbourOffsets[floorMod(int(o), 8)] }

// Diagonal reports whether the octant is a diagonal move.
func (o Octant) Diagonal() bool { return floorMod(int(o), 2) == 1 }

// MoveCost returns the grid cost of one step in this direction.
func (o Octant) MoveCost() float64 {
	if o.Diagonal() {
		return math.Sqrt2
	}
	return 1
}

// OctantOf discretizes a bearing in degrees into its octant.
func OctantOf(degrees float64) Octant {
	return Octant(floorMod(int(math.Floor((degrees+22.5)/45)), 8))
}

// Bearing returns the angle in degrees of the vector from `from` to `to`.
func Bearing(from, to Cell) float64 {
	return math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X)) * 180 / math.Pi
}

// ThreeNeighbours returns the bearing's octant and its two neighbours,
// or the opposite-facing three when reverse is set.
func ThreeNeighbours(degrees float64, reverse bool) [3]Octant {
	d := int(OctantOf(degrees))
	if reverse {
		return [3]Octant{octant(d + 4), octant(d + 3), octant(d + 5)}
	}
	return [3]Octant{octant(d), octant(d - 1), octant(d + 1)}
}

// FiveNeighbours widens ThreeNeighbours by one octant on each side.
func FiveNeighbours(degrees float64, reverse bool) [5]Octant {
	d := int(OctantOf(degrees))
	if reverse {
		return [5]Octant{octant(d + 4), octant(d + 3), octant(d + 5), octant(d + 2), octant(d + 6)}
	}
	return [5]Octant{octant(d), octant(d - 1), octant(d + 1), octant(d + 2), octant(d - 2)}
}

func octant(i int) Octant { return Octant(floorMod(i, 8)) }

// floorMod is a modulo whose result has the sign of m.
func floorMod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
