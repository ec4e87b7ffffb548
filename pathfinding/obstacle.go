package pathfinding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/geom"
)

// InflationMode selects how an obstacle is grown by the robot radius.
type InflationMode uint8

const (
	// InflateBuffer offsets the shape outward by the robot radius (Minkowski buffer).
	InflateBuffer InflationMode = iota
	// InflateScale stretches the shape about its centre so each side of the
	// bounding box moves out by the robot radius.
	InflateScale
)

// ParseInflationMode maps a config string to an InflationMode.
func ParseInflationMode(s string) (InflationMode, error) {
	switch s {
	case "", "buffer":
		return InflateBuffer, nil
	case "scale":
		return InflateScale, nil
	}
	return InflateBuffer, fmt.Errorf("unknown inflation mode %q", s)
}

func (m InflationMode) String() string {
	if m == InflateScale {
		return "scale"
	}
	return "buffer"
}

// Obstacle is a shape plus its projection: the region the robot's centre
// must stay out of so the robot footprint never touches the shape.
type Obstacle struct {
	Shape     geom.Shape
	Projected geom.Shape

	bounds r2.Box
}

// NewObstacle projects shape by robotRadius. Shapes with a zero or
// non-finite extent are rejected with ErrDegenerateGeometry.
func NewObstacle(shape geom.Shape, robotRadius float64, mode InflationMode) (*Obstacle, error) {
	if shape == nil {
		return nil, fmt.Errorf("nil shape: %w", ErrDegenerateGeometry)
	}
	if robotRadius < 0 || math.IsNaN(robotRadius) || math.IsInf(robotRadius, 0) {
		return nil, fmt.Errorf("robot radius %v: %w", robotRadius, ErrDegenerateGeometry)
	}

	raw := shape.Bounds()
	size := geom.BoxSize(raw)
	if !finite(raw.Min) || !finite(raw.Max) || size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("shape extent %.3gx%.3g: %w", size.X, size.Y, ErrDegenerateGeometry)
	}

	var projected geom.Shape
	switch mode {
	case InflateScale:
		sx := 1 + robotRadius*2/size.X
		sy := 1 + robotRadius*2/size.Y
		projected = geom.ScaleAbout(shape, geom.BoxCenter(raw), sx, sy)
	default:
		projected = geom.Buffer(shape, robotRadius)
	}

	return &Obstacle{
		Shape:     shape,
		Projected: projected,
		bounds:    projected.Bounds(),
	}, nil
}

// MustObstacle is like NewObstacle but panics on error. Intended for fixtures.
func MustObstacle(shape geom.Shape, robotRadius float64, mode InflationMode) *Obstacle {
	o, err := NewObstacle(shape, robotRadius, mode)
	if err != nil {
		panic(err)
	}
	return o
}

// Bounds returns the bounding box of the projected shape.
func (o *Obstacle) Bounds() r2.Box {
	return o.bounds
}

// Contains reports whether a robot centred at p would touch the obstacle.
func (o *Obstacle) Contains(p r2.Vec) bool {
	if !geom.BoxContains(o.bounds, p) {
		return false
	}
	return o.Projected.Contains(p)
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}
