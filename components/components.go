// Package components defines ECS components for the arena simulation.
// Positions and sizes are field coordinates in centimetres.
package components

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/geom"
)

// Position is an entity's field position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Velocity is an entity's velocity in cm per second.
type Velocity struct {
	X, Y float64
}

// FootprintKind selects the footprint shape.
type FootprintKind uint8

const (
	FootprintCircle FootprintKind = iota
	FootprintRect
)

// Footprint is the physical outline of an entity around its position.
type Footprint struct {
	Kind   FootprintKind
	Radius float64 // circle
	HalfW  float64 // rect
	HalfH  float64 // rect
}

// Extent returns the half-size of the footprint's bounding box.
func (f Footprint) Extent() r2.Vec {
	if f.Kind == FootprintRect {
		return r2.Vec{X: f.HalfW, Y: f.HalfH}
	}
	return r2.Vec{X: f.Radius, Y: f.Radius}
}

// Shape returns the footprint placed at pos.
func (f Footprint) Shape(pos Position) geom.Shape {
	if f.Kind == FootprintRect {
		return geom.NewRect(pos.X-f.HalfW, pos.Y-f.HalfH, 2*f.HalfW, 2*f.HalfH)
	}
	return geom.Circle{Center: pos.Vec(), Radius: f.Radius}
}

// Robot holds the planned robot's drive state.
type Robot struct {
	Heading float64 // radians
	Speed   float64 // commanded speed, cm per second
}

// Moving tags obstacles that move every cycle.
type Moving struct{}
