package pathfinding

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/geom"
)

// PointSeeable reports whether a robot can drive straight from `from` to
// `to` without touching any projected obstacle. The segment is sampled at
// step intervals; step <= 0 uses 1 field unit.
func PointSeeable(from, to r2.Vec, obstacles []*Obstacle, step float64) bool {
	if step <= 0 {
		step = 1
	}
	seg := r2.Box{
		Min: r2.Vec{X: math.Min(from.X, to.X), Y: math.Min(from.Y, to.Y)},
		Max: r2.Vec{X: math.Max(from.X, to.X), Y: math.Max(from.Y, to.Y)},
	}
	d := r2.Sub(to, from)
	dist := r2.Norm(d)
	steps := int(dist/step) + 1

	for _, o := range obstacles {
		if o == nil || !geom.BoxesOverlap(seg, o.Bounds()) {
			continue
		}
		for i := 0; i <= steps; i++ {
			p := r2.Add(from, r2.Scale(float64(i)/float64(steps), d))
			if o.Contains(p) {
				return false
			}
		}
	}
	return true
}

// LineClear is the grid version of PointSeeable: it walks the cells between
// two field points and fails on any obstructed cell, including the
// temporary overlay.
func (f *GriddedField) LineClear(from, to r2.Vec) bool {
	d := r2.Sub(to, from)
	dist := r2.Norm(d)
	stepSize := f.cellSize * 0.5
	steps := int(dist/stepSize) + 1
	for i := 0; i <= steps; i++ {
		p := r2.Add(from, r2.Scale(float64(i)/float64(steps), d))
		c, err := f.CoordsToBox(p)
		if err != nil || f.Obstructed(c) {
			return false
		}
	}
	return true
}
