package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Buffer returns the Minkowski offset of s by r: every point within r of s.
func Buffer(s Shape, r float64) Shape {
	return buffered{shape: s, r: r}
}

type buffered struct {
	shape Shape
	r     float64
}

func (b buffered) Bounds() r2.Box {
	box := b.shape.Bounds()
	d := r2.Vec{X: b.r, Y: b.r}
	return r2.Box{Min: r2.Sub(box.Min, d), Max: r2.Add(box.Max, d)}
}

func (b buffered) Contains(p r2.Vec) bool {
	return b.shape.Distance(p) <= b.r
}

func (b buffered) Distance(p r2.Vec) float64 {
	return math.Max(b.shape.Distance(p)-b.r, 0)
}

// ScaleAbout stretches s by sx and sy about center.
// Distance is approximate: the unscaled distance times the smaller factor.
func ScaleAbout(s Shape, center r2.Vec, sx, sy float64) Shape {
	return scaled{shape: s, center: center, sx: sx, sy: sy}
}

type scaled struct {
	shape  Shape
	center r2.Vec
	sx, sy float64
}

func (s scaled) forward(p r2.Vec) r2.Vec {
	return r2.Vec{X: s.center.X + (p.X-s.center.X)*s.sx, Y: s.center.Y + (p.Y-s.center.Y)*s.sy}
}

func (s scaled) inverse(p r2.Vec) r2.Vec {
	return r2.Vec{X: s.center.X + (p.X-s.center.X)/s.sx, Y: s.center.Y + (p.Y-s.center.Y)/s.sy}
}

func (s scaled) Bounds() r2.Box {
	box := s.shape.Bounds()
	a, b := s.forward(box.Min), s.forward(box.Max)
	return r2.Box{
		Min: r2.Vec{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Max: r2.Vec{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

func (s scaled) Contains(p r2.Vec) bool {
	return s.shape.Contains(s.inverse(p))
}

func (s scaled) Distance(p r2.Vec) float64 {
	return s.shape.Distance(s.inverse(p)) * math.Min(math.Abs(s.sx), math.Abs(s.sy))
}
