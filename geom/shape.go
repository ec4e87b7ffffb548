// Package geom provides the 2D shapes used to describe arena obstacles.
// All coordinates are field coordinates in centimetres. Polygon and box
// predicates are computed with orb's planar package.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Shape is a closed 2D region.
type Shape interface {
	// Bounds returns the axis-aligned bounding box of the shape.
	Bounds() r2.Box
	// Contains reports whether p lies inside or on the boundary of the shape.
	Contains(p r2.Vec) bool
	// Distance returns the distance from p to the shape, 0 when p is inside.
	Distance(p r2.Vec) float64
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max r2.Vec
}

// NewRect creates a rectangle from a corner and its size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{Min: r2.Vec{X: x, Y: y}, Max: r2.Vec{X: x + w, Y: y + h}}
}

func (r Rect) Bounds() r2.Box { return r2.Box{Min: r.Min, Max: r.Max} }

func (r Rect) Contains(p r2.Vec) bool {
	return toBound(r.Bounds()).Contains(toPoint(p))
}

func (r Rect) Distance(p r2.Vec) float64 {
	closest := orb.Point{
		math.Min(math.Max(p.X, r.Min.X), r.Max.X),
		math.Min(math.Max(p.Y, r.Min.Y), r.Max.Y),
	}
	return planar.Distance(toPoint(p), closest)
}

// Circle is a disc around Center.
type Circle struct {
	Center r2.Vec
	Radius float64
}

func (c Circle) Bounds() r2.Box {
	d := r2.Vec{X: c.Radius, Y: c.Radius}
	return r2.Box{Min: r2.Sub(c.Center, d), Max: r2.Add(c.Center, d)}
}

func (c Circle) Contains(p r2.Vec) bool {
	return planar.Distance(toPoint(p), toPoint(c.Center)) <= c.Radius
}

func (c Circle) Distance(p r2.Vec) float64 {
	return math.Max(planar.Distance(toPoint(p), toPoint(c.Center))-c.Radius, 0)
}

// Polygon is a simple polygon given by its vertices in order. Points on
// an edge count as inside.
type Polygon struct {
	Vertices []r2.Vec

	ring orb.Ring // closed copy of Vertices, nil for literals
}

// NewPolygon creates a polygon and caches its closed ring.
func NewPolygon(vertices ...r2.Vec) Polygon {
	return Polygon{Vertices: vertices, ring: toRing(vertices)}
}

func (pg Polygon) closedRing() orb.Ring {
	if pg.ring != nil {
		return pg.ring
	}
	return toRing(pg.Vertices)
}

func (pg Polygon) Bounds() r2.Box {
	if len(pg.Vertices) == 0 {
		return r2.Box{}
	}
	return fromBound(pg.closedRing().Bound())
}

func (pg Polygon) Contains(p r2.Vec) bool {
	if len(pg.Vertices) < 3 {
		return false
	}
	ring, pt := pg.closedRing(), toPoint(p)
	if planar.RingContains(ring, pt) {
		return true
	}
	return planar.DistanceFrom(ring, pt) == 0
}

func (pg Polygon) Distance(p r2.Vec) float64 {
	if len(pg.Vertices) == 0 {
		return math.Inf(1)
	}
	if pg.Contains(p) {
		return 0
	}
	return planar.DistanceFrom(pg.closedRing(), toPoint(p))
}

// SegmentDistance returns the distance from p to the segment ab.
func SegmentDistance(p, a, b r2.Vec) float64 {
	return planar.DistanceFromSegment(toPoint(a), toPoint(b), toPoint(p))
}

// BoxSize returns the width and height of b.
func BoxSize(b r2.Box) r2.Vec {
	return r2.Sub(b.Max, b.Min)
}

// BoxCenter returns the centre point of b.
func BoxCenter(b r2.Box) r2.Vec {
	return fromPoint(toBound(b).Center())
}

// BoxContains reports whether p lies inside b.
func BoxContains(b r2.Box, p r2.Vec) bool {
	return toBound(b).Contains(toPoint(p))
}

// BoxesOverlap reports whether a and b share any area or edge.
func BoxesOverlap(a, b r2.Box) bool {
	return toBound(a).Intersects(toBound(b))
}

func toPoint(v r2.Vec) orb.Point { return orb.Point{v.X, v.Y} }

func fromPoint(p orb.Point) r2.Vec { return r2.Vec{X: p[0], Y: p[1]} }

func toBound(b r2.Box) orb.Bound {
	return orb.Bound{Min: toPoint(b.Min), Max: toPoint(b.Max)}
}

func fromBound(b orb.Bound) r2.Box {
	return r2.Box{Min: fromPoint(b.Min), Max: fromPoint(b.Max)}
}

// toRing converts vertices to an orb ring, closed by repeating the first
// vertex.
func toRing(vertices []r2.Vec) orb.Ring {
	if len(vertices) == 0 {
		return nil
	}
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, toPoint(v))
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}
