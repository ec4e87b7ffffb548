package pathfinding

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/geom"
)

// newTestField creates a cols x rows field with unit cells.
func newTestField(t testing.TB, cols, rows int, obstacles ...*Obstacle) *GriddedField {
	t.Helper()
	f, err := NewGriddedField(float64(cols), float64(rows), 1, obstacles)
	if err != nil {
		t.Fatalf("NewGriddedField: %v", err)
	}
	return f
}

// cellRect returns an obstacle covering the centres of cells x0..x1, y0..y1.
func cellRect(x0, y0, x1, y1 int) *Obstacle {
	r := geom.NewRect(float64(x0)+0.2, float64(y0)+0.2, float64(x1-x0)+0.6, float64(y1-y0)+0.6)
	return MustObstacle(r, 0, InflateBuffer)
}

func octile(a, b Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return math.Max(dx, dy) - math.Min(dx, dy) + math.Sqrt2*math.Min(dx, dy)
}

func propagated(t testing.TB, f *GriddedField, goal Cell, params SearchParams) *Search {
	t.Helper()
	s, err := NewSearch(f, goal, params)
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}
	if err := s.AssignCosts(goal); err != nil {
		t.Fatalf("AssignCosts: %v", err)
	}
	return s
}

func circleAt(x, y, r float64) geom.Circle {
	return geom.Circle{Center: r2.Vec{X: x, Y: y}, Radius: r}
}
