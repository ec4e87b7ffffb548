package pathfinding

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewGriddedFieldDimensions(t *testing.T) {
	tests := []struct {
		w, h, cell float64
		cols, rows int
	}{
		{10, 5, 1, 10, 5},
		{10.5, 5, 1, 11, 5},
		{1654, 821, 4, 414, 206},
	}
	for _, tt := range tests {
		f, err := NewGriddedField(tt.w, tt.h, tt.cell, nil)
		if err != nil {
			t.Fatalf("NewGriddedField(%v, %v, %v): %v", tt.w, tt.h, tt.cell, err)
		}
		if f.Cols() != tt.cols || f.Rows() != tt.rows {
			t.Errorf("%vx%v/%v: got %dx%d cells, want %dx%d", tt.w, tt.h, tt.cell, f.Cols(), f.Rows(), tt.cols, tt.rows)
		}
		if len(f.Field()) != tt.cols*tt.rows {
			t.Errorf("box count %d, want %d", len(f.Field()), tt.cols*tt.rows)
		}
	}
}

func TestNewGriddedFieldRejectsDegenerate(t *testing.T) {
	for _, dims := range [][3]float64{{0, 5, 1}, {5, -1, 1}, {5, 5, 0}, {math.Inf(1), 5, 1}, {5, math.NaN(), 1}} {
		_, err := NewGriddedField(dims[0], dims[1], dims[2], nil)
		if !errors.Is(err, ErrDegenerateGeometry) {
			t.Errorf("NewGriddedField%v err = %v, want ErrDegenerateGeometry", dims, err)
		}
	}
}

func TestCoordsToBox(t *testing.T) {
	f, err := NewGriddedField(40, 20, 4, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.CoordsToBox(r2.Vec{X: 9.5, Y: 13})
	if err != nil {
		t.Fatal(err)
	}
	if got != (Cell{2, 3}) {
		t.Errorf("CoordsToBox = %v, want (2,3)", got)
	}
	if c, _ := f.CoordsToBox(r2.Vec{X: 0, Y: 0}); c != (Cell{0, 0}) {
		t.Errorf("origin maps to %v", c)
	}

	for _, p := range []r2.Vec{{X: -0.1, Y: 5}, {X: 40, Y: 5}, {X: 5, Y: 20}, {X: math.NaN(), Y: 1}} {
		if _, err := f.CoordsToBox(p); !errors.Is(err, ErrOutOfField) {
			t.Errorf("CoordsToBox(%v) err = %v, want ErrOutOfField", p, err)
		}
	}
}

func TestBoxToCoordsRoundTrip(t *testing.T) {
	f, err := NewGriddedField(40, 20, 4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.BoxToCoords(Cell{2, 3}); got != (r2.Vec{X: 10, Y: 14}) {
		t.Errorf("BoxToCoords(2,3) = %v, want (10,14)", got)
	}
	for y := 0; y < f.Rows(); y++ {
		for x := 0; x < f.Cols(); x++ {
			c := Cell{x, y}
			back, err := f.CoordsToBox(f.BoxToCoords(c))
			if err != nil || back != c {
				t.Fatalf("round trip %v -> %v (%v)", c, back, err)
			}
		}
	}
}

func TestRasterizeCellCentres(t *testing.T) {
	f := newTestField(t, 10, 10, cellRect(2, 2, 4, 3))

	var got []Cell
	for y := 0; y < f.Rows(); y++ {
		for x := 0; x < f.Cols(); x++ {
			if f.Obstructed(Cell{x, y}) {
				got = append(got, Cell{x, y})
			}
		}
	}
	want := []Cell{{2, 2}, {3, 2}, {4, 2}, {2, 3}, {3, 3}, {4, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("obstructed cells (-want +got):\n%s", diff)
	}
}

func TestObstacleOutsideFieldIsClipped(t *testing.T) {
	f := newTestField(t, 5, 5, cellRect(3, 3, 9, 9))
	if !f.Obstructed(Cell{4, 4}) {
		t.Error("corner cell should be obstructed")
	}
	if !f.Obstructed(Cell{7, 7}) {
		t.Error("cells outside the grid report obstructed")
	}
	if f.Box(Cell{7, 7}) != nil {
		t.Error("Box outside the grid should be nil")
	}
}

func TestAddTempObstaclesOverlay(t *testing.T) {
	f := newTestField(t, 10, 10, cellRect(0, 0, 1, 1))
	stationary := f.ObstructionLayer()

	f.AddTempObstacles([]*Obstacle{cellRect(5, 5, 6, 6)}, true)
	first := f.ObstructionLayer()
	if !f.Obstructed(Cell{5, 5}) || !f.Obstructed(Cell{0, 0}) {
		t.Fatal("overlay should add to the stationary layer")
	}

	// Same obstacles again with reset: identical layer.
	f.AddTempObstacles([]*Obstacle{cellRect(5, 5, 6, 6)}, true)
	if diff := cmp.Diff(first, f.ObstructionLayer()); diff != "" {
		t.Errorf("repeated overlay differs (-first +second):\n%s", diff)
	}

	// Without reset the overlays accumulate.
	f.AddTempObstacles([]*Obstacle{cellRect(8, 8, 8, 8)}, false)
	if !f.Obstructed(Cell{5, 5}) || !f.Obstructed(Cell{8, 8}) {
		t.Error("overlay without reset should keep earlier temporaries")
	}

	// Reset with nothing restores the stationary layer.
	f.AddTempObstacles(nil, true)
	if diff := cmp.Diff(stationary, f.ObstructionLayer()); diff != "" {
		t.Errorf("reset did not restore stationary layer (-want +got):\n%s", diff)
	}
}

func TestAddTempObstaclesLeavesCosts(t *testing.T) {
	f := newTestField(t, 10, 10)
	s := propagated(t, f, Cell{0, 0}, DefaultSearchParams())
	before := s.Cost(Cell{5, 5})

	f.AddTempObstacles([]*Obstacle{cellRect(5, 5, 5, 5)}, true)
	if got := s.Cost(Cell{5, 5}); got != before {
		t.Errorf("cost changed from %v to %v without propagation", before, got)
	}
}
