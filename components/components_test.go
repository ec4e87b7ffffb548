package components

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestFootprintShape(t *testing.T) {
	pos := Position{X: 100, Y: 50}

	circle := Footprint{Kind: FootprintCircle, Radius: 10}
	if !circle.Shape(pos).Contains(r2.Vec{X: 109, Y: 50}) {
		t.Error("circle should contain a point inside its radius")
	}
	if circle.Shape(pos).Contains(r2.Vec{X: 108, Y: 58}) {
		t.Error("circle should not contain a point outside its radius")
	}

	rect := Footprint{Kind: FootprintRect, HalfW: 20, HalfH: 5}
	b := rect.Shape(pos).Bounds()
	if b.Min != (r2.Vec{X: 80, Y: 45}) || b.Max != (r2.Vec{X: 120, Y: 55}) {
		t.Errorf("rect bounds = %v", b)
	}
	if rect.Extent() != (r2.Vec{X: 20, Y: 5}) {
		t.Errorf("rect extent = %v", rect.Extent())
	}
}
