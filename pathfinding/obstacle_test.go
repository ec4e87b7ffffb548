package pathfinding

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/geom"
)

func TestNewObstacleRejectsDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		shape  geom.Shape
		radius float64
	}{
		{"nil shape", nil, 1},
		{"zero width", geom.NewRect(0, 0, 0, 5), 1},
		{"zero height", geom.NewRect(0, 0, 5, 0), 1},
		{"collinear polygon", geom.Polygon{Vertices: []r2.Vec{{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 10, Y: 0}}}, 1},
		{"infinite rect", geom.Rect{Min: r2.Vec{X: 0, Y: 0}, Max: r2.Vec{X: math.Inf(1), Y: 3}}, 1},
		{"negative radius", geom.NewRect(0, 0, 5, 5), -1},
		{"nan radius", geom.NewRect(0, 0, 5, 5), math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObstacle(tt.shape, tt.radius, InflateBuffer)
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Errorf("err = %v, want ErrDegenerateGeometry", err)
			}
		})
	}
}

func TestObstacleBufferInflation(t *testing.T) {
	o, err := NewObstacle(geom.NewRect(0, 0, 10, 10), 2, InflateBuffer)
	require.NoError(t, err)

	assert.Equal(t, r2.Vec{X: -2, Y: -2}, o.Bounds().Min)
	assert.Equal(t, r2.Vec{X: 12, Y: 12}, o.Bounds().Max)

	assert.True(t, o.Contains(r2.Vec{X: -1.5, Y: 5}), "within radius of the edge")
	assert.False(t, o.Contains(r2.Vec{X: -2.5, Y: 5}))
	// Buffered corners are rounded.
	assert.False(t, o.Contains(r2.Vec{X: -1.8, Y: -1.8}))
	assert.False(t, o.Contains(r2.Vec{X: 50, Y: 50}))
}

func TestObstacleScaleInflation(t *testing.T) {
	o, err := NewObstacle(geom.NewRect(0, 0, 10, 10), 2, InflateScale)
	require.NoError(t, err)

	b := o.Bounds()
	assert.InDelta(t, -2, b.Min.X, 1e-9)
	assert.InDelta(t, 12, b.Max.Y, 1e-9)
	// Scaled corners stay square.
	assert.True(t, o.Contains(r2.Vec{X: -1.8, Y: -1.8}))
	assert.False(t, o.Contains(r2.Vec{X: -2.2, Y: 5}))
}

func TestObstacleZeroRadiusKeepsShape(t *testing.T) {
	c := circleAt(5, 5, 3)
	o := MustObstacle(c, 0, InflateBuffer)
	for _, p := range []r2.Vec{{X: 5, Y: 5}, {X: 7.9, Y: 5}, {X: 8.1, Y: 5}, {X: 7.2, Y: 7.2}} {
		assert.Equal(t, c.Contains(p), o.Contains(p), "point %v", p)
	}
}

func TestParseInflationMode(t *testing.T) {
	m, err := ParseInflationMode("scale")
	require.NoError(t, err)
	assert.Equal(t, InflateScale, m)
	assert.Equal(t, "scale", m.String())

	m, err = ParseInflationMode("")
	require.NoError(t, err)
	assert.Equal(t, InflateBuffer, m)

	_, err = ParseInflationMode("grow")
	assert.Error(t, err)
}
