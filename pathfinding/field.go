package pathfinding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// GriddedField discretizes the arena into square cells. Stationary
// obstacles are rasterized once; temporary obstacles go on an overlay that
// is reset back to the stationary layer every cycle.
type GriddedField struct {
	boxes      []GridBox // row-major, index = y*cols + x
	stationary []bool    // stationary-only obstruction snapshot
	cellSize   float64
	cols       int
	rows       int
	width      float64
	height     float64
}

// NewGriddedField allocates a width x height field (field units) with
// square cells of cellSize and rasterizes the stationary obstacles.
func NewGriddedField(width, height, cellSize float64, stationary []*Obstacle) (*GriddedField, error) {
	if !(width > 0) || !(height > 0) || !(cellSize > 0) ||
		math.IsInf(width, 0) || math.IsInf(height, 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("field %vx%v cell %v: %w", width, height, cellSize, ErrDegenerateGeometry)
	}

	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(height / cellSize))

	f := &GriddedField{
		boxes:      make([]GridBox, cols*rows),
		stationary: make([]bool, cols*rows),
		cellSize:   cellSize,
		cols:       cols,
		rows:       rows,
		width:      width,
		height:     height,
	}
	for i := range f.boxes {
		f.boxes[i] = newGridBox()
	}

	for _, o := range stationary {
		f.rasterize(o)
	}
	for i := range f.boxes {
		f.stationary[i] = f.boxes[i].obstructed
	}
	return f, nil
}

// AddTempObstacles rasterizes moving obstacles onto the overlay. With
// resetTemps the overlay is cleared back to the stationary layer first.
// Only obstruction flags change; cost state is owned by the search.
func (f *GriddedField) AddTempObstacles(obstacles []*Obstacle, resetTemps bool) {
	if resetTemps {
		for i := range f.boxes {
			f.boxes[i].obstructed = f.stationary[i]
		}
	}
	for _, o := range obstacles {
		f.rasterize(o)
	}
}

// rasterize marks every cell whose centre lies in the projected obstacle.
// Only cells under the obstacle's bounding box are tested.
func (f *GriddedField) rasterize(o *Obstacle) {
	if o == nil {
		return
	}
	b := o.Bounds()
	minX := max(int(math.Floor(b.Min.X/f.cellSize)), 0)
	minY := max(int(math.Floor(b.Min.Y/f.cellSize)), 0)
	maxX := min(int(math.Floor(b.Max.X/f.cellSize)), f.cols-1)
	maxY := min(int(math.Floor(b.Max.Y/f.cellSize)), f.rows-1)

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if o.Contains(f.BoxToCoords(Cell{X: x, Y: y})) {
				f.boxes[y*f.cols+x].obstructed = true
			}
		}
	}
}

// CoordsToBox returns the cell enclosing p. Points outside the field
// return ErrOutOfField; nothing is clamped.
func (f *GriddedField) CoordsToBox(p r2.Vec) (Cell, error) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || p.X < 0 || p.Y < 0 || p.X >= f.width || p.Y >= f.height {
		return Cell{}, fmt.Errorf("point (%.2f, %.2f) in %vx%v field: %w", p.X, p.Y, f.width, f.height, ErrOutOfField)
	}
	c := Cell{X: int(p.X / f.cellSize), Y: int(p.Y / f.cellSize)}
	if !f.InBounds(c) {
		return Cell{}, fmt.Errorf("point (%.2f, %.2f): %w", p.X, p.Y, ErrOutOfField)
	}
	return c, nil
}

// BoxToCoords returns the field position of the centre of c.
func (f *GriddedField) BoxToCoords(c Cell) r2.Vec {
	return r2.Vec{
		X: (float64(c.X) + 0.5) * f.cellSize,
		Y: (float64(c.Y) + 0.5) * f.cellSize,
	}
}

// InBounds reports whether c is a cell of the grid.
func (f *GriddedField) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < f.cols && c.Y >= 0 && c.Y < f.rows
}

// Box returns the live box at c, or nil when c is outside the grid.
func (f *GriddedField) Box(c Cell) *GridBox {
	if !f.InBounds(c) {
		return nil
	}
	return &f.boxes[c.Y*f.cols+c.X]
}

// Field exposes the live row-major box arena.
func (f *GriddedField) Field() []GridBox {
	return f.boxes
}

// Obstructed reports whether c is blocked. Cells outside the grid are blocked.
func (f *GriddedField) Obstructed(c Cell) bool {
	b := f.Box(c)
	return b == nil || b.obstructed
}

// ObstructionLayer returns a copy of the current obstruction flags.
func (f *GriddedField) ObstructionLayer() []bool {
	layer := make([]bool, len(f.boxes))
	for i := range f.boxes {
		layer[i] = f.boxes[i].obstructed
	}
	return layer
}

// ResetCosts clears the cost and relaxation state of every box.
func (f *GriddedField) ResetCosts() {
	for i := range f.boxes {
		f.boxes[i].reset()
	}
}

// Cols returns the grid width in cells.
func (f *GriddedField) Cols() int { return f.cols }

// Rows returns the grid height in cells.
func (f *GriddedField) Rows() int { return f.rows }

// CellSize returns the side length of a cell in field units.
func (f *GriddedField) CellSize() float64 { return f.cellSize }

// Size returns the field extent in field units.
func (f *GriddedField) Size() r2.Vec { return r2.Vec{X: f.width, Y: f.height} }
