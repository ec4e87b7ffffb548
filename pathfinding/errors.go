package pathfinding

import "errors"

var (
	// ErrOutOfField is returned when a coordinate or cell lies outside the grid.
	ErrOutOfField = errors.New("pathfinding: outside field")

	// ErrDegenerateGeometry is returned for zero-extent or non-finite shapes and sizes.
	ErrDegenerateGeometry = errors.New("pathfinding: degenerate geometry")
)
