package pathfinding

import "math"

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// Add returns c offset by o.
func (c Cell) Add(o Cell) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

// recentSourceCap bounds how many relaxing neighbours a box remembers.
const recentSourceCap = 4

// GridBox is the per-cell state shared by the field and the search.
type GridBox struct {
	obstructed  bool
	cost        float64
	relaxations int

	// sources is a ring of the most recent cells that relaxed this box.
	sources     [recentSourceCap]Cell
	sourceCount int
	sourceNext  int
}

func newGridBox() GridBox {
	return GridBox{cost: math.Inf(1)}
}

// Obstructed reports whether the box is blocked on either obstacle layer.
func (b *GridBox) Obstructed() bool { return b.obstructed }

// Cost returns the propagated cost-to-goal, +Inf when never relaxed.
func (b *GridBox) Cost() float64 { return b.cost }

// Relaxations returns how many relaxations the box has accepted.
func (b *GridBox) Relaxations() int { return b.relaxations }

// Relaxed reports whether the box holds a finite cost.
func (b *GridBox) Relaxed() bool { return !math.IsInf(b.cost, 1) }

// reset clears cost state; the obstruction flag is left alone.
func (b *GridBox) reset() {
	b.cost = math.Inf(1)
	b.relaxations = 0
	b.sourceCount = 0
	b.sourceNext = 0
}

// seed assigns the goal cost exactly, bypassing the min rule.
func (b *GridBox) seed(cost float64) {
	b.cost = cost
	b.relaxations++
}

// accepting reports whether the box still takes relaxations.
func (b *GridBox) accepting(maxRelaxations int) bool {
	return b.relaxations <= maxRelaxations
}

// assignable reports whether a relaxation coming from src may continue
// propagation through this box.
func (b *GridBox) assignable(src Cell, maxRelaxations int) bool {
	return b.accepting(maxRelaxations) && !b.hasSource(src) && !b.obstructed
}

// relax lowers the cost to proposed when that improves it. Only improving
// relaxations count toward the limit and record their source.
func (b *GridBox) relax(src Cell, proposed float64, maxRelaxations int) bool {
	if b.obstructed || !b.accepting(maxRelaxations) || proposed >= b.cost {
		return false
	}
	b.cost = proposed
	b.relaxations++
	b.sources[b.sourceNext] = src
	b.sourceNext = (b.sourceNext + 1) % recentSourceCap
	if b.sourceCount < recentSourceCap {
		b.sourceCount++
	}
	return true
}

func (b *GridBox) hasSource(c Cell) bool {
	for i := 0; i < b.sourceCount; i++ {
		if b.sources[i] == c {
			return true
		}
	}
	return false
}
