package pathfinding

import (
	"fmt"
	"math"
)

// SearchParams tunes the cost propagation.
type SearchParams struct {
	// CostThreshold is the cost, in cell steps, below which a cell relaxes
	// all eight neighbours. Beyond it the wavefront narrows to a cone along
	// the goal bearing. Raising it trades speed for reliability.
	CostThreshold float64

	// MaxRelaxations is how many relaxations a box accepts before it
	// freezes. Keep it low (2-4); higher values give diminishing precision.
	MaxRelaxations int

	// RelaxationBudget caps the relaxations done by one AssignCosts call.
	// 0 means run to completion. Propagate resumes an interrupted run.
	RelaxationBudget int
}

// DefaultSearchParams returns the tuning used on the competition robot.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		CostThreshold:    60,
		MaxRelaxations:   3,
		RelaxationBudget: 0,
	}
}

// Search propagates cost-to-goal over a GriddedField and answers
// next-step queries by local descent.
type Search struct {
	field  *GriddedField
	goal   Cell
	params SearchParams

	open        frontier
	relaxations int // accepted relaxations since the last AssignCosts
	expanded    int
}

// NewSearch creates a search toward goal. All cost state in the field is
// reset; nothing is propagated until AssignCosts.
func NewSearch(field *GriddedField, goal Cell, params SearchParams) (*Search, error) {
	if !field.InBounds(goal) {
		return nil, fmt.Errorf("goal cell %v: %w", goal, ErrOutOfField)
	}
	field.ResetCosts()
	return &Search{
		field:  field,
		goal:   goal,
		params: params,
		open:   make(frontier, 0, 256),
	}, nil
}

// AssignCosts restarts propagation from goal: every box is reset, the goal
// is set to exactly 0, and the wavefront runs until it drains or the
// relaxation budget is spent.
func (s *Search) AssignCosts(goal Cell) error {
	box := s.field.Box(goal)
	if box == nil {
		return fmt.Errorf("goal cell %v: %w", goal, ErrOutOfField)
	}
	s.goal = goal
	s.field.ResetCosts()
	s.open.clear()
	s.relaxations = 0
	s.expanded = 0

	box.seed(0)
	s.open.push(goal, 0)
	s.Propagate(s.params.RelaxationBudget)
	return nil
}

// Propagate continues the wavefront for up to budget relaxations (0 means
// unlimited) and returns how many were done. A cell's expansion is never
// split, so the budget may be exceeded by up to seven.
func (s *Search) Propagate(budget int) int {
	done := 0
	for s.open.Len() > 0 {
		if budget > 0 && done >= budget {
			break
		}
		item := s.open.pop()
		box := s.field.Box(item.cell)
		if item.cost > box.cost {
			continue
		}
		s.expanded++
		done += s.expand(item.cell, box.cost)
	}
	s.relaxations += done
	return done
}

func (s *Search) expand(cell Cell, cost float64) int {
	n := 0
	if cost < s.params.CostThreshold {
		for i := range neighbourOffsets {
			n += s.relaxNeighbour(cell, cost, Octant(i), true)
		}
		return n
	}

	// Far from the goal: relax five cells and continue through three,
	// all facing away from the goal along its bearing.
	bearing := Bearing(cell, s.goal)
	cone := ThreeNeighbours(bearing, true)
	for _, o := range FiveNeighbours(bearing, true) {
		push := o == cone[0] || o == cone[1] || o == cone[2]
		n += s.relaxNeighbour(cell, cost, o, push)
	}
	return n
}

func (s *Search) relaxNeighbour(from Cell, cost float64, o Octant, push bool) int {
	next := from.Add(o.Offset())
	box := s.field.Box(next)
	if box == nil {
		return 0
	}
	canPush := push && box.assignable(from, s.params.MaxRelaxations)
	if !box.relax(from, cost+o.MoveCost(), s.params.MaxRelaxations) {
		return 0
	}
	if canPush {
		s.open.push(next, box.cost)
	}
	return 1
}

// NextPos returns the cheapest neighbour of from, skipping obstructed
// cells and cells the wavefront never reached. Ties go to the earlier
// entry of the neighbour table (east first, counter-clockwise). It reports
// false when no neighbour is usable.
func (s *Search) NextPos(from Cell) (Cell, bool) {
	best := from
	bestCost := math.Inf(1)
	found := false
	for _, off := range neighbourOffsets {
		c := from.Add(off)
		box := s.field.Box(c)
		if box == nil || box.obstructed || !box.Relaxed() {
			continue
		}
		if box.cost < bestCost {
			best, bestCost, found = c, box.cost, true
		}
	}
	return best, found
}

// Cost returns the propagated cost at c, +Inf when unknown or out of bounds.
func (s *Search) Cost(c Cell) float64 {
	box := s.field.Box(c)
	if box == nil {
		return math.Inf(1)
	}
	return box.cost
}

// Done reports whether the last propagation ran to completion.
func (s *Search) Done() bool { return s.open.Len() == 0 }

// Goal returns the cell the wavefront starts from.
func (s *Search) Goal() Cell { return s.goal }

// Relaxations returns the accepted relaxations since the last AssignCosts.
func (s *Search) Relaxations() int { return s.relaxations }

// Expanded returns the cells expanded since the last AssignCosts.
func (s *Search) Expanded() int { return s.expanded }

// Trace follows NextPos from `from` until the goal, a dead end, or maxSteps
// cells, and returns the visited cells excluding from. The descent can
// cycle where pruning left costs inconsistent; Trace stops at the first
// repeated cell.
func (s *Search) Trace(from Cell, maxSteps int) []Cell {
	var path []Cell
	seen := map[Cell]bool{from: true}
	cur := from
	for len(path) < maxSteps && cur != s.goal {
		next, ok := s.NextPos(cur)
		if !ok || seen[next] {
			break
		}
		seen[next] = true
		path = append(path, next)
		cur = next
	}
	return path
}
