package pathfinding

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Option configures a Planner.
type Option func(*Planner)

// WithRefreshInterval sets how many cycles pass between full propagations.
// Higher values are cheaper but react more slowly to moving obstacles.
func WithRefreshInterval(cycles int) Option {
	return func(p *Planner) { p.refreshInterval = max(cycles, 0) }
}

// WithSearchParams sets the propagation tuning.
func WithSearchParams(params SearchParams) Option {
	return func(p *Planner) { p.params = params }
}

// WithArrivalTolerance sets how close the robot must be to count as at the goal.
func WithArrivalTolerance(d float64) Option {
	return func(p *Planner) { p.arrivalTolerance = d }
}

// WithStallCycles sets how many cycles of non-improving next steps count as a stall.
func WithStallCycles(n int) Option {
	return func(p *Planner) { p.stallCycles = n }
}

// WithDirectApproach lets the planner target the goal pose directly once it
// is inside the dense wavefront region and in clear line of sight.
func WithDirectApproach(enabled bool) Option {
	return func(p *Planner) { p.directApproach = enabled }
}

// WithLogger sets the logger used for planner events.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// Planner owns the search toward the current goal and produces one
// MotionTarget per control cycle.
type Planner struct {
	field  *GriddedField
	search *Search
	drive  Drive
	logger *slog.Logger

	goal     Pose
	goalCell Cell

	params           SearchParams
	refreshInterval  int
	refreshMeter     int
	arrivalTolerance float64
	stallCycles      int
	directApproach   bool

	cycles    int
	refreshed bool
	last      MotionTarget
	stallRun  int
}

// NewPlanner creates a planner toward goal. The first Cycle propagates.
func NewPlanner(field *GriddedField, goal Pose, drive Drive, opts ...Option) (*Planner, error) {
	p := &Planner{
		field:            field,
		drive:            drive,
		params:           DefaultSearchParams(),
		refreshInterval:  5,
		arrivalTolerance: field.CellSize(),
		stallCycles:      50,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if err := p.setGoal(goal); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Planner) setGoal(goal Pose) error {
	cell, err := p.field.CoordsToBox(goal.Position)
	if err != nil {
		return fmt.Errorf("goal pose: %w", err)
	}
	search, err := NewSearch(p.field, cell, p.params)
	if err != nil {
		return err
	}
	p.goal = goal
	p.goalCell = cell
	p.search = search
	p.refreshMeter = p.refreshInterval
	p.last = MotionTarget{}
	p.stallRun = 0
	return nil
}

// Cycle runs one control cycle: moving obstacles replace last cycle's
// overlay, the cost field is refreshed when due, and the next step from
// the robot's cell is sent to the drive at speed.
func (p *Planner) Cycle(robot Pose, moving []*Obstacle, speed float64) (MotionTarget, error) {
	p.cycles++
	p.field.AddTempObstacles(moving, true)

	p.refreshed = p.refreshMeter >= p.refreshInterval
	if p.refreshed {
		if err := p.search.AssignCosts(p.goalCell); err != nil {
			return MotionTarget{}, err
		}
		p.refreshMeter = 0
		p.logger.Debug("cost field refreshed",
			"cycle", p.cycles,
			"goal_cell", p.goalCell,
			"relaxations", p.search.Relaxations(),
			"complete", p.search.Done(),
		)
	} else {
		p.refreshMeter++
		if !p.search.Done() {
			p.search.Propagate(p.params.RelaxationBudget)
		}
	}

	robotCell, err := p.field.CoordsToBox(robot.Position)
	if err != nil {
		return MotionTarget{}, fmt.Errorf("robot pose: %w", err)
	}

	target := p.nextTarget(robot, robotCell, speed)
	p.trackProgress(target)
	if p.drive != nil {
		p.drive.GoTo(target)
	}
	return target, nil
}

// CycleAuto is Cycle with the speed taken from the drive's controller.
func (p *Planner) CycleAuto(robot Pose, moving []*Obstacle) (MotionTarget, error) {
	speed := 0.0
	if p.drive != nil {
		speed = p.drive.SuggestSpeed(robot, p.goal)
	}
	return p.Cycle(robot, moving, speed)
}

func (p *Planner) nextTarget(robot Pose, robotCell Cell, speed float64) MotionTarget {
	if robotCell == p.goalCell {
		return MotionTarget{
			Pose:   p.goal,
			Speed:  speed,
			Cell:   p.goalCell,
			Cost:   p.search.Cost(p.goalCell),
			AtGoal: true,
		}
	}

	if p.directApproach && p.search.Cost(robotCell) < p.params.CostThreshold &&
		p.field.LineClear(robot.Position, p.goal.Position) {
		return MotionTarget{
			Pose:  p.goal,
			Speed: speed,
			Cell:  p.goalCell,
			Cost:  p.search.Cost(p.goalCell),
		}
	}

	next, ok := p.search.NextPos(robotCell)
	if !ok {
		return MotionTarget{
			Pose:    Pose{Position: robot.Position, Heading: p.goal.Heading},
			Cell:    robotCell,
			Cost:    p.search.Cost(robotCell),
			Stalled: true,
		}
	}
	return MotionTarget{
		Pose:  Pose{Position: p.field.BoxToCoords(next), Heading: p.goal.Heading},
		Speed: speed,
		Cell:  next,
		Cost:  p.search.Cost(next),
	}
}

// trackProgress counts consecutive cycles that repeat the previous next
// cell without lowering its cost.
func (p *Planner) trackProgress(t MotionTarget) {
	switch {
	case t.AtGoal:
		p.stallRun = 0
	case t.Stalled:
		p.stallRun++
	case t.Cell == p.last.Cell && !(t.Cost < p.last.Cost):
		p.stallRun++
	default:
		p.stallRun = 0
	}
	p.last = t
}

// Stalled reports whether the planner has made no progress for the
// configured number of cycles. The planner itself never gives up.
func (p *Planner) Stalled() bool {
	return p.stallCycles > 0 && p.stallRun >= p.stallCycles
}

// Retarget replaces the goal. A fresh Search is created so nothing from
// the previous goal survives, and the next Cycle propagates immediately.
func (p *Planner) Retarget(goal Pose) error {
	prev := p.goalCell
	if err := p.setGoal(goal); err != nil {
		return err
	}
	p.logger.Info("goal retargeted",
		"cycle", p.cycles,
		"from_cell", prev,
		"goal_cell", p.goalCell,
		"goal_x", goal.Position.X,
		"goal_y", goal.Position.Y,
	)
	return nil
}

// AtEndPoint reports whether the robot is within the arrival tolerance of the goal.
func (p *Planner) AtEndPoint(robot Pose) bool {
	return r2.Norm(r2.Sub(robot.Position, p.goal.Position)) <= p.arrivalTolerance
}

// PathEndCheck retargets to next when the robot has reached the current goal.
func (p *Planner) PathEndCheck(robot, next Pose) (bool, error) {
	if !p.AtEndPoint(robot) {
		return false, nil
	}
	if err := p.Retarget(next); err != nil {
		return false, err
	}
	return true, nil
}

// GoalSeeable reports whether the robot has a clear straight line to the goal.
func (p *Planner) GoalSeeable(robot Pose) bool {
	return p.field.LineClear(robot.Position, p.goal.Position)
}

// Goal returns the current goal pose.
func (p *Planner) Goal() Pose { return p.goal }

// GoalCell returns the cell the current goal lies in.
func (p *Planner) GoalCell() Cell { return p.goalCell }

// Search returns the search for the current goal.
func (p *Planner) Search() *Search { return p.search }

// Field returns the planner's field.
func (p *Planner) Field() *GriddedField { return p.field }

// Refreshed reports whether the last Cycle re-propagated the cost field.
func (p *Planner) Refreshed() bool { return p.refreshed }

// Cycles returns the number of cycles run.
func (p *Planner) Cycles() int { return p.cycles }

// RemainingCost returns the propagated cost from the robot's cell, +Inf
// when the robot is outside the field or unreached.
func (p *Planner) RemainingCost(robot Pose) float64 {
	c, err := p.field.CoordsToBox(robot.Position)
	if err != nil {
		return math.Inf(1)
	}
	return p.search.Cost(c)
}
