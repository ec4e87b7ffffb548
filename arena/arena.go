// Package arena runs the planner against a simulated field: an ECS world
// holding the robot and bouncing moving obstacles, a kinematic drive, and
// a queue of goals visited in turn.
package arena

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/components"
	"github.com/pthm-cable/gridnav/config"
	"github.com/pthm-cable/gridnav/geom"
	"github.com/pthm-cable/gridnav/pathfinding"
	"github.com/pthm-cable/gridnav/telemetry"
)

// Option configures an Arena.
type Option func(*Arena)

// WithSeed seeds the obstacle RNG.
func WithSeed(seed int64) Option {
	return func(a *Arena) { a.seed = seed }
}

// WithLogger sets the logger for arena and planner events.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) { a.logger = l }
}

// WithOutput writes cycle, stats and perf rows to om.
func WithOutput(om *telemetry.OutputManager) Option {
	return func(a *Arena) { a.output = om }
}

// WithLogStats logs window and perf summaries every stats window.
func WithLogStats(enabled bool) Option {
	return func(a *Arena) { a.logStats = enabled }
}

// Result summarises a Run.
type Result struct {
	Cycles       int
	GoalsReached int
	Relaxations  int // summed over every refresh
	Stalled      bool
	PlanTime     time.Duration
}

// Arena owns the simulated world and the planner driving the robot through it.
type Arena struct {
	cfg    *config.Config
	seed   int64
	rng    *rand.Rand
	logger *slog.Logger
	dt     float64

	world          *ecs.World
	obstacleMapper *ecs.Map4[components.Position, components.Velocity, components.Footprint, components.Moving]
	obstacleFilter *ecs.Filter4[components.Position, components.Velocity, components.Footprint, components.Moving]
	robotMapper    *ecs.Map3[components.Position, components.Footprint, components.Robot]
	posMap         *ecs.Map1[components.Position]
	robotMap       *ecs.Map1[components.Robot]
	robot          ecs.Entity

	inflation  pathfinding.InflationMode
	stationary []*pathfinding.Obstacle
	moving     []*pathfinding.Obstacle
	field      *pathfinding.GriddedField
	planner    *pathfinding.Planner
	drive      *KinematicDrive

	goals        []pathfinding.Pose
	goalIndex    int
	goalsReached int
	adHoc        bool
	stallLogged  bool

	cycle       int
	relaxations int
	planTime    time.Duration
	last        pathfinding.MotionTarget

	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager
	logStats  bool
}

// New builds an arena from cfg: the stationary field, the robot at the
// start pose, moving obstacles at seeded random positions, and a planner
// toward the first goal.
func New(cfg *config.Config, opts ...Option) (*Arena, error) {
	a := &Arena{
		cfg:  cfg,
		seed: 1,
		dt:   cfg.Derived.CycleDT,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.rng = rand.New(rand.NewSource(a.seed))

	mode, err := pathfinding.ParseInflationMode(cfg.Planner.Inflation)
	if err != nil {
		return nil, err
	}
	a.inflation = mode

	for i, oc := range cfg.Arena.Stationary {
		shape, err := oc.Shape()
		if err != nil {
			return nil, err
		}
		o, err := pathfinding.NewObstacle(shape, cfg.Derived.RobotRadius, mode)
		if err != nil {
			return nil, fmt.Errorf("stationary obstacle %d (%s): %w", i, oc.Name, err)
		}
		a.stationary = append(a.stationary, o)
	}

	a.field, err = pathfinding.NewGriddedField(cfg.Field.Width, cfg.Field.Height, cfg.Field.CellSize, a.stationary)
	if err != nil {
		return nil, fmt.Errorf("building field: %w", err)
	}

	for _, g := range cfg.Arena.Goals {
		a.goals = append(a.goals, pathfinding.Pose{Position: g.Position(), Heading: g.HeadingRad()})
	}
	if len(a.goals) == 0 {
		return nil, fmt.Errorf("arena needs at least one goal")
	}

	a.world = ecs.NewWorld()
	a.obstacleMapper = ecs.NewMap4[components.Position, components.Velocity, components.Footprint, components.Moving](a.world)
	a.obstacleFilter = ecs.NewFilter4[components.Position, components.Velocity, components.Footprint, components.Moving](a.world)
	a.robotMapper = ecs.NewMap3[components.Position, components.Footprint, components.Robot](a.world)
	a.posMap = ecs.NewMap1[components.Position](a.world)
	a.robotMap = ecs.NewMap1[components.Robot](a.world)

	start := cfg.Arena.Start
	a.robot = a.robotMapper.NewEntity(
		&components.Position{X: start.X, Y: start.Y},
		&components.Footprint{Kind: components.FootprintRect, HalfW: cfg.Robot.Length / 2, HalfH: cfg.Robot.Width / 2},
		&components.Robot{Heading: start.HeadingRad()},
	)
	a.spawnMovingObstacles()

	a.drive = NewKinematicDrive(cfg.Robot.PIDKp, cfg.Robot.MaxSpeed)
	a.planner, err = pathfinding.NewPlanner(a.field, a.goals[0], a.drive,
		pathfinding.WithSearchParams(pathfinding.SearchParams{
			CostThreshold:    cfg.Planner.CostThreshold,
			MaxRelaxations:   cfg.Planner.MaxRelaxations,
			RelaxationBudget: cfg.Planner.RelaxationBudget,
		}),
		pathfinding.WithRefreshInterval(cfg.Planner.RefreshInterval),
		pathfinding.WithArrivalTolerance(cfg.Robot.ArrivalTolerance),
		pathfinding.WithStallCycles(cfg.Planner.StallCycles),
		pathfinding.WithDirectApproach(cfg.Planner.DirectApproach),
		pathfinding.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating planner: %w", err)
	}

	a.perf = telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	a.collector = telemetry.NewCollector(a.output.RunID(), cfg.Derived.StatsCycles, a.dt)
	a.bookmarks = telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistorySize)

	a.logger.Info("arena ready",
		"cols", a.field.Cols(),
		"rows", a.field.Rows(),
		"stationary", len(a.stationary),
		"moving", cfg.Arena.MovingObstacles,
		"goals", len(a.goals),
		"seed", a.seed,
	)
	return a, nil
}

// spawnMovingObstacles places circular obstacles away from the start, the
// goals and the stationary obstacles, each heading in a random direction.
func (a *Arena) spawnMovingObstacles() {
	cfg := a.cfg
	r := cfg.Arena.ObstacleRadius
	clearance := a.robotClearance(r)

	keepClear := []r2.Vec{cfg.Arena.Start.Position()}
	for _, g := range a.goals {
		keepClear = append(keepClear, g.Position)
	}

	for i := 0; i < cfg.Arena.MovingObstacles; i++ {
		var pos r2.Vec
		for attempt := 0; attempt < 100; attempt++ {
			pos = r2.Vec{
				X: r + a.rng.Float64()*(cfg.Field.Width-2*r),
				Y: r + a.rng.Float64()*(cfg.Field.Height-2*r),
			}
			if a.placementClear(pos, r, clearance, keepClear) {
				break
			}
		}
		angle := a.rng.Float64() * 2 * math.Pi
		a.obstacleMapper.NewEntity(
			&components.Position{X: pos.X, Y: pos.Y},
			&components.Velocity{X: math.Cos(angle) * cfg.Arena.ObstacleSpeed, Y: math.Sin(angle) * cfg.Arena.ObstacleSpeed},
			&components.Footprint{Kind: components.FootprintCircle, Radius: r},
			&components.Moving{},
		)
	}
}

func (a *Arena) placementClear(pos r2.Vec, r, clearance float64, keepClear []r2.Vec) bool {
	for _, p := range keepClear {
		if r2.Norm(r2.Sub(pos, p)) < clearance {
			return false
		}
	}
	return !a.hitsStationary(pos, r)
}

func (a *Arena) hitsStationary(pos r2.Vec, r float64) bool {
	for _, o := range a.stationary {
		if o.Shape.Distance(pos) < r {
			return true
		}
	}
	return false
}

// robotClearance is how close a moving obstacle of extent r may come to
// the robot's centre.
func (a *Arena) robotClearance(r float64) float64 {
	return r + a.cfg.Derived.RobotRadius + 3*a.cfg.Field.CellSize
}

// moveObstacles advances every moving obstacle by one cycle, bouncing off
// the field edges, the stationary obstacles and the robot.
func (a *Arena) moveObstacles() {
	w, h := a.cfg.Field.Width, a.cfg.Field.Height
	robot := a.posMap.Get(a.robot).Vec()

	query := a.obstacleFilter.Query()
	for query.Next() {
		pos, vel, fp, _ := query.Get()
		ext := fp.Extent()

		next := components.Position{X: pos.X + vel.X*a.dt, Y: pos.Y + vel.Y*a.dt}
		if next.X-ext.X < 0 {
			next.X, vel.X = ext.X, math.Abs(vel.X)
		} else if next.X+ext.X > w {
			next.X, vel.X = w-ext.X, -math.Abs(vel.X)
		}
		if next.Y-ext.Y < 0 {
			next.Y, vel.Y = ext.Y, math.Abs(vel.Y)
		} else if next.Y+ext.Y > h {
			next.Y, vel.Y = h-ext.Y, -math.Abs(vel.Y)
		}

		r := math.Max(ext.X, ext.Y)
		if a.hitsStationary(next.Vec(), r) {
			vel.X, vel.Y = -vel.X, -vel.Y
			continue
		}
		if closing(pos.Vec(), next.Vec(), robot, a.robotClearance(r)) {
			v := reflect(r2.Vec{X: vel.X, Y: vel.Y}, r2.Sub(pos.Vec(), robot))
			vel.X, vel.Y = v.X, v.Y
			continue
		}
		*pos = next
	}
}

// closing reports whether moving from pos to next brings an obstacle
// inside clearance of the robot and nearer than it already is.
func closing(pos, next, robot r2.Vec, clearance float64) bool {
	d := r2.Norm(r2.Sub(next, robot))
	return d < clearance && d < r2.Norm(r2.Sub(pos, robot))
}

// reflect mirrors v about the surface with the given outward normal,
// reversing it when the normal is zero.
func reflect(v, normal r2.Vec) r2.Vec {
	n := r2.Norm(normal)
	if n == 0 {
		return r2.Scale(-1, v)
	}
	u := r2.Scale(1/n, normal)
	return r2.Sub(v, r2.Scale(2*r2.Dot(v, u), u))
}

// collectMoving projects every moving footprint into a planner obstacle.
func (a *Arena) collectMoving() ([]*pathfinding.Obstacle, error) {
	a.moving = a.moving[:0]
	query := a.obstacleFilter.Query()
	for query.Next() {
		pos, _, fp, _ := query.Get()
		o, err := pathfinding.NewObstacle(fp.Shape(*pos), a.cfg.Derived.RobotRadius, a.inflation)
		if err != nil {
			query.Close()
			return nil, fmt.Errorf("moving obstacle at (%.1f, %.1f): %w", pos.X, pos.Y, err)
		}
		a.moving = append(a.moving, o)
	}
	return a.moving, nil
}

// Step runs one control cycle: obstacles move, the planner plans from the
// robot's pose, the robot drives toward the target, and the goal queue
// advances when the current goal is reached.
func (a *Arena) Step() error {
	a.perf.StartCycle()

	a.perf.StartPhase(telemetry.PhaseObstacles)
	a.moveObstacles()
	moving, err := a.collectMoving()
	if err != nil {
		return err
	}

	a.perf.StartPhase(telemetry.PhasePlan)
	robot := a.RobotPose()
	planStart := time.Now()
	target, err := a.planner.CycleAuto(robot, moving)
	planDur := time.Since(planStart)
	if err != nil {
		return fmt.Errorf("cycle %d: %w", a.cycle+1, err)
	}
	a.cycle++
	a.planTime += planDur
	a.last = target
	relaxations := 0
	if a.planner.Refreshed() {
		relaxations = a.planner.Search().Relaxations()
		a.relaxations += relaxations
	}

	a.perf.StartPhase(telemetry.PhaseDrive)
	pos, heading := a.drive.Advance(robot.Position, robot.Heading, a.dt)
	*a.posMap.Get(a.robot) = components.Position{X: pos.X, Y: pos.Y}
	rc := a.robotMap.Get(a.robot)
	rc.Heading = heading
	rc.Speed = target.Speed

	if err := a.checkGoal(pathfinding.Pose{Position: pos, Heading: heading}); err != nil {
		return err
	}
	if a.planner.Stalled() && !a.stallLogged {
		a.stallLogged = true
		a.logger.Warn("planner stalled",
			"cycle", a.cycle,
			"goal_cell", a.planner.GoalCell(),
			"robot_x", pos.X,
			"robot_y", pos.Y,
		)
	}

	a.perf.StartPhase(telemetry.PhaseTelemetry)
	rec := telemetry.CycleRecord{
		Cycle:        a.cycle,
		SimTimeSec:   float64(a.cycle) * a.dt,
		RobotX:       pos.X,
		RobotY:       pos.Y,
		TargetX:      target.Cell.X,
		TargetY:      target.Cell.Y,
		Cost:         target.Cost,
		Speed:        target.Speed,
		Refreshed:    a.planner.Refreshed(),
		Relaxations:  relaxations,
		Stalled:      target.Stalled,
		AtGoal:       target.AtGoal,
		GoalVisible:  a.GoalVisible(),
		GoalIndex:    a.goalIndex,
		GoalsReached: a.goalsReached,
		PlanUS:       planDur.Microseconds(),
		Moving:       len(moving),
	}
	a.collector.Record(rec)
	if err := a.output.WriteCycle(rec); err != nil {
		return err
	}
	if a.collector.ShouldFlush(a.cycle) {
		if err := a.flushWindow(); err != nil {
			return err
		}
	}

	a.perf.EndCycle()
	return nil
}

// checkGoal retargets to the next queued goal once the robot arrives. An
// ad-hoc goal hands back to the goal it interrupted without counting.
func (a *Arena) checkGoal(robot pathfinding.Pose) error {
	if a.adHoc {
		reached, err := a.planner.PathEndCheck(robot, a.goals[a.goalIndex])
		if err != nil {
			return fmt.Errorf("resuming goal %d: %w", a.goalIndex, err)
		}
		if reached {
			a.logger.Info("ad-hoc goal reached",
				"cycle", a.cycle,
				"resume_index", a.goalIndex,
				"robot_x", robot.Position.X,
				"robot_y", robot.Position.Y,
			)
			a.adHoc = false
			a.stallLogged = false
		}
		return nil
	}

	next := (a.goalIndex + 1) % len(a.goals)
	reached, err := a.planner.PathEndCheck(robot, a.goals[next])
	if err != nil {
		return fmt.Errorf("retargeting to goal %d: %w", next, err)
	}
	if !reached {
		return nil
	}
	a.logger.Info("goal reached",
		"cycle", a.cycle,
		"goal_index", a.goalIndex,
		"robot_x", robot.Position.X,
		"robot_y", robot.Position.Y,
	)
	a.goalIndex = next
	a.goalsReached++
	a.stallLogged = false
	a.collector.RecordGoalReached()
	return nil
}

func (a *Arena) flushWindow() error {
	stats := a.collector.Flush(a.cycle)
	perf := a.perf.Stats()
	if a.logStats {
		stats.LogStats(a.logger)
		perf.LogStats(a.logger)
	}
	for _, b := range a.bookmarks.Check(stats) {
		b.LogBookmark(a.logger)
		if a.output == nil || !a.cfg.Telemetry.Snapshots {
			continue
		}
		path, err := telemetry.SaveSnapshot(a.Snapshot(&b), filepath.Join(a.output.Dir(), "snapshots"))
		if err != nil {
			a.logger.Warn("snapshot failed", "cycle", a.cycle, "error", err)
			continue
		}
		a.logger.Debug("snapshot saved", "path", path)
	}
	if err := a.output.WriteStats(stats); err != nil {
		return err
	}
	return a.output.WritePerf(perf, a.cycle)
}

// Snapshot captures the arena state, tagged with b when non-nil.
func (a *Arena) Snapshot(b *telemetry.Bookmark) *telemetry.Snapshot {
	robot := a.RobotPose()
	goal := a.planner.Goal()
	snap := &telemetry.Snapshot{
		Version:      telemetry.SnapshotVersion,
		RunID:        a.output.RunID(),
		Seed:         a.seed,
		FieldWidth:   a.cfg.Field.Width,
		FieldHeight:  a.cfg.Field.Height,
		CellSize:     a.cfg.Field.CellSize,
		Cycle:        a.cycle,
		Robot:        telemetry.PoseState{X: robot.Position.X, Y: robot.Position.Y, Heading: robot.Heading},
		Goal:         telemetry.PoseState{X: goal.Position.X, Y: goal.Position.Y, Heading: goal.Heading},
		GoalIndex:    a.goalIndex,
		GoalsReached: a.goalsReached,
		TargetCell:   [2]int{a.last.Cell.X, a.last.Cell.Y},
		Stalled:      a.last.Stalled,
		Bookmark:     b,
	}
	if !math.IsInf(a.last.Cost, 0) && !math.IsNaN(a.last.Cost) {
		cost := a.last.Cost
		snap.Cost = &cost
	}

	query := a.obstacleFilter.Query()
	for query.Next() {
		pos, vel, fp, _ := query.Get()
		o := telemetry.ObstacleState{X: pos.X, Y: pos.Y, VelX: vel.X, VelY: vel.Y}
		if fp.Kind == components.FootprintRect {
			o.Kind, o.HalfW, o.HalfH = "rect", fp.HalfW, fp.HalfH
		} else {
			o.Kind, o.Radius = "circle", fp.Radius
		}
		snap.Moving = append(snap.Moving, o)
	}
	return snap
}

// Retarget sends the robot to an ad-hoc goal at pos. Once it is reached
// the robot resumes the queued goal it was heading for.
func (a *Arena) Retarget(pos r2.Vec) error {
	goal := pathfinding.Pose{Position: pos, Heading: a.planner.Goal().Heading}
	if err := a.planner.Retarget(goal); err != nil {
		a.logger.Warn("retarget rejected", "x", pos.X, "y", pos.Y, "error", err)
		return err
	}
	a.adHoc = true
	a.stallLogged = false
	return nil
}

// Run steps until every queued goal has been reached once, the planner
// stalls, or maxCycles cycles have run.
func (a *Arena) Run(maxCycles int) (Result, error) {
	for a.cycle < maxCycles && a.goalsReached < len(a.goals) && !a.planner.Stalled() {
		if err := a.Step(); err != nil {
			return a.result(), err
		}
	}
	return a.result(), nil
}

func (a *Arena) result() Result {
	return Result{
		Cycles:       a.cycle,
		GoalsReached: a.goalsReached,
		Relaxations:  a.relaxations,
		Stalled:      a.planner.Stalled(),
		PlanTime:     a.planTime,
	}
}

// RobotPose returns the robot's current pose.
func (a *Arena) RobotPose() pathfinding.Pose {
	pos := a.posMap.Get(a.robot)
	return pathfinding.Pose{Position: pos.Vec(), Heading: a.robotMap.Get(a.robot).Heading}
}

// RobotShape returns the robot footprint at its current position.
func (a *Arena) RobotShape() geom.Shape {
	_, fp, _ := a.robotMapper.Get(a.robot)
	return fp.Shape(*a.posMap.Get(a.robot))
}

// MovingShapes returns the current moving obstacle footprints.
func (a *Arena) MovingShapes() []geom.Shape {
	var shapes []geom.Shape
	query := a.obstacleFilter.Query()
	for query.Next() {
		pos, _, fp, _ := query.Get()
		shapes = append(shapes, fp.Shape(*pos))
	}
	return shapes
}

// GoalVisible reports whether the robot can drive straight to the current
// goal past every stationary and moving obstacle.
func (a *Arena) GoalVisible() bool {
	step := a.cfg.Field.CellSize / 4
	from := a.RobotPose().Position
	to := a.planner.Goal().Position
	return pathfinding.PointSeeable(from, to, a.stationary, step) &&
		pathfinding.PointSeeable(from, to, a.moving, step)
}

// Stationary returns the projected stationary obstacles.
func (a *Arena) Stationary() []*pathfinding.Obstacle { return a.stationary }

// Field returns the planner's field.
func (a *Arena) Field() *pathfinding.GriddedField { return a.field }

// Planner returns the planner driving the robot.
func (a *Arena) Planner() *pathfinding.Planner { return a.planner }

// LastTarget returns the target produced by the last Step.
func (a *Arena) LastTarget() pathfinding.MotionTarget { return a.last }

// Cycle returns the number of completed cycles.
func (a *Arena) Cycle() int { return a.cycle }

// GoalsReached returns how many goals the robot has reached.
func (a *Arena) GoalsReached() int { return a.goalsReached }

// GoalIndex returns the index of the current goal in the queue.
func (a *Arena) GoalIndex() int { return a.goalIndex }

// Goals returns the goal queue.
func (a *Arena) Goals() []pathfinding.Pose { return a.goals }

// Perf returns the cycle timing collector.
func (a *Arena) Perf() *telemetry.PerfCollector { return a.perf }

// Config returns the arena configuration.
func (a *Arena) Config() *config.Config { return a.cfg }

// Flush writes the partial stats window, if any cycles are pending.
func (a *Arena) Flush() error {
	if a.collector.ShouldFlush(a.cycle) || a.cycle%a.collector.WindowCycles() != 0 {
		return a.flushWindow()
	}
	return nil
}
