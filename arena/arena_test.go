package arena

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/config"
	"github.com/pthm-cable/gridnav/pathfinding"
	"github.com/pthm-cable/gridnav/telemetry"
)

// smallArena is a 400x200 cm field with a wall in the middle that leaves a
// gap along the top edge.
const smallArena = `
field: {width: 400, height: 200, cell_size: 5}
robot: {length: 20, width: 20, max_speed: 300, pid_kp: 3}
planner:
  cost_threshold: 200
  max_relaxations: 3
  refresh_interval: 5
  stall_cycles: 100
arena:
  control_hz: 50
  moving_obstacles: %d
  obstacle_speed: 150
  obstacle_radius: 12
  start: {x: 50, y: 100}
  goals:
    - {x: 350, y: 100}
    - {x: 50, y: 100}
  stationary:
    - {name: wall, kind: rect, x: 190, y: 0, w: 20, h: 120}
telemetry: {stats_window: 1.0, perf_collector_window: 30}
`

func testConfig(t *testing.T, moving int) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(smallArena, moving)), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunReachesEveryGoal(t *testing.T) {
	a, err := New(testConfig(t, 0), WithLogger(quietLogger()))
	require.NoError(t, err)

	res, err := a.Run(3000)
	require.NoError(t, err)

	assert.False(t, res.Stalled, "planner stalled at %+v", a.RobotPose())
	assert.Equal(t, 2, res.GoalsReached)
	assert.Less(t, res.Cycles, 3000)
	assert.Positive(t, res.Relaxations)
	assert.Equal(t, 0, a.GoalIndex(), "queue wraps back to the first goal")

	home := a.Goals()[1].Position
	pos := a.RobotPose().Position
	assert.InDelta(t, home.X, pos.X, a.Config().Robot.ArrivalTolerance)
	assert.InDelta(t, home.Y, pos.Y, a.Config().Robot.ArrivalTolerance)
}

func TestRobotNeverEntersWall(t *testing.T) {
	a, err := New(testConfig(t, 0), WithLogger(quietLogger()))
	require.NoError(t, err)

	for i := 0; i < 600 && a.GoalsReached() == 0; i++ {
		require.NoError(t, a.Step())
		for _, o := range a.Stationary() {
			require.False(t, o.Shape.Contains(a.RobotPose().Position),
				"cycle %d: robot centre inside %v", a.Cycle(), a.RobotPose().Position)
		}
	}
	assert.Equal(t, 1, a.GoalsReached())
}

func TestRunDeterministicForSeed(t *testing.T) {
	run := func(seed int64) (Result, *Arena) {
		a, err := New(testConfig(t, 2), WithSeed(seed), WithLogger(quietLogger()))
		require.NoError(t, err)
		res, err := a.Run(400)
		require.NoError(t, err)
		return res, a
	}

	first, a1 := run(7)
	second, a2 := run(7)
	ignoreTiming := cmpopts.IgnoreFields(Result{}, "PlanTime")
	if diff := cmp.Diff(first, second, ignoreTiming); diff != "" {
		t.Errorf("same seed, different result (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(a1.RobotPose(), a2.RobotPose()); diff != "" {
		t.Errorf("same seed, different robot pose:\n%s", diff)
	}
	if diff := cmp.Diff(a1.MovingShapes(), a2.MovingShapes()); diff != "" {
		t.Errorf("same seed, different obstacles:\n%s", diff)
	}

	_, other := run(8)
	assert.NotEqual(t, a1.MovingShapes(), other.MovingShapes(), "different seeds should place obstacles differently")
}

func TestMovingObstaclesStayInField(t *testing.T) {
	cfg := testConfig(t, 4)
	a, err := New(cfg, WithSeed(3), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Len(t, a.MovingShapes(), 4)

	for i := 0; i < 500; i++ {
		require.NoError(t, a.Step())
		for _, s := range a.MovingShapes() {
			b := s.Bounds()
			require.GreaterOrEqual(t, b.Min.X, -1e-9, "cycle %d", a.Cycle())
			require.GreaterOrEqual(t, b.Min.Y, -1e-9, "cycle %d", a.Cycle())
			require.LessOrEqual(t, b.Max.X, cfg.Field.Width+1e-9, "cycle %d", a.Cycle())
			require.LessOrEqual(t, b.Max.Y, cfg.Field.Height+1e-9, "cycle %d", a.Cycle())
		}
	}
}

func TestRefreshRelaxationsCounted(t *testing.T) {
	a, err := New(testConfig(t, 0), WithLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, a.Step())
	require.True(t, a.Planner().Refreshed(), "first cycle propagates")
	first := a.Planner().Search().Relaxations()

	res, err := a.Run(6)
	require.NoError(t, err)
	// With an interval of 5 the next refresh is on cycle 7.
	assert.Equal(t, 6, res.Cycles)
	assert.Equal(t, first, res.Relaxations)
}

func TestRunWritesOutput(t *testing.T) {
	cfg := testConfig(t, 1)
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir, telemetry.NewRunID())
	require.NoError(t, err)

	a, err := New(cfg, WithOutput(om), WithLogStats(true), WithLogger(quietLogger()))
	require.NoError(t, err)
	res, err := a.Run(120)
	require.NoError(t, err)
	require.NoError(t, a.Flush())
	require.NoError(t, om.Close())

	var cycles []telemetry.CycleRecord
	f, err := os.Open(filepath.Join(dir, "cycles.csv"))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gocsv.UnmarshalFile(f, &cycles))
	require.Len(t, cycles, res.Cycles)
	assert.Equal(t, 1, cycles[0].Cycle)
	assert.True(t, cycles[0].Refreshed)
	assert.Equal(t, om.RunID(), cycles[0].RunID)
	assert.Equal(t, 1, cycles[0].Moving)

	var stats []telemetry.WindowStats
	sf, err := os.Open(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	defer sf.Close()
	require.NoError(t, gocsv.UnmarshalFile(sf, &stats))
	require.NotEmpty(t, stats)
	assert.Equal(t, cfg.Derived.StatsCycles, stats[0].WindowEndCycle)
	assert.Equal(t, cfg.Derived.StatsCycles, stats[0].Cycles)
}

func TestSnapshotCapturesState(t *testing.T) {
	cfg := testConfig(t, 3)
	a, err := New(cfg, WithSeed(5), WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, a.Step())

	b := &telemetry.Bookmark{Type: telemetry.BookmarkStallOnset, Cycle: 1}
	snap := a.Snapshot(b)
	assert.Equal(t, int64(5), snap.Seed)
	assert.Equal(t, 1, snap.Cycle)
	assert.Len(t, snap.Moving, 3)
	assert.Equal(t, a.RobotPose().Position.X, snap.Robot.X)
	assert.Equal(t, 350.0, snap.Goal.X)
	assert.Same(t, b, snap.Bookmark)

	dir := t.TempDir()
	path, err := telemetry.SaveSnapshot(snap, dir)
	require.NoError(t, err)
	loaded, err := telemetry.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Moving, loaded.Moving)
}

func TestNewRejectsBadInflation(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Planner.Inflation = "shrink"
	_, err := New(cfg, WithLogger(quietLogger()))
	assert.Error(t, err)
}

func TestRetargetAdHocGoal(t *testing.T) {
	a, err := New(testConfig(t, 0), WithLogger(quietLogger()))
	require.NoError(t, err)

	require.NoError(t, a.Retarget(r(100, 150)))
	assert.Equal(t, r(100, 150), a.Planner().Goal().Position)
	assert.Error(t, a.Retarget(r(500, 50)), "outside the field")
	assert.Equal(t, r(100, 150), a.Planner().Goal().Position, "rejected goal leaves the current one")

	first := a.Goals()[0].Position
	for i := 0; i < 500 && a.Planner().Goal().Position != first; i++ {
		require.NoError(t, a.Step())
	}
	require.Equal(t, first, a.Planner().Goal().Position, "interrupted goal resumes after the ad-hoc goal")
	assert.Equal(t, 0, a.GoalsReached(), "ad-hoc goal is not counted")
	assert.Equal(t, 0, a.GoalIndex())

	for i := 0; i < 1000 && a.GoalsReached() == 0; i++ {
		require.NoError(t, a.Step())
	}
	assert.Equal(t, 1, a.GoalsReached())
	assert.Equal(t, 1, a.GoalIndex())
}

func TestMovingObstaclesKeepClearOfRobot(t *testing.T) {
	a, err := New(testConfig(t, 1), WithSeed(5), WithLogger(quietLogger()))
	require.NoError(t, err)

	// Aim the obstacle straight at the parked robot.
	robot := a.RobotPose().Position
	query := a.obstacleFilter.Query()
	for query.Next() {
		pos, vel, _, _ := query.Get()
		pos.X, pos.Y = robot.X+100, robot.Y
		vel.X, vel.Y = -a.Config().Arena.ObstacleSpeed, 0
	}

	clearance := a.robotClearance(a.Config().Arena.ObstacleRadius)
	for i := 0; i < 300; i++ {
		a.moveObstacles()
		for _, s := range a.MovingShapes() {
			c := s.Bounds()
			centre := r((c.Min.X+c.Max.X)/2, (c.Min.Y+c.Max.Y)/2)
			require.GreaterOrEqual(t, r2.Norm(r2.Sub(centre, robot)), clearance-1e-9, "step %d", i)
		}
	}
}

func TestReflect(t *testing.T) {
	tests := []struct {
		name      string
		v, normal r2.Vec
		want      r2.Vec
	}{
		{"head on", r(-3, 0), r(2, 0), r(3, 0)},
		{"glancing", r(-3, 4), r(1, 0), r(3, 4)},
		{"diagonal normal", r(0, -2), r(1, 1), r(2, 0)},
		{"zero normal reverses", r(1, 2), r(0, 0), r(-1, -2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reflect(tt.v, tt.normal)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}
}

func TestDefaultArenaReachesEveryGoal(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size field")
	}
	for _, seed := range []int64{1, 2, 3} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			t.Parallel()
			a, err := New(config.Default(), WithSeed(seed), WithLogger(quietLogger()))
			require.NoError(t, err)

			res, err := a.Run(20000)
			require.NoError(t, err)
			assert.False(t, res.Stalled, "stalled at cycle %d, robot %+v", res.Cycles, a.RobotPose())
			assert.Equal(t, len(a.Goals()), res.GoalsReached)
		})
	}
}

func TestKinematicDrive(t *testing.T) {
	d := NewKinematicDrive(2, 100)

	pos, heading := d.Advance(r(10, 10), 0.5, 0.1)
	assert.Equal(t, r(10, 10), pos, "no target yet")
	assert.Equal(t, 0.5, heading)

	assert.Equal(t, 100.0, d.SuggestSpeed(pose(0, 0), pose(300, 400)), "clamped")
	assert.InDelta(t, 10.0, d.SuggestSpeed(pose(0, 0), pose(3, 4)), 1e-9)

	d.GoTo(target(20, 10, 50))
	pos, _ = d.Advance(r(10, 10), 0, 0.1)
	assert.InDelta(t, 15.0, pos.X, 1e-9)
	assert.InDelta(t, 10.0, pos.Y, 1e-9)

	pos, _ = d.Advance(pos, 0, 1)
	assert.Equal(t, r(20, 10), pos, "no overshoot")

	stalled := target(50, 50, 50)
	stalled.Stalled = true
	d.GoTo(stalled)
	pos, _ = d.Advance(r(20, 10), 0, 1)
	assert.Equal(t, r(20, 10), pos, "stalled target holds position")

	got, ok := d.Target()
	assert.True(t, ok)
	assert.True(t, got.Stalled)
}

func r(x, y float64) r2.Vec { return r2.Vec{X: x, Y: y} }

func pose(x, y float64) pathfinding.Pose { return pathfinding.Pose{Position: r(x, y)} }

func target(x, y, speed float64) pathfinding.MotionTarget {
	return pathfinding.MotionTarget{Pose: pose(x, y), Speed: speed}
}
