package arena

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/pathfinding"
)

// KinematicDrive is an idealised drivetrain: it moves straight at the
// commanded speed toward the last target and turns instantly.
type KinematicDrive struct {
	kp       float64
	maxSpeed float64
	target   pathfinding.MotionTarget
	hasGoal  bool
}

// NewKinematicDrive creates a drive with proportional gain kp and a speed clamp.
func NewKinematicDrive(kp, maxSpeed float64) *KinematicDrive {
	return &KinematicDrive{kp: kp, maxSpeed: maxSpeed}
}

// GoTo implements pathfinding.Drive.
func (d *KinematicDrive) GoTo(target pathfinding.MotionTarget) {
	d.target = target
	d.hasGoal = true
}

// SuggestSpeed implements pathfinding.Drive: a P-controller on each axis,
// combined and clamped to the maximum speed.
func (d *KinematicDrive) SuggestSpeed(robot, goal pathfinding.Pose) float64 {
	ux := d.kp * (goal.Position.X - robot.Position.X)
	uy := d.kp * (goal.Position.Y - robot.Position.Y)
	return math.Min(math.Hypot(ux, uy), d.maxSpeed)
}

// Target returns the last target received.
func (d *KinematicDrive) Target() (pathfinding.MotionTarget, bool) {
	return d.target, d.hasGoal
}

// Advance moves pos toward the current target for dt seconds without
// overshooting, and returns the new position and heading.
func (d *KinematicDrive) Advance(pos r2.Vec, heading, dt float64) (r2.Vec, float64) {
	if !d.hasGoal || d.target.Stalled {
		return pos, heading
	}
	speed := math.Min(math.Max(d.target.Speed, 0), d.maxSpeed)
	delta := r2.Sub(d.target.Pose.Position, pos)
	dist := r2.Norm(delta)
	step := speed * dt
	if dist <= step || dist == 0 {
		return d.target.Pose.Position, d.target.Pose.Heading
	}
	return r2.Add(pos, r2.Scale(step/dist, delta)), d.target.Pose.Heading
}
