package pathfinding

import "gonum.org/v1/gonum/spatial/r2"

// Pose is a field position plus heading in radians.
type Pose struct {
	Position r2.Vec
	Heading  float64
}

// MotionTarget is the per-cycle output handed to the drive.
type MotionTarget struct {
	Pose  Pose
	Speed float64

	Cell    Cell    // cell the target lies in
	Cost    float64 // propagated cost at Cell, +Inf when unknown
	Stalled bool    // no usable neighbour; Pose is the robot's own position
	AtGoal  bool    // robot is in the goal cell; Pose is the goal pose
}

// Drive performs PID and motor actuation toward a target. The planner
// never touches actuators itself.
type Drive interface {
	GoTo(target MotionTarget)
	// SuggestSpeed returns a speed toward goal from the drive's own controller.
	SuggestSpeed(robot, goal Pose) float64
}
