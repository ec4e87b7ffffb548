// Package pathfinding plans short-range robot motion on a uniform grid.
//
// Obstacles are rasterized into a GriddedField, a wavefront Search assigns
// every reachable cell a cost-to-goal, and a Planner turns that cost field
// into one motion target per control cycle:
//
//   - Obstacle: a shape inflated by the robot radius so the robot is a point.
//   - GriddedField: the cell arena with a stationary layer and a per-cycle overlay.
//   - Search: heap-driven cost propagation from the goal, biased toward the
//     goal bearing once costs pass a threshold.
//   - Planner: refresh scheduling, goal retargeting and the per-cycle query.
//
// Nothing in this package is safe for concurrent use. A field and its
// planner belong to the control loop that drives them.
package pathfinding
