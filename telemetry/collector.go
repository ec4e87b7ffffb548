// Package telemetry provides per-cycle logs, windowed planner statistics,
// bookmarks and snapshots.
package telemetry

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Collector accumulates cycle records within a window and produces WindowStats.
type Collector struct {
	runID        string
	windowCycles int
	dt           float64

	windowStart  int
	cycles       int
	refreshes    int
	goalsReached int
	stalled      int
	relaxations  []float64
	planUS       []float64
	costs        []float64
}

// NewCollector creates a collector flushing every windowCycles cycles of dt seconds.
func NewCollector(runID string, windowCycles int, dt float64) *Collector {
	return &Collector{
		runID:        runID,
		windowCycles: max(windowCycles, 1),
		dt:           dt,
	}
}

// Record adds one cycle to the current window.
func (c *Collector) Record(r CycleRecord) {
	c.cycles++
	if r.Refreshed {
		c.refreshes++
		c.relaxations = append(c.relaxations, float64(r.Relaxations))
	}
	if r.Stalled {
		c.stalled++
	}
	c.planUS = append(c.planUS, float64(r.PlanUS))
	if !math.IsInf(r.Cost, 0) && !math.IsNaN(r.Cost) {
		c.costs = append(c.costs, r.Cost)
	}
}

// RecordGoalReached counts a goal reached in the current window.
func (c *Collector) RecordGoalReached() {
	c.goalsReached++
}

// ShouldFlush reports whether the window ending at cycle is full.
func (c *Collector) ShouldFlush(cycle int) bool {
	return cycle-c.windowStart >= c.windowCycles
}

// Flush produces WindowStats for the window ending at cycle and starts a new one.
func (c *Collector) Flush(cycle int) WindowStats {
	relax := Summarize(c.relaxations)
	plan := Summarize(c.planUS)
	cost := Summarize(c.costs)
	costMin := 0.0
	if len(c.costs) > 0 {
		costMin = floats.Min(c.costs)
	}

	stats := WindowStats{
		RunID:            c.runID,
		WindowStartCycle: c.windowStart,
		WindowEndCycle:   cycle,
		SimTimeSec:       float64(cycle) * c.dt,
		Cycles:           c.cycles,
		Refreshes:        c.refreshes,
		GoalsReached:     c.goalsReached,
		StalledCycles:    c.stalled,
		RelaxMean:        relax.Mean,
		RelaxMax:         relax.Max,
		PlanMeanUS:       plan.Mean,
		PlanStdUS:        plan.Std,
		PlanP90US:        plan.P90,
		PlanMaxUS:        plan.Max,
		CostMean:         cost.Mean,
		CostMin:          costMin,
	}

	c.windowStart = cycle
	c.cycles = 0
	c.refreshes = 0
	c.goalsReached = 0
	c.stalled = 0
	c.relaxations = c.relaxations[:0]
	c.planUS = c.planUS[:0]
	c.costs = c.costs[:0]

	return stats
}

// WindowCycles returns the number of cycles per window.
func (c *Collector) WindowCycles() int {
	return c.windowCycles
}
