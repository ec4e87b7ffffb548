package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CycleRecord is one control cycle as written to cycles.csv.
type CycleRecord struct {
	RunID        string  `csv:"run_id"`
	Cycle        int     `csv:"cycle"`
	SimTimeSec   float64 `csv:"sim_time"`
	RobotX       float64 `csv:"robot_x"`
	RobotY       float64 `csv:"robot_y"`
	TargetX      int     `csv:"target_cell_x"`
	TargetY      int     `csv:"target_cell_y"`
	Cost         float64 `csv:"cost"`
	Speed        float64 `csv:"speed"`
	Refreshed    bool    `csv:"refreshed"`
	Relaxations  int     `csv:"relaxations"`
	Stalled      bool    `csv:"stalled"`
	AtGoal       bool    `csv:"at_goal"`
	GoalVisible  bool    `csv:"goal_visible"`
	GoalIndex    int     `csv:"goal_index"`
	GoalsReached int     `csv:"goals_reached"`
	PlanUS       int64   `csv:"plan_us"`
	Moving       int     `csv:"moving_obstacles"`
}

// WindowStats holds aggregated statistics for a window of cycles.
type WindowStats struct {
	RunID            string  `csv:"run_id"`
	WindowStartCycle int     `csv:"-"`
	WindowEndCycle   int     `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	Cycles        int `csv:"cycles"`
	Refreshes     int `csv:"refreshes"`
	GoalsReached  int `csv:"goals_reached"`
	StalledCycles int `csv:"stalled_cycles"`

	// Relaxations per refresh
	RelaxMean float64 `csv:"relax_mean"`
	RelaxMax  float64 `csv:"relax_max"`

	// Planner wall time per cycle
	PlanMeanUS float64 `csv:"plan_mean_us"`
	PlanStdUS  float64 `csv:"plan_std_us"`
	PlanP90US  float64 `csv:"plan_p90_us"`
	PlanMaxUS  float64 `csv:"plan_max_us"`

	// Remaining cost over cycles where it was finite
	CostMean float64 `csv:"cost_mean"`
	CostMin  float64 `csv:"cost_min"`
}

// Summary is the mean, standard deviation, 90th percentile and maximum of a sample.
type Summary struct {
	Mean, Std, P90, Max float64
}

// Summarize computes a Summary. An empty sample gives all zeros.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 || math.IsNaN(std) {
		std = 0
	}
	return Summary{
		Mean: mean,
		Std:  std,
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:  floats.Max(sorted),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", s.RunID),
		slog.Int("window_start", s.WindowStartCycle),
		slog.Int("window_end", s.WindowEndCycle),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("refreshes", s.Refreshes),
		slog.Int("goals_reached", s.GoalsReached),
		slog.Int("stalled_cycles", s.StalledCycles),
		slog.Float64("relax_mean", s.RelaxMean),
		slog.Float64("relax_max", s.RelaxMax),
		slog.Float64("plan_mean_us", s.PlanMeanUS),
		slog.Float64("plan_p90_us", s.PlanP90US),
		slog.Float64("plan_max_us", s.PlanMaxUS),
		slog.Float64("cost_mean", s.CostMean),
	)
}

// LogStats logs the window summary at info level.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats",
		"window_end", s.WindowEndCycle,
		"sim_time", s.SimTimeSec,
		"refreshes", s.Refreshes,
		"goals_reached", s.GoalsReached,
		"stalled_cycles", s.StalledCycles,
		"relax_mean", int(s.RelaxMean),
		"plan_p90_us", int(s.PlanP90US),
		"cost_mean", float64(int(s.CostMean*10))/10,
	)
}
