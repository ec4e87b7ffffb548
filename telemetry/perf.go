package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase names for one control cycle.
const (
	PhaseObstacles = "obstacles"
	PhasePlan      = "plan"
	PhaseDrive     = "drive"
	PhaseTelemetry = "telemetry"
)

// Phases lists the control cycle phases in execution order.
var Phases = []string{PhaseObstacles, PhasePlan, PhaseDrive, PhaseTelemetry}

// PerfSample holds timing data for a single cycle.
type PerfSample struct {
	CycleDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks control-loop timing over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	cycleStart    time.Time
	phaseStart    time.Time
	lastPhase     string

	// Frame timing (graphical mode)
	lastFrameTime time.Time
	frameDuration time.Duration
}

// NewPerfCollector creates a collector averaging over windowSize cycles.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartCycle begins timing a new control cycle.
func (p *PerfCollector) StartCycle() {
	p.cycleStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndCycle finishes timing the current cycle and records the sample.
func (p *PerfCollector) EndCycle() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		CycleDuration: now.Sub(p.cycleStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// RecordFrame records frame timing for graphical mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrameTime.IsZero() {
		p.frameDuration = now.Sub(p.lastFrameTime)
	}
	p.lastFrameTime = now
}

// PerfStats holds aggregated timing over the window.
type PerfStats struct {
	AvgCycle    time.Duration
	StdDevCycle time.Duration
	MinCycle    time.Duration
	MaxCycle    time.Duration

	// Average duration and share of cycle time per phase
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	CyclesPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var fps float64
	if p.frameDuration > 0 {
		fps = float64(time.Second) / float64(p.frameDuration)
	}

	out := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameDuration,
		FPS:           fps,
	}
	if p.sampleCount == 0 {
		return out
	}

	durations := make([]float64, p.sampleCount)
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		durations[i] = float64(s.CycleDuration)
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	mean, std := stat.MeanStdDev(durations, nil)
	if p.sampleCount == 1 {
		std = 0
	}
	out.AvgCycle = time.Duration(mean)
	out.StdDevCycle = time.Duration(std)
	out.MinCycle = time.Duration(floats.Min(durations))
	out.MaxCycle = time.Duration(floats.Max(durations))

	for phase, sum := range phaseSum {
		avg := sum / time.Duration(p.sampleCount)
		out.PhaseAvg[phase] = avg
		if out.AvgCycle > 0 {
			out.PhasePct[phase] = float64(avg) / float64(out.AvgCycle) * 100
		}
	}
	if out.AvgCycle > 0 {
		out.CyclesPerSecond = float64(time.Second) / float64(out.AvgCycle)
	}
	return out
}

// LogStats logs the timing summary at info level.
func (s PerfStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{
		"avg_cycle_us", s.AvgCycle.Microseconds(),
		"std_cycle_us", s.StdDevCycle.Microseconds(),
		"max_cycle_us", s.MaxCycle.Microseconds(),
		"cycles_per_sec", int(s.CyclesPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10)
		}
	}
	logger.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_cycle_us", s.AvgCycle.Microseconds()),
		slog.Int64("min_cycle_us", s.MinCycle.Microseconds()),
		slog.Int64("max_cycle_us", s.MaxCycle.Microseconds()),
		slog.Float64("cycles_per_sec", s.CyclesPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat row of perf.csv.
type PerfStatsCSV struct {
	RunID        string  `csv:"run_id"`
	WindowEnd    int     `csv:"window_end"`
	AvgCycleUS   int64   `csv:"avg_cycle_us"`
	StdCycleUS   int64   `csv:"std_cycle_us"`
	MinCycleUS   int64   `csv:"min_cycle_us"`
	MaxCycleUS   int64   `csv:"max_cycle_us"`
	CyclesPerSec float64 `csv:"cycles_per_sec"`
	FPS          float64 `csv:"fps"`
	ObstaclesPct float64 `csv:"obstacles_pct"`
	PlanPct      float64 `csv:"plan_pct"`
	DrivePct     float64 `csv:"drive_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats for the window ending at cycle windowEnd.
func (s PerfStats) ToCSV(runID string, windowEnd int) PerfStatsCSV {
	return PerfStatsCSV{
		RunID:        runID,
		WindowEnd:    windowEnd,
		AvgCycleUS:   s.AvgCycle.Microseconds(),
		StdCycleUS:   s.StdDevCycle.Microseconds(),
		MinCycleUS:   s.MinCycle.Microseconds(),
		MaxCycleUS:   s.MaxCycle.Microseconds(),
		CyclesPerSec: s.CyclesPerSecond,
		FPS:          s.FPS,
		ObstaclesPct: s.PhasePct[PhaseObstacles],
		PlanPct:      s.PhasePct[PhasePlan],
		DrivePct:     s.PhasePct[PhaseDrive],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
	}
}
