package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartCycle()
		pc.StartPhase(PhaseObstacles)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhasePlan)
		time.Sleep(200 * time.Microsecond)
		pc.EndCycle()
	}

	stats := pc.Stats()

	if stats.AvgCycle <= 0 {
		t.Error("expected positive average cycle duration")
	}
	if _, ok := stats.PhaseAvg[PhaseObstacles]; !ok {
		t.Error("expected obstacles phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[PhasePlan]; !ok {
		t.Error("expected plan phase to be tracked")
	}
	if stats.MinCycle > stats.AvgCycle || stats.AvgCycle > stats.MaxCycle {
		t.Errorf("expected min <= avg <= max, got %v %v %v", stats.MinCycle, stats.AvgCycle, stats.MaxCycle)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartCycle()
		pc.StartPhase(PhasePlan)
		time.Sleep(10 * time.Microsecond)
		pc.EndCycle()
	}

	stats := pc.Stats()
	if stats.AvgCycle <= 0 {
		t.Error("expected positive average cycle duration after window filled")
	}
	if stats.CyclesPerSecond <= 0 {
		t.Error("expected positive cycles per second")
	}
	if pc.sampleCount != 5 {
		t.Errorf("sampleCount = %d, want window size 5", pc.sampleCount)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartCycle()
		pc.StartPhase(PhaseObstacles)
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase(PhasePlan)
		time.Sleep(500 * time.Microsecond)
		pc.EndCycle()
	}

	stats := pc.Stats()
	if stats.PhasePct[PhasePlan] <= stats.PhasePct[PhaseObstacles] {
		t.Errorf("expected plan (%v%%) > obstacles (%v%%)", stats.PhasePct[PhasePlan], stats.PhasePct[PhaseObstacles])
	}

	row := stats.ToCSV("run", 42)
	if row.WindowEnd != 42 || row.PlanPct != stats.PhasePct[PhasePlan] {
		t.Errorf("ToCSV lost fields: %+v", row)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgCycle != 0 {
		t.Error("expected zero avg cycle duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("expected FPS in (0, 70] with 16ms frames, got %v", stats.FPS)
	}
}
