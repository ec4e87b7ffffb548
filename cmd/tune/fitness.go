package main

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/gridnav/arena"
	"github.com/pthm-cable/gridnav/config"
)

// Fitness weights. A missed goal costs as much as a run that used every
// cycle, so reaching goals always dominates speed.
const (
	missedGoalPenalty = 1.0 // in units of maxCycles per missed goal
	planTimeWeight    = 0.5 // cycles charged per millisecond of planning per cycle
)

// FitnessEvaluator runs headless arena runs and scores a parameter vector.
type FitnessEvaluator struct {
	params     *ParamVector
	maxCycles  int
	seeds      []int64
	baseConfig *config.Config
	logger     *slog.Logger

	mu   sync.Mutex
	last evalSummary
}

// evalSummary aggregates one Evaluate call across seeds.
type evalSummary struct {
	Fitness      float64
	GoalsReached float64 // mean per seed
	Cycles       float64 // mean per seed
	PlanUS       float64 // mean planning time per cycle
	Stalls       int
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxCycles int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxCycles:  maxCycles,
		seeds:      seeds,
		baseConfig: baseCfg,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Last returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) Last() evalSummary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	res arena.Result
	err error
}

// Evaluate computes fitness for raw parameter values (lower = better).
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel; cfg is read-only from here on.
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			a, err := arena.New(cfg, arena.WithSeed(s), arena.WithLogger(fe.logger))
			if err != nil {
				results[idx] = seedResult{err: err}
				return
			}
			res, err := a.Run(fe.maxCycles)
			results[idx] = seedResult{res: res, err: err}
		}(i, seed)
	}
	wg.Wait()

	goals := len(cfg.Arena.Goals)
	var sum evalSummary
	for _, r := range results {
		sum.Fitness += fe.computeFitness(r, goals)
		sum.GoalsReached += float64(r.res.GoalsReached)
		sum.Cycles += float64(r.res.Cycles)
		if r.res.Cycles > 0 {
			sum.PlanUS += float64(r.res.PlanTime.Microseconds()) / float64(r.res.Cycles)
		}
		if r.res.Stalled {
			sum.Stalls++
		}
	}
	n := float64(len(fe.seeds))
	sum.Fitness /= n
	sum.GoalsReached /= n
	sum.Cycles /= n
	sum.PlanUS /= n

	fe.mu.Lock()
	fe.last = sum
	fe.mu.Unlock()
	return sum.Fitness
}

// computeFitness scores one run: cycles used, plus a full run's worth of
// cycles per missed goal, plus a charge for planning time.
func (fe *FitnessEvaluator) computeFitness(r seedResult, goals int) float64 {
	if r.err != nil {
		return float64(10 * (goals + 1) * fe.maxCycles)
	}
	missed := goals - r.res.GoalsReached
	fitness := float64(r.res.Cycles) + missedGoalPenalty*float64(missed*fe.maxCycles)
	if r.res.Cycles > 0 {
		perCycle := r.res.PlanTime / time.Duration(r.res.Cycles)
		fitness += planTimeWeight * float64(perCycle) / float64(time.Millisecond) * float64(r.res.Cycles)
	}
	return fitness
}

// copyConfig returns a copy safe to modify planner settings on. Slices are
// shared with the base config and never written.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	return &c
}
