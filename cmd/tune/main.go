// Package main tunes the planner's propagation parameters with CMA-ES,
// scoring each candidate on headless arena runs across several seeds.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/gridnav/config"
)

// evalRow is one line of tune_log.csv.
type evalRow struct {
	Eval            int     `csv:"eval"`
	Fitness         float64 `csv:"fitness"`
	CostThreshold   float64 `csv:"cost_threshold"`
	MaxRelaxations  int     `csv:"max_relaxations"`
	RefreshInterval int     `csv:"refresh_interval"`
	GoalsReached    float64 `csv:"goals_reached"`
	Cycles          float64 `csv:"cycles"`
	PlanUS          float64 `csv:"plan_us"`
	Stalls          int     `csv:"stalls"`
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxCycles := flag.Int("max-ticks", 6000, "Control cycles per run (cap)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 60, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	params := NewParamVector()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, *maxCycles, evalSeeds, baseCfg)

	dim := params.Dim()
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // seeds already run in parallel
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e18
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			sum := evaluator.Last()
			row := []evalRow{{
				Eval:            evalCount,
				Fitness:         fitness,
				CostThreshold:   clamped[0],
				MaxRelaxations:  int(clamped[1]),
				RefreshInterval: int(clamped[2]),
				GoalsReached:    sum.GoalsReached,
				Cycles:          sum.Cycles,
				PlanUS:          sum.PlanUS,
				Stalls:          sum.Stalls,
			}}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(row, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(row, logFile)
			}
			if werr != nil {
				log.Printf("failed to log evaluation %d: %v", evalCount, werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			fmt.Printf("Eval %d/%d: threshold=%.1f relax=%d refresh=%d goals=%.2f cycles=%.0f plan=%.0fus (best=%.0f) | elapsed: %s, ETA: %s\n",
				evalCount, *maxEvals, clamped[0], int(clamped[1]), int(clamped[2]),
				sum.GoalsReached, sum.Cycles, sum.PlanUS, bestFitness,
				formatDuration(elapsed), formatDuration(remaining))

			return fitness
		},
	}

	fmt.Printf("Starting CMA-ES tuning with %d parameters, population=%d, max_evals=%d\n",
		dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, cycles per run: %d\n", *seeds, *maxCycles)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.0f\n", bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %g\n", spec.Path, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)

	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		log.Printf("failed to write best config: %v", err)
	} else {
		fmt.Printf("\nBest config saved to: %s\n", configOutPath)
	}
}
