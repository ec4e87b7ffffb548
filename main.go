package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/gridnav/arena"
	"github.com/pthm-cable/gridnav/config"
	"github.com/pthm-cable/gridnav/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	debug := flag.Bool("debug", false, "Log planner refreshes at debug level")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed for moving obstacles (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N control cycles (0 = until every goal is reached)")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	runID := telemetry.NewRunID()
	output, err := telemetry.NewOutputManager(*outputDir, runID)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	a, err := arena.New(cfg,
		arena.WithSeed(rngSeed),
		arena.WithLogger(logger),
		arena.WithOutput(output),
		arena.WithLogStats(*logStats),
	)
	if err != nil {
		slog.Error("failed to build arena", "error", err)
		os.Exit(1)
	}

	if *headless {
		runHeadless(a, *maxTicks, runID)
		return
	}

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Gridnav")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := newViewer(a)
	defer v.Unload()

	for !rl.WindowShouldClose() {
		if err := v.Update(); err != nil {
			slog.Error("cycle failed", "cycle", a.Cycle(), "error", err)
			break
		}
		v.Draw()

		if *maxTicks > 0 && a.Cycle() >= *maxTicks {
			break
		}
	}
	if err := a.Flush(); err != nil {
		slog.Error("failed to flush stats", "error", err)
	}
}

// runHeadless steps the arena as fast as possible and logs the outcome.
func runHeadless(a *arena.Arena, maxTicks int, runID string) {
	limit := maxTicks
	if limit <= 0 {
		// Generous ceiling so a planner that never stalls cannot run forever.
		limit = int(10 * 60 * a.Config().Arena.ControlHz)
	}

	slog.Info("starting headless run",
		"run_id", runID,
		"max_ticks", limit,
		"goals", len(a.Goals()),
	)

	start := time.Now()
	res, err := a.Run(limit)
	if ferr := a.Flush(); ferr != nil {
		slog.Error("failed to flush stats", "error", ferr)
	}
	if err != nil {
		slog.Error("run failed", "cycle", res.Cycles, "error", err)
		os.Exit(1)
	}

	attrs := []any{
		"cycles", res.Cycles,
		"goals_reached", res.GoalsReached,
		"stalled", res.Stalled,
		"relaxations", res.Relaxations,
		"plan_time", res.PlanTime,
		"wall_time", time.Since(start),
	}
	if res.Cycles > 0 {
		attrs = append(attrs, "plan_per_cycle", res.PlanTime/time.Duration(res.Cycles))
	}
	slog.Info("run finished", attrs...)
	if res.Stalled {
		os.Exit(2)
	}
}
