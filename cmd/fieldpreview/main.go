// Field preview tool - interactive view of the cost wavefront with sliders.
//
// Usage: go run ./cmd/fieldpreview [-config path]
//
// Left click sets the goal, right click sets the start the descent is
// traced from.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/camera"
	"github.com/pthm-cable/gridnav/config"
	"github.com/pthm-cable/gridnav/pathfinding"
	"github.com/pthm-cable/gridnav/renderer"
)

const (
	windowWidth  = 1400
	windowHeight = 720
	panelWidth   = 320
	viewWidth    = windowWidth - panelWidth
)

// previewState is everything the sliders and clicks control.
type previewState struct {
	params    pathfinding.SearchParams
	inflation pathfinding.InflationMode
	goal      r2.Vec
	start     r2.Vec
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	inflation, err := pathfinding.ParseInflationMode(cfg.Planner.Inflation)
	if err != nil {
		log.Fatalf("invalid inflation: %v", err)
	}

	rl.InitWindow(windowWidth, windowHeight, "Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	state := previewState{
		params: pathfinding.SearchParams{
			CostThreshold:  cfg.Planner.CostThreshold,
			MaxRelaxations: cfg.Planner.MaxRelaxations,
		},
		inflation: inflation,
		goal:      cfg.Arena.Goals[0].Position(),
		start:     cfg.Arena.Start.Position(),
	}

	cam := camera.New(viewWidth, windowHeight, float32(cfg.Field.Width), float32(cfg.Field.Height))
	var (
		field     *pathfinding.GriddedField
		search    *pathfinding.Search
		view      *renderer.FieldRenderer
		obstacles []*pathfinding.Obstacle
		elapsed   time.Duration
		buildErr  error
	)
	defer func() {
		if view != nil {
			view.Unload()
		}
	}()

	needsField := true
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsField {
			obstacles, field, buildErr = buildField(cfg, state.inflation)
			if view != nil {
				view.Unload()
			}
			search = nil
			if field != nil {
				view = renderer.NewFieldRenderer(cam, field.Cols(), field.Rows())
			}
			needsField = false
			needsRegen = true
		}
		if needsRegen && field != nil {
			s, d, err := propagate(field, state)
			buildErr = err
			if err == nil {
				search, elapsed = s, d
			}
			needsRegen = false
		}

		// Clicks inside the field view move the goal or the start.
		m := rl.GetMousePosition()
		if m.X < viewWidth {
			wx, wy := cam.ScreenToWorld(m.X, m.Y)
			p := r2.Vec{X: float64(wx), Y: float64(wy)}
			if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
				state.goal = p
				needsRegen = true
			}
			if rl.IsMouseButtonPressed(rl.MouseButtonRight) {
				state.start = p
			}
			if wheel := rl.GetMouseWheelMove(); wheel != 0 {
				cam.ZoomAt(m.X, m.Y, 1+wheel*0.1)
			}
		}
		if rl.IsKeyPressed(rl.KeyHome) {
			cam.Reset()
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)

		if field != nil && search != nil {
			rl.BeginScissorMode(0, 0, viewWidth, windowHeight)
			view.DrawBackground(field.Size())
			view.DrawHeatmap(field, renderer.MaxFiniteCost(field))
			view.DrawObstacles(obstacles, renderer.StationaryColor, true)
			if from, err := field.CoordsToBox(state.start); err == nil {
				view.DrawPath(field, state.start, search.Trace(from, field.Cols()+field.Rows()))
			}
			view.DrawMarker(state.goal, 14, renderer.GoalColor)
			view.DrawMarker(state.start, 8, renderer.RobotColor)
			rl.EndScissorMode()
		}

		if drawPanel(&state, search, elapsed, buildErr) {
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: viewWidth + 150, Y: windowHeight - 95, Width: 140, Height: 30}, "Toggle inflation") {
			if state.inflation == pathfinding.InflateBuffer {
				state.inflation = pathfinding.InflateScale
			} else {
				state.inflation = pathfinding.InflateBuffer
			}
			needsField = true
		}

		// Copy to clipboard on C key
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(plannerYAML(state))
		}

		rl.EndDrawing()
	}
}

// buildField rasterises the configured stationary obstacles.
func buildField(cfg *config.Config, mode pathfinding.InflationMode) ([]*pathfinding.Obstacle, *pathfinding.GriddedField, error) {
	var obstacles []*pathfinding.Obstacle
	for _, oc := range cfg.Arena.Stationary {
		shape, err := oc.Shape()
		if err != nil {
			return nil, nil, err
		}
		o, err := pathfinding.NewObstacle(shape, cfg.Derived.RobotRadius, mode)
		if err != nil {
			return nil, nil, fmt.Errorf("obstacle %s: %w", oc.Name, err)
		}
		obstacles = append(obstacles, o)
	}
	field, err := pathfinding.NewGriddedField(cfg.Field.Width, cfg.Field.Height, cfg.Field.CellSize, obstacles)
	return obstacles, field, err
}

// propagate runs a full propagation toward the state's goal and times it.
func propagate(field *pathfinding.GriddedField, state previewState) (*pathfinding.Search, time.Duration, error) {
	goal, err := field.CoordsToBox(state.goal)
	if err != nil {
		return nil, 0, err
	}
	search, err := pathfinding.NewSearch(field, goal, state.params)
	if err != nil {
		return nil, 0, err
	}
	start := time.Now()
	err = search.AssignCosts(goal)
	return search, time.Since(start), err
}

// drawPanel draws the parameter sliders and statistics, and reports
// whether a parameter changed.
func drawPanel(state *previewState, search *pathfinding.Search, elapsed time.Duration, buildErr error) bool {
	changed := false
	panelX := float32(viewWidth + 15)
	panelY := float32(10)

	rl.DrawRectangle(viewWidth, 0, panelWidth, windowHeight, rl.RayWhite)
	rl.DrawText("Wavefront Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
	panelY += 35

	rl.DrawText("Cost threshold (dense radius, cells)", int32(panelX), int32(panelY), 14, rl.Gray)
	panelY += 18
	newThreshold := gui.SliderBar(
		rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 90, Height: 20},
		"", "",
		float32(state.params.CostThreshold), 1, 400,
	)
	rl.DrawText(fmt.Sprintf("%.0f", state.params.CostThreshold), int32(panelX+panelWidth-80), int32(panelY+2), 16, rl.DarkGray)
	if float64(int(newThreshold)) != state.params.CostThreshold {
		state.params.CostThreshold = float64(int(newThreshold))
		changed = true
	}
	panelY += 35

	rl.DrawText("Max relaxations per box", int32(panelX), int32(panelY), 14, rl.Gray)
	panelY += 18
	newRelax := gui.SliderBar(
		rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth - 90, Height: 20},
		"", "",
		float32(state.params.MaxRelaxations), 1, 10,
	)
	rl.DrawText(fmt.Sprintf("%d", state.params.MaxRelaxations), int32(panelX+panelWidth-80), int32(panelY+2), 16, rl.DarkGray)
	if int(newRelax+0.5) != state.params.MaxRelaxations {
		state.params.MaxRelaxations = int(newRelax + 0.5)
		changed = true
	}
	panelY += 45

	rl.DrawText(fmt.Sprintf("Inflation: %s", state.inflation), int32(panelX), int32(panelY), 16, rl.DarkGray)
	panelY += 30

	if buildErr != nil {
		rl.DrawText(buildErr.Error(), int32(panelX), int32(panelY), 14, rl.Red)
		panelY += 20
	}
	if search != nil {
		lines := []string{
			fmt.Sprintf("Goal cell: (%d, %d)", search.Goal().X, search.Goal().Y),
			fmt.Sprintf("Relaxations: %d", search.Relaxations()),
			fmt.Sprintf("Expanded: %d", search.Expanded()),
			fmt.Sprintf("Propagation: %s", elapsed.Round(time.Microsecond)),
		}
		for _, line := range lines {
			rl.DrawText(line, int32(panelX), int32(panelY), 16, rl.DarkGray)
			panelY += 20
		}
	}
	panelY += 15

	rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
	panelY += 25
	rl.DrawText(plannerYAML(*state), int32(panelX), int32(panelY), 14, rl.Gray)

	rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), windowHeight-30, 12, rl.Gray)
	return changed
}

func plannerYAML(state previewState) string {
	return fmt.Sprintf("planner:\n  cost_threshold: %.0f\n  max_relaxations: %d\n  inflation: %s",
		state.params.CostThreshold, state.params.MaxRelaxations, state.inflation)
}
