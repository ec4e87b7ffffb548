package main

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/arena"
	"github.com/pthm-cable/gridnav/camera"
	"github.com/pthm-cable/gridnav/renderer"
)

const controlsLegend = "[Space] pause  [N] step  [H] costs  [P] path  [Click] set goal  [Arrows/Wheel] pan/zoom  [Home] reset view"

// viewer runs the arena in real time and draws it.
type viewer struct {
	arena  *arena.Arena
	camera *camera.Camera
	field  *renderer.FieldRenderer
	hud    *renderer.HUD

	accumulator  float32
	paused       bool
	stepOnce     bool
	showHeatmap  bool
	showPath     bool
	screenWidth  float32
	screenHeight float32
}

func newViewer(a *arena.Arena) *viewer {
	cfg := a.Config()
	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	cam := camera.New(w, h, float32(cfg.Field.Width), float32(cfg.Field.Height))
	return &viewer{
		arena:        a,
		camera:       cam,
		field:        renderer.NewFieldRenderer(cam, a.Field().Cols(), a.Field().Rows()),
		hud:          renderer.NewHUD(16, 16),
		showHeatmap:  true,
		showPath:     true,
		screenWidth:  w,
		screenHeight: h,
	}
}

// Update handles input and runs as many control cycles as real time allows.
func (v *viewer) Update() error {
	v.handleInput()

	if v.paused {
		v.accumulator = 0
		if v.stepOnce {
			v.stepOnce = false
			return v.step()
		}
		return nil
	}

	dt := float32(v.arena.Config().Derived.CycleDT)
	v.accumulator += rl.GetFrameTime()
	// Drop backlog after a stall (window drag, breakpoint) instead of catching up.
	if v.accumulator > 10*dt {
		v.accumulator = 10 * dt
	}
	for v.accumulator >= dt {
		v.accumulator -= dt
		if err := v.step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *viewer) step() error {
	if err := v.arena.Step(); err != nil {
		return err
	}
	if v.arena.Planner().Stalled() && !v.paused {
		v.paused = true
	}
	return nil
}

func (v *viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyN) {
		v.paused = true
		v.stepOnce = true
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.showHeatmap = !v.showHeatmap
	}
	if rl.IsKeyPressed(rl.KeyP) {
		v.showPath = !v.showPath
	}

	v.handleCameraInput()

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		m := rl.GetMousePosition()
		// The HUD panel swallows clicks.
		if m.X < 350 && m.Y < 200 {
			return
		}
		wx, wy := v.camera.ScreenToWorld(m.X, m.Y)
		// Out-of-field clicks are rejected by the planner and logged.
		_ = v.arena.Retarget(r2.Vec{X: float64(wx), Y: float64(wy)})
	}
}

func (v *viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth = w
	v.screenHeight = h
	v.camera.Resize(w, h)
}

// handleCameraInput processes camera pan/zoom controls.
func (v *viewer) handleCameraInput() {
	panSpeed := float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		v.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.camera.Pan(0, -panSpeed)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.camera.Pan(-d.X, -d.Y)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		v.camera.ZoomAt(m.X, m.Y, 1+wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.camera.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.camera.Reset()
	}
}

// Draw renders the field, planner state and HUD.
func (v *viewer) Draw() {
	a := v.arena
	a.Perf().RecordFrame()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	field := a.Field()
	v.field.DrawBackground(field.Size())
	if v.showHeatmap {
		v.field.DrawHeatmap(field, renderer.MaxFiniteCost(field))
	}
	v.field.DrawObstacles(a.Stationary(), renderer.StationaryColor, true)
	for _, s := range a.MovingShapes() {
		v.field.DrawShape(s, renderer.MovingColor)
	}

	robot := a.RobotPose()
	if v.showPath {
		if from, err := field.CoordsToBox(robot.Position); err == nil {
			v.field.DrawPath(field, robot.Position, a.Planner().Search().Trace(from, field.Cols()+field.Rows()))
		}
	}
	for _, g := range a.Goals() {
		v.field.DrawMarker(g.Position, 6, renderer.GoalColor)
	}
	v.field.DrawMarker(a.Planner().Goal().Position, 14, renderer.GoalColor)

	target := a.LastTarget()
	v.field.DrawMarker(target.Pose.Position, 4, renderer.TargetColor)
	v.field.DrawRobot(robot, a.RobotShape(), a.Config().Derived.RobotRadius)

	cfg := a.Config()
	actions := v.hud.Draw(renderer.HUDData{
		Title:        "Gridnav",
		Cycle:        a.Cycle(),
		SimTime:      float64(a.Cycle()) * cfg.Derived.CycleDT,
		GoalIndex:    a.GoalIndex(),
		Goals:        len(a.Goals()),
		GoalsReached: a.GoalsReached(),
		Cost:         target.Cost,
		Speed:        target.Speed,
		Relaxations:  a.Planner().Search().Relaxations(),
		GoalVisible:  a.GoalVisible(),
		Stalled:      a.Planner().Stalled(),
		Paused:       v.paused,
		ShowHeatmap:  v.showHeatmap,
		ShowPath:     v.showPath,
		Perf:         a.Perf().Stats(),
	})
	v.hud.DrawControls(int32(v.screenHeight), controlsLegend)

	rl.EndDrawing()

	if actions.TogglePause {
		v.paused = !v.paused
	}
	if actions.Step {
		v.paused = true
		v.stepOnce = true
	}
	if actions.ToggleHeatmap {
		v.showHeatmap = !v.showHeatmap
	}
	if actions.TogglePath {
		v.showPath = !v.showPath
	}
	if actions.ResetCamera {
		v.camera.Reset()
	}
}

// Unload frees GPU resources.
func (v *viewer) Unload() {
	v.field.Unload()
}
