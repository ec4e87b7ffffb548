package renderer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/gridnav/telemetry"
)

// HUDData holds everything the heads-up display shows.
type HUDData struct {
	Title        string
	Cycle        int
	SimTime      float64
	GoalIndex    int
	Goals        int
	GoalsReached int
	Cost         float64
	Speed        float64
	Relaxations  int
	GoalVisible  bool
	Stalled      bool
	Paused       bool
	ShowHeatmap  bool
	ShowPath     bool
	Perf         telemetry.PerfStats
}

// HUDActions reports which HUD buttons were pressed this frame.
type HUDActions struct {
	TogglePause   bool
	Step          bool
	ToggleHeatmap bool
	TogglePath    bool
	ResetCamera   bool
}

// HUD renders the status text and control buttons.
type HUD struct {
	x, y int32
}

// NewHUD creates a HUD anchored at (x, y).
func NewHUD(x, y int32) *HUD {
	return &HUD{x: x, y: y}
}

// Draw renders the HUD and returns the buttons pressed.
func (h *HUD) Draw(data HUDData) HUDActions {
	x, y := h.x, h.y
	rl.DrawRectangle(x-6, y-6, 330, 186, rl.Color{R: 0, G: 0, B: 0, A: 170})

	rl.DrawText(data.Title, x, y, 20, rl.White)
	y += 26
	rl.DrawText(fmt.Sprintf("Cycle: %d  (%.2fs)", data.Cycle, data.SimTime), x, y, 16, rl.LightGray)
	y += 20
	rl.DrawText(fmt.Sprintf("Goal %d/%d  reached: %d", data.GoalIndex+1, data.Goals, data.GoalsReached), x, y, 16, rl.LightGray)
	y += 20
	rl.DrawText(fmt.Sprintf("Cost: %.1f  Speed: %.0f cm/s", data.Cost, data.Speed), x, y, 16, rl.LightGray)
	y += 20
	rl.DrawText(fmt.Sprintf("Relaxations: %d  Cycle: %v", data.Relaxations, data.Perf.AvgCycle), x, y, 16, rl.LightGray)
	y += 20

	status, color := "Driving", rl.Green
	switch {
	case data.Paused:
		status, color = "PAUSED", rl.Yellow
	case data.Stalled:
		status, color = "STALLED", rl.Red
	case data.GoalVisible:
		status = "Driving (goal in sight)"
	}
	rl.DrawText(status, x, y, 16, color)
	y += 26

	var a HUDActions
	fx, fy := float32(x), float32(y)
	a.TogglePause = gui.Button(rl.Rectangle{X: fx, Y: fy, Width: 70, Height: 26}, toggleText(data.Paused, "Resume", "Pause"))
	a.Step = gui.Button(rl.Rectangle{X: fx + 78, Y: fy, Width: 70, Height: 26}, "Step")
	a.ToggleHeatmap = gui.Button(rl.Rectangle{X: fx + 156, Y: fy, Width: 80, Height: 26}, toggleText(data.ShowHeatmap, "Costs off", "Costs on"))
	a.TogglePath = gui.Button(rl.Rectangle{X: fx + 244, Y: fy, Width: 74, Height: 26}, toggleText(data.ShowPath, "Path off", "Path on"))
	a.ResetCamera = gui.Button(rl.Rectangle{X: fx, Y: fy + 32, Width: 110, Height: 26}, "Reset view")
	return a
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
