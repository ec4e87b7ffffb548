// Package renderer draws the planner's field with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/gridnav/camera"
	"github.com/pthm-cable/gridnav/geom"
	"github.com/pthm-cable/gridnav/pathfinding"
)

// Colours used across the field view.
var (
	FieldColor      = rl.Color{R: 24, G: 28, B: 36, A: 255}
	BorderColor     = rl.Color{R: 90, G: 96, B: 110, A: 255}
	ObstructedColor = rl.Color{R: 70, G: 70, B: 78, A: 220}
	StationaryColor = rl.Color{R: 150, G: 150, B: 165, A: 255}
	ProjectedColor  = rl.Color{R: 200, G: 200, B: 210, A: 90}
	MovingColor     = rl.Color{R: 230, G: 120, B: 60, A: 255}
	RobotColor      = rl.Color{R: 80, G: 180, B: 255, A: 255}
	TargetColor     = rl.Color{R: 255, G: 230, B: 80, A: 255}
	GoalColor       = rl.Color{R: 120, G: 255, B: 140, A: 255}
	PathColor       = rl.Color{R: 255, G: 255, B: 255, A: 160}
)

// FieldRenderer draws the gridded field through a camera. The cost heatmap
// is a cols x rows texture updated in place and stretched over the field.
type FieldRenderer struct {
	cam *camera.Camera

	cols, rows int
	pixels     []rl.Color
	heatmap    rl.Texture2D

	initialized bool
}

// NewFieldRenderer creates a renderer for a cols x rows field.
func NewFieldRenderer(cam *camera.Camera, cols, rows int) *FieldRenderer {
	return &FieldRenderer{
		cam:    cam,
		cols:   cols,
		rows:   rows,
		pixels: make([]rl.Color, cols*rows),
	}
}

// Init allocates the heatmap texture (must be called after the raylib window is created).
func (r *FieldRenderer) Init() {
	if r.initialized {
		return
	}
	img := rl.GenImageColor(r.cols, r.rows, rl.Blank)
	r.heatmap = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(r.heatmap, rl.FilterPoint)
	r.initialized = true
}

// Unload frees the heatmap texture.
func (r *FieldRenderer) Unload() {
	if r.initialized {
		rl.UnloadTexture(r.heatmap)
		r.initialized = false
	}
}

// DrawBackground fills the field area and outlines it.
func (r *FieldRenderer) DrawBackground(size r2.Vec) {
	x, y := r.cam.WorldToScreen(0, 0)
	w, h := r.cam.Scale(float32(size.X)), r.cam.Scale(float32(size.Y))
	rl.DrawRectangleV(rl.Vector2{X: x, Y: y}, rl.Vector2{X: w, Y: h}, FieldColor)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x, Y: y, Width: w, Height: h}, 2, BorderColor)
}

// DrawHeatmap shades every cell by its propagated cost. Costs at or above
// maxCost saturate; unreached cells stay clear and obstructed cells are grey.
func (r *FieldRenderer) DrawHeatmap(field *pathfinding.GriddedField, maxCost float64) {
	if !r.initialized {
		r.Init()
	}
	boxes := field.Field()
	for i := range boxes {
		b := &boxes[i]
		switch {
		case b.Obstructed():
			r.pixels[i] = ObstructedColor
		case !b.Relaxed():
			r.pixels[i] = rl.Blank
		default:
			r.pixels[i] = CostColor(b.Cost(), maxCost)
		}
	}
	rl.UpdateTexture(r.heatmap, r.pixels)

	size := field.Size()
	x, y := r.cam.WorldToScreen(0, 0)
	// The last row and column may overhang the field edge.
	cs := float32(field.CellSize())
	dst := rl.Rectangle{
		X:      x,
		Y:      y,
		Width:  r.cam.Scale(cs * float32(r.cols)),
		Height: r.cam.Scale(cs * float32(r.rows)),
	}
	src := rl.Rectangle{Width: float32(r.cols), Height: float32(r.rows)}
	rl.BeginScissorMode(int32(x), int32(y), int32(r.cam.Scale(float32(size.X))), int32(r.cam.Scale(float32(size.Y))))
	rl.DrawTexturePro(r.heatmap, src, dst, rl.Vector2{}, 0, rl.White)
	rl.EndScissorMode()
}

// CostColor maps a cost to a colour running from warm at the goal to cool
// at maxCost.
func CostColor(cost, maxCost float64) rl.Color {
	t := 1.0
	if maxCost > 0 {
		t = math.Min(math.Max(cost/maxCost, 0), 1)
	}
	return rl.Color{
		R: uint8(255 * (1 - t)),
		G: uint8(80 + 100*math.Sin(t*math.Pi)),
		B: uint8(60 + 195*t),
		A: 150,
	}
}

// MaxFiniteCost returns the largest reached cost in the field, used to
// normalise the heatmap.
func MaxFiniteCost(field *pathfinding.GriddedField) float64 {
	maxCost := 0.0
	for i := range field.Field() {
		b := &field.Field()[i]
		if b.Relaxed() && !b.Obstructed() && b.Cost() > maxCost {
			maxCost = b.Cost()
		}
	}
	return maxCost
}

// DrawObstacles draws each obstacle's shape, and its projected keep-out
// region when showProjected is set.
func (r *FieldRenderer) DrawObstacles(obstacles []*pathfinding.Obstacle, color rl.Color, showProjected bool) {
	for _, o := range obstacles {
		if showProjected {
			b := o.Bounds()
			r.drawBoxLines(b, ProjectedColor)
		}
		r.DrawShape(o.Shape, color)
	}
}

// DrawRobot draws the robot footprint with a heading tick.
func (r *FieldRenderer) DrawRobot(pose pathfinding.Pose, shape geom.Shape, radius float64) {
	r.drawBoxLines(shape.Bounds(), RobotColor)
	cx, cy := r.cam.WorldToScreen(float32(pose.Position.X), float32(pose.Position.Y))
	rl.DrawCircleV(rl.Vector2{X: cx, Y: cy}, max(r.cam.Scale(3), 2), RobotColor)
	hx := pose.Position.X + math.Cos(pose.Heading)*radius
	hy := pose.Position.Y + math.Sin(pose.Heading)*radius
	ex, ey := r.cam.WorldToScreen(float32(hx), float32(hy))
	rl.DrawLineEx(rl.Vector2{X: cx, Y: cy}, rl.Vector2{X: ex, Y: ey}, 2, RobotColor)
}

// DrawMarker draws a cross of the given world radius at p.
func (r *FieldRenderer) DrawMarker(p r2.Vec, radius float64, color rl.Color) {
	x, y := r.cam.WorldToScreen(float32(p.X), float32(p.Y))
	s := r.cam.Scale(float32(radius))
	rl.DrawLineEx(rl.Vector2{X: x - s, Y: y - s}, rl.Vector2{X: x + s, Y: y + s}, 2, color)
	rl.DrawLineEx(rl.Vector2{X: x - s, Y: y + s}, rl.Vector2{X: x + s, Y: y - s}, 2, color)
	rl.DrawCircleLines(int32(x), int32(y), s, color)
}

// DrawPath draws the greedy descent from the robot's cell as a polyline
// through cell centres.
func (r *FieldRenderer) DrawPath(field *pathfinding.GriddedField, from r2.Vec, cells []pathfinding.Cell) {
	prevX, prevY := r.cam.WorldToScreen(float32(from.X), float32(from.Y))
	for _, c := range cells {
		p := field.BoxToCoords(c)
		x, y := r.cam.WorldToScreen(float32(p.X), float32(p.Y))
		rl.DrawLineEx(rl.Vector2{X: prevX, Y: prevY}, rl.Vector2{X: x, Y: y}, 2, PathColor)
		prevX, prevY = x, y
	}
}

func (r *FieldRenderer) drawBoxLines(b r2.Box, color rl.Color) {
	x, y := r.cam.WorldToScreen(float32(b.Min.X), float32(b.Min.Y))
	w := r.cam.Scale(float32(b.Max.X - b.Min.X))
	h := r.cam.Scale(float32(b.Max.Y - b.Min.Y))
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x, Y: y, Width: w, Height: h}, 1, color)
}
