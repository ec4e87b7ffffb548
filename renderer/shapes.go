package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/gridnav/geom"
)

// DrawShape fills a shape and outlines it. Shapes other than Rect, Circle
// and Polygon are drawn as their bounding box.
func (r *FieldRenderer) DrawShape(s geom.Shape, color rl.Color) {
	fill := color
	fill.A = color.A / 2

	switch sh := s.(type) {
	case geom.Rect:
		x, y := r.cam.WorldToScreen(float32(sh.Min.X), float32(sh.Min.Y))
		rec := rl.Rectangle{
			X:      x,
			Y:      y,
			Width:  r.cam.Scale(float32(sh.Max.X - sh.Min.X)),
			Height: r.cam.Scale(float32(sh.Max.Y - sh.Min.Y)),
		}
		rl.DrawRectangleRec(rec, fill)
		rl.DrawRectangleLinesEx(rec, 1, color)
	case geom.Circle:
		x, y := r.cam.WorldToScreen(float32(sh.Center.X), float32(sh.Center.Y))
		c := rl.Vector2{X: x, Y: y}
		radius := r.cam.Scale(float32(sh.Radius))
		rl.DrawCircleV(c, radius, fill)
		rl.DrawCircleLines(int32(x), int32(y), radius, color)
	case geom.Polygon:
		pts := make([]rl.Vector2, len(sh.Vertices))
		for i, v := range sh.Vertices {
			x, y := r.cam.WorldToScreen(float32(v.X), float32(v.Y))
			pts[i] = rl.Vector2{X: x, Y: y}
		}
		// Fan fill assumes a convex polygon; both windings are submitted
		// since raylib culls one of them.
		for i := 1; i+1 < len(pts); i++ {
			rl.DrawTriangle(pts[0], pts[i], pts[i+1], fill)
			rl.DrawTriangle(pts[0], pts[i+1], pts[i], fill)
		}
		for i := range pts {
			rl.DrawLineV(pts[i], pts[(i+1)%len(pts)], color)
		}
	default:
		r.drawBoxLines(s.Bounds(), color)
	}
}
