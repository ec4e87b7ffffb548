// Package camera provides a 2D camera for viewing the field.
package camera

// Camera controls the viewport onto the field. World units are centimetres.
// The field is bounded: panning keeps the view over the field, and the
// smallest zoom shows the whole field.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom is screen pixels per centimetre
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World dimensions
	WorldW, WorldH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the field, zoomed to fit it.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
	}
	c.MinZoom = fitZoom(viewportW, viewportH, worldW, worldH)
	c.MaxZoom = c.MinZoom * 8
	c.Reset()
	return c
}

// fitZoom is the zoom at which the whole world just fits the viewport.
func fitZoom(viewportW, viewportH, worldW, worldH float32) float32 {
	return min(viewportW/worldW, viewportH/worldH)
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	sx = c.ViewportW/2 + (wx-c.X)*c.Zoom
	sy = c.ViewportH/2 + (wy-c.Y)*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
// Points off the field map outside [0, WorldW) x [0, WorldH).
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	return wx, wy
}

// Scale converts a world length to screen pixels.
func (c *Camera) Scale(d float32) float32 {
	return d * c.Zoom
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(wx-c.X) <= halfW && absf(wy-c.Y) <= halfH
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = fitZoom(viewportW, viewportH, c.WorldW, c.WorldH)
	c.MaxZoom = c.MinZoom * 8
	c.SetZoom(c.Zoom)
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	c.clampPosition()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampPosition()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed,
// as far as the field bounds allow.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	c.X = wx - (sx-c.ViewportW/2)/c.Zoom
	c.Y = wy - (sy-c.ViewportH/2)/c.Zoom
	c.clampPosition()
}

// Reset shows the whole field.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = c.MinZoom
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampPosition keeps the view over the field. On an axis where the view
// is wider than the field, the field is centred.
func (c *Camera) clampPosition() {
	c.X = clampAxis(c.X, c.ViewportW/(2*c.Zoom), c.WorldW)
	c.Y = clampAxis(c.Y, c.ViewportH/(2*c.Zoom), c.WorldH)
}

func clampAxis(center, half, size float32) float32 {
	if 2*half >= size {
		return size / 2
	}
	return clamp(center, half, size-half)
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
