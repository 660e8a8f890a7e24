// Package camera maps simulation box coordinates onto the viewer window.
package camera

import "math"

// Point is a screen or world position.
type Point struct{ X, Y float32 }

// Camera controls which part of the simulation box is on screen.
// Zoom is measured in pixels per world unit.
type Camera struct {
	// Center of the view in world coordinates
	X, Y float32

	Zoom float32

	ViewportW, ViewportH float32
	WorldW, WorldH       float32

	// Periodic worlds take the shortest image when projecting and wrap
	// the center when panning.
	Periodic bool

	MinZoom, MaxZoom float32
}

// New creates a camera that shows the whole box centered in the viewport.
func New(viewportW, viewportH, worldW, worldH float32, periodic bool) *Camera {
	c := &Camera{
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		Periodic:  periodic,
	}
	c.Fit()
	return c
}

// fitZoom is the zoom at which the whole box fits the viewport.
func (c *Camera) fitZoom() float32 {
	return min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH)
}

// Fit centers the box and zooms so that all of it is visible.
func (c *Camera) Fit() {
	fit := c.fitZoom()
	c.MinZoom = fit / 2
	c.MaxZoom = fit * 16
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = fit
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	dx, dy := c.delta(wx, wy)
	return c.ViewportW/2 + dx*c.Zoom, c.ViewportH/2 + dy*c.Zoom
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	wx = c.X + (sx-c.ViewportW/2)/c.Zoom
	wy = c.Y + (sy-c.ViewportH/2)/c.Zoom
	if c.Periodic {
		wx = mod(wx, c.WorldW)
		wy = mod(wy, c.WorldH)
	}
	return wx, wy
}

// Scale converts a world length to pixels.
func (c *Camera) Scale(length float32) float32 {
	return length * c.Zoom
}

// IsVisible reports whether a circle at (wx, wy) could touch the viewport.
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	dx, dy := c.delta(wx, wy)
	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(dx) <= halfW && absf(dy) <= halfH
}

// GhostPositions returns the extra screen positions at which a circle near
// the view edge should also be drawn on a periodic world. A circle in a
// corner can need three.
func (c *Camera) GhostPositions(wx, wy, radius float32) []Point {
	if !c.Periodic {
		return nil
	}
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)
	dx, dy := c.delta(wx, wy)

	var ghostX, ghostY float32
	horizontal, vertical := false, false
	switch {
	case dx > 0 && dx+radius > c.WorldW-halfW:
		horizontal, ghostX = true, c.ViewportW/2+(dx-c.WorldW)*c.Zoom
	case dx < 0 && dx-radius < halfW-c.WorldW:
		horizontal, ghostX = true, c.ViewportW/2+(dx+c.WorldW)*c.Zoom
	}
	switch {
	case dy > 0 && dy+radius > c.WorldH-halfH:
		vertical, ghostY = true, c.ViewportH/2+(dy-c.WorldH)*c.Zoom
	case dy < 0 && dy-radius < halfH-c.WorldH:
		vertical, ghostY = true, c.ViewportH/2+(dy+c.WorldH)*c.Zoom
	}

	sx := c.ViewportW/2 + dx*c.Zoom
	sy := c.ViewportH/2 + dy*c.Zoom
	var ghosts []Point
	if horizontal {
		ghosts = append(ghosts, Point{ghostX, sy})
	}
	if vertical {
		ghosts = append(ghosts, Point{sx, ghostY})
	}
	if horizontal && vertical {
		ghosts = append(ghosts, Point{ghostX, ghostY})
	}
	return ghosts
}

// Resize updates the viewport and keeps the zoom within the new limits.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	fit := c.fitZoom()
	c.MinZoom = fit / 2
	c.MaxZoom = fit * 16
	c.Zoom = clamp(c.Zoom, c.MinZoom, c.MaxZoom)
}

// Pan moves the camera by a delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X += dx / c.Zoom
	c.Y += dy / c.Zoom
	if c.Periodic {
		c.X = mod(c.X, c.WorldW)
		c.Y = mod(c.Y, c.WorldH)
		return
	}
	c.X = clamp(c.X, 0, c.WorldW)
	c.Y = clamp(c.Y, 0, c.WorldH)
}

// SetZoom sets the zoom level, clamped to the limits.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor while keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.ZoomBy(factor)
	nx, ny := c.ScreenToWorld(sx, sy)
	c.X += c.shortest(wx-nx, c.WorldW)
	c.Y += c.shortest(wy-ny, c.WorldH)
	if c.Periodic {
		c.X = mod(c.X, c.WorldW)
		c.Y = mod(c.Y, c.WorldH)
	}
}

// BoxCorners returns the screen rectangle of the primary box image.
func (c *Camera) BoxCorners() (x0, y0, x1, y1 float32) {
	x0 = c.ViewportW/2 - c.X*c.Zoom
	y0 = c.ViewportH/2 - c.Y*c.Zoom
	return x0, y0, x0 + c.WorldW*c.Zoom, y0 + c.WorldH*c.Zoom
}

func (c *Camera) delta(wx, wy float32) (dx, dy float32) {
	return c.shortest(wx-c.X, c.WorldW), c.shortest(wy-c.Y, c.WorldH)
}

// shortest picks the nearest periodic image of d.
func (c *Camera) shortest(d, size float32) float32 {
	if !c.Periodic {
		return d
	}
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	if r >= m {
		r = 0
	}
	return r
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
