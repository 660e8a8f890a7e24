package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 0.01
}

func TestNewFitsBox(t *testing.T) {
	cam := New(1000, 800, 125, 125, true)

	if cam.X != 62.5 || cam.Y != 62.5 {
		t.Errorf("expected camera at (62.5, 62.5), got (%f, %f)", cam.X, cam.Y)
	}
	// min(1000/125, 800/125) = 6.4
	if !near(cam.Zoom, 6.4) {
		t.Errorf("expected zoom 6.4, got %f", cam.Zoom)
	}
	x0, y0, x1, y1 := cam.BoxCorners()
	if !near(x1-x0, 800) || !near(y1-y0, 800) {
		t.Errorf("box should be 800px square, got %fx%f", x1-x0, y1-y0)
	}
	if !near(y0, 0) || !near(x0, 100) {
		t.Errorf("box should be centered, got origin (%f, %f)", x0, y0)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)

	sx, sy := cam.WorldToScreen(62.5, 62.5)
	if !near(sx, 500) || !near(sy, 500) {
		t.Errorf("expected screen center (500, 500), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	for _, periodic := range []bool{true, false} {
		cam := New(1000, 1000, 125, 125, periodic)
		cam.SetZoom(12)

		for _, tc := range []struct{ sx, sy float32 }{
			{500, 500},
			{100, 100},
			{900, 650},
		} {
			wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
			sx, sy := cam.WorldToScreen(wx, wy)
			if !near(sx, tc.sx) || !near(sy, tc.sy) {
				t.Errorf("periodic=%v: roundtrip (%f,%f) -> (%f,%f) -> (%f,%f)",
					periodic, tc.sx, tc.sy, wx, wy, sx, sy)
			}
		}
	}
}

func TestPeriodicShortestImage(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	cam.X = 5

	// x=120 is 10 units to the left of the center through the seam.
	sx, _ := cam.WorldToScreen(120, 62.5)
	if sx >= 500 {
		t.Errorf("expected agent left of center, got x=%f", sx)
	}

	cam.Periodic = false
	sx, _ = cam.WorldToScreen(120, 62.5)
	if sx <= 500 {
		t.Errorf("open world should not wrap, got x=%f", sx)
	}
}

func TestPanWraps(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	cam.X = 2

	cam.Pan(-5*cam.Zoom, 0)
	if !near(cam.X, 122) {
		t.Errorf("expected X to wrap to 122, got %f", cam.X)
	}

	open := New(1000, 1000, 125, 125, false)
	open.X = 2
	open.Pan(-5*open.Zoom, 0)
	if open.X != 0 {
		t.Errorf("expected X clamped to 0, got %f", open.X)
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)

	cam.SetZoom(0.1)
	if cam.Zoom != 4 {
		t.Errorf("expected zoom clamped to 4, got %f", cam.Zoom)
	}
	cam.SetZoom(1000)
	if cam.Zoom != 128 {
		t.Errorf("expected zoom clamped to 128, got %f", cam.Zoom)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	wx, wy := cam.ScreenToWorld(700, 300)

	cam.ZoomAt(700, 300, 2)

	sx, sy := cam.WorldToScreen(wx, wy)
	if !near(sx, 700) || !near(sy, 300) {
		t.Errorf("anchor moved to (%f, %f)", sx, sy)
	}
}

func TestFitRestores(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	cam.Pan(300, -120)
	cam.ZoomBy(3)

	cam.Fit()

	if cam.X != 62.5 || cam.Y != 62.5 || !near(cam.Zoom, 8) {
		t.Errorf("fit gave center (%f,%f) zoom %f", cam.X, cam.Y, cam.Zoom)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	cam.SetZoom(40) // 25 world units visible

	if !cam.IsVisible(62.5, 62.5, 1) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(10, 10, 1) {
		t.Error("far point should not be visible")
	}
	if !cam.IsVisible(48, 62.5, 3) {
		t.Error("edge point with radius should be visible")
	}
}

func TestGhostPositions(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)

	tests := []struct {
		name   string
		x, y   float32
		ghosts int
	}{
		{"interior", 62.5, 62.5, 0},
		{"right edge", 124, 62.5, 1},
		{"bottom edge", 62.5, 124.5, 1},
		{"corner", 0.5, 0.5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cam.GhostPositions(tt.x, tt.y, 2)
			if len(got) != tt.ghosts {
				t.Fatalf("got %d ghosts, want %d: %v", len(got), tt.ghosts, got)
			}
		})
	}

	cam.Periodic = false
	if g := cam.GhostPositions(0.5, 0.5, 2); g != nil {
		t.Errorf("open world should have no ghosts, got %v", g)
	}
}

func TestResizeKeepsZoomInRange(t *testing.T) {
	cam := New(1000, 1000, 125, 125, true)
	cam.SetZoom(cam.MaxZoom)

	cam.Resize(250, 250)

	if cam.Zoom > cam.MaxZoom || cam.MaxZoom != 32 {
		t.Errorf("zoom %f max %f after resize", cam.Zoom, cam.MaxZoom)
	}
}
