// Package viewer shows a run in a raylib window while stepping it.
package viewer

import (
	"context"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/contagion/camera"
	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
	"github.com/pthm-cable/contagion/render"
	"github.com/pthm-cable/contagion/runner"
)

const maxStepsPerFrame = 20

// Viewer holds window state for one run.
type Viewer struct {
	run *runner.Runner
	cam *camera.Camera

	typeColors  map[string]color.RGBA
	stageColors [epidemic.NumStages]color.RGBA
	fallback    color.RGBA
	fillAlpha   uint8

	paused        bool
	stepsPerFrame int
	showHelp      bool

	screenWidth, screenHeight float32
}

// Run opens a window and steps r until it completes, the window is closed
// or ctx is cancelled. The window stays open on the final state once the
// run is complete.
func Run(ctx context.Context, r *runner.Runner) error {
	cfg := r.Config()

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Contagion")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := New(r)
	for !rl.WindowShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		v.handleInput()
		if err := v.update(ctx); err != nil {
			return err
		}
		r.Perf().RecordFrame()
		v.draw()
	}
	return nil
}

// New builds a viewer for r sized to the configured screen.
func New(r *runner.Runner) *Viewer {
	cfg := r.Config()
	w, h := float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	periodic := cfg.Physics.Topology == config.TopologyPeriodic

	v := &Viewer{
		run:           r,
		cam:           camera.New(w, h, float32(cfg.Derived.BoxW), float32(cfg.Derived.BoxH), periodic),
		typeColors:    make(map[string]color.RGBA),
		fallback:      color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		fillAlpha:     uint8(255 * min(max(cfg.Render.FillAlpha, 0), 1)),
		stepsPerFrame: max(cfg.Screen.StepsPerFrame, 1),
		screenWidth:   w,
		screenHeight:  h,
	}
	for typ, hex := range cfg.Render.TypeColors {
		if c, err := render.ParseHexColor(hex); err == nil {
			v.typeColors[typ] = toRGBA(c)
		}
	}
	for i := range v.stageColors {
		v.stageColors[i] = v.fallback
		if i < len(cfg.Render.StageColors) {
			if c, err := render.ParseHexColor(cfg.Render.StageColors[i]); err == nil {
				v.stageColors[i] = toRGBA(c)
			}
		}
	}
	return v
}

// update advances the run by the configured number of ticks per frame.
func (v *Viewer) update(ctx context.Context) error {
	if v.paused {
		return nil
	}
	for i := 0; i < v.stepsPerFrame && !v.run.Done(); i++ {
		if err := v.run.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// handleInput processes keyboard and mouse input.
func (v *Viewer) handleInput() {
	v.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyH) {
		v.showHelp = !v.showHelp
	}

	// Steps per frame with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && v.stepsPerFrame > 1 {
		v.stepsPerFrame--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.stepsPerFrame < maxStepsPerFrame {
		v.stepsPerFrame++
	}

	v.handleCameraInput()
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == v.screenWidth && h == v.screenHeight {
		return
	}
	v.screenWidth, v.screenHeight = w, h
	v.cam.Resize(w, h)
}

// handleCameraInput pans with arrow keys or right-drag and zooms with the
// wheel toward the cursor.
func (v *Viewer) handleCameraInput() {
	const panPixels = 8

	if rl.IsKeyDown(rl.KeyRight) {
		v.cam.Pan(panPixels, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		v.cam.Pan(-panPixels, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		v.cam.Pan(0, panPixels)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		v.cam.Pan(0, -panPixels)
	}

	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		v.cam.ZoomAt(m.X, m.Y, 1+wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Fit()
	}
}

func (v *Viewer) typeColor(typ string) color.RGBA {
	if c, ok := v.typeColors[typ]; ok {
		return c
	}
	return v.fallback
}

func toRGBA(c color.NRGBA) color.RGBA {
	return rl.NewColor(c.R, c.G, c.B, c.A)
}
