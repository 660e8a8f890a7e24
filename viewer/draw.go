package viewer

import (
	"fmt"
	"image/color"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/contagion/epidemic"
)

const (
	panelX     = 10
	panelY     = 10
	panelWidth = 230
)

var background = rl.NewColor(250, 250, 250, 255)

// draw renders the box, the agents and the control panel.
func (v *Viewer) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(background)

	x0, y0, x1, y1 := v.cam.BoxCorners()
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1, rl.LightGray)

	v.drawAgents()
	v.drawPanel()
	if v.showHelp {
		v.drawHelp()
	}

	rl.EndDrawing()
}

// drawAgents draws each agent as a circle filled with its type color and
// outlined with its stage color. The y axis points up, as in saved frames.
func (v *Viewer) drawAgents() {
	worldH := v.cam.WorldH
	for _, a := range v.run.Simulation().Agents() {
		wx := float32(a.Position.X)
		wy := worldH - float32(a.Position.Y)
		radius := float32(a.Size)
		if !v.cam.IsVisible(wx, wy, radius) {
			continue
		}
		sx, sy := v.cam.WorldToScreen(wx, wy)
		v.drawAgent(a, sx, sy)
		for _, g := range v.cam.GhostPositions(wx, wy, radius) {
			v.drawAgent(a, g.X, g.Y)
		}
	}
}

func (v *Viewer) drawAgent(a *epidemic.Agent, sx, sy float32) {
	center := rl.Vector2{X: sx, Y: sy}
	radius := v.cam.Scale(float32(a.Size))
	if !a.Transparent {
		fill := v.typeColor(a.Type)
		fill.A = v.fillAlpha
		rl.DrawCircleV(center, radius, fill)
	}
	ring := max(1.5, radius*0.15)
	rl.DrawRing(center, max(radius-ring, 0), radius, 0, 360, 32, v.stageColors[a.Stage()])
}

// drawPanel draws run status, stage totals and the playback controls.
func (v *Viewer) drawPanel() {
	totals := epidemic.Totals(v.run.Census())
	perf := v.run.Perf().Stats()

	rl.DrawRectangle(panelX-5, panelY-5, panelWidth, 250, rl.NewColor(255, 255, 255, 220))

	y := int32(panelY)
	status := "running"
	switch {
	case v.run.Done():
		status = "complete"
	case v.paused:
		status = "paused"
	}
	rl.DrawText(fmt.Sprintf("Tick %d / %d  (%s)", v.run.Tick(), v.run.MaxTicks(), status), panelX, y, 16, rl.DarkGray)
	y += 22
	rl.DrawText(fmt.Sprintf("FPS %.0f  tick %.2f ms", perf.FPS, float64(perf.AvgTickDuration.Microseconds())/1000), panelX, y, 12, rl.Gray)
	y += 20

	for _, s := range epidemic.Stages() {
		rl.DrawRectangle(panelX, y+2, 10, 10, v.stageColors[s])
		rl.DrawText(fmt.Sprintf("%-12s %d", s, totals[s]), panelX+16, y, 14, rl.DarkGray)
		y += 18
	}

	stats := v.run.LastStats()
	rl.DrawText(fmt.Sprintf("last tick: +%d inf  %d rec  %d dead", stats.Infections, stats.Recoveries, stats.Deaths), panelX, y, 12, rl.Gray)
	y += 22

	rl.DrawText(fmt.Sprintf("Steps per frame: %d", v.stepsPerFrame), panelX, y, 12, rl.Gray)
	y += 16
	steps := gui.SliderBar(
		rl.Rectangle{X: panelX, Y: float32(y), Width: panelWidth - 50, Height: 16},
		"", fmt.Sprint(maxStepsPerFrame),
		float32(v.stepsPerFrame), 1, maxStepsPerFrame,
	)
	v.stepsPerFrame = max(1, int(steps+0.5))
	y += 26

	if gui.Button(rl.Rectangle{X: panelX, Y: float32(y), Width: 100, Height: 26}, toggleText(v.paused, "Resume", "Pause")) {
		v.paused = !v.paused
	}
	if gui.Button(rl.Rectangle{X: panelX + 110, Y: float32(y), Width: 100, Height: 26}, "Fit view") {
		v.cam.Fit()
	}
}

func (v *Viewer) drawHelp() {
	lines := []string{
		"Space      pause / resume",
		", .        fewer / more steps per frame",
		"Wheel + -  zoom",
		"Right drag / arrows  pan",
		"Home       fit box",
		"F11        fullscreen",
		"H          toggle help",
	}
	x := int32(v.screenWidth) - 300
	y := int32(panelY)
	rl.DrawRectangle(x-5, y-5, 295, int32(len(lines))*16+10, color.RGBA{R: 255, G: 255, B: 255, A: 220})
	for _, line := range lines {
		rl.DrawText(line, x, y, 12, rl.DarkGray)
		y += 16
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
