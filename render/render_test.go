package render

import (
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/epidemic"
)

var stageColors = []string{"#007AB2", "#B29D00", "#B22E00", "#13C000", "#5B5B5B"}

func newAgent(t *testing.T, typ string, stage epidemic.Stage, pos r2.Vec) *epidemic.Agent {
	t.Helper()
	arch := &epidemic.Archetype{
		Type:               typ,
		Stage:              stage,
		Size:               epidemic.Fixed(10),
		Mass:               epidemic.Fixed(1),
		HealthySpeed:       epidemic.Fixed(1),
		IncubationSpeed:    epidemic.Fixed(1),
		SicknessSpeed:      epidemic.Fixed(1),
		RecoverProbability: 1,
		IncubationTime:     epidemic.FixedDuration(1),
		RecoveryTime:       epidemic.FixedDuration(1),
		DeathTime:          epidemic.FixedDuration(1),
		DiseaseProfile:     epidemic.ConstantProfile(0),
		InfectionProfile:   epidemic.ConstantProfile(0),
	}
	a := arch.NewAgent(r2.Vec{X: 100, Y: 100}, 1, rand.New(rand.NewPCG(1, 1)))
	a.Position = pos
	return a
}

func near(a, b color.Color, tol int) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) bool {
		diff := int(x>>8) - int(y>>8)
		return diff <= tol && diff >= -tol
	}
	return d(ar, br) && d(ag, bg) && d(ab, bb)
}

func TestRender(t *testing.T) {
	r, err := New(r2.Vec{X: 100, Y: 100}, Options{
		Size:        100,
		FillAlpha:   0.3,
		TypeColors:  map[string]string{"Healthy": "#49BA50"},
		StageColors: stageColors,
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("bounds = %v", r.Bounds())
	}

	live := newAgent(t, "Healthy", epidemic.Susceptible, r2.Vec{X: 70, Y: 70})
	dead := newAgent(t, "Healthy", epidemic.Deceased, r2.Vec{X: 70, Y: 30})
	img := r.Render(7, []*epidemic.Agent{live, dead})

	// y grows upward in world space: y=70 is pixel row 30.
	center := img.At(70, 30)
	if near(center, color.White, 5) {
		t.Error("live agent has no fill")
	}
	cr, cg, _, _ := center.RGBA()
	if cg <= cr {
		t.Errorf("fill %v is not green tinted", center)
	}
	if ring := img.At(79, 30); !near(ring, r.StageColor(epidemic.Susceptible), 40) {
		t.Errorf("ring pixel = %v, want near %v", ring, r.StageColor(epidemic.Susceptible))
	}

	if got := img.At(70, 70); !near(got, color.White, 0) {
		t.Errorf("transparent agent filled: %v", got)
	}
	if ring := img.At(79, 70); !near(ring, r.StageColor(epidemic.Deceased), 40) {
		t.Errorf("dead ring pixel = %v", ring)
	}
}

func TestNewValidates(t *testing.T) {
	box := r2.Vec{X: 10, Y: 10}
	if _, err := New(box, Options{Size: 0, StageColors: stageColors}); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := New(box, Options{Size: 10, StageColors: stageColors[:2]}); err == nil {
		t.Error("expected error for missing stage colors")
	}
	if _, err := New(box, Options{Size: 10, StageColors: stageColors, TypeColors: map[string]string{"x": "nope"}}); err == nil {
		t.Error("expected error for bad type color")
	}
}

func TestSaveFrame(t *testing.T) {
	r, err := New(r2.Vec{X: 20, Y: 20}, Options{Size: 64, Margin: 5, StageColors: stageColors})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	agents := []*epidemic.Agent{newAgent(t, "Old", epidemic.Infectious, r2.Vec{X: 10, Y: 10})}
	path, err := r.SaveFrame(dir, "frame", "png", 40, agents)
	if err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}
	if path != filepath.Join(dir, "frame40.png") {
		t.Errorf("path = %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if format != "png" || cfg.Width != 64 || cfg.Height != 64 {
		t.Errorf("frame = %s %dx%d", format, cfg.Width, cfg.Height)
	}

	if _, err := r.SaveFrame(dir, "", "bmp", 1, agents); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#49BA50", color.NRGBA{0x49, 0xba, 0x50, 0xff}, true},
		{"5b5b5b", color.NRGBA{0x5b, 0x5b, 0x5b, 0xff}, true},
		{"#fff", color.NRGBA{0xff, 0xff, 0xff, 0xff}, true},
		{"#12345", color.NRGBA{}, false},
		{"#zzzzzz", color.NRGBA{}, false},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName("", 120, "PNG"); got != "120.png" {
		t.Errorf("FrameName = %q", got)
	}
}
