package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Derived.BoxW != 125 || cfg.Derived.BoxH != 125 {
		t.Errorf("box = %vx%v, want 125x125", cfg.Derived.BoxW, cfg.Derived.BoxH)
	}
	if cfg.Derived.TotalAgents != 100 {
		t.Errorf("total agents = %d, want 100", cfg.Derived.TotalAgents)
	}
	want := []string{"Healthy", "Old", "Young"}
	if strings.Join(cfg.Derived.Types, ",") != strings.Join(want, ",") {
		t.Errorf("types = %v, want %v", cfg.Derived.Types, want)
	}
	sick := cfg.Archetypes[1]
	if sick.Stage != "infectious" || sick.Type != "Healthy" {
		t.Errorf("initial_sick = %+v", sick)
	}
	if sick.TimeToRecover.Kind != DistNormal || sick.TimeToRecover.Mean != 80 {
		t.Errorf("time_to_recover = %+v", sick.TimeToRecover)
	}
	if sick.Size != FixedDist(2) {
		t.Errorf("size = %+v, want fixed 2", sick.Size)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeFile(t, "run.yaml", `
simulation:
  max_steps: 50
  box: [40, 30]
physics:
  topology: reflecting
archetypes:
  - name: crowd
    count: 10
    recover_probability: 0.5
    healthy_speed: {kind: uniform, min: 0.5, max: 1.5}
    time_to_incubate: 5
    time_to_recover: 5
    time_to_die: 5
    disease_profile: {kind: linear, radius: 3, probability: 0.5}
    infection_profile: {kind: constant, probability: 1}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.MaxSteps != 50 || cfg.Simulation.DT != 1 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Physics.Topology != TopologyReflecting || cfg.Physics.ForceConstant != 1000 {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	if len(cfg.Archetypes) != 1 {
		t.Fatalf("archetypes = %d, want 1", len(cfg.Archetypes))
	}
	arch := cfg.Archetypes[0]
	if arch.Type != "crowd" || arch.Stage != "susceptible" || arch.Size != FixedDist(1) {
		t.Errorf("defaults not applied: %+v", arch)
	}
	if arch.HealthySpeed.Kind != DistUniform || arch.HealthySpeed.Expected() != 1 {
		t.Errorf("healthy_speed = %+v", arch.HealthySpeed)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "run.toml", `
[simulation]
max_steps = 20
box = [30.0, 30.0]

[[archetypes]]
name = "solo"
count = 3
recover_probability = 1.0
time_to_incubate = { kind = "normal", mean = 10, stddev = 2 }
time_to_recover = 8
time_to_die = 8.5

[archetypes.disease_profile]
kind = "step"
radius = 2.0
probability = 0.5

[archetypes.infection_profile]
kind = "step"
radius = 2.0
probability = 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Simulation.MaxSteps != 20 || cfg.Derived.BoxW != 30 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	arch := cfg.Archetypes[0]
	if arch.TimeToIncubate != NormalDist(10, 2) {
		t.Errorf("time_to_incubate = %+v", arch.TimeToIncubate)
	}
	if arch.TimeToRecover != FixedDist(8) || arch.TimeToDie != FixedDist(8.5) {
		t.Errorf("durations = %+v %+v", arch.TimeToRecover, arch.TimeToDie)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
simulation:
  dt: 0
  box: [10]
physics:
  topology: spherical
archetypes:
  - name: x
    recover_probability: 2
    size: {kind: gamma}
    disease_profile: {kind: step, radius: 1, probability: 0.5}
    infection_profile: {kind: step, radius: 1, probability: 0.5}
`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	for _, want := range []string{"dt", "box", "topology", "recover_probability", "gamma"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestLoadRejectsDegenerateModel(t *testing.T) {
	const arch = `
archetypes:
  - name: crowd
    count: 5
    recover_probability: 1
%s
    disease_profile: {kind: step, radius: 1, probability: 0.5}
    infection_profile: {kind: step, radius: 1, probability: 0.5}
`
	const timings = `
    time_to_incubate: 5
    time_to_recover: 5
    time_to_die: 5`

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero clip speed", "drift: {enabled: true, clip_speed: 0}\n" + fmt.Sprintf(arch, timings), "drift.clip_speed"},
		{"zero vmax", "drift: {enabled: true, vmax: 0}\n" + fmt.Sprintf(arch, timings), "drift.vmax"},
		{"negative slope", "drift: {enabled: true, slope: -1}\n" + fmt.Sprintf(arch, timings), "drift.slope"},
		{"missing time_to_die", fmt.Sprintf(arch, "    time_to_incubate: 5\n    time_to_recover: 5"), "time_to_die is required"},
		{"zero mass", fmt.Sprintf(arch, timings+"\n    mass: 0"), "mass must be positive"},
		{"zero size", fmt.Sprintf(arch, timings+"\n    size: {kind: uniform, min: 0, max: 0}"), "size must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "run.yaml", tt.yaml))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	// Drift parameters are not checked while drift is off.
	if _, err := Load(writeFile(t, "off.yaml", "drift: {enabled: false, clip_speed: 0}\n"+fmt.Sprintf(arch, timings))); err != nil {
		t.Errorf("disabled drift: %v", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reloading snapshot: %v", err)
	}
	if again.Derived.TotalAgents != cfg.Derived.TotalAgents ||
		again.Archetypes[2].DiseaseProfile != cfg.Archetypes[2].DiseaseProfile {
		t.Errorf("snapshot differs: %+v vs %+v", again.Archetypes[2], cfg.Archetypes[2])
	}
}
