package telemetry

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/epidemic"
)

func TestSnapshotSaveLoad(t *testing.T) {
	sim, err := epidemic.New(epidemic.Options{
		Box:  r2.Vec{X: 30, Y: 30},
		DT:   1,
		Rand: rand.New(rand.NewPCG(3, 4)),
	})
	if err != nil {
		t.Fatal(err)
	}
	arch := &epidemic.Archetype{
		Type:               "Healthy",
		Stage:              epidemic.Infectious,
		Size:               epidemic.Fixed(1),
		Mass:               epidemic.Fixed(1),
		HealthySpeed:       epidemic.Fixed(1),
		IncubationSpeed:    epidemic.Fixed(1),
		SicknessSpeed:      epidemic.Fixed(1),
		RecoverProbability: 1,
		IncubationTime:     epidemic.FixedDuration(5),
		RecoveryTime:       epidemic.FixedDuration(7),
		DeathTime:          epidemic.FixedDuration(7),
		DiseaseProfile:     epidemic.ConstantProfile(0),
		InfectionProfile:   epidemic.ConstantProfile(0),
	}
	for range 3 {
		if _, err := sim.AddAgent(arch); err != nil {
			t.Fatal(err)
		}
	}
	sim.Step()

	tmpDir := t.TempDir()
	snapshot := NewSnapshot(sim, 42)
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if want := filepath.Join(tmpDir, "snapshot_1.json"); path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not created: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Seed != 42 || loaded.Tick != 1 || loaded.BoxW != 30 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if len(loaded.Agents) != 3 {
		t.Fatalf("agents = %d, want 3", len(loaded.Agents))
	}
	a := loaded.Agents[0]
	if a.Stage != "infectious" || a.StageLength != 7 || a.StageTicks != 2 {
		t.Errorf("agent = %+v", a)
	}
}

func TestLoadSnapshotVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("expected version error")
	}
}
