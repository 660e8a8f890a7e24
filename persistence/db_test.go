package persistence

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pthm-cable/contagion/epidemic"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunsAndMeasurements(t *testing.T) {
	db := openTestDB(t)

	run := RunRecord{
		ID:        "run-1",
		Seed:      42,
		StartedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		BoxW:      125,
		BoxH:      125,
		DT:        1,
		MaxSteps:  400,
		Agents:    100,
		Config:    "simulation: {}\n",
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	census := []epidemic.TypeCount{
		{Type: "Young", Counts: [epidemic.NumStages]int{19, 1, 0, 0, 0}},
		{Type: "Old", Counts: [epidemic.NumStages]int{18, 1, 1, 0, 0}},
	}
	if err := db.SaveMeasurements(Rows(run.ID, 20, census)); err != nil {
		t.Fatalf("SaveMeasurements: %v", err)
	}
	if err := db.SaveMeasurements(Rows(run.ID, 10, census)); err != nil {
		t.Fatalf("SaveMeasurements: %v", err)
	}

	rows, err := db.LoadMeasurements(run.ID)
	if err != nil {
		t.Fatalf("LoadMeasurements: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].Tick != 10 || rows[0].Type != "Old" || rows[3].Tick != 20 || rows[3].Type != "Young" {
		t.Errorf("ordering: %+v", rows)
	}
	if rows[0].Counts() != census[1].Counts {
		t.Errorf("counts = %v, want %v", rows[0].Counts(), census[1].Counts)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Seed != 42 || got.Agents != 100 || !got.StartedAt.Equal(run.StartedAt) {
		t.Errorf("run = %+v", got)
	}

	runs, err := db.Runs()
	if err != nil || len(runs) != 1 {
		t.Fatalf("Runs = %v, %v", runs, err)
	}
}

func TestGetRunMissing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun("nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestSaveMeasurementsReplaces(t *testing.T) {
	db := openTestDB(t)
	if err := db.CreateRun(RunRecord{ID: "r", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	row := MeasurementRow{RunID: "r", Tick: 0, Type: "Healthy", Susceptible: 10}
	if err := db.SaveMeasurements([]MeasurementRow{row}); err != nil {
		t.Fatal(err)
	}
	row.Susceptible = 9
	row.Incubating = 1
	if err := db.SaveMeasurements([]MeasurementRow{row}); err != nil {
		t.Fatal(err)
	}
	rows, err := db.LoadMeasurements("r")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Incubating != 1 {
		t.Errorf("rows = %+v", rows)
	}
}
