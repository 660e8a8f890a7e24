package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
)

func TestOutputManagerNil(t *testing.T) {
	om, err := NewOutputManager("", config.OutputConfig{})
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v", om, err)
	}
	if err := om.WriteCensus(0, []epidemic.TypeCount{{Type: "x"}}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestOutputManagerCensusCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	names := config.OutputConfig{
		CensusFile:       "census.csv",
		MeasurementsFile: "measurements.json",
		SummaryFile:      "summary.json",
	}
	om, err := NewOutputManager(dir, names)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	series := NewSeries()
	for _, tick := range []int{10, 20} {
		census := []epidemic.TypeCount{tc("Old", 9, 1, 0, 0, 0), tc("Young", 10, 0, 0, 0, 0)}
		series.Record(tick, census)
		if err := om.WriteCensus(tick, census); err != nil {
			t.Fatalf("WriteCensus: %v", err)
		}
	}
	if err := om.WriteMeasurements(series); err != nil {
		t.Fatalf("WriteMeasurements: %v", err)
	}
	initial := []epidemic.TypeCount{tc("Old", 9, 0, 1, 0, 0), tc("Young", 10, 0, 0, 0, 0)}
	final := []epidemic.TypeCount{tc("Old", 9, 0, 0, 1, 0), tc("Young", 10, 0, 0, 0, 0)}
	if err := om.WriteSummary(Summarize(series, initial, final, 20)); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "census.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("census.csv has %d lines, want header + 4:\n%s", len(lines), data)
	}
	if lines[0] != "tick,type,susceptible,incubating,infectious,recovered,deceased" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[3] != "20,Old,9,1,0,0,0" {
		t.Errorf("row = %q", lines[3])
	}
	for _, name := range []string{"measurements.json", "summary.json", "events.csv", "perf.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
