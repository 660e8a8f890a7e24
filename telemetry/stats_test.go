package telemetry

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/contagion/epidemic"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 || std != 2 {
		t.Errorf("MeanStd = %v, %v; want 5, 2", mean, std)
	}
}

func tc(typ string, counts ...int) epidemic.TypeCount {
	c := epidemic.TypeCount{Type: typ}
	copy(c.Counts[:], counts)
	return c
}

func TestSummarize(t *testing.T) {
	series := NewSeries()
	series.Record(10, []epidemic.TypeCount{tc("Old", 8, 1, 1, 0, 0), tc("Young", 9, 1, 0, 0, 0)})
	series.Record(20, []epidemic.TypeCount{tc("Old", 5, 2, 3, 0, 0), tc("Young", 7, 1, 2, 0, 0)})
	series.Record(30, []epidemic.TypeCount{tc("Old", 4, 0, 1, 3, 2), tc("Young", 7, 0, 0, 3, 0)})

	// One seeded case among the old, one immune agent among the young.
	initial := []epidemic.TypeCount{tc("Old", 9, 0, 1, 0, 0), tc("Young", 9, 0, 0, 1, 0)}
	final := []epidemic.TypeCount{tc("Old", 4, 0, 0, 4, 2), tc("Young", 7, 0, 0, 3, 0)}
	s := Summarize(series, initial, final, 40)

	if s.Overall.Population != 20 || s.Overall.AtRisk != 18 || s.Overall.Infected != 7 {
		t.Errorf("overall = %+v", s.Overall)
	}
	if s.Overall.PeakActive != 8 || s.Overall.PeakTick != 20 {
		t.Errorf("peak = %d at %d, want 8 at 20", s.Overall.PeakActive, s.Overall.PeakTick)
	}
	if math.Abs(s.Overall.AttackRate-7.0/18) > 1e-12 {
		t.Errorf("attack rate = %v, want 7/18", s.Overall.AttackRate)
	}
	old := s.ByType[0]
	if old.Type != "Old" || math.Abs(old.CaseFatality-2.0/6) > 1e-12 {
		t.Errorf("old = %+v", old)
	}
	if old.Infected != 5 || math.Abs(old.AttackRate-5.0/9) > 1e-12 {
		t.Errorf("old attack = %d (%v), want 5 (5/9)", old.Infected, old.AttackRate)
	}
	if young := s.ByType[1]; young.CaseFatality != 0 || young.PeakActive != 3 || young.Infected != 2 {
		t.Errorf("young = %+v", young)
	}
}

func TestSeriesJSON(t *testing.T) {
	series := NewSeries()
	series.Record(0, []epidemic.TypeCount{tc("Healthy", 56, 0, 4, 0, 0)})
	series.Record(10, []epidemic.TypeCount{tc("Healthy", 50, 6, 4, 0, 0)})

	path := filepath.Join(t.TempDir(), "measurements.json")
	if err := series.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	loaded, err := ReadSeries(path)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	rows := loaded.Rows("Healthy")
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1] != (Record{50, 6, 4, 0, 0, 10}) {
		t.Errorf("record = %v, want [50 6 4 0 0 10]", rows[1])
	}
	if rows[1].Tick() != 10 || rows[1].Counts()[epidemic.Incubating] != 6 {
		t.Errorf("accessors: tick=%d counts=%v", rows[1].Tick(), rows[1].Counts())
	}
}

func TestCollectorWindows(t *testing.T) {
	c := NewCollector(10)
	for tick := 1; tick <= 10; tick++ {
		c.RecordStep(epidemic.StepStats{Infections: 1}, 4)
		if tick < 10 && c.ShouldFlush(tick) {
			t.Fatalf("flush due early at %d", tick)
		}
	}
	if !c.ShouldFlush(10) {
		t.Fatal("flush not due at 10")
	}
	w := c.Flush(10, [epidemic.NumStages]int{80, 10, 6, 3, 1})
	if w.Infections != 10 || w.Active() != 16 || w.WindowEndTick != 10 {
		t.Errorf("window = %+v", w)
	}
	if math.Abs(w.IncidenceRate-0.25) > 1e-12 {
		t.Errorf("incidence = %v, want 0.25", w.IncidenceRate)
	}
	c.RecordStep(epidemic.StepStats{Deaths: 2}, 0)
	if got := c.Total(); got.Infections != 10 || got.Deaths != 2 {
		t.Errorf("total = %+v", got)
	}
	if c.ShouldFlush(11) {
		t.Error("new window already due")
	}
}
