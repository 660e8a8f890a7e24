package telemetry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/pthm-cable/contagion/epidemic"
)

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation between closest ranks
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(values)))
}

// Outcome summarizes the epidemic in one population (a type, or everyone).
// Seeded cases and agents that start immune are not at risk, so they count
// towards Population but not towards the attack rate.
type Outcome struct {
	Type         string  `json:"type"`
	Population   int     `json:"population"`
	AtRisk       int     `json:"at_risk"`  // Susceptible at the start
	Infected     int     `json:"infected"` // At risk and no longer susceptible at the end
	Recovered    int     `json:"recovered"`
	Deceased     int     `json:"deceased"`
	PeakActive   int     `json:"peak_active"` // Max incubating+infectious at a measurement
	PeakTick     int     `json:"peak_tick"`
	AttackRate   float64 `json:"attack_rate"`   // Infected / AtRisk
	CaseFatality float64 `json:"case_fatality"` // Deceased / (Recovered + Deceased)
}

// Summary is the end-of-run report.
type Summary struct {
	RunID   string    `json:"run_id,omitempty"`
	Seed    uint64    `json:"seed"`
	Ticks   int       `json:"ticks"`
	Overall Outcome   `json:"overall"`
	ByType  []Outcome `json:"by_type"`
}

// Summarize builds a Summary from the measurement series and the censuses
// taken before the first and after the last tick. The disease confers
// immunity, so the susceptible count only falls and every agent that left it
// was infected during the run.
func Summarize(series *Series, initial, final []epidemic.TypeCount, ticks int) Summary {
	start := make(map[string][epidemic.NumStages]int, len(initial))
	for _, tc := range initial {
		start[tc.Type] = tc.Counts
	}

	s := Summary{Ticks: ticks}
	for _, tc := range final {
		o := outcome(tc.Type, start[tc.Type], tc.Counts)
		o.PeakActive, o.PeakTick = peak(series.Rows(tc.Type))
		s.ByType = append(s.ByType, o)
	}
	s.Overall = outcome("all", epidemic.Totals(initial), epidemic.Totals(final))
	s.Overall.PeakActive, s.Overall.PeakTick = peak(series.Totals())
	return s
}

func outcome(typ string, initial, final [epidemic.NumStages]int) Outcome {
	o := Outcome{
		Type:      typ,
		AtRisk:    initial[epidemic.Susceptible],
		Recovered: final[epidemic.Recovered],
		Deceased:  final[epidemic.Deceased],
	}
	for _, c := range final {
		o.Population += c
	}
	o.Infected = max(o.AtRisk-final[epidemic.Susceptible], 0)
	if o.AtRisk > 0 {
		o.AttackRate = float64(o.Infected) / float64(o.AtRisk)
	}
	if closed := o.Recovered + o.Deceased; closed > 0 {
		o.CaseFatality = float64(o.Deceased) / float64(closed)
	}
	return o
}

func peak(rows []Record) (active, tick int) {
	for _, r := range rows {
		if a := r[epidemic.Incubating] + r[epidemic.Infectious]; a > active {
			active, tick = a, r.Tick()
		}
	}
	return active, tick
}

// Log writes the summary to the default logger.
func (s Summary) Log() {
	slog.Info("run summary",
		"ticks", s.Ticks,
		"population", s.Overall.Population,
		"at_risk", s.Overall.AtRisk,
		"infected", s.Overall.Infected,
		"attack_rate", s.Overall.AttackRate,
		"case_fatality", s.Overall.CaseFatality,
		"peak_active", s.Overall.PeakActive,
		"peak_tick", s.Overall.PeakTick,
	)
	for _, o := range s.ByType {
		slog.Info("type summary",
			"type", o.Type,
			"population", o.Population,
			"attack_rate", o.AttackRate,
			"case_fatality", o.CaseFatality,
			"peak_active", o.PeakActive,
		)
	}
}

// WriteJSON writes the summary to path.
func (s Summary) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
