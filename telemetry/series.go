package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/contagion/epidemic"
)

// Record is one measurement of a type: counts per stage followed by the tick.
type Record [epidemic.NumStages + 1]int

// Tick returns the tick the record was taken at.
func (r Record) Tick() int { return r[epidemic.NumStages] }

// Counts returns the per-stage counts.
func (r Record) Counts() [epidemic.NumStages]int {
	var c [epidemic.NumStages]int
	copy(c[:], r[:epidemic.NumStages])
	return c
}

// Series accumulates census measurements keyed by type label.
type Series struct {
	order []string
	rows  map[string][]Record
}

// NewSeries returns an empty series.
func NewSeries() *Series {
	return &Series{rows: make(map[string][]Record)}
}

// Record appends one record per type in census, taken at tick.
func (s *Series) Record(tick int, census []epidemic.TypeCount) {
	for _, tc := range census {
		if _, ok := s.rows[tc.Type]; !ok {
			s.order = append(s.order, tc.Type)
		}
		var rec Record
		copy(rec[:], tc.Counts[:])
		rec[epidemic.NumStages] = tick
		s.rows[tc.Type] = append(s.rows[tc.Type], rec)
	}
}

// Types returns the type labels in order of first appearance.
func (s *Series) Types() []string { return s.order }

// Rows returns the records of one type.
func (s *Series) Rows(typ string) []Record { return s.rows[typ] }

// Len returns the number of measurements taken.
func (s *Series) Len() int {
	n := 0
	for _, rows := range s.rows {
		n = max(n, len(rows))
	}
	return n
}

// Totals sums all types per measurement, in tick order.
func (s *Series) Totals() []Record {
	byTick := make(map[int]int)
	var out []Record
	for _, typ := range s.order {
		for _, rec := range s.rows[typ] {
			i, ok := byTick[rec.Tick()]
			if !ok {
				i = len(out)
				byTick[rec.Tick()] = i
				var r Record
				r[epidemic.NumStages] = rec.Tick()
				out = append(out, r)
			}
			for st := range epidemic.NumStages {
				out[i][st] += rec[st]
			}
		}
	}
	return out
}

// MarshalJSON encodes the series as an object from type label to a list of
// records.
func (s *Series) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.rows)
}

// UnmarshalJSON decodes the format written by MarshalJSON. Type order is
// lost in that format, so types are re-ordered by name.
func (s *Series) UnmarshalJSON(data []byte) error {
	rows := make(map[string][]Record)
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	s.rows = rows
	s.order = sortedKeys(rows)
	return nil
}

// WriteJSON writes the series to path, indented.
func (s *Series) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s.rows, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal measurements: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write measurements: %w", err)
	}
	return nil
}

// ReadSeries loads a series written by WriteJSON.
func ReadSeries(path string) (*Series, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read measurements: %w", err)
	}
	s := NewSeries()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal measurements: %w", err)
	}
	return s, nil
}
