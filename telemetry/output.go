package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
)

// CensusRow is one line of the census CSV: one type at one measurement.
type CensusRow struct {
	Tick        int    `csv:"tick"`
	Type        string `csv:"type"`
	Susceptible int    `csv:"susceptible"`
	Incubating  int    `csv:"incubating"`
	Infectious  int    `csv:"infectious"`
	Recovered   int    `csv:"recovered"`
	Deceased    int    `csv:"deceased"`
}

// CensusRows flattens a census taken at tick.
func CensusRows(tick int, census []epidemic.TypeCount) []CensusRow {
	rows := make([]CensusRow, len(census))
	for i, tc := range census {
		rows[i] = CensusRow{
			Tick:        tick,
			Type:        tc.Type,
			Susceptible: tc.Counts[epidemic.Susceptible],
			Incubating:  tc.Counts[epidemic.Incubating],
			Infectious:  tc.Counts[epidemic.Infectious],
			Recovered:   tc.Counts[epidemic.Recovered],
			Deceased:    tc.Counts[epidemic.Deceased],
		}
	}
	return rows
}

// csvFile appends gocsv records, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func createCSV(path string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &csvFile{f: f}, nil
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		c.headerWritten = true
		return gocsv.Marshal(records, c.f)
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles run output files in one directory.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir    string
	names  config.OutputConfig
	census *csvFile
	events *csvFile
	perf   *csvFile
}

// NewOutputManager creates the output directory and opens the CSV files.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string, names config.OutputConfig) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir, names: names}
	var err error
	if om.census, err = createCSV(om.Path(names.CensusFile)); err != nil {
		return nil, fmt.Errorf("creating %s: %w", names.CensusFile, err)
	}
	if om.events, err = createCSV(om.Path("events.csv")); err != nil {
		om.Close()
		return nil, fmt.Errorf("creating events.csv: %w", err)
	}
	if om.perf, err = createCSV(om.Path("perf.csv")); err != nil {
		om.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	return om, nil
}

// Path resolves name inside the output directory unless it is absolute.
func (om *OutputManager) Path(name string) string {
	if om == nil || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(om.dir, name)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(om.Path("config.yaml"))
}

// WriteCensus appends one measurement to the census CSV.
func (om *OutputManager) WriteCensus(tick int, census []epidemic.TypeCount) error {
	if om == nil || len(census) == 0 {
		return nil
	}
	if err := om.census.write(CensusRows(tick, census)); err != nil {
		return fmt.Errorf("writing census: %w", err)
	}
	return nil
}

// WriteWindow appends a window stats record to events.csv.
func (om *OutputManager) WriteWindow(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.events.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing window stats: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteMeasurements writes the measurement series as JSON.
func (om *OutputManager) WriteMeasurements(series *Series) error {
	if om == nil {
		return nil
	}
	return series.WriteJSON(om.Path(om.names.MeasurementsFile))
}

// WriteSummary writes the run summary as JSON.
func (om *OutputManager) WriteSummary(s Summary) error {
	if om == nil {
		return nil
	}
	return s.WriteJSON(om.Path(om.names.SummaryFile))
}

// WriteChart renders the epidemic curve. Empty series are skipped.
func (om *OutputManager) WriteChart(series *Series, title string) error {
	if om == nil || om.names.ChartFile == "" || series.Len() == 0 {
		return nil
	}
	return WriteChart(series, title, om.Path(om.names.ChartFile))
}

// WriteSnapshot saves a population snapshot into the output directory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, om.dir)
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, c := range []*csvFile{om.census, om.events, om.perf} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
