// Package persistence provides SQLite storage for runs and their
// measurements.
package persistence

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pthm-cable/contagion/epidemic"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// RunRecord describes one simulation run.
type RunRecord struct {
	ID        string    `db:"id"`
	Seed      int64     `db:"seed"`
	StartedAt time.Time `db:"started_at"`
	BoxW      float64   `db:"box_w"`
	BoxH      float64   `db:"box_h"`
	DT        float64   `db:"dt"`
	MaxSteps  int       `db:"max_steps"`
	Agents    int       `db:"agents"`
	Config    string    `db:"config_yaml"`
}

// MeasurementRow is the census of one type at one measurement.
type MeasurementRow struct {
	RunID       string `db:"run_id"`
	Tick        int    `db:"tick"`
	Type        string `db:"type"`
	Susceptible int    `db:"susceptible"`
	Incubating  int    `db:"incubating"`
	Infectious  int    `db:"infectious"`
	Recovered   int    `db:"recovered"`
	Deceased    int    `db:"deceased"`
}

// Counts returns the stage histogram of the row.
func (m MeasurementRow) Counts() [epidemic.NumStages]int {
	return [epidemic.NumStages]int{m.Susceptible, m.Incubating, m.Infectious, m.Recovered, m.Deceased}
}

// Rows converts a census taken at tick into rows of runID.
func Rows(runID string, tick int, census []epidemic.TypeCount) []MeasurementRow {
	rows := make([]MeasurementRow, len(census))
	for i, tc := range census {
		rows[i] = MeasurementRow{
			RunID:       runID,
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

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TIMESTAMP NOT NULL,
		box_w REAL NOT NULL,
		box_h REAL NOT NULL,
		dt REAL NOT NULL,
		max_steps INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		config_yaml TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS measurements (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		susceptible INTEGER NOT NULL,
		incubating INTEGER NOT NULL,
		infectious INTEGER NOT NULL,
		recovered INTEGER NOT NULL,
		deceased INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, type)
	);

	CREATE INDEX IF NOT EXISTS idx_measurements_run ON measurements(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateRun inserts a run record.
func (db *DB) CreateRun(r RunRecord) error {
	_, err := db.conn.NamedExec(`INSERT INTO runs
		(id, seed, started_at, box_w, box_h, dt, max_steps, agents, config_yaml)
		VALUES (:id, :seed, :started_at, :box_w, :box_h, :dt, :max_steps, :agents, :config_yaml)`, r)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	slog.Debug("run recorded", "run_id", r.ID, "seed", r.Seed)
	return nil
}

// SaveMeasurements writes a batch of rows in one transaction.
func (db *DB) SaveMeasurements(rows []MeasurementRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO measurements
		(run_id, tick, type, susceptible, incubating, infectious, recovered, deceased)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range rows {
		_, err := stmt.Exec(m.RunID, m.Tick, m.Type,
			m.Susceptible, m.Incubating, m.Infectious, m.Recovered, m.Deceased)
		if err != nil {
			return fmt.Errorf("insert measurement %s@%d: %w", m.Type, m.Tick, err)
		}
	}
	return tx.Commit()
}

// LoadMeasurements returns all rows of a run ordered by tick and type.
func (db *DB) LoadMeasurements(runID string) ([]MeasurementRow, error) {
	var rows []MeasurementRow
	err := db.conn.Select(&rows, `SELECT run_id, tick, type, susceptible, incubating,
		infectious, recovered, deceased
		FROM measurements WHERE run_id = ? ORDER BY tick, type`, runID)
	return rows, err
}

// Runs returns all runs, most recent first.
func (db *DB) Runs() ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs, `SELECT id, seed, started_at, box_w, box_h, dt,
		max_steps, agents, config_yaml FROM runs ORDER BY started_at DESC`)
	return runs, err
}

// GetRun returns one run by id.
func (db *DB) GetRun(id string) (RunRecord, error) {
	var r RunRecord
	err := db.conn.Get(&r, `SELECT id, seed, started_at, box_w, box_h, dt,
		max_steps, agents, config_yaml FROM runs WHERE id = ?`, id)
	return r, err
}
