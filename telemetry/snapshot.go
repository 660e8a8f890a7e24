package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/contagion/epidemic"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the population state at one tick.
type Snapshot struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	Seed    uint64 `json:"seed"`

	BoxW float64 `json:"box_w"`
	BoxH float64 `json:"box_h"`

	Tick int `json:"tick"`

	Agents []AgentState `json:"agents"`
}

// AgentState holds one agent's observable state.
type AgentState struct {
	Type        string  `json:"type"`
	Stage       string  `json:"stage"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VelX        float64 `json:"vel_x"`
	VelY        float64 `json:"vel_y"`
	Size        float64 `json:"size"`
	WillRecover bool    `json:"will_recover"`
	StageTicks  int     `json:"stage_ticks,omitempty"` // Elapsed ticks in a timed stage
	StageLength int     `json:"stage_length,omitempty"`
}

// NewSnapshot captures the current state of sim.
func NewSnapshot(sim *epidemic.Simulation, seed uint64) *Snapshot {
	box := sim.Box()
	s := &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		BoxW:    box.X,
		BoxH:    box.Y,
		Tick:    sim.Tick(),
		Agents:  make([]AgentState, 0, len(sim.Agents())),
	}
	for _, a := range sim.Agents() {
		st := AgentState{
			Type:        a.Type,
			Stage:       a.Stage().String(),
			X:           a.Position.X,
			Y:           a.Position.Y,
			VelX:        a.Velocity.X,
			VelY:        a.Velocity.Y,
			Size:        a.Size,
			WillRecover: a.WillRecover,
		}
		if c := a.Counter(); c != nil {
			st.StageTicks = c.Elapsed()
			st.StageLength = c.Duration()
		}
		s.Agents = append(s.Agents, st)
	}
	return s
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}
	return &snapshot, nil
}
