package telemetry

import "github.com/pthm-cable/contagion/epidemic"

// WindowStats holds transition counts over a window of ticks and the stage
// totals at its end.
type WindowStats struct {
	WindowStartTick int `csv:"-"`
	WindowEndTick   int `csv:"window_end"`

	// Events during window
	Infections int `csv:"infections"`
	Onsets     int `csv:"onsets"`
	Recoveries int `csv:"recoveries"`
	Deaths     int `csv:"deaths"`

	// Population at window end
	Susceptible int `csv:"susceptible"`
	Incubating  int `csv:"incubating"`
	Infectious  int `csv:"infectious"`
	Recovered   int `csv:"recovered"`
	Deceased    int `csv:"deceased"`

	// Effective reproduction proxy: new infections per active case per tick
	IncidenceRate float64 `csv:"incidence_rate"`
}

// Active returns the number of agents currently carrying the disease.
func (w WindowStats) Active() int { return w.Incubating + w.Infectious }

// Collector accumulates per-step transition counts into windows.
type Collector struct {
	windowTicks     int
	windowStartTick int
	events          epidemic.StepStats
	activeTicks     int // sum over ticks of active cases, for IncidenceRate
	total           epidemic.StepStats
}

// NewCollector creates a collector emitting a window every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: windowTicks}
}

// RecordStep adds the transitions of one tick. active is the number of
// carriers before the step.
func (c *Collector) RecordStep(stats epidemic.StepStats, active int) {
	c.events.Add(stats)
	c.total.Add(stats)
	c.activeTicks += active
}

// ShouldFlush reports whether the window ending at tick is complete.
func (c *Collector) ShouldFlush(tick int) bool {
	return tick-c.windowStartTick >= c.windowTicks
}

// Flush closes the current window at tick with the given stage totals and
// starts a new one.
func (c *Collector) Flush(tick int, totals [epidemic.NumStages]int) WindowStats {
	w := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   tick,
		Infections:      c.events.Infections,
		Onsets:          c.events.Onsets,
		Recoveries:      c.events.Recoveries,
		Deaths:          c.events.Deaths,
		Susceptible:     totals[epidemic.Susceptible],
		Incubating:      totals[epidemic.Incubating],
		Infectious:      totals[epidemic.Infectious],
		Recovered:       totals[epidemic.Recovered],
		Deceased:        totals[epidemic.Deceased],
	}
	if c.activeTicks > 0 {
		w.IncidenceRate = float64(c.events.Infections) / float64(c.activeTicks)
	}
	c.windowStartTick = tick
	c.events = epidemic.StepStats{}
	c.activeTicks = 0
	return w
}

// Total returns the transitions counted since the collector was created.
func (c *Collector) Total() epidemic.StepStats { return c.total }
