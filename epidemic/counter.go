package epidemic

// StageCounter measures time spent in the current disease stage.
//
// Elapsed time starts at 1. Each Advance increments it while it is below the
// duration and otherwise marks the counter expired, so a counter created with
// duration n expires on exactly the n-th Advance.
type StageCounter struct {
	elapsed  int
	duration int
	expired  bool
}

// NewStageCounter returns a fresh counter for a stage lasting duration ticks.
func NewStageCounter(duration int) *StageCounter {
	return &StageCounter{elapsed: 1, duration: duration}
}

// Advance moves the counter one tick forward.
func (c *StageCounter) Advance() {
	if c.elapsed < c.duration {
		c.elapsed++
		return
	}
	c.expired = true
}

// Reset restarts the counter with the same duration.
func (c *StageCounter) Reset() {
	c.elapsed = 1
	c.expired = false
}

// Expired reports whether the stage duration has run out.
func (c *StageCounter) Expired() bool { return c.expired }

// Elapsed returns the number of ticks counted so far, starting at 1.
func (c *StageCounter) Elapsed() int { return c.elapsed }

// Duration returns the configured stage length in ticks.
func (c *StageCounter) Duration() int { return c.duration }
