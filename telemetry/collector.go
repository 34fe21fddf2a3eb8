package telemetry

import "fmt"

// DeathCause identifies why an agent died.
type DeathCause uint8

const (
	DeathTimeout DeathCause = iota
	DeathCollision
	DeathOutOfBounds
	numDeathCauses
)

func (c DeathCause) String() string {
	switch c {
	case DeathTimeout:
		return "timeout"
	case DeathCollision:
		return "collision"
	case DeathOutOfBounds:
		return "out_of_bounds"
	}
	return fmt.Sprintf("DeathCause(%d)", uint8(c))
}

// Collector accumulates host events within one generation.
type Collector struct {
	deaths      [numDeathCauses]int
	checkpoints int
	simTime     float64
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordDeath records an agent death.
func (c *Collector) RecordDeath(cause DeathCause) {
	if cause < numDeathCauses {
		c.deaths[cause]++
	}
}

// RecordCheckpoint records a captured checkpoint.
func (c *Collector) RecordCheckpoint() {
	c.checkpoints++
}

// Advance adds simulated time to the current generation.
func (c *Collector) Advance(dt float64) {
	c.simTime += dt
}

// Deaths returns the number of deaths recorded for cause.
func (c *Collector) Deaths(cause DeathCause) int {
	if cause >= numDeathCauses {
		return 0
	}
	return c.deaths[cause]
}

// Flush copies the counters into stats and resets the collector.
func (c *Collector) Flush(stats *GenerationStats) {
	stats.Checkpoints = c.checkpoints
	stats.DeathsTimeout = c.deaths[DeathTimeout]
	stats.DeathsCollision = c.deaths[DeathCollision]
	stats.DeathsOutOfBound = c.deaths[DeathOutOfBounds]
	stats.SimTimeSec = c.simTime
	*c = Collector{}
}
