package game

import (
	"github.com/pthm-cable/eann/telemetry"
)

// onGeneration runs after each generation is ranked and recorded by the manager.
func (g *Game) onGeneration(stats telemetry.GenerationStats) {
	if g.logStats {
		stats.LogStats()
	}
}

// flushPerf logs and writes perf stats every LogEvery ticks.
func (g *Game) flushPerf() {
	every := int64(g.cfg.Telemetry.LogEvery)
	if every <= 0 || g.tick%every != 0 {
		return
	}

	perfStats := g.perf.Stats()
	generation := g.manager.Generation()
	if g.logStats {
		perfStats.LogStats(generation)
	}
	if err := g.outputManager.WritePerf(perfStats, generation, g.tick); err != nil {
		g.logger.Error("failed to write perf", "error", err)
	}
}
