package game

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/agent"
	"github.com/pthm-cable/eann/systems"
	"github.com/pthm-cable/eann/telemetry"
)

// afterControllers runs once the controllers moved: collisions first, then
// checkpoint progress. It stops early when a death ends the generation.
func (g *Game) afterControllers(dt float64) {
	evalID := g.evalID

	g.perf.Enter(telemetry.PhaseCollisions)
	g.updateCollisions()
	if g.evalID != evalID {
		return
	}

	g.perf.Enter(telemetry.PhaseCheckpoints)
	g.updateCheckpoints(evalID)
}

// updateCollisions kills agents that left the track or touch an obstacle.
func (g *Game) updateCollisions() {
	verdicts := g.detectCollisions(g.manager.Controllers())
	evalID := g.evalID
	for _, v := range verdicts {
		if !v.hit {
			continue
		}
		g.kill(v.controller, v.cause, false)
		if g.evalID != evalID {
			return
		}
	}
}

// collisionAt reports whether an agent of the given radius at p is dead.
func (g *Game) collisionAt(p r3.Vec, radius float64, scratch *workerScratch) (telemetry.DeathCause, bool) {
	if !g.bounds.Contains(p, 0) {
		return telemetry.DeathOutOfBounds, true
	}

	scratch.neighbors = g.grid.QueryRadiusInto(scratch.neighbors[:0], p.X, p.Y, radius+g.maxObstacleRadius, g.posMap)
	for _, n := range scratch.neighbors {
		pos := g.posMap.Get(n.E)
		body := g.bodyMap.Get(n.E)
		if pos == nil || body == nil {
			continue
		}
		if systems.Overlaps(p, radius, pos.Vec, body.Radius) {
			return telemetry.DeathCollision, true
		}
	}
	return 0, false
}

// updateCheckpoints advances each living agent along the checkpoint path
// and refreshes its completion reward.
func (g *Game) updateCheckpoints(evalID int) {
	total := len(g.checkpoints)
	if total == 0 {
		return
	}
	capture := g.cfg.Track.CheckpointRange
	spawn := vec(g.cfg.Agent.Spawn)

	for i, c := range g.manager.Controllers() {
		if g.evalID != evalID {
			return
		}
		a := c.Agent()
		if a == nil || !a.IsAlive() || i >= len(g.progress) {
			continue
		}

		next := g.progress[i]
		if r3.Norm(r3.Sub(a.Position, g.checkpoints[next])) <= capture {
			next++
			g.progress[i] = next
			c.CheckpointCaptured()
			g.manager.Collector().RecordCheckpoint()
		}

		if next >= total {
			c.SetCurrentCompletionReward(1)
			g.finishers++
			g.kill(c, 0, true)
			continue
		}

		from := spawn
		if next > 0 {
			from = g.checkpoints[next-1]
		}
		c.SetCurrentCompletionReward(completionReward(next, total, a.Position, from, g.checkpoints[next]))
	}
}

// completionReward is the fraction of checkpoints captured plus partial
// progress towards the next one, measured along the segment from the
// previous checkpoint.
func completionReward(captured, total int, pos, from, to r3.Vec) float32 {
	segment := r3.Norm(r3.Sub(to, from))
	partial := 0.0
	if segment > 0 {
		partial = clampf(1-r3.Norm(r3.Sub(to, pos))/segment, 0, 1)
	}
	return float32((float64(captured) + partial) / float64(total))
}

// agentRadius returns the collision radius of every agent.
func (g *Game) agentRadius() float64 { return g.cfg.Track.AgentRadius }

var _ agent.ExtraInputs = (*Game)(nil)
var _ systems.ObstacleQuery = (*Game)(nil)
