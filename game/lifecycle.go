package game

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/components"
	"github.com/pthm-cable/eann/systems"
)

// ErrTrackBlocked is returned when obstacles cut every route between two
// consecutive checkpoints.
var ErrTrackBlocked = errors.New("track blocked")

// buildTrack lays out the checkpoint path from the spawn point and scatters
// obstacles over noise peaks away from it.
func (g *Game) buildTrack() error {
	tc := g.cfg.Track
	spawn := vec(g.cfg.Agent.Spawn)

	g.checkpoints = checkpointPath(spawn, tc.Width, tc.Height, tc.Checkpoints, tc.CheckpointRange)
	for i, p := range g.checkpoints {
		pos := components.Position{Vec: p}
		body := components.Body{Radius: tc.CheckpointRange}
		cp := components.Checkpoint{Index: i}
		g.checkpointMapper.NewEntity(&pos, &body, &cp)
	}

	field := systems.NewNoiseField(g.seed, tc.NoiseScale)
	step := 2 * tc.ObstacleRadius
	candidates := field.Candidates(tc.Width, tc.Height, step, tc.NoiseThreshold)
	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	clearance := tc.CheckpointRange + tc.ObstacleRadius + 2*tc.AgentRadius
	spawnClearance := g.cfg.Agent.SpawnSpread*math.Sqrt2 + tc.ObstacleRadius + 2*tc.AgentRadius

	var discs []systems.Disc
	placed := 0
	for _, c := range candidates {
		if placed >= tc.Obstacles {
			break
		}
		p := r3.Vec{X: c.X, Y: c.Y}
		if !g.bounds.Contains(p, tc.ObstacleRadius) {
			continue
		}
		if r3.Norm(r3.Sub(p, spawn)) < spawnClearance {
			continue
		}
		if pathDistance(p, spawn, g.checkpoints) < clearance {
			continue
		}

		pos := components.Position{Vec: p}
		body := components.Body{Radius: tc.ObstacleRadius}
		ob := components.Obstacle{Noise: c.Value}
		e := g.obstacleMapper.NewEntity(&pos, &body, &ob)
		g.grid.Insert(e, p.X, p.Y)
		discs = append(discs, systems.Disc{Center: p, Radius: tc.ObstacleRadius})
		placed++
	}
	g.maxObstacleRadius = tc.ObstacleRadius

	if err := g.planRoute(spawn, discs); err != nil {
		return err
	}

	g.logger.Info("track built",
		"track", tc.Name,
		"checkpoints", len(g.checkpoints),
		"obstacles", placed,
		"candidates", len(candidates),
		"route_length", g.routeLength,
	)
	return nil
}

// planRoute routes an agent-sized body from spawn through every checkpoint.
func (g *Game) planRoute(spawn r3.Vec, discs []systems.Disc) error {
	tc := g.cfg.Track
	cell := math.Max(tc.AgentRadius, 0.5)
	planner := systems.NewRoutePlanner(systems.NewNavGrid(g.bounds, cell, discs, tc.AgentRadius))

	g.route = g.route[:0]
	g.routeLength = 0
	from := spawn
	for i, cp := range g.checkpoints {
		leg := planner.FindPath(from, cp)
		if leg == nil {
			return fmt.Errorf("checkpoint %d: %w", i, ErrTrackBlocked)
		}
		g.routeLength += systems.PathLength(leg)
		if len(g.route) > 0 {
			leg = leg[1:]
		}
		g.route = append(g.route, leg...)
		from = cp
	}
	return nil
}

// checkpointPath returns n checkpoints winding from spawn towards the far
// edge of the track.
func checkpointPath(spawn r3.Vec, width, height float64, n int, capture float64) []r3.Vec {
	if n <= 0 {
		return nil
	}
	margin := 2 * capture
	spacing := (height - margin - spawn.Y) / float64(n)
	amplitude := 0.2 * width

	out := make([]r3.Vec, n)
	for i := range out {
		k := float64(i + 1)
		x := spawn.X + amplitude*math.Sin(2*math.Pi*k/float64(n))
		out[i] = r3.Vec{
			X: clampf(x, margin, width-margin),
			Y: spawn.Y + k*spacing,
			Z: spawn.Z,
		}
	}
	return out
}

// pathDistance returns the distance from p to the polyline that starts at
// spawn and visits every checkpoint.
func pathDistance(p, spawn r3.Vec, checkpoints []r3.Vec) float64 {
	best := r3.Norm(r3.Sub(p, spawn))
	prev := spawn
	for _, c := range checkpoints {
		best = math.Min(best, segmentDistance(p, prev, c))
		prev = c
	}
	return best
}
