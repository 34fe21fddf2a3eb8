// Package game is the headless training host: a track of obstacles and
// checkpoints in an ECS world that drives an evolution.Manager tick by tick.
package game

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/agent"
	"github.com/pthm-cable/eann/components"
	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/evolution"
	"github.com/pthm-cable/eann/systems"
	"github.com/pthm-cable/eann/telemetry"
)

// Game holds the complete host state.
type Game struct {
	cfg    *config.Config
	world  *ecs.World
	rng    *rand.Rand
	seed   int64
	logger *slog.Logger

	obstacleMapper   *ecs.Map3[components.Position, components.Body, components.Obstacle]
	checkpointMapper *ecs.Map3[components.Position, components.Body, components.Checkpoint]
	obstacleFilter   *ecs.Filter3[components.Position, components.Body, components.Obstacle]
	posMap           *ecs.Map1[components.Position]
	bodyMap          *ecs.Map1[components.Body]

	// Spatial index over obstacles
	grid              *systems.SpatialGrid
	bounds            systems.Bounds
	maxObstacleRadius float64
	checkpoints       []r3.Vec
	route             []r3.Vec // Planned waypoints from spawn through every checkpoint
	routeLength       float64

	manager *evolution.Manager

	// Per-agent track progress for the current generation
	progress []int
	evalID   int
	hostKill bool

	parallel *parallelState

	// Telemetry
	perf          *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool

	tick           int64
	stepsPerUpdate int
	finishers      int
	unloaded       bool
}

// NewGameWithOptions builds the track and starts evolution.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	steps := opts.StepsPerUpdate
	if steps < 1 {
		steps = 1
	}

	world := ecs.NewWorld()
	g := &Game{
		cfg:              cfg,
		world:            world,
		rng:              rand.New(rand.NewSource(opts.Seed)),
		seed:             opts.Seed,
		logger:           logger,
		obstacleMapper:   ecs.NewMap3[components.Position, components.Body, components.Obstacle](world),
		checkpointMapper: ecs.NewMap3[components.Position, components.Body, components.Checkpoint](world),
		obstacleFilter:   ecs.NewFilter3[components.Position, components.Body, components.Obstacle](world),
		posMap:           ecs.NewMap1[components.Position](world),
		bodyMap:          ecs.NewMap1[components.Body](world),
		bounds:           systems.Bounds{Width: cfg.Track.Width, Height: cfg.Track.Height},
		parallel:         newParallelState(),
		perf:             telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		logStats:         opts.LogStats,
		stepsPerUpdate:   steps,
	}

	cellSize := math.Max(4*cfg.Track.ObstacleRadius, 1)
	g.grid = systems.NewSpatialGrid(cfg.Track.Width, cfg.Track.Height, cellSize)
	if err := g.buildTrack(); err != nil {
		return nil, err
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, err
	}
	g.outputManager = om

	mopts := evolution.Options{
		Logger: logger,
		Rand:   g.rng,
		Query:  g,
		Output: om,
		RunID:  opts.RunID,
	}
	if cfg.Neural.ExtraInputs > 0 {
		mopts.Extra = g
	}
	m, err := evolution.New(cfg, mopts)
	if err != nil {
		om.Close()
		return nil, err
	}
	g.manager = m

	m.OnEvaluationStarted(g.onEvaluationStarted)
	m.OnAgentDied(g.onAgentDied)
	m.OnTick(g.afterControllers)
	m.OnGeneration(g.onGeneration)

	if err := m.StartEvolution(); err != nil {
		g.Unload()
		return nil, err
	}
	return g, nil
}

// UpdateHeadless runs StepsPerUpdate ticks and returns the first fatal error.
func (g *Game) UpdateHeadless() error {
	for i := 0; i < g.stepsPerUpdate; i++ {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

// step advances the simulation by one tick.
func (g *Game) step() error {
	g.perf.BeginTick(g.manager.AliveCount())
	g.perf.Enter(telemetry.PhaseControllers)

	err := g.manager.Update(g.cfg.Physics.DT)

	g.perf.Enter(telemetry.PhaseTelemetry)
	g.tick++
	g.flushPerf()
	g.perf.EndTick()
	return err
}

// Distance implements systems.ObstacleQuery. Track walls count as obstacles.
func (g *Game) Distance(agentIndex int, origin, dir r3.Vec, maxDist float64) (float64, error) {
	if r3.Norm(dir) == 0 {
		return 0, fmt.Errorf("agent %d: zero sensor direction", agentIndex)
	}
	best := math.Min(maxDist, g.bounds.RayExit(origin, dir))

	half := maxDist / 2
	mid := r3.Add(origin, r3.Scale(half, dir))
	neighbors := g.grid.QueryRadiusInto(g.parallel.scratches[0].neighbors[:0], mid.X, mid.Y, half+g.maxObstacleRadius, g.posMap)
	g.parallel.scratches[0].neighbors = neighbors

	for _, n := range neighbors {
		pos := g.posMap.Get(n.E)
		body := g.bodyMap.Get(n.E)
		if pos == nil || body == nil {
			continue
		}
		if d, ok := systems.RaySphere(origin, dir, pos.Vec, body.Radius); ok && d < best {
			best = d
		}
	}
	return best, nil
}

// ExtraInputs implements agent.ExtraInputs: distance to the next checkpoint
// scaled by sensor range, then the heading error towards it in [-1, 1].
func (g *Game) ExtraInputs(agentIndex int, dst []float64) {
	clear(dst)
	a := g.manager.Agent(agentIndex)
	if a == nil || agentIndex >= len(g.progress) {
		return
	}
	next := g.progress[agentIndex]
	if next >= len(g.checkpoints) {
		return
	}

	to := r3.Sub(g.checkpoints[next], a.Position)
	if len(dst) > 0 {
		dst[0] = clampf(r3.Norm(to)/g.cfg.Sensors.MaxDist, 0, 1)
	}
	if len(dst) > 1 {
		heading := systems.Heading(a.Rotation)
		want := math.Atan2(to.Y, to.X)
		have := math.Atan2(heading.Y, heading.X)
		dst[1] = normalizeAngle(want-have) / math.Pi
	}
}

func (g *Game) onEvaluationStarted(agents []*agent.Agent) {
	g.evalID++
	g.progress = make([]int, len(agents))
}

// onAgentDied attributes deaths the host did not cause to the checkpoint
// timeout. The last death of a generation starts the transition phase.
func (g *Game) onAgentDied(int, *agent.Agent) {
	if g.manager.AliveCount() == 1 {
		g.perf.Enter(telemetry.PhaseGeneration)
	}
	if !g.hostKill {
		g.manager.Collector().RecordDeath(telemetry.DeathTimeout)
	}
}

// kill ends the controller's agent, recording cause unless it finished.
func (g *Game) kill(c *agent.Controller, cause telemetry.DeathCause, finished bool) {
	if !finished {
		g.manager.Collector().RecordDeath(cause)
	}
	g.hostKill = true
	c.Die()
	g.hostKill = false
}

// Unload stops evolution and closes all output files.
func (g *Game) Unload() error {
	if g.unloaded {
		return nil
	}
	g.unloaded = true
	g.stopParallelWorkers()
	var err error
	if g.manager != nil {
		err = g.manager.Close()
	}
	if cerr := g.outputManager.Close(); cerr != nil && err == nil {
		err = cerr
	}
	g.logger.Info("host unloaded", "ticks", g.tick, "generations", g.CompletedGenerations(), "finishers", g.finishers)
	return err
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int64 { return g.tick }

// Manager returns the evolution manager driven by this host.
func (g *Game) Manager() *evolution.Manager { return g.manager }

// CompletedGenerations returns the number of ranked generations.
func (g *Game) CompletedGenerations() int {
	if g.manager == nil {
		return 0
	}
	return g.manager.CompletedGenerations()
}

// Checkpoints returns the ordered checkpoint positions.
func (g *Game) Checkpoints() []r3.Vec { return g.checkpoints }

// ObstacleCount returns the number of obstacles on the track.
func (g *Game) ObstacleCount() int {
	n := 0
	query := g.obstacleFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// Route returns the planned waypoints from spawn through every checkpoint.
func (g *Game) Route() []r3.Vec { return g.route }

// RouteLength returns the length of the planned route.
func (g *Game) RouteLength() float64 { return g.routeLength }

// Finishers returns how many agents completed the track.
func (g *Game) Finishers() int { return g.finishers }

// Perf returns the current performance statistics.
func (g *Game) Perf() telemetry.PerfStats { return g.perf.Stats() }
