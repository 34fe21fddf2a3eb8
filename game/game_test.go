package game

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/components"
	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/systems"
	"github.com/pthm-cable/eann/telemetry"
)

func newTestGame(t *testing.T, mutate func(cfg *config.Config, opts *Options)) *Game {
	t.Helper()
	cfg := config.Default()
	cfg.Evolution.PopulationSize = 4
	cfg.Evolution.SaveStatistics = false
	cfg.Evolution.TrainingDataDir = t.TempDir()
	cfg.Track.Obstacles = 0

	opts := DefaultOptions()
	opts.RunID = "test"
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if mutate != nil {
		mutate(cfg, &opts)
	}
	cfg = cfg.Clone()

	g, err := NewGameWithOptions(cfg, opts)
	if err != nil {
		t.Fatalf("NewGameWithOptions: %v", err)
	}
	t.Cleanup(func() { g.Unload() })
	return g
}

func (g *Game) addObstacle(p r3.Vec, radius float64) {
	pos := components.Position{Vec: p}
	body := components.Body{Radius: radius}
	ob := components.Obstacle{}
	e := g.obstacleMapper.NewEntity(&pos, &body, &ob)
	g.grid.Insert(e, p.X, p.Y)
	g.maxObstacleRadius = math.Max(g.maxObstacleRadius, radius)
}

func TestNewGameBuildsTrack(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config, _ *Options) {
		cfg.Track.Obstacles = 24
	})

	if got := len(g.Checkpoints()); got != g.cfg.Track.Checkpoints {
		t.Fatalf("checkpoints = %d, want %d", got, g.cfg.Track.Checkpoints)
	}
	prev := vec(g.cfg.Agent.Spawn)
	for i, c := range g.Checkpoints() {
		if c.Y <= prev.Y {
			t.Errorf("checkpoint %d at %v does not advance from %v", i, c, prev)
		}
		if !g.bounds.Contains(c, 0) {
			t.Errorf("checkpoint %d at %v outside the track", i, c)
		}
		prev = c
	}

	if n := g.ObstacleCount(); n > 24 {
		t.Errorf("ObstacleCount = %d, want at most 24", n)
	}
	clearance := g.cfg.Track.CheckpointRange + g.cfg.Track.ObstacleRadius
	query := g.obstacleFilter.Query()
	for query.Next() {
		pos, _, _ := query.Get()
		if d := pathDistance(pos.Vec, vec(g.cfg.Agent.Spawn), g.checkpoints); d < clearance {
			t.Errorf("obstacle at %v is %.2f from the path", pos.Vec, d)
		}
	}

	route := g.Route()
	if len(route) < 2 {
		t.Fatalf("route has %d waypoints, want at least 2", len(route))
	}
	spawn := vec(g.cfg.Agent.Spawn)
	last := g.checkpoints[len(g.checkpoints)-1]
	if route[0] != spawn || route[len(route)-1] != last {
		t.Errorf("route runs %v -> %v, want %v -> %v", route[0], route[len(route)-1], spawn, last)
	}
	if g.RouteLength() < r3.Norm(r3.Sub(last, spawn)) {
		t.Errorf("RouteLength = %.2f, shorter than the straight line", g.RouteLength())
	}

	if g.Manager().AliveCount() != 4 {
		t.Errorf("AliveCount = %d, want 4", g.Manager().AliveCount())
	}
}

func TestPlanRouteDetectsBlockedTrack(t *testing.T) {
	g := newTestGame(t, nil)

	var wall []systems.Disc
	for x := 0.0; x <= g.cfg.Track.Width; x += 2 {
		wall = append(wall, systems.Disc{Center: r3.Vec{X: x, Y: 25}, Radius: 2})
	}
	err := g.planRoute(vec(g.cfg.Agent.Spawn), wall)
	if !errors.Is(err, ErrTrackBlocked) {
		t.Fatalf("planRoute error = %v, want ErrTrackBlocked", err)
	}
}

func TestTrackIsDeterministicPerSeed(t *testing.T) {
	mutate := func(cfg *config.Config, opts *Options) {
		cfg.Track.Obstacles = 24
		opts.Seed = 9
	}
	a := newTestGame(t, mutate)
	b := newTestGame(t, mutate)
	if a.ObstacleCount() != b.ObstacleCount() {
		t.Errorf("obstacle counts differ: %d vs %d", a.ObstacleCount(), b.ObstacleCount())
	}
}

func TestUpdateHeadlessRunsSteps(t *testing.T) {
	g := newTestGame(t, func(_ *config.Config, opts *Options) {
		opts.StepsPerUpdate = 5
	})
	if err := g.UpdateHeadless(); err != nil {
		t.Fatalf("UpdateHeadless: %v", err)
	}
	if g.Tick() != 5 {
		t.Errorf("Tick = %d, want 5", g.Tick())
	}
	if g.Perf().TicksPerSecond <= 0 {
		t.Error("perf collector recorded no ticks")
	}
}

func TestDistance(t *testing.T) {
	g := newTestGame(t, nil)
	g.addObstacle(r3.Vec{X: 60, Y: 16}, 2.5)

	tests := []struct {
		name   string
		origin r3.Vec
		dir    r3.Vec
		want   float64
	}{
		{"obstacle ahead", r3.Vec{X: 60, Y: 6}, systems.Forward, 7.5},
		{"south wall", r3.Vec{X: 60, Y: 6}, r3.Vec{Y: -1}, 6},
		{"east wall", r3.Vec{X: 115, Y: 50}, systems.AxisX, 5},
		{"nothing in range", r3.Vec{X: 30, Y: 60}, systems.AxisX, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Distance(0, tt.origin, tt.dir, 10)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Distance = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := g.Distance(0, r3.Vec{}, r3.Vec{}, 10); err == nil {
		t.Error("expected error for zero direction")
	}
}

func TestCollisionKillsAgent(t *testing.T) {
	g := newTestGame(t, nil)
	g.addObstacle(r3.Vec{X: 30, Y: 30}, 2.5)

	m := g.Manager()
	m.Agent(0).Position = r3.Vec{X: 31, Y: 30}
	m.Agent(1).Position = r3.Vec{X: -1, Y: 30}

	g.afterControllers(g.cfg.Physics.DT)

	if m.Agent(0).IsAlive() || m.Agent(1).IsAlive() {
		t.Fatal("colliding agents survived")
	}
	if !m.Agent(2).IsAlive() || !m.Agent(3).IsAlive() {
		t.Fatal("agents clear of obstacles died")
	}
	c := m.Collector()
	if c.Deaths(telemetry.DeathCollision) != 1 || c.Deaths(telemetry.DeathOutOfBounds) != 1 {
		t.Errorf("collision=%d out_of_bounds=%d, want 1 each",
			c.Deaths(telemetry.DeathCollision), c.Deaths(telemetry.DeathOutOfBounds))
	}
	if c.Deaths(telemetry.DeathTimeout) != 0 {
		t.Errorf("host kills were counted as timeouts")
	}
	if m.AliveCount() != 2 {
		t.Errorf("AliveCount = %d, want 2", m.AliveCount())
	}
}

func TestCollisionsParallelMatchSerial(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config, _ *Options) {
		cfg.Evolution.PopulationSize = parallelThreshold + 6
	})
	g.addObstacle(r3.Vec{X: 30, Y: 30}, 2.5)

	m := g.Manager()
	for i, a := range m.Agents() {
		if i%2 == 0 {
			a.Position = r3.Vec{X: 30, Y: 31}
		} else {
			a.Position = r3.Vec{X: 90, Y: 90}
		}
	}

	verdicts := g.detectCollisions(m.Controllers())
	if len(verdicts) != len(m.Agents()) {
		t.Fatalf("got %d verdicts, want %d", len(verdicts), len(m.Agents()))
	}
	for i, v := range verdicts {
		want := i%2 == 0
		if v.hit != want {
			t.Errorf("verdict %d hit = %v, want %v", i, v.hit, want)
		}
		if v.controller != m.Controllers()[i] {
			t.Errorf("verdict %d is for the wrong controller", i)
		}
	}
}

func TestCheckpointCapture(t *testing.T) {
	g := newTestGame(t, nil)
	m := g.Manager()
	c := m.Controllers()[0]
	a := m.Agent(0)

	a.Position = g.Checkpoints()[0]
	g.afterControllers(g.cfg.Physics.DT)

	if g.progress[0] != 1 {
		t.Fatalf("progress = %d, want 1", g.progress[0])
	}
	if c.TimeSinceLastCheckpoint() != 0 {
		t.Error("checkpoint did not reset the timer")
	}
	want := float32(1) / float32(len(g.Checkpoints()))
	if got := c.CurrentCompletionReward(); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("reward = %v, want %v", got, want)
	}
	if m.Collector().Deaths(telemetry.DeathTimeout) != 0 {
		t.Error("unexpected deaths")
	}
}

func TestFinishingTrack(t *testing.T) {
	g := newTestGame(t, nil)
	m := g.Manager()
	c := m.Controllers()[0]
	a := m.Agent(0)
	last := len(g.Checkpoints()) - 1

	g.progress[0] = last
	a.Position = g.Checkpoints()[last]
	g.afterControllers(g.cfg.Physics.DT)

	if a.IsAlive() {
		t.Error("finisher should leave the track")
	}
	if got := c.CurrentCompletionReward(); got != 1 {
		t.Errorf("reward = %v, want 1", got)
	}
	if g.Finishers() != 1 {
		t.Errorf("Finishers = %d, want 1", g.Finishers())
	}
	col := m.Collector()
	if col.Deaths(telemetry.DeathTimeout)+col.Deaths(telemetry.DeathCollision)+col.Deaths(telemetry.DeathOutOfBounds) != 0 {
		t.Error("finishing was recorded as a death")
	}
}

func TestCompletionReward(t *testing.T) {
	from := r3.Vec{}
	to := r3.Vec{Y: 10}
	tests := []struct {
		name     string
		captured int
		pos      r3.Vec
		want     float32
	}{
		{"at start", 0, from, 0},
		{"halfway", 0, r3.Vec{Y: 5}, 0.125},
		{"one captured", 1, from, 0.25},
		{"behind start", 1, r3.Vec{Y: -20}, 0.25},
		{"at next", 3, to, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := completionReward(tt.captured, 4, tt.pos, from, to)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("reward = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeoutsEndGeneration(t *testing.T) {
	dir := t.TempDir()
	g := newTestGame(t, func(cfg *config.Config, opts *Options) {
		cfg.Agent.MaxCheckpointDelay = 0.1
		opts.OutputDir = dir
	})

	var stats []telemetry.GenerationStats
	g.Manager().OnGeneration(func(s telemetry.GenerationStats) { stats = append(stats, s) })

	for i := 0; i < 100 && len(stats) == 0; i++ {
		if err := g.UpdateHeadless(); err != nil {
			t.Fatalf("UpdateHeadless: %v", err)
		}
	}
	if len(stats) == 0 {
		t.Fatal("no generation completed")
	}

	s := stats[0]
	deaths := s.DeathsTimeout + s.DeathsCollision + s.DeathsOutOfBound
	if deaths+g.Finishers() != 4 {
		t.Errorf("deaths=%d finishers=%d, want 4 agents accounted for", deaths, g.Finishers())
	}
	if s.SimTimeSec <= 0 {
		t.Error("generation recorded no simulated time")
	}
	if p := g.Perf(); p.Transitions < 1 || p.Share(telemetry.PhaseGeneration) <= 0 {
		t.Errorf("perf transitions = %d, generation share %v; want the transition timed", p.Transitions, p.Share(telemetry.PhaseGeneration))
	}

	if err := g.Unload(); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	for _, name := range []string{"generations.csv", "config.yaml", "hall_of_fame.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestExtraInputsPointAtNextCheckpoint(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config, _ *Options) {
		cfg.Neural.ExtraInputs = 2
	})
	a := g.Manager().Agent(0)
	cp := g.Checkpoints()[0]
	a.Position = r3.Vec{X: cp.X, Y: cp.Y - 5}
	a.Rotation = systems.Identity

	dst := make([]float64, 2)
	g.ExtraInputs(0, dst)

	if want := 5 / g.cfg.Sensors.MaxDist; math.Abs(dst[0]-want) > 1e-9 {
		t.Errorf("distance input = %v, want %v", dst[0], want)
	}
	if math.Abs(dst[1]) > 1e-9 {
		t.Errorf("heading error = %v, want 0 when facing the checkpoint", dst[1])
	}

	g.ExtraInputs(99, dst)
	if dst[0] != 0 || dst[1] != 0 {
		t.Error("unknown agent should get zero inputs")
	}
}
