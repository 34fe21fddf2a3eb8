package agent

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/genetic"
	"github.com/pthm-cable/eann/neural"
	"github.com/pthm-cable/eann/systems"
)

func newTestController(t *testing.T, opts ControllerOptions) (*Controller, *Agent) {
	t.Helper()
	cfg := config.Default()
	cfg.Agent.MaxCheckpointDelay = 7

	rng := rand.New(rand.NewSource(42))
	g := genetic.NewGenotype(rng, neural.WeightCountFor(cfg.Derived.Topology))
	a, err := New(0, g, neural.SoftSign, cfg.Derived.Topology)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return NewController(0, List{a}, cfg, opts), a
}

func TestControllerDiesAfterCheckpointDelay(t *testing.T) {
	c, a := newTestController(t, ControllerOptions{})
	died := 0
	a.OnDied(func(*Agent) { died++ })

	if c.State() != Idle {
		t.Fatalf("new controller state = %v, want idle", c.State())
	}
	c.Restart()

	for tick := 1; tick <= 8; tick++ {
		if err := c.Update(1.0); err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if tick < 8 && c.State() != Active {
			t.Fatalf("died early at tick %d", tick)
		}
	}

	if c.State() != Dead || a.IsAlive() {
		t.Fatalf("after 8 ticks: state %v alive %v", c.State(), a.IsAlive())
	}
	if died != 1 {
		t.Errorf("OnDied fired %d times, want 1", died)
	}

	// Dead controllers ignore ticks and repeated deaths.
	if err := c.Update(1.0); err != nil {
		t.Fatal(err)
	}
	c.Die()
	if died != 1 {
		t.Errorf("OnDied fired %d times after extra ticks, want 1", died)
	}
}

func TestControllerCheckpointResetsTimer(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{})
	c.Restart()

	for range 20 {
		if err := c.Update(1.0); err != nil {
			t.Fatal(err)
		}
		c.CheckpointCaptured()
	}
	if c.State() != Active {
		t.Errorf("state = %v, want active while checkpoints keep arriving", c.State())
	}
	if c.TimeSinceLastCheckpoint() != 0 {
		t.Errorf("timer = %v, want 0", c.TimeSinceLastCheckpoint())
	}
}

func TestControllerIdleIgnoresUpdate(t *testing.T) {
	c, a := newTestController(t, ControllerOptions{})
	start := a.Position
	if err := c.Update(1.0); err != nil {
		t.Fatal(err)
	}
	if c.TimeSinceLastCheckpoint() != 0 || a.Position != start {
		t.Error("idle controller advanced")
	}
}

func TestControllerRestartRevives(t *testing.T) {
	c, a := newTestController(t, ControllerOptions{})
	c.Restart()
	a.Genotype().Evaluation = 2
	c.Die()

	c.Restart()
	if c.State() != Active || !a.IsAlive() {
		t.Fatalf("after restart: state %v alive %v", c.State(), a.IsAlive())
	}
	if a.Genotype().Evaluation != 0 {
		t.Error("restart kept evaluation")
	}
	for i, s := range c.Sensors() {
		if !s.Visible() {
			t.Errorf("sensor %d hidden after restart", i)
		}
	}
}

func TestControllerDieHidesSensorsAndStops(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{})
	c.Restart()
	c.Movement().Velocity.Y = 5
	c.Die()

	if c.Movement().Velocity != (r3.Vec{}) {
		t.Error("Die did not stop movement")
	}
	for i, s := range c.Sensors() {
		if s.Visible() {
			t.Errorf("sensor %d visible after death", i)
		}
	}
}

func TestControllerCompletionRewardProxiesEvaluation(t *testing.T) {
	c, a := newTestController(t, ControllerOptions{})
	c.Restart()
	c.SetCurrentCompletionReward(0.75)

	if a.Genotype().Evaluation != 0.75 {
		t.Errorf("genotype evaluation = %v, want 0.75", a.Genotype().Evaluation)
	}
	if c.CurrentCompletionReward() != 0.75 {
		t.Errorf("CurrentCompletionReward = %v, want 0.75", c.CurrentCompletionReward())
	}
}

func TestControllerSensorIndex(t *testing.T) {
	c, _ := newTestController(t, ControllerOptions{})

	if _, err := c.Sensor(0); err != nil {
		t.Errorf("Sensor(0): %v", err)
	}
	for _, i := range []int{-1, len(c.Sensors())} {
		if _, err := c.Sensor(i); !errors.Is(err, systems.ErrSensorIndex) {
			t.Errorf("Sensor(%d) err = %v, want ErrSensorIndex", i, err)
		}
	}
}

func TestControllerSensorFaultIsRecoverable(t *testing.T) {
	failing := systems.ObstacleQueryFunc(func(int, r3.Vec, r3.Vec, float64) (float64, error) {
		return 0, errors.New("no physics world")
	})
	c, _ := newTestController(t, ControllerOptions{Query: failing})
	c.Restart()

	if err := c.Update(0.1); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if c.State() != Active {
		t.Error("sensor failure killed the agent")
	}
	if c.SensorFaults() != len(c.Sensors()) {
		t.Errorf("SensorFaults = %d, want %d", c.SensorFaults(), len(c.Sensors()))
	}
	for i, s := range c.Sensors() {
		if s.Output() != 0.01 {
			t.Errorf("sensor %d output = %v, want MinDist", i, s.Output())
		}
	}
}

func TestControllerNaNReadingKeepsAgentFinite(t *testing.T) {
	nan := systems.ObstacleQueryFunc(func(int, r3.Vec, r3.Vec, float64) (float64, error) {
		return math.NaN(), nil
	})
	c, a := newTestController(t, ControllerOptions{Query: nan})
	c.Restart()

	for tick := 0; tick < 5; tick++ {
		if err := c.Update(0.1); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}
	if c.SensorFaults() != 5*len(c.Sensors()) {
		t.Errorf("SensorFaults = %d, want %d", c.SensorFaults(), 5*len(c.Sensors()))
	}
	p := a.Position
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
		t.Errorf("Position = %v, want finite", p)
	}
}

type constExtra float64

func (v constExtra) ExtraInputs(_ int, dst []float64) {
	for i := range dst {
		dst[i] = float64(v)
	}
}

func TestControllerExtraInputs(t *testing.T) {
	cfg := config.Default()
	cfg.Neural.ExtraInputs = 2
	cfg = cfg.Clone()

	rng := rand.New(rand.NewSource(42))
	g := genetic.NewGenotype(rng, neural.WeightCountFor(cfg.Derived.Topology))
	a, err := New(0, g, neural.SoftSign, cfg.Derived.Topology)
	if err != nil {
		t.Fatal(err)
	}

	c := NewController(0, List{a}, cfg, ControllerOptions{Extra: constExtra(0.5)})
	c.Restart()
	if err := c.Update(0.1); err != nil {
		t.Fatalf("Update with extra inputs: %v", err)
	}
}
