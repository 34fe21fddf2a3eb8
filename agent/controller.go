package agent

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/systems"
)

// State is the controller lifecycle state.
type State uint8

const (
	Idle State = iota
	Active
	Dead
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Dead:
		return "dead"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ExtraInputs fills task-specific network inputs that follow the sensors.
type ExtraInputs interface {
	ExtraInputs(agentIndex int, dst []float64)
}

// ControllerOptions carries the host collaborators of a controller.
type ControllerOptions struct {
	Query  systems.ObstacleQuery
	Extra  ExtraInputs
	Logger *slog.Logger
}

// Controller drives one agent per tick: sense, process, move, and kill the
// agent once it goes too long without reaching a checkpoint.
type Controller struct {
	index  int
	agents Source

	sensors  []*systems.Sensor
	movement *systems.Movement
	query    systems.ObstacleQuery
	extra    ExtraInputs

	state           State
	sinceCheckpoint float64
	maxDelay        float64
	sensorFaults    int

	inputs []float64
	logger *slog.Logger
}

// NewController creates an idle controller for the agent at index, with one
// sensor per configured direction.
func NewController(index int, agents Source, cfg *config.Config, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sensors := make([]*systems.Sensor, len(cfg.Sensors.Directions))
	for i, d := range cfg.Sensors.Directions {
		s := systems.NewSensor(index, cfg.Sensors)
		s.SetDirection(vec(d))
		sensors[i] = s
	}

	return &Controller{
		index:    index,
		agents:   agents,
		sensors:  sensors,
		movement: systems.NewMovement(cfg.Movement),
		query:    opts.Query,
		extra:    opts.Extra,
		maxDelay: cfg.Agent.MaxCheckpointDelay,
		inputs:   make([]float64, len(sensors)+cfg.Neural.ExtraInputs),
		logger:   logger,
	}
}

// Restart resets the checkpoint timer and brings the agent back to life.
func (c *Controller) Restart() {
	c.movement.Stop()
	c.sinceCheckpoint = 0
	for _, s := range c.sensors {
		s.Show()
	}
	if a := c.agents.Agent(c.index); a != nil {
		a.Reset()
	}
	c.state = Active
}

// Update advances the agent by dt seconds. It does nothing unless the
// controller is active.
func (c *Controller) Update(dt float64) error {
	if c.state != Active {
		return nil
	}
	a := c.agents.Agent(c.index)
	if a == nil || !a.IsAlive() {
		c.state = Dead
		return nil
	}

	c.sinceCheckpoint += dt

	for i, s := range c.sensors {
		if err := s.Update(a.Position, a.Rotation, c.query); err != nil {
			c.sensorFaults++
			c.logger.Debug("sensor query failed", "agent", a.Name, "sensor", i, "error", err)
		}
		c.inputs[i] = s.Output()
	}
	if extra := c.inputs[len(c.sensors):]; len(extra) > 0 && c.extra != nil {
		c.extra.ExtraInputs(c.index, extra)
	}

	out, err := a.Network().Process(c.inputs)
	if err != nil {
		return fmt.Errorf("%s: %w", a.Name, err)
	}
	c.movement.SetInputs(out)
	a.Position, a.Rotation = c.movement.Update(dt, a.Position, a.Rotation)

	if c.sinceCheckpoint > c.maxDelay {
		c.Die()
	}
	return nil
}

// Die stops the agent and kills it. Further calls do nothing.
func (c *Controller) Die() {
	if c.state == Dead {
		return
	}
	c.state = Dead
	c.movement.Stop()
	for _, s := range c.sensors {
		s.Hide()
	}
	if a := c.agents.Agent(c.index); a != nil {
		a.Kill()
	}
}

// CheckpointCaptured resets the checkpoint timer.
func (c *Controller) CheckpointCaptured() {
	c.sinceCheckpoint = 0
}

// CurrentCompletionReward returns the agent's evaluation so far.
func (c *Controller) CurrentCompletionReward() float32 {
	if a := c.agents.Agent(c.index); a != nil {
		return a.Genotype().Evaluation
	}
	return 0
}

// SetCurrentCompletionReward overwrites the agent's evaluation.
func (c *Controller) SetCurrentCompletionReward(v float32) {
	if a := c.agents.Agent(c.index); a != nil {
		a.Genotype().Evaluation = v
	}
}

// Sensor returns sensor i.
func (c *Controller) Sensor(i int) (*systems.Sensor, error) {
	if i < 0 || i >= len(c.sensors) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", systems.ErrSensorIndex, i, len(c.sensors))
	}
	return c.sensors[i], nil
}

// Sensors returns all sensors in input order.
func (c *Controller) Sensors() []*systems.Sensor { return c.sensors }

// Movement returns the movement helper.
func (c *Controller) Movement() *systems.Movement { return c.movement }

// Agent returns the controlled agent.
func (c *Controller) Agent() *Agent { return c.agents.Agent(c.index) }

// Index returns the agent index.
func (c *Controller) Index() int { return c.index }

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// TimeSinceLastCheckpoint returns seconds since the last checkpoint or restart.
func (c *Controller) TimeSinceLastCheckpoint() float64 { return c.sinceCheckpoint }

// SensorFaults returns how many sensor queries have failed.
func (c *Controller) SensorFaults() int { return c.sensorFaults }
