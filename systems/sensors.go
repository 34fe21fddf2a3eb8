package systems

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/config"
)

// ErrSensorIndex reports access to a sensor slot that does not exist.
var ErrSensorIndex = errors.New("sensor index out of range")

// ErrSensorReading is returned when an obstacle query yields no number.
var ErrSensorReading = errors.New("sensor reading is not a number")

// ObstacleQuery is supplied by the host to measure free space.
// Distance returns how far a ray from origin along the unit vector dir
// travels before hitting an obstacle, or maxDist when nothing is hit.
// agentIndex identifies the querying agent so hosts can skip its own body.
type ObstacleQuery interface {
	Distance(agentIndex int, origin, dir r3.Vec, maxDist float64) (float64, error)
}

// ObstacleQueryFunc adapts a plain function to ObstacleQuery.
type ObstacleQueryFunc func(agentIndex int, origin, dir r3.Vec, maxDist float64) (float64, error)

// Distance calls f.
func (f ObstacleQueryFunc) Distance(agentIndex int, origin, dir r3.Vec, maxDist float64) (float64, error) {
	return f(agentIndex, origin, dir, maxDist)
}

// Sensor produces one distance reading along a fixed direction in the
// agent's local frame.
type Sensor struct {
	agentIndex int
	cfg        config.SensorsConfig

	offset    r3.Vec // local
	direction r3.Vec // local, unit length

	center r3.Vec // world
	target r3.Vec // world, visual only
	output float64

	visible bool
}

// NewSensor creates a sensor for the agent at agentIndex. It points along
// local forward until SetDirection is called.
func NewSensor(agentIndex int, cfg config.SensorsConfig) *Sensor {
	return &Sensor{
		agentIndex: agentIndex,
		cfg:        cfg,
		direction:  Forward,
		output:     cfg.MaxDist,
	}
}

// AgentIndex returns the index of the agent this sensor belongs to.
func (s *Sensor) AgentIndex() int { return s.agentIndex }

// SetOffset sets the sensor origin relative to the agent position.
func (s *Sensor) SetOffset(v r3.Vec) { s.offset = v }

// Offset returns the local sensor origin.
func (s *Sensor) Offset() r3.Vec { return s.offset }

// SetDirection sets the local sensing direction. v is normalized; a zero
// vector is kept as is and the sensor then reads MaxDist from most hosts.
func (s *Sensor) SetDirection(v r3.Vec) { s.direction = Unit(v) }

// Direction returns the local sensing direction.
func (s *Sensor) Direction() r3.Vec { return s.direction }

// Update recomputes the sensor geometry for an agent at pos with rotation
// rot and takes a new reading from q. A failed query leaves the reading at
// MinDist and returns the error; the sensor stays usable.
func (s *Sensor) Update(pos r3.Vec, rot quat.Number, q ObstacleQuery) error {
	s.center = r3.Add(pos, Rotate(rot, s.offset))
	dir := Rotate(rot, s.direction)
	s.target = r3.Add(s.center, r3.Scale(s.cfg.Length, dir))

	if q == nil {
		s.output = s.cfg.MaxDist
		return nil
	}

	d, err := q.Distance(s.agentIndex, s.center, dir, s.cfg.MaxDist)
	if err != nil {
		s.output = s.cfg.MinDist
		return err
	}
	if math.IsNaN(d) {
		s.output = s.cfg.MinDist
		return fmt.Errorf("agent %d: %w", s.agentIndex, ErrSensorReading)
	}
	s.output = clamp(d, s.cfg.MinDist, s.cfg.MaxDist)
	return nil
}

// Output returns the last reading, always within [MinDist, MaxDist].
func (s *Sensor) Output() float64 { return s.output }

// Center returns the world-space sensor origin from the last update.
func (s *Sensor) Center() r3.Vec { return s.center }

// Target returns the world-space end of the visual sensor line.
func (s *Sensor) Target() r3.Vec { return s.target }

// Show marks the sensor visible.
func (s *Sensor) Show() { s.visible = true }

// Hide marks the sensor hidden.
func (s *Sensor) Hide() { s.visible = false }

// Visible reports whether the sensor is shown.
func (s *Sensor) Visible() bool { return s.visible }
