package systems

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/config"
)

// Movement integrates two control axes into agent motion. Horizontal input
// turns about the up axis, vertical input accelerates along local forward.
type Movement struct {
	cfg config.MovementConfig

	Horizontal float64 // [-1, 1], positive turns clockwise
	Vertical   float64 // [-1, 1], positive accelerates forward

	// Velocity is expressed in the agent's local frame.
	Velocity r3.Vec
}

// NewMovement returns a stopped movement helper.
func NewMovement(cfg config.MovementConfig) *Movement {
	return &Movement{cfg: cfg}
}

// SetInputs takes the first two network outputs as horizontal and vertical
// input. Missing axes read as zero.
func (m *Movement) SetInputs(outputs []float64) {
	m.Horizontal, m.Vertical = 0, 0
	if len(outputs) > 0 {
		m.Horizontal = outputs[0]
	}
	if len(outputs) > 1 {
		m.Vertical = outputs[1]
	}
}

// Update advances one tick and returns the new position and rotation.
func (m *Movement) Update(dt float64, pos r3.Vec, rot quat.Number) (r3.Vec, quat.Number) {
	m.Horizontal = clamp(m.Horizontal, -1, 1)
	m.Vertical = clamp(m.Vertical, -1, 1)

	// Accelerate only while below the speed the input asks for.
	canAccelerate := true
	switch {
	case m.Vertical < 0:
		canAccelerate = m.Velocity.Y > m.Vertical*m.cfg.MaxVel
	case m.Vertical > 0:
		canAccelerate = m.Velocity.Y < m.Vertical*m.cfg.MaxVel
	}
	if canAccelerate {
		m.Velocity.Y = clamp(m.Velocity.Y+m.Vertical*m.cfg.Acceleration*dt, -m.cfg.MaxVel, m.cfg.MaxVel)
	}

	turn := AxisAngle(Up, degToRad(-m.Horizontal*m.cfg.TurnSpeed*dt))
	rot = Normalize(quat.Mul(rot, turn))

	pos = r3.Add(pos, r3.Scale(dt, Rotate(rot, m.Velocity)))

	if m.Vertical == 0 {
		m.applyFriction(dt)
	}
	return pos, rot
}

func (m *Movement) applyFriction(dt float64) {
	switch {
	case m.Velocity.Y > 0:
		m.Velocity.Y = max(0, m.Velocity.Y-m.cfg.Friction*dt)
	case m.Velocity.Y < 0:
		m.Velocity.Y = min(0, m.Velocity.Y+m.cfg.Friction*dt)
	}
}

// Speed returns the current forward speed.
func (m *Movement) Speed() float64 { return m.Velocity.Y }

// Stop clears velocity and inputs.
func (m *Movement) Stop() {
	m.Velocity = r3.Vec{}
	m.Horizontal, m.Vertical = 0, 0
}
