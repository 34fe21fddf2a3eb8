// Package agent holds the per-genotype network body and the tick-driven
// controller that senses, thinks and moves it.
package agent

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/genetic"
	"github.com/pthm-cable/eann/neural"
	"github.com/pthm-cable/eann/systems"
)

// Agent is one population member in the world: a borrowed genotype, the
// network built from it, and its pose.
type Agent struct {
	ID   int
	Name string

	Position r3.Vec
	Rotation quat.Number

	genotype *genetic.Genotype
	network  *neural.Network
	alive    bool

	onDied []func(*Agent)
}

// New builds the network for g. The genotype must carry exactly as many
// parameters as the topology has weights.
func New(id int, g *genetic.Genotype, act neural.Activation, topology []int) (*Agent, error) {
	nn, err := neural.NewNetwork(topology, act)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}
	if nn.WeightCount() != g.ParameterCount() {
		return nil, fmt.Errorf("agent %d: %w: topology %v needs %d weights, genotype has %d",
			id, neural.ErrConfigMismatch, topology, nn.WeightCount(), g.ParameterCount())
	}
	if err := nn.LoadWeights(g.Parameters()); err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}

	name := fmt.Sprintf("Agent %d", id)
	g.Name = name
	return &Agent{
		ID:       id,
		Name:     name,
		Rotation: systems.Identity,
		genotype: g,
		network:  nn,
	}, nil
}

// OnDied registers fn to run when the agent dies.
func (a *Agent) OnDied(fn func(*Agent)) {
	a.onDied = append(a.onDied, fn)
}

// Reset clears the genotype scores and brings the agent to life.
func (a *Agent) Reset() {
	a.genotype.Evaluation = 0
	a.genotype.Fitness = 0
	a.alive = true
}

// Kill marks the agent dead and notifies OnDied subscribers. Killing a dead
// agent does nothing.
func (a *Agent) Kill() {
	if !a.alive {
		return
	}
	a.alive = false
	for _, fn := range slices.Clone(a.onDied) {
		fn(a)
	}
}

// IsAlive reports whether the agent is alive.
func (a *Agent) IsAlive() bool { return a.alive }

// Genotype returns the borrowed genotype.
func (a *Agent) Genotype() *genetic.Genotype { return a.genotype }

// Network returns the agent's network.
func (a *Agent) Network() *neural.Network { return a.network }

// Matches reports whether both agents carry identical network weights.
func (a *Agent) Matches(other *Agent) bool {
	if other == nil {
		return false
	}
	return slices.Equal(a.network.Weights(), other.network.Weights())
}

// Source resolves agents by index. Controllers hold an index rather than a
// pointer so a population swap never leaves them with a stale agent.
type Source interface {
	Agent(i int) *Agent
}

// List is a Source over a plain slice.
type List []*Agent

// Agent returns the agent at i, or nil when i is out of range.
func (l List) Agent(i int) *Agent {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}
