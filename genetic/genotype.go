// Package genetic implements the generational genetic algorithm over real-valued genotypes.
package genetic

import (
	"fmt"
	"log/slog"
	"math/rand"
)

// Default operator parameters.
const (
	DefInitParamMin   = -1.0
	DefInitParamMax   = 1.0
	DefCrossSwapProb  = 0.6
	DefMutationProb   = 0.3
	DefMutationAmount = 2.0
	DefMutationPerc   = 1.0
)

// Genotype is one population member: a fixed-length parameter vector plus its scores.
type Genotype struct {
	// Name is recorded in genotype files; set to the owning agent's name during evaluation.
	Name string

	Evaluation float32 // raw task score
	Fitness    float32 // Evaluation normalised against the population mean

	parameters []float32
}

// NewGenotype returns a genotype with paramCount parameters drawn uniformly from [-1, 1].
func NewGenotype(rng *rand.Rand, paramCount int) *Genotype {
	g := &Genotype{parameters: make([]float32, paramCount)}
	g.SetRandomParameters(rng, DefInitParamMin, DefInitParamMax)
	return g
}

// NewGenotypeFrom copies params into a fresh genotype with zero scores.
func NewGenotypeFrom(params []float32) *Genotype {
	return &Genotype{parameters: append([]float32(nil), params...)}
}

// RandomGenotype returns a genotype with parameters drawn uniformly from [min, max].
func RandomGenotype(rng *rand.Rand, paramCount int, min, max float32) *Genotype {
	g := &Genotype{parameters: make([]float32, paramCount)}
	g.SetRandomParameters(rng, min, max)
	return g
}

// SetRandomParameters overwrites every parameter with a uniform draw from [min, max].
func (g *Genotype) SetRandomParameters(rng *rand.Rand, min, max float32) {
	if min >= max {
		panic(fmt.Sprintf("genetic: invalid parameter range [%v, %v]", min, max))
	}
	span := max - min
	for i := range g.parameters {
		g.parameters[i] = min + rng.Float32()*span
	}
}

// ParameterCount returns the length of the parameter vector.
func (g *Genotype) ParameterCount() int {
	return len(g.parameters)
}

// Parameter returns parameter i.
func (g *Genotype) Parameter(i int) (float32, error) {
	if i < 0 || i >= len(g.parameters) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(g.parameters))
	}
	return g.parameters[i], nil
}

// SetParameter overwrites parameter i.
func (g *Genotype) SetParameter(i int, v float32) error {
	if i < 0 || i >= len(g.parameters) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(g.parameters))
	}
	g.parameters[i] = v
	return nil
}

// Parameters returns the live parameter vector. Callers must not change its length.
func (g *Genotype) Parameters() []float32 {
	return g.parameters
}

// ParameterCopy returns a copy of the parameter vector.
func (g *Genotype) ParameterCopy() []float32 {
	return append([]float32(nil), g.parameters...)
}

// Clone returns a deep copy including scores and name.
func (g *Genotype) Clone() *Genotype {
	c := NewGenotypeFrom(g.parameters)
	c.Name = g.Name
	c.Evaluation = g.Evaluation
	c.Fitness = g.Fitness
	return c
}

// Equal reports whether both genotypes carry identical parameters.
func (g *Genotype) Equal(other *Genotype) bool {
	if other == nil || len(g.parameters) != len(other.parameters) {
		return false
	}
	for i, p := range g.parameters {
		if p != other.parameters[i] {
			return false
		}
	}
	return true
}

// LogValue implements slog.LogValuer.
func (g *Genotype) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", g.Name),
		slog.Float64("evaluation", float64(g.Evaluation)),
		slog.Float64("fitness", float64(g.Fitness)),
		slog.Int("parameters", len(g.parameters)),
	)
}
