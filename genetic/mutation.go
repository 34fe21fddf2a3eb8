package genetic

import "math/rand"

// Mutator perturbs a freshly recombined population in place.
type Mutator interface {
	Mutate(population []*Genotype)
}

// MutateAllButBestTwo leaves the two carried-over elites untouched and
// mutates each later genotype with probability Prob.
type MutateAllButBestTwo struct {
	Prob   float64
	Amount float64
	rng    *rand.Rand
}

// NewMutateAllButBestTwo returns the default mutator.
func NewMutateAllButBestTwo(rng *rand.Rand, prob, amount float64) *MutateAllButBestTwo {
	return &MutateAllButBestTwo{Prob: prob, Amount: amount, rng: rng}
}

// Mutate implements Mutator.
func (m *MutateAllButBestTwo) Mutate(population []*Genotype) {
	for i := 2; i < len(population); i++ {
		if m.rng.Float64() < m.Prob {
			MutateGenotype(m.rng, population[i], m.Prob, m.Amount)
		}
	}
}

// MutateAll mutates every genotype, elites included, with probability Perc.
type MutateAll struct {
	Perc   float64
	Prob   float64
	Amount float64
	rng    *rand.Rand
}

// NewMutateAll returns a mutator that may also touch the elites.
func NewMutateAll(rng *rand.Rand, perc, prob, amount float64) *MutateAll {
	return &MutateAll{Perc: perc, Prob: prob, Amount: amount, rng: rng}
}

// Mutate implements Mutator.
func (m *MutateAll) Mutate(population []*Genotype) {
	for _, g := range population {
		if m.rng.Float64() < m.Perc {
			MutateGenotype(m.rng, g, m.Prob, m.Amount)
		}
	}
}

// MutateGenotype adds a uniform delta in [-amount, amount] to each parameter
// with probability prob.
func MutateGenotype(rng *rand.Rand, g *Genotype, prob, amount float64) {
	for i := range g.parameters {
		if rng.Float64() < prob {
			g.parameters[i] += float32(rng.Float64()*amount*2 - amount)
		}
	}
}
