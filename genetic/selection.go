package genetic

import (
	"fmt"
	"math"
	"math/rand"
)

// Selector builds the intermediate population from a ranked population.
type Selector interface {
	Select(population []*Genotype) ([]*Genotype, error)
}

// RemainderStochasticSelection copies each genotype floor(fitness) times, then
// adds one more copy with probability equal to its fractional remainder.
// The population must be sorted by descending fitness. If sampling keeps
// fewer than two genotypes, the intermediate population is padded with
// copies of the top ranked genotypes, population[0] first, so recombination
// always has two parents.
type RemainderStochasticSelection struct {
	rng *rand.Rand
}

// NewRemainderStochasticSelection returns the default selector.
func NewRemainderStochasticSelection(rng *rand.Rand) *RemainderStochasticSelection {
	return &RemainderStochasticSelection{rng: rng}
}

// Select implements Selector.
func (s *RemainderStochasticSelection) Select(population []*Genotype) ([]*Genotype, error) {
	if len(population) < 2 {
		return nil, fmt.Errorf("%w: selection needs at least 2 genotypes, got %d", ErrInvalidPopulation, len(population))
	}

	intermediate := make([]*Genotype, 0, len(population))
	for _, g := range population {
		if g.Fitness < 1 {
			break
		}
		for n := 0; n < int(g.Fitness); n++ {
			intermediate = append(intermediate, g.Clone())
		}
	}

	for _, g := range population {
		rem := float64(g.Fitness) - math.Floor(float64(g.Fitness))
		if s.rng.Float64() < rem {
			intermediate = append(intermediate, g.Clone())
		}
	}

	for i := 0; len(intermediate) < 2; i++ {
		intermediate = append(intermediate, population[i].Clone())
	}
	return intermediate, nil
}

// ElitistSelection keeps the top Count genotypes.
type ElitistSelection struct {
	Count int
}

// Select implements Selector.
func (s ElitistSelection) Select(population []*Genotype) ([]*Genotype, error) {
	n := min(s.Count, len(population))
	if n < 2 {
		return nil, fmt.Errorf("%w: elitist selection of %d from %d genotypes", ErrInvalidPopulation, s.Count, len(population))
	}
	intermediate := make([]*Genotype, n)
	for i := range n {
		intermediate[i] = population[i].Clone()
	}
	return intermediate, nil
}
