package genetic

import (
	"fmt"
	"math/rand"
)

// Recombiner produces a new population of the given size from parents.
type Recombiner interface {
	Recombine(intermediate []*Genotype, size int) ([]*Genotype, error)
}

// CompleteCrossoverRecombination carries the best two parents over unchanged
// and fills the rest with complete crossovers of random distinct pairs.
type CompleteCrossoverRecombination struct {
	SwapChance float64
	rng        *rand.Rand
}

// NewCompleteCrossoverRecombination returns the default recombiner.
func NewCompleteCrossoverRecombination(rng *rand.Rand, swapChance float64) *CompleteCrossoverRecombination {
	return &CompleteCrossoverRecombination{SwapChance: swapChance, rng: rng}
}

// Recombine implements Recombiner.
func (r *CompleteCrossoverRecombination) Recombine(intermediate []*Genotype, size int) ([]*Genotype, error) {
	if len(intermediate) < 2 {
		return nil, fmt.Errorf("%w: recombination needs at least 2 parents, got %d", ErrInvalidPopulation, len(intermediate))
	}

	next := make([]*Genotype, 0, size)
	for i := 0; i < 2 && len(next) < size; i++ {
		next = append(next, NewGenotypeFrom(intermediate[i].parameters))
	}

	for len(next) < size {
		i := r.rng.Intn(len(intermediate))
		j := r.rng.Intn(len(intermediate) - 1)
		if j >= i {
			j++
		}

		off1, off2, err := CompleteCrossover(r.rng, intermediate[i], intermediate[j], r.SwapChance)
		if err != nil {
			return nil, err
		}
		next = append(next, off1)
		if len(next) < size {
			next = append(next, off2)
		}
	}
	return next, nil
}

// CompleteCrossover swaps each parameter between the parents with
// probability swapChance and returns the two offspring.
func CompleteCrossover(rng *rand.Rand, parent1, parent2 *Genotype, swapChance float64) (*Genotype, *Genotype, error) {
	if parent1.ParameterCount() != parent2.ParameterCount() {
		return nil, nil, fmt.Errorf("%w: parents have %d and %d parameters",
			ErrInvalidPopulation, parent1.ParameterCount(), parent2.ParameterCount())
	}

	n := parent1.ParameterCount()
	p1 := make([]float32, n)
	p2 := make([]float32, n)
	for i := range n {
		if rng.Float64() < swapChance {
			p1[i], p2[i] = parent2.parameters[i], parent1.parameters[i]
		} else {
			p1[i], p2[i] = parent1.parameters[i], parent2.parameters[i]
		}
	}
	return &Genotype{parameters: p1}, &Genotype{parameters: p2}, nil
}
