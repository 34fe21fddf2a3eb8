package genetic

import "gonum.org/v1/gonum/stat"

// FitnessCalculator derives Fitness from Evaluation across a population.
type FitnessCalculator interface {
	CalculateFitness(population []*Genotype)
}

// FitnessFunc adapts a plain function to FitnessCalculator.
type FitnessFunc func(population []*Genotype)

// CalculateFitness calls f.
func (f FitnessFunc) CalculateFitness(population []*Genotype) { f(population) }

// MeanNormalizedFitness sets fitness = evaluation / mean(evaluation).
// A population whose mean evaluation is zero gets uniform fitness 1.
type MeanNormalizedFitness struct{}

// CalculateFitness implements FitnessCalculator.
func (MeanNormalizedFitness) CalculateFitness(population []*Genotype) {
	if len(population) == 0 {
		return
	}
	mean := MeanEvaluation(population)
	for _, g := range population {
		if mean == 0 {
			g.Fitness = 1
			continue
		}
		g.Fitness = float32(float64(g.Evaluation) / mean)
	}
}

// Evaluations returns the population's evaluations in order.
func Evaluations(population []*Genotype) []float64 {
	out := make([]float64, len(population))
	for i, g := range population {
		out[i] = float64(g.Evaluation)
	}
	return out
}

// MeanEvaluation returns the mean evaluation of population, 0 when empty.
func MeanEvaluation(population []*Genotype) float64 {
	if len(population) == 0 {
		return 0
	}
	return stat.Mean(Evaluations(population), nil)
}
