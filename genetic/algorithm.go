package genetic

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
)

// Evaluator starts the evaluation of a population. Evaluation completes
// asynchronously; the owner calls EvaluationFinished once every genotype
// has been scored.
type Evaluator interface {
	Evaluate(population []*Genotype) error
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(population []*Genotype) error

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(population []*Genotype) error { return f(population) }

// Initializer fills a fresh population with starting parameters.
type Initializer interface {
	Initialize(population []*Genotype)
}

// UniformInitializer draws every parameter from [Min, Max].
type UniformInitializer struct {
	Min, Max float32
	rng      *rand.Rand
}

// NewUniformInitializer returns an initializer drawing from [min, max].
func NewUniformInitializer(rng *rand.Rand, min, max float32) *UniformInitializer {
	return &UniformInitializer{Min: min, Max: max, rng: rng}
}

// Initialize implements Initializer.
func (u *UniformInitializer) Initialize(population []*Genotype) {
	for _, g := range population {
		g.SetRandomParameters(u.rng, u.Min, u.Max)
	}
}

// Options selects the strategies an Algorithm runs with.
// Nil strategies fall back to the defaults from DefaultOptions.
type Options struct {
	Evaluator      Evaluator
	Initializer    Initializer
	Fitness        FitnessCalculator
	Selection      Selector
	Recombination  Recombiner
	Mutation       Mutator
	Termination    TerminationCriterion
	SortPopulation bool
	Logger         *slog.Logger
}

// DefaultOptions returns the default strategy set driven by rng.
func DefaultOptions(rng *rand.Rand) Options {
	return Options{
		Initializer:    NewUniformInitializer(rng, DefInitParamMin, DefInitParamMax),
		Fitness:        MeanNormalizedFitness{},
		Selection:      NewRemainderStochasticSelection(rng),
		Recombination:  NewCompleteCrossoverRecombination(rng, DefCrossSwapProb),
		Mutation:       NewMutateAllButBestTwo(rng, DefMutationProb, DefMutationAmount),
		Termination:    Never{},
		SortPopulation: true,
	}
}

// Algorithm runs the generational loop: evaluate, rank, select, recombine,
// mutate, evaluate again. It is not safe for concurrent use.
type Algorithm struct {
	opts       Options
	paramCount int
	size       int

	population []*Genotype
	generation int
	running    bool

	onFitness    []func(population []*Genotype)
	onTerminated []func()

	logger *slog.Logger
}

// NewAlgorithm builds an algorithm for populations of size genotypes with
// paramCount parameters each. opts.Evaluator is required.
func NewAlgorithm(rng *rand.Rand, paramCount, size int, opts Options) (*Algorithm, error) {
	if size < 2 {
		return nil, fmt.Errorf("%w: population size %d", ErrInvalidPopulation, size)
	}
	if paramCount < 1 {
		return nil, fmt.Errorf("%w: parameter count %d", ErrInvalidPopulation, paramCount)
	}
	if opts.Evaluator == nil {
		return nil, fmt.Errorf("genetic: no evaluator configured")
	}

	defaults := DefaultOptions(rng)
	if opts.Initializer == nil {
		opts.Initializer = defaults.Initializer
	}
	if opts.Fitness == nil {
		opts.Fitness = defaults.Fitness
	}
	if opts.Selection == nil {
		opts.Selection = defaults.Selection
	}
	if opts.Recombination == nil {
		opts.Recombination = defaults.Recombination
	}
	if opts.Mutation == nil {
		opts.Mutation = defaults.Mutation
	}
	if opts.Termination == nil {
		opts.Termination = defaults.Termination
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	population := make([]*Genotype, size)
	for i := range population {
		population[i] = &Genotype{parameters: make([]float32, paramCount)}
	}

	return &Algorithm{
		opts:       opts,
		paramCount: paramCount,
		size:       size,
		population: population,
		generation: 1,
		logger:     logger,
	}, nil
}

// OnFitnessCalculated registers fn to run after each generation is ranked.
func (a *Algorithm) OnFitnessCalculated(fn func(population []*Genotype)) {
	a.onFitness = append(a.onFitness, fn)
}

// OnTerminated registers fn to run when the termination criterion ends the run.
func (a *Algorithm) OnTerminated(fn func()) {
	a.onTerminated = append(a.onTerminated, fn)
}

// Start randomizes the population and begins the first evaluation.
func (a *Algorithm) Start() error {
	a.generation = 1
	a.running = true
	a.opts.Initializer.Initialize(a.population)

	a.logger.Info("genetic algorithm started",
		"population", a.size,
		"parameters", a.paramCount,
	)

	if err := a.opts.Evaluator.Evaluate(a.population); err != nil {
		a.running = false
		return fmt.Errorf("evaluating generation %d: %w", a.generation, err)
	}
	return nil
}

// EvaluationFinished completes the current generation and, unless the run
// terminates, starts evaluating the next one.
func (a *Algorithm) EvaluationFinished() error {
	if !a.running {
		return ErrNotRunning
	}

	a.opts.Fitness.CalculateFitness(a.population)
	if a.opts.SortPopulation {
		slices.SortStableFunc(a.population, func(x, y *Genotype) int {
			switch {
			case x.Fitness > y.Fitness:
				return -1
			case x.Fitness < y.Fitness:
				return 1
			}
			return 0
		})
	}

	for _, fn := range slices.Clone(a.onFitness) {
		fn(a.population)
	}

	if a.CheckTermination() {
		a.Terminate()
		return nil
	}

	intermediate, err := a.opts.Selection.Select(a.population)
	if err != nil {
		a.running = false
		return fmt.Errorf("selection in generation %d: %w", a.generation, err)
	}
	next, err := a.opts.Recombination.Recombine(intermediate, a.size)
	if err != nil {
		a.running = false
		return fmt.Errorf("recombination in generation %d: %w", a.generation, err)
	}
	if len(next) != a.size {
		a.running = false
		return fmt.Errorf("%w: recombination produced %d genotypes, want %d", ErrInvalidPopulation, len(next), a.size)
	}
	a.opts.Mutation.Mutate(next)

	a.population = next
	a.generation++

	if err := a.opts.Evaluator.Evaluate(a.population); err != nil {
		a.running = false
		return fmt.Errorf("evaluating generation %d: %w", a.generation, err)
	}
	return nil
}

// CheckTermination reports whether the termination criterion is met.
func (a *Algorithm) CheckTermination() bool {
	return a.opts.Termination.ShouldTerminate(a.population, a.generation)
}

// Terminate stops the run and notifies OnTerminated subscribers. Only the
// first call after Start has an effect.
func (a *Algorithm) Terminate() {
	if !a.running {
		return
	}
	a.running = false
	a.logger.Info("genetic algorithm terminated", "generation", a.generation)
	for _, fn := range slices.Clone(a.onTerminated) {
		fn()
	}
}

// Stop cancels the run without notifying OnTerminated subscribers.
func (a *Algorithm) Stop() {
	a.running = false
}

// Running reports whether a run is in progress.
func (a *Algorithm) Running() bool { return a.running }

// Generation returns the current generation number, starting at 1.
func (a *Algorithm) Generation() int { return a.generation }

// PopulationSize returns the fixed population size.
func (a *Algorithm) PopulationSize() int { return a.size }

// ParameterCount returns the genotype length.
func (a *Algorithm) ParameterCount() int { return a.paramCount }

// Population returns the current population. Callers must not retain it
// across generations.
func (a *Algorithm) Population() []*Genotype { return a.population }
