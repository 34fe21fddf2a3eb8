package genetic

import "errors"

var (
	// ErrIndexOutOfRange reports a parameter access outside the genotype.
	ErrIndexOutOfRange = errors.New("parameter index out of range")

	// ErrInvalidPopulation reports an operator input too small to work with.
	ErrInvalidPopulation = errors.New("invalid population")

	// ErrSchemaMismatch reports a genotype file whose parameter count does not fit the target.
	ErrSchemaMismatch = errors.New("genotype file schema mismatch")

	// ErrGenotypeIO reports a failure opening, reading or writing a genotype file.
	ErrGenotypeIO = errors.New("genotype file i/o")

	// ErrNotRunning reports a generation step on a stopped or terminated algorithm.
	ErrNotRunning = errors.New("genetic algorithm not running")
)
