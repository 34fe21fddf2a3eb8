package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/eann/genetic"
)

// FinisherArchive saves the first genotypes that complete the track
// (evaluation >= 1), up to a fixed limit per run.
type FinisherArchive struct {
	dir   string
	limit int
	saved int
}

// NewFinisherArchive archives up to limit genotypes into dir. limit <= 0
// disables archiving.
func NewFinisherArchive(dir string, limit int) *FinisherArchive {
	return &FinisherArchive{dir: dir, limit: limit}
}

// FinisherFileName returns the file name of the n-th archived finisher.
func FinisherFileName(n int) string {
	return fmt.Sprintf("Genotype - Finished as %d.txt", n)
}

// Check saves finishers from a ranked population. It stops at the first
// genotype below 1 or once the limit is reached, and returns the paths saved.
func (fa *FinisherArchive) Check(population []*genetic.Genotype) ([]string, error) {
	if fa == nil || fa.saved >= fa.limit {
		return nil, nil
	}

	var saved []string
	var errs []error
	for _, g := range population {
		if g.Evaluation < 1 {
			break
		}
		if err := os.MkdirAll(fa.dir, 0755); err != nil {
			return saved, fmt.Errorf("%w: %w", genetic.ErrGenotypeIO, err)
		}

		fa.saved++
		path := filepath.Join(fa.dir, FinisherFileName(fa.saved))
		if err := g.SaveToFile(path); err != nil {
			errs = append(errs, err)
		} else {
			saved = append(saved, path)
		}
		if fa.saved >= fa.limit {
			break
		}
	}
	return saved, errors.Join(errs...)
}

// Saved returns how many finishers have been archived.
func (fa *FinisherArchive) Saved() int {
	if fa == nil {
		return 0
	}
	return fa.saved
}

// Dir returns the archive directory.
func (fa *FinisherArchive) Dir() string {
	if fa == nil {
		return ""
	}
	return fa.dir
}
