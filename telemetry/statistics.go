package telemetry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pthm-cable/eann/genetic"
)

// StatisticsLog is the plain-text per-generation evaluation log.
type StatisticsLog struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

// StatisticsFileName returns the log file name for an evolution started at
// t. Restarts after the first get a numeric suffix.
func StatisticsFileName(t time.Time, restart int) string {
	name := "evaluation-" + t.Format("02-01-2006_15-04-05")
	if restart > 0 {
		name += fmt.Sprintf("-r%d", restart)
	}
	return name + ".txt"
}

// OpenStatisticsLog creates dir/name and writes the header line.
func OpenStatisticsLog(dir, name string, populationSize int, track string) (*StatisticsLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating statistics directory: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating statistics log: %w", err)
	}

	sl := &StatisticsLog{path: path, f: f, w: bufio.NewWriter(f)}
	fmt.Fprintf(sl.w, "Evaluation of a population with size: %d on Track %s.\n", populationSize, track)
	if err := sl.w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing statistics header: %w", err)
	}
	return sl, nil
}

// Append writes one line with the generation number and every evaluation
// of the ranked population.
func (sl *StatisticsLog) Append(generation int, population []*genetic.Genotype) error {
	if sl == nil {
		return nil
	}
	fmt.Fprintf(sl.w, "Generation %d (%d genotypes):", generation, len(population))
	for _, g := range population {
		fmt.Fprintf(sl.w, " %.4f", g.Evaluation)
	}
	sl.w.WriteByte('\n')
	if err := sl.w.Flush(); err != nil {
		return fmt.Errorf("appending statistics: %w", err)
	}
	return nil
}

// Path returns the log file path.
func (sl *StatisticsLog) Path() string {
	if sl == nil {
		return ""
	}
	return sl.path
}

// Close flushes and closes the log.
func (sl *StatisticsLog) Close() error {
	if sl == nil {
		return nil
	}
	if err := sl.w.Flush(); err != nil {
		sl.f.Close()
		return err
	}
	return sl.f.Close()
}
