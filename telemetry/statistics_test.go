package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pthm-cable/eann/genetic"
)

func rankedEvals(evals ...float32) []*genetic.Genotype {
	pop := make([]*genetic.Genotype, len(evals))
	for i, e := range evals {
		pop[i] = genetic.NewGenotypeFrom([]float32{e, 1, 2})
		pop[i].Evaluation = e
	}
	return pop
}

func TestStatisticsLog(t *testing.T) {
	dir := t.TempDir()
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	name := StatisticsFileName(started, 0)
	if name != "evaluation-04-03-2026_05-06-07.txt" {
		t.Errorf("file name = %q", name)
	}
	if got := StatisticsFileName(started, 2); got != "evaluation-04-03-2026_05-06-07-r2.txt" {
		t.Errorf("restart file name = %q", got)
	}

	sl, err := OpenStatisticsLog(dir, name, 3, "default")
	if err != nil {
		t.Fatal(err)
	}
	if err := sl.Append(1, rankedEvals(1.5, 0.25, 0)); err != nil {
		t.Fatal(err)
	}
	if err := sl.Append(2, rankedEvals(2, 1, 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := sl.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	want := []string{
		"Evaluation of a population with size: 3 on Track default.",
		"Generation 1 (3 genotypes): 1.5000 0.2500 0.0000",
		"Generation 2 (3 genotypes): 2.0000 1.0000 0.5000",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), data)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestFinisherArchiveStopsAtFirstNonFinisher(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	fa := NewFinisherArchive(dir, 10)

	saved, err := fa.Check(rankedEvals(2, 1, 0.9, 1.5))
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 || fa.Saved() != 2 {
		t.Fatalf("saved %d (total %d), want 2", len(saved), fa.Saved())
	}

	g, err := genetic.LoadFromFile(filepath.Join(dir, FinisherFileName(2)))
	if err != nil {
		t.Fatal(err)
	}
	if g.Evaluation != 1 {
		t.Errorf("second finisher evaluation = %v, want 1", g.Evaluation)
	}
}

func TestFinisherArchiveLimit(t *testing.T) {
	fa := NewFinisherArchive(t.TempDir(), 3)

	if _, err := fa.Check(rankedEvals(3, 2)); err != nil {
		t.Fatal(err)
	}
	saved, err := fa.Check(rankedEvals(5, 4, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || fa.Saved() != 3 {
		t.Errorf("second check saved %d (total %d), want 1 (3)", len(saved), fa.Saved())
	}
	if saved, _ := fa.Check(rankedEvals(9)); len(saved) != 0 {
		t.Error("archive saved past its limit")
	}
}

func TestFinisherArchiveDisabled(t *testing.T) {
	fa := NewFinisherArchive(t.TempDir(), 0)
	if saved, err := fa.Check(rankedEvals(5)); err != nil || len(saved) != 0 {
		t.Errorf("disabled archive saved %v, err %v", saved, err)
	}
}

func TestFinisherArchiveUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	fa := NewFinisherArchive(filepath.Join(file, "sub"), 2)
	if _, err := fa.Check(rankedEvals(1)); !errors.Is(err, genetic.ErrGenotypeIO) {
		t.Errorf("err = %v, want ErrGenotypeIO", err)
	}
}
