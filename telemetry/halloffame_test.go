package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/pthm-cable/eann/genetic"
)

func genotypeWithEval(e float32) *genetic.Genotype {
	g := genetic.NewGenotypeFrom([]float32{e, -e})
	g.Evaluation = e
	return g
}

func TestHallOfFameKeepsBest(t *testing.T) {
	hof := NewHallOfFame(3)
	for _, e := range []float32{0.5, 2, 0.1, 1, 3} {
		hof.Consider("run", 1, genotypeWithEval(e))
	}

	if hof.Size() != 3 {
		t.Fatalf("Size = %d, want 3", hof.Size())
	}
	want := []float32{3, 2, 1}
	for i, e := range hof.Entries() {
		if e.Genotype.Evaluation != want[i] {
			t.Errorf("entry %d evaluation = %v, want %v", i, e.Genotype.Evaluation, want[i])
		}
	}
	if hof.TopEvaluation() != 3 {
		t.Errorf("TopEvaluation = %v, want 3", hof.TopEvaluation())
	}
}

func TestHallOfFameCopiesGenotype(t *testing.T) {
	hof := NewHallOfFame(2)
	g := genotypeWithEval(1)
	hof.Consider("run", 4, g)

	if err := g.SetParameter(0, 99); err != nil {
		t.Fatal(err)
	}
	if v, _ := hof.Entries()[0].Genotype.Parameter(0); v == 99 {
		t.Error("hall entry shares parameters with the population")
	}
}

func TestHallOfFameConsiderPopulation(t *testing.T) {
	hof := NewHallOfFame(2)
	pop := []*genetic.Genotype{genotypeWithEval(3), genotypeWithEval(2), genotypeWithEval(1)}

	if added := hof.ConsiderPopulation("run", 1, pop); added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if added := hof.ConsiderPopulation("run", 2, pop[2:]); added != 0 {
		t.Errorf("added = %d from a worse population, want 0", added)
	}
}

func TestHallOfFameJSON(t *testing.T) {
	hof := NewHallOfFame(2)
	g := genotypeWithEval(1.5)
	g.Name = "Agent 3"
	hof.Consider("abc", 9, g)

	data, err := hof.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["name"] != "Agent 3" || got[0]["run_id"] != "abc" {
		t.Errorf("unexpected JSON: %s", data)
	}
}
