package telemetry

import (
	"encoding/json"
	"sort"

	"github.com/pthm-cable/eann/genetic"
)

// HallEntry is a genotype that ranked among the best of the run.
type HallEntry struct {
	Genotype   *genetic.Genotype
	RunID      string
	Generation int
}

// HallOfFame keeps the best genotypes seen across generations and restarts,
// sorted by descending evaluation.
type HallOfFame struct {
	entries []HallEntry
	maxSize int
}

// NewHallOfFame creates a hall of fame holding up to maxSize genotypes.
func NewHallOfFame(maxSize int) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		entries: make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// Consider offers a genotype for entry. The genotype is copied, so later
// mutation of g does not affect the hall. Returns true if it was added.
func (hof *HallOfFame) Consider(runID string, generation int, g *genetic.Genotype) bool {
	if hof == nil {
		return false
	}

	// Find insertion point (sorted descending by evaluation)
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Genotype.Evaluation < g.Evaluation
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hof.entries) >= hof.maxSize && idx >= hof.maxSize {
		return false
	}

	entry := HallEntry{Genotype: g.Clone(), RunID: runID, Generation: generation}
	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry

	// Trim if over capacity
	if len(hof.entries) > hof.maxSize {
		hof.entries = hof.entries[:hof.maxSize]
	}
	return true
}

// ConsiderPopulation offers every member of a ranked population and returns
// how many entered the hall.
func (hof *HallOfFame) ConsiderPopulation(runID string, generation int, population []*genetic.Genotype) int {
	if hof == nil {
		return 0
	}
	added := 0
	for _, g := range population {
		if hof.Consider(runID, generation, g) {
			added++
		} else if len(hof.entries) >= hof.maxSize {
			// Population is ranked; once one is rejected from a full hall the rest are too.
			break
		}
	}
	return added
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	if hof == nil {
		return 0
	}
	return len(hof.entries)
}

// Entries returns the entries, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	if hof == nil {
		return nil
	}
	return hof.entries
}

// TopEvaluation returns the best evaluation in the hall, 0 if empty.
func (hof *HallOfFame) TopEvaluation() float32 {
	if hof.Size() == 0 {
		return 0
	}
	return hof.entries[0].Genotype.Evaluation
}

// hallEntryJSON is the JSON-serializable representation of a hall entry.
type hallEntryJSON struct {
	Name       string    `json:"name"`
	RunID      string    `json:"run_id"`
	Generation int       `json:"generation"`
	Evaluation float32   `json:"evaluation"`
	Fitness    float32   `json:"fitness"`
	Parameters []float32 `json:"parameters"`
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make([]hallEntryJSON, len(hof.entries))
	for i, e := range hof.entries {
		export[i] = hallEntryJSON{
			Name:       e.Genotype.Name,
			RunID:      e.RunID,
			Generation: e.Generation,
			Evaluation: e.Genotype.Evaluation,
			Fitness:    e.Genotype.Fitness,
			Parameters: e.Genotype.ParameterCopy(),
		}
	}
	return json.MarshalIndent(export, "", "  ")
}
