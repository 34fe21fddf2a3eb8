package genetic

// TerminationCriterion decides after fitness calculation whether the run ends.
type TerminationCriterion interface {
	ShouldTerminate(population []*Genotype, generation int) bool
}

// GenerationCountTermination ends the run once generation reaches RestartAfter.
// Zero disables it.
type GenerationCountTermination struct {
	RestartAfter int
}

// ShouldTerminate implements TerminationCriterion.
func (t GenerationCountTermination) ShouldTerminate(_ []*Genotype, generation int) bool {
	return t.RestartAfter > 0 && generation >= t.RestartAfter
}

// Never never terminates.
type Never struct{}

// ShouldTerminate implements TerminationCriterion.
func (Never) ShouldTerminate([]*Genotype, int) bool { return false }
