package telemetry

import (
	"testing"
	"time"
)

// fakeClock is advanced by hand.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
func (c *fakeClock) now() time.Time          { return c.t }

func newTestPerf(window int) (*PerfCollector, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	pc := NewPerfCollector(window)
	pc.now = clock.now
	return pc, clock
}

// tick runs one tick spending d in each of phases.
func tick(pc *PerfCollector, clock *fakeClock, alive int, d time.Duration, phases ...Phase) {
	pc.BeginTick(alive)
	for _, ph := range phases {
		pc.Enter(ph)
		clock.advance(d)
	}
	pc.EndTick()
}

func TestPerfCollectorPhaseSplit(t *testing.T) {
	pc, clock := newTestPerf(10)

	pc.BeginTick(8)
	pc.Enter(PhaseControllers)
	clock.advance(300 * time.Microsecond)
	pc.Enter(PhaseCollisions)
	clock.advance(100 * time.Microsecond)
	pc.EndTick()

	s := pc.Stats()
	if s.Ticks != 1 || s.AvgTick != 400*time.Microsecond {
		t.Fatalf("ticks/avg = %d/%v, want 1/400µs", s.Ticks, s.AvgTick)
	}
	if s.Share(PhaseControllers) != 75 || s.Share(PhaseCollisions) != 25 {
		t.Errorf("shares = %v/%v, want 75/25", s.Share(PhaseControllers), s.Share(PhaseCollisions))
	}
	if s.TicksPerSecond != 2500 || s.AgentTicksPerSecond != 20000 {
		t.Errorf("throughput = %v ticks/s, %v agent-ticks/s; want 2500, 20000", s.TicksPerSecond, s.AgentTicksPerSecond)
	}
	if s.Transitions != 0 {
		t.Errorf("Transitions = %d, want 0", s.Transitions)
	}
}

func TestPerfCollectorRollingWindow(t *testing.T) {
	pc, clock := newTestPerf(3)

	// Early ticks are slow and crowded; the window must forget them
	for i := 0; i < 5; i++ {
		tick(pc, clock, 50, time.Millisecond, PhaseControllers)
	}
	for i := 0; i < 3; i++ {
		tick(pc, clock, 2, 100*time.Microsecond, PhaseControllers)
	}

	s := pc.Stats()
	if s.Ticks != 3 {
		t.Errorf("Ticks = %d, want 3", s.Ticks)
	}
	if s.MaxTick != 100*time.Microsecond {
		t.Errorf("MaxTick = %v, want 100µs", s.MaxTick)
	}
	if s.MeanAlive != 2 {
		t.Errorf("MeanAlive = %v, want 2", s.MeanAlive)
	}
}

func TestPerfCollectorTransitions(t *testing.T) {
	pc, clock := newTestPerf(10)

	tick(pc, clock, 4, 100*time.Microsecond, PhaseControllers)
	tick(pc, clock, 1, 100*time.Microsecond, PhaseControllers, PhaseGeneration)
	tick(pc, clock, 4, 100*time.Microsecond, PhaseControllers)

	pc.BeginTick(1)
	pc.Enter(PhaseControllers)
	clock.advance(100 * time.Microsecond)
	pc.Enter(PhaseGeneration)
	clock.advance(500 * time.Microsecond)
	pc.EndTick()

	s := pc.Stats()
	if s.Transitions != 2 {
		t.Fatalf("Transitions = %d, want 2", s.Transitions)
	}
	if s.AvgTransition != 300*time.Microsecond {
		t.Errorf("AvgTransition = %v, want 300µs", s.AvgTransition)
	}
}

func TestPerfCollectorEmpty(t *testing.T) {
	pc, _ := newTestPerf(10)
	s := pc.Stats()
	if s.Ticks != 0 || s.AvgTick != 0 || s.TicksPerSecond != 0 {
		t.Errorf("empty stats = %+v, want zero", s)
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseControllers, "controllers"},
		{PhaseGeneration, "generation"},
		{PhaseTelemetry, "telemetry"},
		{numPhases, "unknown"},
	}
	for _, tc := range tests {
		if got := tc.phase.String(); got != tc.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tc.phase, got, tc.want)
		}
	}
}

func TestPerfRecord(t *testing.T) {
	pc, clock := newTestPerf(10)
	tick(pc, clock, 5, 250*time.Microsecond, PhaseControllers, PhaseGeneration)

	row := pc.Stats().Record(7, 42)
	if row.Generation != 7 || row.Tick != 42 {
		t.Errorf("generation/tick = %d/%d, want 7/42", row.Generation, row.Tick)
	}
	if row.AvgTickUS != 500 || row.AvgTransitionUS != 250 || row.Transitions != 1 {
		t.Errorf("avg/transition/count = %d/%d/%d, want 500/250/1", row.AvgTickUS, row.AvgTransitionUS, row.Transitions)
	}
	if row.ControllersPct != 50 || row.GenerationPct != 50 || row.MeanAlive != 5 {
		t.Errorf("pct = %v/%v alive %v, want 50/50 alive 5", row.ControllersPct, row.GenerationPct, row.MeanAlive)
	}
}
