package telemetry

import (
	"log/slog"
	"time"
)

// Phase is one stage of a training tick.
type Phase uint8

const (
	PhaseControllers Phase = iota // sense, think, move
	PhaseCollisions
	PhaseCheckpoints
	PhaseGeneration // ranking, breeding and spawning the next population
	PhaseTelemetry
	numPhases
)

var phaseNames = [numPhases]string{"controllers", "collisions", "checkpoints", "generation", "telemetry"}

func (p Phase) String() string {
	if p >= numPhases {
		return "unknown"
	}
	return phaseNames[p]
}

// tickSample is the timing of one tick.
type tickSample struct {
	total      time.Duration
	phases     [numPhases]time.Duration
	alive      int
	transition bool
}

// PerfCollector times training ticks over a rolling window. Besides the
// per-phase split it tracks how many agents were alive when each tick began
// and how long generation transitions take.
type PerfCollector struct {
	window []tickSample
	next   int
	count  int

	cur        tickSample
	tickStart  time.Time
	phaseStart time.Time
	phase      Phase
	inPhase    bool

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		window: make([]tickSample, windowSize),
		now:    time.Now,
	}
}

// BeginTick starts timing a tick in which alive agents are simulated.
func (p *PerfCollector) BeginTick(alive int) {
	t := p.now()
	p.cur = tickSample{alive: alive}
	p.tickStart = t
	p.inPhase = false
}

// Enter closes the running phase and starts timing phase. Entering
// PhaseGeneration marks the tick as a generation transition.
func (p *PerfCollector) Enter(phase Phase) {
	t := p.now()
	p.closePhase(t)
	p.phase = phase
	p.phaseStart = t
	p.inPhase = true
	if phase == PhaseGeneration {
		p.cur.transition = true
	}
}

func (p *PerfCollector) closePhase(t time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += t.Sub(p.phaseStart)
	}
}

// EndTick records the current tick into the window.
func (p *PerfCollector) EndTick() {
	t := p.now()
	p.closePhase(t)
	p.inPhase = false
	p.cur.total = t.Sub(p.tickStart)

	p.window[p.next] = p.cur
	p.next = (p.next + 1) % len(p.window)
	if p.count < len(p.window) {
		p.count++
	}
}

// PerfStats aggregates the ticks in the window.
type PerfStats struct {
	Ticks          int
	AvgTick        time.Duration
	MaxTick        time.Duration
	TicksPerSecond float64

	// Share of tick time per phase, in percent
	PhasePct [numPhases]float64

	// Mean agents alive at tick start and simulated agent-ticks per second
	MeanAlive           float64
	AgentTicksPerSecond float64

	// Generation transitions in the window and their mean duration
	Transitions   int
	AvgTransition time.Duration
}

// Stats computes the aggregate over the current window.
func (p *PerfCollector) Stats() PerfStats {
	var s PerfStats
	if p.count == 0 {
		return s
	}

	var total, transitionTime time.Duration
	var phases [numPhases]time.Duration
	alive := 0
	for _, sample := range p.window[:p.count] {
		total += sample.total
		s.MaxTick = max(s.MaxTick, sample.total)
		for ph, d := range sample.phases {
			phases[ph] += d
		}
		alive += sample.alive
		if sample.transition {
			s.Transitions++
			transitionTime += sample.phases[PhaseGeneration]
		}
	}

	s.Ticks = p.count
	s.AvgTick = total / time.Duration(p.count)
	s.MeanAlive = float64(alive) / float64(p.count)
	if total > 0 {
		for ph, d := range phases {
			s.PhasePct[ph] = float64(d) / float64(total) * 100
		}
	}
	if s.AvgTick > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTick)
		s.AgentTicksPerSecond = s.TicksPerSecond * s.MeanAlive
	}
	if s.Transitions > 0 {
		s.AvgTransition = transitionTime / time.Duration(s.Transitions)
	}
	return s
}

// Share returns the share of tick time spent in phase, in percent.
func (s PerfStats) Share(phase Phase) float64 {
	if phase >= numPhases {
		return 0
	}
	return s.PhasePct[phase]
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTick.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTick.Microseconds()),
		slog.Int("ticks_per_sec", int(s.TicksPerSecond)),
		slog.Float64("mean_alive", s.MeanAlive),
		slog.Int("transitions", s.Transitions),
	}
	if s.Transitions > 0 {
		attrs = append(attrs, slog.Int64("avg_transition_us", s.AvgTransition.Microseconds()))
	}
	for ph := Phase(0); ph < numPhases; ph++ {
		if pct := s.PhasePct[ph]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the window at generation.
func (s PerfStats) LogStats(generation int) {
	slog.Info("perf", "generation", generation, "stats", s)
}

// PerfRecord is one perf.csv row.
type PerfRecord struct {
	Generation       int     `csv:"generation"`
	Tick             int64   `csv:"tick"`
	AvgTickUS        int64   `csv:"avg_tick_us"`
	MaxTickUS        int64   `csv:"max_tick_us"`
	TicksPerSec      float64 `csv:"ticks_per_sec"`
	MeanAlive        float64 `csv:"mean_alive"`
	AgentTicksPerSec float64 `csv:"agent_ticks_per_sec"`
	Transitions      int     `csv:"transitions"`
	AvgTransitionUS  int64   `csv:"avg_transition_us"`
	ControllersPct   float64 `csv:"controllers_pct"`
	CollisionsPct    float64 `csv:"collisions_pct"`
	CheckpointsPct   float64 `csv:"checkpoints_pct"`
	GenerationPct    float64 `csv:"generation_pct"`
	TelemetryPct     float64 `csv:"telemetry_pct"`
}

// Record flattens the stats for the tick at which they were taken.
func (s PerfStats) Record(generation int, tick int64) PerfRecord {
	return PerfRecord{
		Generation:       generation,
		Tick:             tick,
		AvgTickUS:        s.AvgTick.Microseconds(),
		MaxTickUS:        s.MaxTick.Microseconds(),
		TicksPerSec:      s.TicksPerSecond,
		MeanAlive:        s.MeanAlive,
		AgentTicksPerSec: s.AgentTicksPerSecond,
		Transitions:      s.Transitions,
		AvgTransitionUS:  s.AvgTransition.Microseconds(),
		ControllersPct:   s.PhasePct[PhaseControllers],
		CollisionsPct:    s.PhasePct[PhaseCollisions],
		CheckpointsPct:   s.PhasePct[PhaseCheckpoints],
		GenerationPct:    s.PhasePct[PhaseGeneration],
		TelemetryPct:     s.PhasePct[PhaseTelemetry],
	}
}
