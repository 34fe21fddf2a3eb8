// Package evolution orchestrates a training run: it owns the genetic
// algorithm and the agents and controllers of the generation under
// evaluation, and advances the algorithm when the last agent dies.
package evolution

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/eann/agent"
	"github.com/pthm-cable/eann/config"
	"github.com/pthm-cable/eann/genetic"
	"github.com/pthm-cable/eann/neural"
	"github.com/pthm-cable/eann/systems"
	"github.com/pthm-cable/eann/telemetry"
)

// Options carries the optional collaborators of a Manager.
type Options struct {
	Logger *slog.Logger
	Rand   *rand.Rand

	// Query answers sensor rays. Nil leaves every sensor at its maximum range.
	Query systems.ObstacleQuery
	// Extra fills task-specific inputs when neural.extra_inputs > 0.
	Extra agent.ExtraInputs

	// Output receives generation and bookmark records. May be nil.
	Output *telemetry.OutputManager

	// RunID names this run in file paths and records. Defaults to a new UUID.
	RunID string

	// OnSaveError is told about statistics and genotype write failures.
	// These never stop a generation. Defaults to a warning log.
	OnSaveError func(error)

	// Now is used for statistics file names. Defaults to time.Now.
	Now func() time.Time
}

// Manager runs one training session. Update, StartEvolution, RestartAlgorithm,
// Stop and Close are serialized on one mutex so a generation transition never
// overlaps a tick.
//
// OnAgentDied, OnEvaluationStarted and OnTick hooks run while the manager is
// locked and must not call those methods. OnAllAgentsDied and OnGeneration
// hooks are queued and run once the lock is released, so they may.
type Manager struct {
	mu     sync.Mutex
	locked bool
	queued []func()

	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	rng      *rand.Rand
	act      neural.Activation
	topology []int

	ga          *genetic.Algorithm
	agents      []*agent.Agent
	controllers []*agent.Controller
	aliveCount  int
	nextID      int
	epoch       int

	onAgentDied   []func(index int, a *agent.Agent)
	onAllDied     []func()
	onEvalStarted []func(agents []*agent.Agent)
	onGeneration  []func(stats telemetry.GenerationStats)
	onTick        []func(dt float64)

	restartPending bool
	restartIn      float64
	restarts       int
	completedGens  int
	bestEver       float32
	err            error

	statsLog  *telemetry.StatisticsLog
	archive   *telemetry.FinisherArchive
	hof       *telemetry.HallOfFame
	bookmarks *telemetry.BookmarkDetector
	collector *telemetry.Collector
}

// New creates a manager for cfg. Nothing runs until StartEvolution.
func New(cfg *config.Config, opts Options) (*Manager, error) {
	act, err := neural.ActivationByName(cfg.Neural.Activation)
	if err != nil {
		return nil, err
	}
	if _, err := neural.NewNetwork(cfg.Derived.Topology, act); err != nil {
		return nil, fmt.Errorf("network topology: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnSaveError == nil {
		logger := opts.Logger
		opts.OnSaveError = func(err error) {
			logger.Warn("training data write failed", "error", err)
		}
	}

	return &Manager{
		cfg:       cfg,
		opts:      opts,
		logger:    opts.Logger.With("run", opts.RunID),
		rng:       opts.Rand,
		act:       act,
		topology:  append([]int(nil), cfg.Derived.Topology...),
		hof:       telemetry.NewHallOfFame(cfg.Telemetry.HallOfFameSize),
		bookmarks: telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkHistory, cfg.Telemetry.StagnationGens),
		collector: telemetry.NewCollector(),
	}, nil
}

// OnAgentDied registers fn to run when an agent of the current generation
// dies, before the alive count drops.
func (m *Manager) OnAgentDied(fn func(index int, a *agent.Agent)) {
	m.onAgentDied = append(m.onAgentDied, fn)
}

// OnAllAgentsDied registers fn to run each time the last agent of a
// generation dies. It runs after the call that killed the agent released the
// manager, before the OnGeneration hooks of the same transition.
func (m *Manager) OnAllAgentsDied(fn func()) {
	m.onAllDied = append(m.onAllDied, fn)
}

// OnEvaluationStarted registers fn to run after a generation's agents are
// built and restarted.
func (m *Manager) OnEvaluationStarted(fn func(agents []*agent.Agent)) {
	m.onEvalStarted = append(m.onEvalStarted, fn)
}

// OnGeneration registers fn to receive the statistics of each ranked
// generation once the manager is released. fn may stop or restart the run.
func (m *Manager) OnGeneration(fn func(stats telemetry.GenerationStats)) {
	m.onGeneration = append(m.onGeneration, fn)
}

// OnTick registers fn to run inside Update after the controllers moved.
// Hosts use it to detect collisions and checkpoints under the same lock.
func (m *Manager) OnTick(fn func(dt float64)) {
	m.onTick = append(m.onTick, fn)
}

// StartEvolution builds a fresh algorithm and begins evaluating its first
// generation.
func (m *Manager) StartEvolution() error {
	m.lock()
	defer m.unlock()
	return m.startEvolution()
}

func (m *Manager) startEvolution() error {
	m.err = nil
	m.restartPending = false

	weightCount := neural.WeightCountFor(m.topology)
	ga, err := genetic.NewAlgorithm(m.rng, weightCount, m.cfg.Evolution.PopulationSize, m.geneticOptions())
	if err != nil {
		return m.fail(err)
	}
	if m.ga != nil {
		m.ga.Stop()
	}
	m.ga = ga
	m.bookmarks.Reset()
	m.openTrainingData()

	ga.OnFitnessCalculated(m.onFitnessCalculated)
	if m.cfg.Evolution.RestartAfter > 0 {
		ga.OnTerminated(m.onTerminated)
	}

	m.logger.Info("evolution started",
		"population", m.cfg.Evolution.PopulationSize,
		"topology", m.topology,
		"weights", weightCount,
		"restart", m.restarts,
	)

	if err := ga.Start(); err != nil {
		return m.fail(err)
	}
	return nil
}

// geneticOptions maps the configuration onto strategy implementations.
func (m *Manager) geneticOptions() genetic.Options {
	gc := m.cfg.Genetic
	opts := genetic.DefaultOptions(m.rng)

	opts.Evaluator = genetic.EvaluatorFunc(m.startEvaluation)
	opts.Initializer = genetic.NewUniformInitializer(m.rng, float32(gc.InitParamMin), float32(gc.InitParamMax))
	opts.Recombination = genetic.NewCompleteCrossoverRecombination(m.rng, gc.CrossSwapProb)
	opts.SortPopulation = gc.SortPopulation
	opts.Logger = m.logger

	if m.cfg.Evolution.ElitistSelection {
		opts.Selection = genetic.ElitistSelection{Count: m.cfg.Evolution.EliteCount}
	} else {
		opts.Selection = genetic.NewRemainderStochasticSelection(m.rng)
	}

	if gc.MutateAll {
		opts.Mutation = genetic.NewMutateAll(m.rng, gc.MutationPerc, gc.MutationProb, gc.MutationAmount)
	} else {
		opts.Mutation = genetic.NewMutateAllButBestTwo(m.rng, gc.MutationProb, gc.MutationAmount)
	}

	if m.cfg.Evolution.RestartAfter > 0 {
		opts.Termination = genetic.GenerationCountTermination{RestartAfter: m.cfg.Evolution.RestartAfter}
	} else {
		opts.Termination = genetic.Never{}
	}
	return opts
}

// openTrainingData opens the statistics log and finisher archive of the
// evolution that is about to start.
func (m *Manager) openTrainingData() {
	if err := m.statsLog.Close(); err != nil {
		m.opts.OnSaveError(err)
	}
	m.statsLog = nil

	dir := filepath.Join(m.cfg.Evolution.TrainingDataDir, m.opts.RunID)
	name := telemetry.StatisticsFileName(m.opts.Now(), m.restarts)
	m.archive = telemetry.NewFinisherArchive(
		filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))),
		m.cfg.Evolution.SaveFirstNGenotypes,
	)

	if !m.cfg.Evolution.SaveStatistics {
		return
	}
	sl, err := telemetry.OpenStatisticsLog(dir, name, m.cfg.Evolution.PopulationSize, m.cfg.Track.Name)
	if err != nil {
		m.opts.OnSaveError(err)
		return
	}
	m.statsLog = sl
}

// startEvaluation materializes one agent and controller per genotype.
func (m *Manager) startEvaluation(population []*genetic.Genotype) error {
	m.epoch++
	epoch := m.epoch

	agents := make([]*agent.Agent, len(population))
	for i, g := range population {
		a, err := agent.New(m.nextID, g, m.act, m.topology)
		if err != nil {
			return err
		}
		m.nextID++
		a.Position = m.spawnPoint()
		a.OnDied(func(a *agent.Agent) {
			if m.epoch == epoch {
				m.agentDied(i, a)
			}
		})
		agents[i] = a
	}

	controllers := make([]*agent.Controller, len(population))
	for i := range controllers {
		controllers[i] = agent.NewController(i, m, m.cfg, agent.ControllerOptions{
			Query:  m.opts.Query,
			Extra:  m.opts.Extra,
			Logger: m.logger,
		})
	}

	m.agents = agents
	m.controllers = controllers
	m.aliveCount = len(population)
	for _, c := range controllers {
		c.Restart()
	}

	m.logger.Debug("evaluation started", "generation", m.ga.Generation(), "agents", len(agents))
	for _, fn := range slices.Clone(m.onEvalStarted) {
		fn(agents)
	}
	return nil
}

func (m *Manager) spawnPoint() r3.Vec {
	s := m.cfg.Agent.Spawn
	spread := m.cfg.Agent.SpawnSpread
	p := r3.Vec{X: s[0], Y: s[1], Z: s[2]}
	if spread > 0 {
		p.X += (m.rng.Float64()*2 - 1) * spread
		p.Y += (m.rng.Float64()*2 - 1) * spread
	}
	return p
}

// agentDied runs on the agent's died callback. Deaths outside Update take the
// lock themselves; they must come from the goroutine that drives the manager.
func (m *Manager) agentDied(index int, a *agent.Agent) {
	if !m.locked {
		m.lock()
		defer m.unlock()
	}
	for _, fn := range slices.Clone(m.onAgentDied) {
		fn(index, a)
	}
	m.aliveCount--
	if m.aliveCount == 0 {
		m.allAgentsDied()
	}
}

func (m *Manager) allAgentsDied() {
	for _, fn := range slices.Clone(m.onAllDied) {
		m.notify(fn)
	}
	if m.ga == nil || !m.ga.Running() {
		return
	}
	if err := m.ga.EvaluationFinished(); err != nil {
		m.fail(err)
	}
}

func (m *Manager) onFitnessCalculated(population []*genetic.Genotype) {
	generation := m.ga.Generation()
	m.completedGens++

	stats := telemetry.NewGenerationStats(m.opts.RunID, generation, population)
	m.collector.Flush(&stats)

	if err := m.statsLog.Append(generation, population); err != nil {
		m.opts.OnSaveError(err)
	}
	if err := m.opts.Output.WriteGeneration(stats); err != nil {
		m.opts.OnSaveError(err)
	}

	saved, err := m.archive.Check(population)
	if err != nil {
		m.opts.OnSaveError(err)
	}
	for _, path := range saved {
		m.logger.Info("finisher archived", "path", path)
	}

	m.hof.ConsiderPopulation(m.opts.RunID, generation, population)
	for _, b := range m.bookmarks.Check(stats) {
		b.LogBookmark()
		if err := m.opts.Output.WriteBookmark(b); err != nil {
			m.opts.OnSaveError(err)
		}
	}
	if float32(stats.BestEval) > m.bestEver {
		m.bestEver = float32(stats.BestEval)
	}

	m.logger.Info("generation complete", "stats", stats)
	for _, fn := range slices.Clone(m.onGeneration) {
		m.notify(func() { fn(stats) })
	}
}

func (m *Manager) onTerminated() {
	m.logger.Info("algorithm terminated", "generation", m.ga.Generation(), "restart_wait", m.cfg.Evolution.RestartWait)
	m.restartAlgorithm(m.cfg.Evolution.RestartWait)
}

// RestartAlgorithm starts a new evolution after wait simulated seconds,
// counted down by Update. A wait of zero restarts immediately.
func (m *Manager) RestartAlgorithm(wait float64) error {
	m.lock()
	defer m.unlock()
	m.restartAlgorithm(wait)
	if !m.restartPending {
		return m.err
	}
	return nil
}

func (m *Manager) restartAlgorithm(wait float64) {
	m.restarts++
	if wait <= 0 {
		m.startEvolution()
		return
	}
	m.restartPending = true
	m.restartIn = wait
}

// Update advances every controller by dt and runs the tick hooks. While a
// restart is pending it only counts down the wait. It returns the fatal error
// that stopped the run, if any.
func (m *Manager) Update(dt float64) error {
	m.lock()
	defer m.unlock()

	if m.err != nil {
		return m.err
	}

	if m.restartPending {
		m.restartIn -= dt
		if m.restartIn <= 0 {
			m.logger.Info("restarting evolution", "restart", m.restarts)
			m.startEvolution()
		}
		return m.err
	}

	m.collector.Advance(dt)
	epoch := m.epoch
	for _, c := range m.controllers {
		if m.epoch != epoch {
			break
		}
		if err := c.Update(dt); err != nil {
			return m.fail(err)
		}
	}
	if m.epoch == epoch {
		for _, fn := range m.onTick {
			fn(dt)
		}
	}
	return m.err
}

func (m *Manager) lock() {
	m.mu.Lock()
	m.locked = true
}

// unlock releases the manager and then runs the notifications queued while
// it was held.
func (m *Manager) unlock() {
	queued := m.queued
	m.queued = nil
	m.locked = false
	m.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

// notify runs fn once the manager is released.
func (m *Manager) notify(fn func()) {
	if !m.locked {
		fn()
		return
	}
	m.queued = append(m.queued, fn)
}

// fail records the first fatal error, stops the algorithm and releases the
// generation.
func (m *Manager) fail(err error) error {
	if m.err == nil {
		m.err = err
		m.logger.Error("training stopped", "error", err)
	}
	m.release()
	return m.err
}

// release drops the current generation and stops the algorithm.
func (m *Manager) release() {
	if m.ga != nil {
		m.ga.Stop()
	}
	m.epoch++
	m.agents = nil
	m.controllers = nil
	m.aliveCount = 0
	m.restartPending = false
}

// Stop cancels the run. The current generation is discarded and cannot be
// resumed.
func (m *Manager) Stop() {
	m.lock()
	defer m.unlock()
	m.release()
	m.logger.Info("evolution stopped", "generations", m.completedGens)
}

// Close stops the run, closes the statistics log and writes the hall of fame.
func (m *Manager) Close() error {
	m.Stop()

	m.lock()
	defer m.unlock()
	err := m.statsLog.Close()
	m.statsLog = nil
	if herr := m.opts.Output.WriteHallOfFame(m.hof); herr != nil && err == nil {
		err = herr
	}
	return err
}

// Agent returns agent i of the current generation, or nil.
func (m *Manager) Agent(i int) *agent.Agent {
	if i < 0 || i >= len(m.agents) {
		return nil
	}
	return m.agents[i]
}

// Agents returns the agents of the current generation.
func (m *Manager) Agents() []*agent.Agent { return m.agents }

// Controllers returns the controllers of the current generation, parallel to Agents.
func (m *Manager) Controllers() []*agent.Controller { return m.controllers }

// AliveCount returns how many agents of the current generation are alive.
func (m *Manager) AliveCount() int { return m.aliveCount }

// Algorithm returns the running genetic algorithm, nil before StartEvolution.
func (m *Manager) Algorithm() *genetic.Algorithm { return m.ga }

// Generation returns the current generation number, 0 before StartEvolution.
func (m *Manager) Generation() int {
	if m.ga == nil {
		return 0
	}
	return m.ga.Generation()
}

// Running reports whether the algorithm is running.
func (m *Manager) Running() bool { return m.ga != nil && m.ga.Running() }

// RestartPending reports whether a restart is being counted down.
func (m *Manager) RestartPending() bool { return m.restartPending }

// Restarts returns how many times the algorithm has been restarted.
func (m *Manager) Restarts() int { return m.restarts }

// CompletedGenerations returns the number of ranked generations across restarts.
func (m *Manager) CompletedGenerations() int { return m.completedGens }

// BestEvaluation returns the best evaluation seen in any ranked generation.
func (m *Manager) BestEvaluation() float32 { return m.bestEver }

// Err returns the fatal error that stopped the run, if any.
func (m *Manager) Err() error { return m.err }

// RunID returns the run identifier.
func (m *Manager) RunID() string { return m.opts.RunID }

// HallOfFame returns the best genotypes seen so far.
func (m *Manager) HallOfFame() *telemetry.HallOfFame { return m.hof }

// Collector returns the per-generation event collector hosts report to.
func (m *Manager) Collector() *telemetry.Collector { return m.collector }

// StatisticsPath returns the current statistics log path, empty when disabled.
func (m *Manager) StatisticsPath() string { return m.statsLog.Path() }

// ArchiveDir returns the current finisher archive directory.
func (m *Manager) ArchiveDir() string { return m.archive.Dir() }
