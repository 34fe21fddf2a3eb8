// Package config provides configuration loading and access for training runs.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all training configuration parameters.
type Config struct {
	Evolution EvolutionConfig `yaml:"evolution"`
	Genetic   GeneticConfig   `yaml:"genetic"`
	Neural    NeuralConfig    `yaml:"neural"`
	Agent     AgentConfig     `yaml:"agent"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Movement  MovementConfig  `yaml:"movement"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Track     TrackConfig     `yaml:"track"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// EvolutionConfig holds orchestration parameters for a training run.
type EvolutionConfig struct {
	PopulationSize      int     `yaml:"population_size"`
	RestartAfter        int     `yaml:"restart_after"`          // Generations before restart (0 = never)
	RestartWait         float64 `yaml:"restart_wait"`           // Simulated seconds between termination and restart
	ElitistSelection    bool    `yaml:"elitist_selection"`      // Top-K selection instead of remainder stochastic sampling
	EliteCount          int     `yaml:"elite_count"`            // K for elitist selection
	SaveStatistics      bool    `yaml:"save_statistics"`        // Write per-generation statistics log
	SaveFirstNGenotypes int     `yaml:"save_first_n_genotypes"` // Archive the first N genotypes that finish the track
	TrainingDataDir     string  `yaml:"training_data_dir"`
}

// GeneticConfig holds genetic operator parameters.
type GeneticConfig struct {
	InitParamMin   float64 `yaml:"init_param_min"`
	InitParamMax   float64 `yaml:"init_param_max"`
	CrossSwapProb  float64 `yaml:"cross_swap_prob"`
	MutationProb   float64 `yaml:"mutation_prob"`
	MutationAmount float64 `yaml:"mutation_amount"`
	MutationPerc   float64 `yaml:"mutation_perc"` // Per-genotype chance used by mutate_all
	MutateAll      bool    `yaml:"mutate_all"`    // Mutate elites too
	SortPopulation bool    `yaml:"sort_population"`
}

// NeuralConfig holds network topology parameters.
type NeuralConfig struct {
	HiddenLayers []int  `yaml:"hidden_layers"` // Sizes of hidden layers, e.g. [10, 8]
	NumOutputs   int    `yaml:"num_outputs"`   // Control axes
	ExtraInputs  int    `yaml:"extra_inputs"`  // Task-specific inputs appended after sensors
	Activation   string `yaml:"activation"`    // softsign, sigmoid, tanh, identity
}

// AgentConfig holds per-agent lifecycle parameters.
type AgentConfig struct {
	MaxCheckpointDelay float64    `yaml:"max_checkpoint_delay"` // Seconds without a checkpoint before death
	Spawn              [3]float64 `yaml:"spawn"`
	SpawnSpread        float64    `yaml:"spawn_spread"`
}

// SensorsConfig holds sensor geometry.
type SensorsConfig struct {
	MinDist    float64      `yaml:"min_dist"`
	MaxDist    float64      `yaml:"max_dist"`
	Length     float64      `yaml:"length"` // Visual target length
	Directions [][3]float64 `yaml:"directions"`
}

// MovementConfig holds movement integration constants.
type MovementConfig struct {
	MaxVel       float64 `yaml:"max_vel"`
	Acceleration float64 `yaml:"acceleration"`
	Friction     float64 `yaml:"friction"`
	TurnSpeed    float64 `yaml:"turn_speed"` // Degrees per second at full input
}

// PhysicsConfig holds simulation timing.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// TrackConfig holds the headless host world layout.
type TrackConfig struct {
	Name            string  `yaml:"name"`
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	Checkpoints     int     `yaml:"checkpoints"`
	CheckpointRange float64 `yaml:"checkpoint_range"`
	Obstacles       int     `yaml:"obstacles"`
	ObstacleRadius  float64 `yaml:"obstacle_radius"`
	NoiseScale      float64 `yaml:"noise_scale"`
	NoiseThreshold  float64 `yaml:"noise_threshold"` // Cells above this become obstacle candidates
	AgentRadius     float64 `yaml:"agent_radius"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow      int `yaml:"perf_window"`
	LogEvery        int `yaml:"log_every"`        // Log perf every N ticks (0 = never)
	HallOfFameSize  int `yaml:"hall_of_fame_size"` // Best genotypes kept across the run
	BookmarkHistory int `yaml:"bookmark_history"`  // Generations of history for bookmark detection
	StagnationGens  int `yaml:"stagnation_gens"`   // Generations without a new best before flagging stagnation
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	NumSensors int   // len(Sensors.Directions)
	NumInputs  int   // NumSensors + Neural.ExtraInputs
	Topology   []int // inputs, hidden..., outputs
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Neural.HiddenLayers = append([]int(nil), c.Neural.HiddenLayers...)
	out.Sensors.Directions = append([][3]float64(nil), c.Sensors.Directions...)
	out.computeDerived()
	return &out
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.NumSensors = len(c.Sensors.Directions)
	c.Derived.NumInputs = c.Derived.NumSensors + c.Neural.ExtraInputs

	topology := make([]int, 0, len(c.Neural.HiddenLayers)+2)
	topology = append(topology, c.Derived.NumInputs)
	topology = append(topology, c.Neural.HiddenLayers...)
	topology = append(topology, c.Neural.NumOutputs)
	c.Derived.Topology = topology
}

// Validate reports every invalid experiment setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Evolution.PopulationSize < 2 {
		errs = append(errs, fmt.Errorf("evolution.population_size must be at least 2, got %d", c.Evolution.PopulationSize))
	}
	if c.Evolution.RestartAfter < 0 {
		errs = append(errs, fmt.Errorf("evolution.restart_after must not be negative"))
	}
	if c.Evolution.ElitistSelection && c.Evolution.EliteCount < 2 {
		errs = append(errs, fmt.Errorf("evolution.elite_count must be at least 2 for elitist selection"))
	}
	if !c.Genetic.SortPopulation {
		errs = append(errs, fmt.Errorf("genetic.sort_population must be true: selection reads the population in rank order"))
	}
	if c.Genetic.InitParamMin >= c.Genetic.InitParamMax {
		errs = append(errs, fmt.Errorf("genetic.init_param_min must be below init_param_max"))
	}
	for name, p := range map[string]float64{
		"genetic.cross_swap_prob": c.Genetic.CrossSwapProb,
		"genetic.mutation_prob":   c.Genetic.MutationProb,
		"genetic.mutation_perc":   c.Genetic.MutationPerc,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, fmt.Errorf("%s must be in [0, 1], got %v", name, p))
		}
	}
	if c.Derived.NumInputs < 1 {
		errs = append(errs, fmt.Errorf("network needs at least one input"))
	}
	if c.Neural.NumOutputs < 2 {
		errs = append(errs, fmt.Errorf("neural.num_outputs must cover both control axes, got %d", c.Neural.NumOutputs))
	}
	for i, h := range c.Neural.HiddenLayers {
		if h < 1 {
			errs = append(errs, fmt.Errorf("neural.hidden_layers[%d] must be positive", i))
		}
	}
	if c.Sensors.MinDist <= 0 || c.Sensors.MaxDist < c.Sensors.MinDist {
		errs = append(errs, fmt.Errorf("sensors need 0 < min_dist <= max_dist"))
	}
	if c.Agent.MaxCheckpointDelay <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_checkpoint_delay must be positive"))
	}
	if c.Physics.DT <= 0 {
		errs = append(errs, fmt.Errorf("physics.dt must be positive"))
	}
	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
