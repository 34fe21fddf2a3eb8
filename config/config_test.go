package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Evolution.PopulationSize != 10 {
		t.Errorf("population_size = %d, want 10", cfg.Evolution.PopulationSize)
	}
	if cfg.Agent.MaxCheckpointDelay != 7 {
		t.Errorf("max_checkpoint_delay = %v, want 7", cfg.Agent.MaxCheckpointDelay)
	}
	if cfg.Derived.NumSensors != 3 {
		t.Errorf("NumSensors = %d, want 3", cfg.Derived.NumSensors)
	}

	want := []int{3, 10, 8, 2}
	if len(cfg.Derived.Topology) != len(want) {
		t.Fatalf("topology = %v, want %v", cfg.Derived.Topology, want)
	}
	for i := range want {
		if cfg.Derived.Topology[i] != want[i] {
			t.Errorf("topology[%d] = %d, want %d", i, cfg.Derived.Topology[i], want[i])
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("evolution:\n  population_size: 4\nneural:\n  extra_inputs: 2\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Evolution.PopulationSize != 4 {
		t.Errorf("population_size = %d, want 4", cfg.Evolution.PopulationSize)
	}
	// Untouched sections keep their defaults
	if cfg.Genetic.CrossSwapProb != 0.6 {
		t.Errorf("cross_swap_prob = %v, want default 0.6", cfg.Genetic.CrossSwapProb)
	}
	if cfg.Derived.NumInputs != 5 {
		t.Errorf("NumInputs = %d, want 5", cfg.Derived.NumInputs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"tiny population", "evolution:\n  population_size: 1\n"},
		{"inverted init range", "genetic:\n  init_param_min: 1\n  init_param_max: -1\n"},
		{"probability out of range", "genetic:\n  mutation_prob: 1.5\n"},
		{"single output", "neural:\n  num_outputs: 1\n"},
		{"zero min dist", "sensors:\n  min_dist: 0\n"},
		{"unsorted remainder selection", "genetic:\n  sort_population: false\n"},
		{"unsorted elitist selection", "evolution:\n  elitist_selection: true\ngenetic:\n  sort_population: false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Evolution.RestartAfter = 42

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Evolution.RestartAfter != 42 {
		t.Errorf("restart_after = %d, want 42", loaded.Evolution.RestartAfter)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Neural.HiddenLayers[0] = 99

	if cfg.Neural.HiddenLayers[0] == 99 {
		t.Error("Clone shares hidden layer slice with original")
	}
}
