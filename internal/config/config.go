/*
PURPOSE:
  Defines the configuration structure and loading logic for Forest Bench.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of warmup/measurement thresholds, sweeps and outputs.

  Implementation-discovered:
  - Needs to support YAML parsing (durations as "500ms", "2s").
  - Per-benchmark thresholds override the defaults field by field.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3 (standard for Go config)

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default files fall back to DefaultConfig().
  - Validate() wraps ErrInvalidConfig.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - A zero threshold means "not configured"; it cannot override a default to zero.

USAGE:
  cfg, err := config.Load("forest_bench.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go
  - internal/model/types.go (Thresholds)

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/forest-bench/internal/model"
)

// ErrInvalidConfig indicates a suite file that parsed but makes no sense.
var ErrInvalidConfig = errors.New("invalid config")

// DefaultFiles are searched, in order, when no --config is given.
var DefaultFiles = []string{"forest_bench.yaml", "bench.yaml", "bench.conf"}

// Config represents the full configuration for Forest Bench.
type Config struct {
	OutputDir  string           `yaml:"output_dir"`
	OutputFile string           `yaml:"output_file"` // CSV file name; JSON lines go next to it
	Defaults   model.Thresholds `yaml:"defaults"`
	Target     Target           `yaml:"target"`
	Benchmarks []Benchmark      `yaml:"benchmarks"`
}

// Target is the endpoint used by network routines such as http-probe.
type Target struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Benchmark is one entry of the suite.
type Benchmark struct {
	Name    string `yaml:"name"`
	Routine string `yaml:"routine"`
	// Sweep runs the benchmark once per value, tagging each summary with it.
	Sweep []uint64 `yaml:"sweep"`

	model.Thresholds `yaml:",inline"`
}

// Resolve returns the benchmark's thresholds layered over defaults.
func (b Benchmark) Resolve(defaults model.Thresholds) model.Thresholds {
	return defaults.Merge(b.Thresholds)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:  ".",
		OutputFile: "bench_results.csv",
		Defaults: model.Thresholds{
			WarmupIterations:      10,
			MeasurementIterations: 100,
		},
		Target: Target{
			URL:     "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
		Benchmarks: []Benchmark{
			{Name: "alloc", Routine: "alloc-string"},
			{Name: "sort", Routine: "sort-ints", Sweep: []uint64{10, 100, 1000}},
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that benchmark entries are named, unique and name a routine.
// Whether the routine exists is checked by the engine, which owns the registry.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Benchmarks))
	for i, b := range c.Benchmarks {
		if b.Name == "" {
			return fmt.Errorf("%w: benchmark #%d has no name", ErrInvalidConfig, i+1)
		}
		if b.Routine == "" {
			return fmt.Errorf("%w: benchmark %q has no routine", ErrInvalidConfig, b.Name)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate benchmark %q", ErrInvalidConfig, b.Name)
		}
		seen[b.Name] = true
	}
	if c.OutputFile == "" {
		return fmt.Errorf("%w: output_file must not be empty", ErrInvalidConfig)
	}
	return nil
}
