/*
PURPOSE:
  Defines the core data structures used throughout Forest Bench.
  These models represent benchmark thresholds, summaries and output records.

REQUIREMENTS:
  User-specified:
  - Summary carries name, count, min, max, mean, median, quartiles, IQR,
    variance, standard deviation and an optional independent variable.
  - Thresholds are optional; zero means "not configured".

  Implementation-discovered:
  - Need JSON tags for jq/vecq compatibility.
  - Need YAML tags so thresholds can be read straight from the suite file.

ARCHITECTURE INTEGRATION:
  - Used by: internal/bench, internal/config, internal/engine, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Statistics are float64 seconds.

USAGE:
  s := b.Summary()
  rec := model.Record{RunID: id, Summary: s}

SELF-HEALING INSTRUCTIONS:
  - If new statistics are needed, add field and update CSV/JSON writers and the table.

RELATED FILES:
  - internal/output/csv.go
  - internal/output/json.go
  - internal/output/table.go

MAINTENANCE:
  - Update when adding new statistics to capture.
*/

package model

import (
	"time"
)

// Thresholds are the stopping conditions of the warmup and measurement phases.
type Thresholds struct {
	WarmupDuration        time.Duration `yaml:"warmup_duration" json:"warmup_duration"`
	WarmupIterations      uint64        `yaml:"warmup_iterations" json:"warmup_iterations"`
	MeasurementDuration   time.Duration `yaml:"measurement_duration" json:"measurement_duration"`
	MeasurementIterations uint64        `yaml:"measurement_iterations" json:"measurement_iterations"`
}

// Merge returns t with every non-zero field of override applied on top.
func (t Thresholds) Merge(override Thresholds) Thresholds {
	if override.WarmupDuration != 0 {
		t.WarmupDuration = override.WarmupDuration
	}
	if override.WarmupIterations != 0 {
		t.WarmupIterations = override.WarmupIterations
	}
	if override.MeasurementDuration != 0 {
		t.MeasurementDuration = override.MeasurementDuration
	}
	if override.MeasurementIterations != 0 {
		t.MeasurementIterations = override.MeasurementIterations
	}
	return t
}

// Summary is the statistical reduction of one run. All statistics are seconds.
// Statistics that cannot be computed (no samples, too few samples) are 0.
type Summary struct {
	Name      string     `json:"name"`
	N         uint64     `json:"n"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Mean      float64    `json:"mean"`
	Median    float64    `json:"median"`
	Quartiles [3]float64 `json:"quartiles"`
	IQR       float64    `json:"iqr"` // Q3 - Q1
	Var       float64    `json:"var"`
	StdDev    float64    `json:"std_dev"`

	// IndependentVariable labels the summary with the sweep parameter used for the run.
	IndependentVariable *uint64 `json:"independent_variable,omitempty"`
}

// Record is one row of a suite run.
type Record struct {
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	Routine   string        `json:"routine"`
	Summary   Summary       `json:"summary"`
	Elapsed   time.Duration `json:"elapsed"`         // Wall time of warmup + measurement
	Error     string        `json:"error,omitempty"` // If the run failed or aborted
}
