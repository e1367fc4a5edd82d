/*
PURPOSE:
  High-level runner that orchestrates the benchmarking process.
  Loops through Benchmarks -> Sweep values and executes each on a fresh Bencher.

REQUIREMENTS:
  User-specified:
  - Run every benchmark of the suite, one summary per run.
  - Log results to CSV/JSON.

  Implementation-discovered:
  - Needs to report progress to CLI.
  - A suite run gets one run ID so rows from the same invocation can be grouped.
  - Unknown routines are rejected before any output file is created.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/bench, internal/config, internal/output
  - Emits one OpenTelemetry span per benchmark run.

ERROR HANDLING:
  - An aborted benchmark is logged, written with its error, and the suite continues (resilience).
  - Setup failures (output files, unknown routine) stop the suite.
  - Context cancellation stops between runs and returns ctx.Err() with the records so far.

IMPLEMENTATION RULES:
  - Runs are strictly sequential; timing must not share the CPU with another benchmark.
  - Every record is written as soon as it exists.

USAGE:
  records, err := engine.Run(ctx, cfg, engine.RunOptions{})

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/routines.go
  - internal/bench/bencher.go

MAINTENANCE:
  - Update iteration logic if parallelism is introduced.
*/

package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/daryltucker/forest-bench/internal/bench"
	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/model"
	"github.com/daryltucker/forest-bench/internal/output"
)

// RunOptions narrow a suite run.
type RunOptions struct {
	// Only restricts the run to the named benchmarks. Empty means all.
	Only []string
}

// Run executes the full benchmark suite with the built-in routines.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) ([]model.Record, error) {
	return New(cfg).Run(ctx, opts)
}

// JSONPath returns the JSON Lines file written next to the CSV file.
func JSONPath(cfg *config.Config) string {
	name := strings.TrimSuffix(cfg.OutputFile, filepath.Ext(cfg.OutputFile)) + ".jsonl"
	return filepath.Join(cfg.OutputDir, name)
}

// selected returns the benchmarks to run, in suite order.
func (e *Engine) selected(only []string) ([]config.Benchmark, error) {
	if len(only) == 0 {
		return e.Config.Benchmarks, nil
	}
	var out []config.Benchmark
	for _, name := range only {
		if !slices.ContainsFunc(e.Config.Benchmarks, func(b config.Benchmark) bool { return b.Name == name }) {
			return nil, fmt.Errorf("%w: no benchmark named %q", config.ErrInvalidConfig, name)
		}
	}
	for _, b := range e.Config.Benchmarks {
		if slices.Contains(only, b.Name) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Run executes the configured suite and returns one record per benchmark run.
func (e *Engine) Run(ctx context.Context, opts RunOptions) ([]model.Record, error) {
	cfg := e.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	benchmarks, err := e.selected(opts.Only)
	if err != nil {
		return nil, err
	}
	routines := make([]Routine, len(benchmarks))
	for i, b := range benchmarks {
		r, err := e.Lookup(b.Routine)
		if err != nil {
			return nil, fmt.Errorf("benchmark %q: %w", b.Name, err)
		}
		routines[i] = r
	}

	// Ensure output directory exists
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	// Setup Outputs
	csvPath := filepath.Join(cfg.OutputDir, cfg.OutputFile)
	csvWriter, err := output.NewCSVWriter(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init CSV writer at %s: %w", csvPath, err)
	}
	defer csvWriter.Close()

	jsonPath := JSONPath(cfg)
	jsonWriter, err := output.NewJSONWriter(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init JSON writer at %s: %w", jsonPath, err)
	}
	defer jsonWriter.Close()

	runID := uuid.NewString()
	output.Logger.Info("Starting suite", "run_id", runID, "benchmarks", len(benchmarks), "csv", csvPath, "json", jsonPath)

	var records []model.Record
	for i, b := range benchmarks {
		params := b.Sweep
		sweep := len(params) > 0
		if !sweep {
			params = []uint64{0}
		}

		for _, param := range params {
			if err := ctx.Err(); err != nil {
				output.Logger.Warn("Suite interrupted", "run_id", runID, "completed", len(records))
				return records, err
			}

			rec := e.runOne(ctx, runID, b, routines[i], param, sweep)

			if err := csvWriter.Write(rec); err != nil {
				output.Logger.Error("Failed to write result to CSV", "error", err)
			}
			if err := jsonWriter.Write(rec); err != nil {
				output.Logger.Error("Failed to write result to JSON", "error", err)
			}
			records = append(records, rec)
		}
	}

	output.Logger.Info("Suite complete", "run_id", runID, "records", len(records))
	return records, nil
}

// runOne runs a single benchmark (one sweep value) on a fresh Bencher.
// routine must be the resolved b.Routine.
func (e *Engine) runOne(ctx context.Context, runID string, b config.Benchmark, routine Routine, param uint64, sweep bool) model.Record {
	thresholds := b.Resolve(e.Config.Defaults)

	attrs := []attribute.KeyValue{
		attribute.String("bench.run_id", runID),
		attribute.String("bench.name", b.Name),
		attribute.String("bench.routine", b.Routine),
	}
	if sweep {
		attrs = append(attrs, attribute.Int64("bench.independent_variable", int64(param)))
	}
	ctx, span := e.tracer.Start(ctx, "bench.run", trace.WithAttributes(attrs...))
	defer span.End()

	bencher := bench.New(b.Name).Apply(thresholds)
	if sweep {
		bencher.IndependentVariable(param)
	}

	output.Logger.Info("Running benchmark", "name", b.Name, "routine", b.Routine, "x", param)
	output.Logger.Debug("Thresholds",
		"warmup_duration", thresholds.WarmupDuration,
		"warmup_iterations", thresholds.WarmupIterations,
		"measurement_duration", thresholds.MeasurementDuration,
		"measurement_iterations", thresholds.MeasurementIterations,
	)

	start := time.Now()
	err := bencher.Run(routine.Build(ctx, e, param))
	rec := model.Record{
		RunID:     runID,
		Timestamp: start.UTC(),
		Routine:   b.Routine,
		Summary:   bencher.Summary(),
		Elapsed:   time.Since(start),
	}

	span.SetAttributes(
		attribute.Int64("bench.samples", int64(rec.Summary.N)),
		attribute.Float64("bench.mean_s", rec.Summary.Mean),
		attribute.Float64("bench.median_s", rec.Summary.Median),
	)

	if err != nil {
		rec.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "benchmark aborted")
		output.Logger.Error("Benchmark aborted", "name", b.Name, "samples", rec.Summary.N, "error", err)
		return rec
	}

	span.SetStatus(codes.Ok, "")
	output.Logger.Info("Benchmark complete",
		"name", b.Name,
		"n", rec.Summary.N,
		"median", output.HumanSeconds(rec.Summary.Median),
		"std_dev", output.HumanSeconds(rec.Summary.StdDev),
	)
	return rec
}
