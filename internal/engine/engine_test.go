package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/daryltucker/forest-bench/internal/bench"
	"github.com/daryltucker/forest-bench/internal/config"
	"github.com/daryltucker/forest-bench/internal/model"
	"github.com/daryltucker/forest-bench/internal/output"
)

func quietLogs(t *testing.T) {
	t.Helper()
	orig := output.Logger
	output.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { output.SetLogger(orig) })
}

func testConfig(t *testing.T, benchmarks ...config.Benchmark) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "results")
	cfg.Defaults = model.Thresholds{MeasurementIterations: 4}
	cfg.Benchmarks = benchmarks
	return cfg
}

// abortOn returns a routine that reports 1ms until its n-th call, which aborts.
func abortOn(n int) Routine {
	return Routine{
		Name: "flaky",
		Build: func(context.Context, *Engine, uint64) bench.Routine {
			calls := 0
			return func(b *bench.Bencher) {
				calls++
				if calls == n {
					b.Abort()
					return
				}
				b.ManualMillis(1)
			}
		},
	}
}

func TestNew_RegistersBuiltins(t *testing.T) {
	e := New(config.DefaultConfig())

	var names []string
	for _, r := range e.Routines() {
		names = append(names, r.Name)
		assert.NotEmpty(t, r.Description, r.Name)
	}
	assert.Equal(t, []string{"alloc-string", "http-probe", "sort-ints", "synthetic-millis"}, names)
}

func TestRegister(t *testing.T) {
	e := New(config.DefaultConfig())

	require.NoError(t, e.Register(abortOn(1)))
	_, err := e.Lookup("flaky")
	assert.NoError(t, err)

	err = e.Register(abortOn(1))
	assert.ErrorIs(t, err, ErrDuplicateRoutine)

	assert.Error(t, e.Register(Routine{Name: "no-build"}))
	assert.Error(t, e.Register(Routine{Build: abortOn(1).Build}))

	_, err = e.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownRoutine)
}

func TestBuiltins_RecordSamples(t *testing.T) {
	e := New(config.DefaultConfig())
	for _, name := range []string{"alloc-string", "sort-ints", "synthetic-millis"} {
		t.Run(name, func(t *testing.T) {
			r, err := e.Lookup(name)
			require.NoError(t, err)

			b := bench.New(name).WarmupIterations(1).MeasurementIterations(3)
			require.NoError(t, b.Run(r.Build(context.Background(), e, 16)))
			assert.Equal(t, uint64(3), b.Summary().N)
		})
	}
}

func TestSyntheticMillis_UsesParam(t *testing.T) {
	e := New(config.DefaultConfig())
	r, err := e.Lookup("synthetic-millis")
	require.NoError(t, err)

	b := bench.New("ms").MeasurementIterations(2)
	require.NoError(t, b.Run(r.Build(context.Background(), e, 7)))
	assert.Equal(t, []time.Duration{7 * time.Millisecond, 7 * time.Millisecond}, b.Samples())

	b = bench.New("default").MeasurementIterations(1)
	require.NoError(t, b.Run(r.Build(context.Background(), e, 0)))
	assert.Equal(t, []time.Duration{time.Millisecond}, b.Samples())
}

func TestRun_Sweep(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{Name: "ms", Routine: "synthetic-millis", Sweep: []uint64{1, 2, 3}})

	records, err := Run(context.Background(), cfg, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, rec := range records {
		x := uint64(i + 1)
		assert.Empty(t, rec.Error)
		assert.Equal(t, records[0].RunID, rec.RunID)
		assert.Equal(t, "synthetic-millis", rec.Routine)
		assert.Equal(t, "ms", rec.Summary.Name)
		assert.Equal(t, uint64(4), rec.Summary.N)
		require.NotNil(t, rec.Summary.IndependentVariable)
		assert.Equal(t, x, *rec.Summary.IndependentVariable)
		assert.InDelta(t, float64(x)/1000, rec.Summary.Median, 1e-12)
		assert.Zero(t, rec.Summary.StdDev)
	}

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.OutputFile))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 4)

	f, err := os.Open(JSONPath(cfg))
	require.NoError(t, err)
	defer f.Close()
	fromDisk, err := output.ReadRecords(f)
	require.NoError(t, err)
	require.Len(t, fromDisk, 3)
	assert.Equal(t, records[2].Summary, fromDisk[2].Summary)
}

func TestRun_NoSweepLeavesIndependentVariableUnset(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{Name: "alloc", Routine: "alloc-string"})

	records, err := Run(context.Background(), cfg, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Summary.IndependentVariable)
	assert.Equal(t, uint64(4), records[0].Summary.N)
}

func TestRun_PerBenchmarkThresholdsOverrideDefaults(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{
		Name:       "ms",
		Routine:    "synthetic-millis",
		Thresholds: model.Thresholds{MeasurementIterations: 9},
	})

	records, err := Run(context.Background(), cfg, RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, uint64(9), records[0].Summary.N)
}

func TestRun_AbortedBenchmarkDoesNotStopSuite(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t,
		config.Benchmark{Name: "flaky", Routine: "flaky"},
		config.Benchmark{Name: "steady", Routine: "synthetic-millis"},
	)
	e := New(cfg)
	require.NoError(t, e.Register(abortOn(3)))

	records, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Contains(t, records[0].Error, bench.ErrAborted.Error())
	assert.Equal(t, uint64(2), records[0].Summary.N)
	assert.InDelta(t, 0.001, records[0].Summary.Mean, 1e-12)

	assert.Empty(t, records[1].Error)
	assert.Equal(t, uint64(4), records[1].Summary.N)
}

func TestRun_UnknownRoutineCreatesNoOutput(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{Name: "x", Routine: "does-not-exist"})

	_, err := Run(context.Background(), cfg, RunOptions{})
	require.ErrorIs(t, err, ErrUnknownRoutine)
	assert.Contains(t, err.Error(), `benchmark "x"`)

	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_InvalidConfig(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{Name: "x"})

	_, err := Run(context.Background(), cfg, RunOptions{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_Only(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t,
		config.Benchmark{Name: "a", Routine: "synthetic-millis"},
		config.Benchmark{Name: "b", Routine: "alloc-string"},
		config.Benchmark{Name: "c", Routine: "synthetic-millis"},
	)

	records, err := Run(context.Background(), cfg, RunOptions{Only: []string{"c", "a"}})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Summary.Name)
	assert.Equal(t, "c", records[1].Summary.Name)

	_, err = Run(context.Background(), cfg, RunOptions{Only: []string{"nope"}})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_CanceledContext(t *testing.T) {
	quietLogs(t)
	cfg := testConfig(t, config.Benchmark{Name: "a", Routine: "synthetic-millis"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records, err := Run(ctx, cfg, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, records)
}

func TestJSONPath(t *testing.T) {
	cfg := &config.Config{OutputDir: "out", OutputFile: "results.csv"}
	assert.Equal(t, filepath.Join("out", "results.jsonl"), JSONPath(cfg))

	cfg.OutputFile = "results"
	assert.Equal(t, filepath.Join("out", "results.jsonl"), JSONPath(cfg))
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	e := New(config.DefaultConfig())

	d, err := e.Probe(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Greater(t, d, time.Duration(0))

	_, err = e.Probe(context.Background(), srv.URL+"/fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := config.DefaultConfig()
	cfg.Target.Timeout = 50 * time.Millisecond
	e := New(cfg)

	_, err := e.Probe(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestRun_HTTPProbe(t *testing.T) {
	quietLogs(t)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/down" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Run("up", func(t *testing.T) {
		hits.Store(0)
		cfg := testConfig(t, config.Benchmark{Name: "probe", Routine: "http-probe"})
		cfg.Defaults.WarmupIterations = 1
		cfg.Target.URL = srv.URL

		records, err := Run(context.Background(), cfg, RunOptions{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Empty(t, records[0].Error)
		assert.Equal(t, uint64(4), records[0].Summary.N)
		assert.Greater(t, records[0].Summary.Min, 0.0)
		assert.Equal(t, int32(5), hits.Load())
	})

	t.Run("down", func(t *testing.T) {
		hits.Store(0)
		cfg := testConfig(t, config.Benchmark{Name: "probe", Routine: "http-probe"})
		cfg.Target.URL = srv.URL + "/down"

		records, err := Run(context.Background(), cfg, RunOptions{})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Contains(t, records[0].Error, bench.ErrAborted.Error())
		assert.Zero(t, records[0].Summary.N)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestRun_EmitsSpans(t *testing.T) {
	quietLogs(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	cfg := testConfig(t,
		config.Benchmark{Name: "flaky", Routine: "flaky"},
		config.Benchmark{Name: "ms", Routine: "synthetic-millis", Sweep: []uint64{5}},
	)
	e := New(cfg)
	e.SetTracerProvider(tp)
	require.NoError(t, e.Register(abortOn(1)))

	_, err := e.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	failed := spans[0]
	assert.Equal(t, "bench.run", failed.Name())
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Contains(t, failed.Attributes(), attribute.String("bench.name", "flaky"))
	require.NotEmpty(t, failed.Events())
	assert.Equal(t, "exception", failed.Events()[0].Name)

	ok := spans[1]
	assert.Equal(t, codes.Ok, ok.Status().Code)
	assert.Contains(t, ok.Attributes(), attribute.String("bench.routine", "synthetic-millis"))
	assert.Contains(t, ok.Attributes(), attribute.Int64("bench.independent_variable", 5))
	assert.Contains(t, ok.Attributes(), attribute.Int64("bench.samples", 4))
}

func TestRunOne_UsesResolvedRoutine(t *testing.T) {
	quietLogs(t)
	e := New(testConfig(t))

	// Not registered with e: runOne must not look it up again.
	r := abortOn(0)
	rec := e.runOne(context.Background(), "run-x", config.Benchmark{Name: "direct", Routine: r.Name}, r, 0, false)

	assert.Empty(t, rec.Error)
	assert.Equal(t, "run-x", rec.RunID)
	assert.Equal(t, "flaky", rec.Routine)
	assert.Equal(t, uint64(4), rec.Summary.N)
}
