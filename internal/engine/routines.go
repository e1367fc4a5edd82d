/*
PURPOSE:
  Registry of benchmark routines the suite file can refer to by name.
  The built-ins double as worked examples of the three reporting styles:
  harness-timed (Iter), self-timed (ManualMillis) and self-timed with abort
  (ManualDuration, see Probe in client.go).

REQUIREMENTS:
  User-specified:
  - Declare a routine, hand it to the harness, get a summary.
  - Sweep a parameter (input size) across runs.

  Implementation-discovered:
  - Setup (allocating input) must stay outside the timed region.
  - The sweep value is 0 when a benchmark has no sweep; routines pick a default.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine/runner.go, internal/cli/list_routines.go
  - Uses: internal/bench

ERROR HANDLING:
  - Register rejects empty, nil and duplicate routines (ErrDuplicateRoutine).
  - Unknown names surface as ErrUnknownRoutine from the runner.

IMPLEMENTATION RULES:
  - Build is called once per run; per-run state lives in its closure.

USAGE:
  e.Register(engine.Routine{Name: "noop", Build: ...})

RELATED FILES:
  - internal/engine/client.go
  - internal/bench/bencher.go
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/daryltucker/forest-bench/internal/bench"
	"github.com/daryltucker/forest-bench/internal/output"
)

var (
	// ErrUnknownRoutine indicates a benchmark names a routine that is not registered.
	ErrUnknownRoutine = errors.New("unknown routine")

	// ErrDuplicateRoutine indicates a routine name is already registered.
	ErrDuplicateRoutine = errors.New("routine already registered")
)

// Routine is a named, buildable benchmark routine.
type Routine struct {
	Name        string
	Description string
	// Build returns the routine for one run. param is the sweep value, or 0.
	Build func(ctx context.Context, e *Engine, param uint64) bench.Routine
}

// sink keeps allocations observable so the compiler cannot drop them.
var sink []byte

const (
	defaultAllocBytes = 64
	defaultSortLen    = 1000
	defaultMillis     = 1
)

func orDefault(param, def uint64) uint64 {
	if param == 0 {
		return def
	}
	return param
}

// Builtins returns the routines every Engine starts with, sorted by name.
func Builtins() []Routine {
	r := []Routine{
		{
			Name:        "alloc-string",
			Description: "Allocate a byte buffer of <sweep> bytes (default 64), timed by the harness",
			Build: func(_ context.Context, _ *Engine, param uint64) bench.Routine {
				size := orDefault(param, defaultAllocBytes)
				return func(b *bench.Bencher) {
					b.Iter(func() { sink = make([]byte, size) })
				}
			},
		},
		{
			Name:        "sort-ints",
			Description: "Sort <sweep> pseudo-random ints (default 1000); input is regenerated outside the timed region",
			Build: func(_ context.Context, _ *Engine, param uint64) bench.Routine {
				n := orDefault(param, defaultSortLen)
				rng := rand.New(rand.NewPCG(n, 0x5eed))
				data := make([]int, n)
				return func(b *bench.Bencher) {
					for i := range data {
						data[i] = rng.Int()
					}
					b.Iter(func() { slices.Sort(data) })
				}
			},
		},
		{
			Name:        "synthetic-millis",
			Description: "Report <sweep> milliseconds (default 1) without doing any work",
			Build: func(_ context.Context, _ *Engine, param uint64) bench.Routine {
				ms := orDefault(param, defaultMillis)
				return func(b *bench.Bencher) {
					b.ManualMillis(ms)
				}
			},
		},
		{
			Name:        "http-probe",
			Description: "GET the target URL and report time to first response byte; any failure aborts the run",
			Build: func(ctx context.Context, e *Engine, _ uint64) bench.Routine {
				return func(b *bench.Bencher) {
					d, err := e.Probe(ctx, e.Config.Target.URL)
					if err != nil {
						output.Logger.Warn("Probe failed, aborting benchmark", "benchmark", b.Name(), "error", err)
					}
					b.ManualDuration(d, err == nil)
				}
			},
		},
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Name < r[j].Name })
	return r
}

// Register adds a routine to the engine.
func (e *Engine) Register(r Routine) error {
	if r.Name == "" || r.Build == nil {
		return errors.New("routine needs a name and a Build func")
	}
	if _, ok := e.routines[r.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoutine, r.Name)
	}
	e.routines[r.Name] = r
	return nil
}

// Lookup returns the named routine.
func (e *Engine) Lookup(name string) (Routine, error) {
	r, ok := e.routines[name]
	if !ok {
		return Routine{}, fmt.Errorf("%w: %q", ErrUnknownRoutine, name)
	}
	return r, nil
}

// Routines lists the registered routines sorted by name.
func (e *Engine) Routines() []Routine {
	out := make([]Routine, 0, len(e.routines))
	for _, r := range e.routines {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
