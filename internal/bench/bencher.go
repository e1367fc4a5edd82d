/*
PURPOSE:
  The benchmark harness. Drives a routine through warmup and measurement,
  records one sample per accepted measurement invocation and reduces the
  samples into a model.Summary.

REQUIREMENTS:
  User-specified:
  - Warmup and measurement each stop on a minimum duration, a minimum
    iteration count, or both.
  - Routines may time themselves (ManualMillis / ManualDuration) or let the
    harness time them (Iter).
  - A routine that cannot produce a valid timing aborts the run.

  Implementation-discovered:
  - The iteration threshold continues the count consumed by the duration
    threshold ("at least N in total"), it does not restart it.
  - Run must report the abort to the caller instead of killing the process.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Uses: internal/statistics, internal/model

ERROR HANDLING:
  - Run returns ErrAborted (wrapped) as soon as the phase becomes Aborted.
  - Samples collected before the abort stay readable via Summary.

IMPLEMENTATION RULES:
  - Single goroutine. No background work, no context.
  - All phase transitions happen in Run. Setters never touch the phase.

USAGE:
  b := bench.New("sort").WarmupIterations(10).MeasurementIterations(100)
  err := b.Run(func(b *bench.Bencher) { b.Iter(work) })
  s := b.Summary()

SELF-HEALING INSTRUCTIONS:
  - If a new stopping policy is added, extend drive() only.

RELATED FILES:
  - internal/bench/summary.go
  - internal/statistics/statistics.go

MAINTENANCE:
  - Update when adding new reporting methods for routines.
*/

package bench

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/daryltucker/forest-bench/internal/model"
)

var (
	// ErrAborted indicates the routine reported that it could not take a measurement.
	ErrAborted = errors.New("benchmark aborted")

	// ErrAlreadyRun indicates Run was called a second time on the same Bencher.
	ErrAlreadyRun = errors.New("benchmark already run")

	// ErrNilRoutine indicates Run was called without a routine.
	ErrNilRoutine = errors.New("routine must not be nil")
)

// Phase is the stage of a run.
type Phase int

const (
	// PhaseWarmup runs the routine and discards everything it reports.
	PhaseWarmup Phase = iota
	// PhaseMeasuring keeps one sample per invocation.
	PhaseMeasuring
	// PhaseAborted is terminal. The routine must not be invoked again.
	PhaseAborted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseMeasuring:
		return "measuring"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Routine is the code under benchmark. It receives the Bencher so it can
// report its own timings.
type Routine func(b *Bencher)

// Bencher runs one benchmark. It is not safe for concurrent use.
type Bencher struct {
	name string

	warmupDur      time.Duration
	warmupIters    uint64
	measureDur     time.Duration
	measureIters   uint64
	independent    uint64
	hasIndependent bool

	phase   Phase
	ran     bool
	samples []time.Duration
}

// New creates a Bencher with no thresholds configured. The name is carried
// into the Summary untouched.
func New(name string) *Bencher {
	return &Bencher{
		name:  name,
		phase: PhaseWarmup,
	}
}

// WarmupDuration warms up for at least d.
func (b *Bencher) WarmupDuration(d time.Duration) *Bencher {
	b.warmupDur = d
	return b
}

// WarmupIterations warms up for at least n invocations in total.
func (b *Bencher) WarmupIterations(n uint64) *Bencher {
	b.warmupIters = n
	return b
}

// MeasurementDuration measures for at least d.
func (b *Bencher) MeasurementDuration(d time.Duration) *Bencher {
	b.measureDur = d
	return b
}

// MeasurementIterations measures for at least n invocations in total.
func (b *Bencher) MeasurementIterations(n uint64) *Bencher {
	b.measureIters = n
	return b
}

// IndependentVariable tags the Summary with the experiment parameter used
// for this run, e.g. the input size of a sweep.
func (b *Bencher) IndependentVariable(v uint64) *Bencher {
	b.independent = v
	b.hasIndependent = true
	return b
}

// Apply sets all four thresholds at once.
func (b *Bencher) Apply(t model.Thresholds) *Bencher {
	return b.WarmupDuration(t.WarmupDuration).
		WarmupIterations(t.WarmupIterations).
		MeasurementDuration(t.MeasurementDuration).
		MeasurementIterations(t.MeasurementIterations)
}

// Name returns the benchmark name.
func (b *Bencher) Name() string { return b.name }

// Phase returns the current phase.
func (b *Bencher) Phase() Phase { return b.phase }

// Samples returns a copy of the recorded samples.
func (b *Bencher) Samples() []time.Duration {
	out := make([]time.Duration, len(b.samples))
	copy(out, b.samples)
	return out
}

// Run executes warmup then measurement against routine.
//
// Each phase first invokes the routine until its minimum duration has
// elapsed, then keeps invoking until its minimum iteration count is reached,
// counting the invocations already made. A phase with neither threshold set
// invokes nothing.
//
// Run returns an error wrapping ErrAborted as soon as the routine aborts.
// It can only be called once per Bencher.
func (b *Bencher) Run(routine Routine) error {
	if routine == nil {
		return ErrNilRoutine
	}
	if b.ran {
		return fmt.Errorf("benchmark %q: %w", b.name, ErrAlreadyRun)
	}
	b.ran = true

	if err := b.drive(routine, b.warmupDur, b.warmupIters); err != nil {
		return err
	}

	b.phase = PhaseMeasuring
	return b.drive(routine, b.measureDur, b.measureIters)
}

// RunFunc runs f under the harness clock: one timed call of f per invocation.
func (b *Bencher) RunFunc(f func()) error {
	if f == nil {
		return ErrNilRoutine
	}
	return b.Run(func(b *Bencher) { b.Iter(f) })
}

// drive runs one phase.
func (b *Bencher) drive(routine Routine, minDur time.Duration, minIters uint64) error {
	var n uint64

	if minDur > 0 {
		start := time.Now()
		for time.Since(start) < minDur {
			if err := b.invoke(routine); err != nil {
				return err
			}
			n++
		}
	}

	for ; n < minIters; n++ {
		if err := b.invoke(routine); err != nil {
			return err
		}
	}
	return nil
}

// invoke calls the routine once, refusing to run it in the aborted phase.
func (b *Bencher) invoke(routine Routine) error {
	if b.phase == PhaseAborted {
		return b.abortErr()
	}
	routine(b)
	if b.phase == PhaseAborted {
		return b.abortErr()
	}
	return nil
}

func (b *Bencher) abortErr() error {
	return fmt.Errorf("benchmark %q after %d samples: %w", b.name, len(b.samples), ErrAborted)
}

// record keeps d only while measuring.
func (b *Bencher) record(d time.Duration) {
	if b.phase == PhaseMeasuring {
		b.samples = append(b.samples, d)
	}
}

// Iter times a single call of f with the monotonic clock and records the
// elapsed time. Only the call itself sits between the two clock reads.
func (b *Bencher) Iter(f func()) {
	start := time.Now()
	f()
	elapsed := time.Since(start)
	b.record(elapsed)
}

// ManualMillis reports a routine-measured duration in milliseconds.
// It is ignored outside the measuring phase. Values beyond the range of
// time.Duration (about 292 years) saturate at the maximum Duration.
func (b *Bencher) ManualMillis(ms uint64) {
	if ms > maxMillis {
		b.record(time.Duration(math.MaxInt64))
		return
	}
	b.record(time.Duration(ms) * time.Millisecond)
}

const maxMillis = uint64(math.MaxInt64 / int64(time.Millisecond))

// ManualDuration reports a routine-measured duration. ok == false means the
// routine could not take a measurement and aborts the run.
func (b *Bencher) ManualDuration(d time.Duration, ok bool) {
	if !ok {
		b.phase = PhaseAborted
		return
	}
	b.record(d)
}

// Abort is ManualDuration(0, false).
func (b *Bencher) Abort() {
	b.ManualDuration(0, false)
}
