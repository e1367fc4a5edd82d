package bench

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/forest-bench/internal/model"
)

// countingRoutine records the phase of every invocation and reports a fixed manual duration.
type countingRoutine struct {
	phases []Phase
	report time.Duration
}

func (c *countingRoutine) run(b *Bencher) {
	c.phases = append(c.phases, b.Phase())
	b.ManualDuration(c.report, true)
}

func (c *countingRoutine) count(p Phase) int {
	n := 0
	for _, got := range c.phases {
		if got == p {
			n++
		}
	}
	return n
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "warmup", PhaseWarmup.String())
	assert.Equal(t, "measuring", PhaseMeasuring.String())
	assert.Equal(t, "aborted", PhaseAborted.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestNew_Defaults(t *testing.T) {
	b := New("empty")
	assert.Equal(t, "empty", b.Name())
	assert.Equal(t, PhaseWarmup, b.Phase())
	assert.Empty(t, b.Samples())
}

func TestRun_NoThresholdsInvokesNothing(t *testing.T) {
	c := &countingRoutine{report: time.Millisecond}
	b := New("none")

	require.NoError(t, b.Run(c.run))
	assert.Empty(t, c.phases)
	assert.Equal(t, PhaseMeasuring, b.Phase())
	assert.Equal(t, uint64(0), b.Summary().N)
}

func TestRun_WarmupIterations(t *testing.T) {
	c := &countingRoutine{report: time.Millisecond}
	b := New("warm").WarmupIterations(3)

	require.NoError(t, b.Run(c.run))
	assert.Equal(t, 3, c.count(PhaseWarmup))
	assert.Equal(t, 0, c.count(PhaseMeasuring))
	assert.Equal(t, PhaseMeasuring, b.Phase())
	assert.Empty(t, b.Samples(), "warmup reports are discarded")
}

func TestRun_MeasurementIterations(t *testing.T) {
	c := &countingRoutine{report: 2 * time.Millisecond}
	b := New("measure").WarmupIterations(2).MeasurementIterations(5)

	require.NoError(t, b.Run(c.run))
	assert.Equal(t, 2, c.count(PhaseWarmup))
	assert.Equal(t, 5, c.count(PhaseMeasuring))
	require.Len(t, b.Samples(), 5)
	for _, s := range b.Samples() {
		assert.Equal(t, 2*time.Millisecond, s)
	}
}

func TestRun_ZeroThresholdsAreSatisfied(t *testing.T) {
	c := &countingRoutine{}
	b := New("zero").
		WarmupDuration(0).
		WarmupIterations(0).
		MeasurementDuration(0).
		MeasurementIterations(0)

	require.NoError(t, b.Run(c.run))
	assert.Empty(t, c.phases)
}

func TestRun_DurationThreshold(t *testing.T) {
	b := New("dur").MeasurementDuration(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, b.RunFunc(func() { time.Sleep(time.Millisecond) }))

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.NotEmpty(t, b.Samples())
}

func TestRun_IterationsContinueDurationCount(t *testing.T) {
	// Roughly five invocations fit in the duration; they count toward the 3.
	c := &countingRoutine{}
	b := New("both").MeasurementDuration(5 * time.Millisecond).MeasurementIterations(3)

	require.NoError(t, b.Run(func(b *Bencher) {
		c.run(b)
		time.Sleep(time.Millisecond)
	}))

	n := c.count(PhaseMeasuring)
	assert.GreaterOrEqual(t, n, 3)
	assert.Len(t, b.Samples(), n)
}

func TestRun_IterationsTopUpShortDuration(t *testing.T) {
	c := &countingRoutine{}
	b := New("topup").MeasurementDuration(time.Nanosecond).MeasurementIterations(50)

	require.NoError(t, b.Run(c.run))
	assert.Equal(t, 50, c.count(PhaseMeasuring))
}

func TestRun_AbortDuringMeasurement(t *testing.T) {
	calls := 0
	b := New("abort").MeasurementIterations(5)

	err := b.Run(func(b *Bencher) {
		calls++
		if calls == 3 {
			b.ManualDuration(0, false)
			return
		}
		b.ManualDuration(time.Millisecond, true)
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Equal(t, 3, calls, "routine is never invoked after the abort")
	assert.Equal(t, PhaseAborted, b.Phase())
	assert.Len(t, b.Samples(), 2)

	s := b.Summary()
	assert.Equal(t, uint64(2), s.N)
	assert.Equal(t, 0.001, s.Mean)
}

func TestRun_AbortOnLastInvocationStillFails(t *testing.T) {
	calls := 0
	b := New("late").MeasurementIterations(2)

	err := b.Run(func(b *Bencher) {
		calls++
		b.ManualDuration(time.Millisecond, calls < 2)
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.Len(t, b.Samples(), 1)
}

func TestRun_AbortDuringWarmupSkipsMeasurement(t *testing.T) {
	var phases []Phase
	b := New("warm-abort").WarmupIterations(3).MeasurementIterations(3)

	err := b.Run(func(b *Bencher) {
		phases = append(phases, b.Phase())
		b.Abort()
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, []Phase{PhaseWarmup}, phases)
	assert.Equal(t, PhaseAborted, b.Phase())
	assert.Empty(t, b.Samples())
}

func TestRun_ReportsAfterAbortAreDropped(t *testing.T) {
	b := New("drop").MeasurementIterations(1)

	err := b.Run(func(b *Bencher) {
		b.Abort()
		b.ManualMillis(5)
		b.ManualDuration(time.Second, true)
		b.Iter(func() {})
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.Empty(t, b.Samples())
}

func TestRun_OnlyOnce(t *testing.T) {
	b := New("once").MeasurementIterations(1)
	require.NoError(t, b.RunFunc(func() {}))

	err := b.RunFunc(func() {})
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Len(t, b.Samples(), 1, "second run records nothing")
}

func TestRun_NilRoutine(t *testing.T) {
	assert.ErrorIs(t, New("nil").Run(nil), ErrNilRoutine)
	assert.ErrorIs(t, New("nil").RunFunc(nil), ErrNilRoutine)
}

func TestManualMillis_OnlyWhileMeasuring(t *testing.T) {
	b := New("millis").WarmupIterations(4).MeasurementIterations(3)

	require.NoError(t, b.Run(func(b *Bencher) { b.ManualMillis(7) }))
	assert.Equal(t, []time.Duration{
		7 * time.Millisecond, 7 * time.Millisecond, 7 * time.Millisecond,
	}, b.Samples())
}

func TestIter_RecordsOneSamplePerInvocation(t *testing.T) {
	calls := 0
	b := New("iter").WarmupIterations(2).MeasurementIterations(4)

	require.NoError(t, b.RunFunc(func() { calls++ }))
	assert.Equal(t, 6, calls)
	require.Len(t, b.Samples(), 4)
	for _, s := range b.Samples() {
		assert.GreaterOrEqual(t, s, time.Duration(0))
	}
}

func TestSetters_LastWriteWins(t *testing.T) {
	c := &countingRoutine{}
	b := New("lww").MeasurementIterations(10).MeasurementIterations(2)

	require.NoError(t, b.Run(c.run))
	assert.Equal(t, 2, c.count(PhaseMeasuring))
}

func TestApply(t *testing.T) {
	c := &countingRoutine{}
	b := New("apply").Apply(model.Thresholds{
		WarmupIterations:      1,
		MeasurementIterations: 4,
	})

	require.NoError(t, b.Run(c.run))
	assert.Equal(t, 1, c.count(PhaseWarmup))
	assert.Equal(t, 4, c.count(PhaseMeasuring))
}

func TestSamples_ReturnsCopy(t *testing.T) {
	b := New("copy").MeasurementIterations(1)
	require.NoError(t, b.Run(func(b *Bencher) { b.ManualMillis(1) }))

	s := b.Samples()
	s[0] = time.Hour
	assert.Equal(t, time.Millisecond, b.Samples()[0])
}

func TestManualMillis_SaturatesOutOfRange(t *testing.T) {
	b := New("huge").MeasurementIterations(3)
	reports := []uint64{math.MaxUint64 / 1000, math.MaxUint64, maxMillis}
	i := 0
	require.NoError(t, b.Run(func(b *Bencher) {
		b.ManualMillis(reports[i])
		i++
	}))

	maxDur := time.Duration(math.MaxInt64)
	assert.Equal(t, []time.Duration{maxDur, maxDur, time.Duration(maxMillis) * time.Millisecond}, b.Samples())
	for _, d := range b.Samples() {
		assert.Positive(t, d)
	}
}
