package bench

import (
	"github.com/daryltucker/forest-bench/internal/model"
	"github.com/daryltucker/forest-bench/internal/statistics"
)

// Summary reduces the recorded samples. It does not change the Bencher, so
// repeated calls return identical values. Statistics without a value (no
// samples, or too few for quartiles and variance) are reported as 0.
func (b *Bencher) Summary() model.Summary {
	secs := make([]float64, len(b.samples))
	for i, d := range b.samples {
		secs[i] = d.Seconds()
	}

	s := model.Summary{
		Name: b.name,
		N:    uint64(len(secs)),
	}

	s.Min, _ = statistics.Min(secs)
	s.Max, _ = statistics.Max(secs)
	s.Median, _ = statistics.Median(secs)

	mean, ok := statistics.Mean(secs)
	if ok {
		s.Mean = mean
		s.Var, _ = statistics.Variance(secs, &mean)
		s.StdDev, _ = statistics.StandardDeviation(secs, &mean)
	}

	if q1, q2, q3, ok := statistics.Quartiles(secs); ok {
		s.Quartiles = [3]float64{q1, q2, q3}
		s.IQR = q3 - q1
	}

	if b.hasIndependent {
		v := b.independent
		s.IndependentVariable = &v
	}
	return s
}
