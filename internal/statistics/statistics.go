/*
PURPOSE:
  Pure reductions over a sequence of timing samples.
  Feeds the Summary built by internal/bench.

REQUIREMENTS:
  User-specified:
  - min, max, sum, mean, median, quartiles, variance, standard deviation.
  - Empty input reports "no value" instead of a silent zero.

  Implementation-discovered:
  - Median and quartiles must also work on integers (truncating midpoint).
  - NaN must not break sorting.

ARCHITECTURE INTEGRATION:
  - Used by: internal/bench
  - Dependencies: none (cmp, slices, math).

ERROR HANDLING:
  - No errors. Every reduction returns (value, ok); ok == false means "no value".

IMPLEMENTATION RULES:
  - Never sort the caller's slice in place. Clone first.
  - Variance is the Bessel-corrected sample variance and needs at least 2 samples.
  - StandardDeviation clamps a negative variance to zero and reports NaN as "no value".

USAGE:
  mean, ok := statistics.Mean(secs)
  q1, q2, q3, ok := statistics.Quartiles(secs)

SELF-HEALING INSTRUCTIONS:
  - If a new reduction is added, keep the (value, ok) shape.

RELATED FILES:
  - internal/bench/summary.go

MAINTENANCE:
  - Update when the Summary gains a new statistic.
*/

package statistics

import (
	"cmp"
	"math"
	"slices"
)

// Float is the set of floating point sample types.
type Float interface {
	~float32 | ~float64
}

// Number is the set of sample types the order statistics accept.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		Float
}

// Min returns the smallest sample. The first element seeds the scan.
func Min[T Number](s []T) (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	m := s[0]
	for _, x := range s[1:] {
		if x < m {
			m = x
		}
	}
	return m, true
}

// Max returns the largest sample. The first element seeds the scan.
func Max[T Number](s []T) (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	m := s[0]
	for _, x := range s[1:] {
		if x > m {
			m = x
		}
	}
	return m, true
}

// Sum folds the samples. An empty sequence has no sum; callers that want 0 must say so.
func Sum[T Number](s []T) (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	total := s[0]
	for _, x := range s[1:] {
		total += x
	}
	return total, true
}

// Mean returns Sum(s) / len(s).
func Mean[T Float](s []T) (T, bool) {
	total, ok := Sum(s)
	if !ok {
		return 0, false
	}
	return total / T(len(s)), true
}

// sorted returns an ascending copy of s. NaN sorts before every other value.
func sorted[T Number](s []T) []T {
	c := slices.Clone(s)
	slices.SortFunc(c, cmp.Compare[T])
	return c
}

// medianSorted expects s to be sorted already.
func medianSorted[T Number](s []T) (T, bool) {
	n := len(s)
	if n == 0 {
		var zero T
		return zero, false
	}
	i := n / 2
	if n%2 == 1 {
		return s[i], true
	}
	return midpoint(s[i-1], s[i]), true
}

// midpoint is (a+b)/2 without overflowing integer types. Integer results
// truncate toward zero, as (a+b)/2 would with unbounded precision.
func midpoint[T Number](a, b T) T {
	if T(1)/2 != 0 {
		return (a + b) / 2
	}
	q := a/2 + b/2
	r := (a - a/2*2) + (b - b/2*2) // in [-2, 2]
	q += r / 2
	switch r - r/2*2 {
	case 1:
		if q < 0 {
			q++
		}
	case T(0) - 1:
		if q > 0 {
			q--
		}
	}
	return q
}

// Median returns the middle sample, or the average of the two middle samples
// for an even count. Integer types truncate: Median([]int{1, 2}) == 1.
// The input is not modified.
func Median[T Number](s []T) (T, bool) {
	if len(s) == 0 {
		var zero T
		return zero, false
	}
	return medianSorted(sorted(s))
}

// Quartiles returns Q1, Q2 (the median) and Q3.
//
// The sorted samples are split around the median index. For an odd count the
// median element belongs to neither half; for an even count the two middle
// elements land one in each half. A single sample has an empty lower half, so
// it has no quartiles.
func Quartiles[T Number](s []T) (q1, q2, q3 T, ok bool) {
	c := sorted(s)
	mid := len(c) / 2

	lower := c[:mid]
	upper := c[mid:]
	if len(c)%2 == 1 {
		upper = c[mid+1:]
	}

	var ok1, ok2, ok3 bool
	q1, ok1 = medianSorted(lower)
	q2, ok2 = medianSorted(c)
	q3, ok3 = medianSorted(upper)
	if !ok1 || !ok2 || !ok3 {
		var zero T
		return zero, zero, zero, false
	}
	return q1, q2, q3, true
}

// SumSquareDeviations returns the sum of squared distances from center.
// A nil center means the sample's own mean.
func SumSquareDeviations[T Float](v []T, center *T) (T, bool) {
	if len(v) == 0 {
		return 0, false
	}

	var c T
	if center != nil {
		c = *center
	} else {
		c, _ = Mean(v)
	}

	var total T
	for _, x := range v {
		d := x - c
		total += d * d
	}
	return total, true
}

// Variance is the Bessel-corrected sample variance. Pass the mean when it is
// already known so the same value is used everywhere; nil recomputes it.
// Fewer than two samples have no variance.
func Variance[T Float](v []T, mean *T) (T, bool) {
	if len(v) < 2 {
		return 0, false
	}
	ssd, ok := SumSquareDeviations(v, mean)
	if !ok {
		return 0, false
	}
	return ssd / T(len(v)-1), true
}

// StandardDeviation is the square root of Variance.
func StandardDeviation[T Float](v []T, mean *T) (T, bool) {
	variance, ok := Variance(v, mean)
	if !ok {
		return 0, false
	}
	return root(variance)
}

// root takes the square root of a variance. Rounding can push a variance of
// nearly constant data just under zero; that clamps to 0. NaN has no root.
func root[T Float](variance T) (T, bool) {
	f := float64(variance)
	switch {
	case math.IsNaN(f):
		return 0, false
	case f <= 0:
		return 0, true
	}
	return T(math.Sqrt(f)), true
}
