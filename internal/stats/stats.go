// Package stats holds the small numeric helpers shared by the page computations.
package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// DropNaN returns the non-NaN values of xs in order.
func DropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean of the non-NaN values; NaN when none remain.
func Mean(xs []float64) float64 {
	v := DropNaN(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// SampleStd is the unbiased (n-1) standard deviation of the non-NaN values.
// NaN when fewer than two values remain.
func SampleStd(xs []float64) float64 {
	v := DropNaN(xs)
	if len(v) < 2 {
		return math.NaN()
	}
	return stat.StdDev(v, nil)
}

// PopStd is the population (n) standard deviation of the non-NaN values.
func PopStd(xs []float64) float64 {
	v := DropNaN(xs)
	if len(v) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(v, nil)
	return std
}

// MinMax of the non-NaN values. ok is false when none remain.
func MinMax(xs []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		ok = true
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, ok
}

// Quantile of an ascending slice using linear interpolation between the
// closest ranks: position q*(n-1).
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Round rounds half away from zero to the given number of decimal places.
// NaN and infinities are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 { return Round(v, 2) }

// Column extracts one numeric field from a row for filtering.
type Column[T any] struct {
	Name  string
	Value func(T) float64
}

// IQRFilter removes rows outside [Q1-m*IQR, Q3+m*IQR], one column at a time.
// Bounds for each column are computed on the rows surviving the previous
// columns. A column is skipped while fewer than four rows remain. Rows with a
// NaN in a filtered column are dropped.
func IQRFilter[T any](rows []T, cols []Column[T], multiplier float64) ([]T, int) {
	kept := append([]T(nil), rows...)
	for _, col := range cols {
		if len(kept) == 0 {
			break
		}
		if len(kept) < 4 {
			continue
		}
		vals := make([]float64, 0, len(kept))
		for _, r := range kept {
			if v := col.Value(r); !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		sort.Float64s(vals)
		q1 := Quantile(vals, 0.25)
		q3 := Quantile(vals, 0.75)
		iqr := q3 - q1
		lower, upper := q1-multiplier*iqr, q3+multiplier*iqr
		next := kept[:0:0]
		for _, r := range kept {
			v := col.Value(r)
			if v >= lower && v <= upper {
				next = append(next, r)
			}
		}
		kept = next
	}
	return kept, len(rows) - len(kept)
}

// Nullable returns nil for NaN and infinities so the value encodes as JSON null.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
