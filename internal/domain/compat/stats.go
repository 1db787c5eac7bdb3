package compat

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/hydrater/internal/domain/model"
)

const epsilon = 1e-9

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// RatingMean is the mean of the four dimensions of r.
func RatingMean(r model.Rating) float64 {
	v := r.Vector()
	return Mean(v[:])
}

// Pearson returns the Pearson correlation coefficient of the paired samples
// xs and ys. It returns 0 when the slices differ in length, hold fewer than
// two samples, or either side has zero variance.
func Pearson(xs, ys []float64) float64 {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0
	}
	if stat.Variance(xs, nil) < epsilon || stat.Variance(ys, nil) < epsilon {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return clamp(r, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}
