package similarity

import (
	"math"

	"rastersim/types"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pearson returns the correlation coefficient of a and b over the samples
// where both are valid.
func Pearson(a, b types.Raster) (float64, error) {
	mask, err := NewValidityMask(a, b)
	if err != nil {
		return 0, err
	}
	x, y := mask.Apply(a.Data, b.Data)
	if len(x) < 2 {
		return 0, types.Degenerate("%d jointly valid samples", len(x))
	}
	if stat.Variance(x, nil) == 0 {
		return 0, types.Degenerate("%s has zero variance over the valid samples", describe(a))
	}
	if stat.Variance(y, nil) == 0 {
		return 0, types.Degenerate("%s has zero variance over the valid samples", describe(b))
	}

	r := stat.Correlation(x, y, nil)
	return math.Max(-1, math.Min(1, r)), nil
}

// MSE is the mean squared difference over every sample. NaN is not masked
// here; a NaN sample makes the result NaN.
func MSE(a, b types.Raster) (float64, error) {
	if !a.Shape().Equal(b.Shape()) {
		return 0, &types.ShapeMismatchError{Want: a.Shape(), Got: b.Shape()}
	}
	if len(a.Data) == 0 {
		return 0, types.Degenerate("no samples")
	}
	diff := make([]float64, len(a.Data))
	floats.SubTo(diff, a.Data, b.Data)
	return floats.Dot(diff, diff) / float64(len(diff)), nil
}

// PSNR converts an MSE to decibels against peak. Identical inputs
// (mse == 0) give +Inf.
func PSNR(mse, peak float64) float64 {
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(peak*peak/mse)
}

// MatchRatio is the share of the smaller keypoint set that found a good
// match. It is 0 when either side has no keypoints and never exceeds 1.
func MatchRatio(m types.MatchResult) float64 {
	n := m.KeypointsA
	if m.KeypointsB < n {
		n = m.KeypointsB
	}
	if n <= 0 || m.Good <= 0 {
		return 0
	}
	return math.Min(1, float64(m.Good)/float64(n))
}
