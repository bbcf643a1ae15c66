// Package similarity scores how alike two rasters are. The metrics can be
// called one by one; Scorer chains them behind the preprocessing pipeline.
package similarity

import (
	"math"

	"rastersim/types"
)

const (
	// UnitRange scales samples into [0,1]
	UnitRange = 1.0
	// ByteRange scales samples into [0,255]
	ByteRange = 255.0
)

// Normalize linearly maps r so its smallest valid sample becomes 0 and its
// largest becomes upperBound. NaN samples stay NaN and are ignored when
// finding the range. A constant or all-NaN raster cannot be stretched.
func Normalize(r types.Raster, upperBound float64) (types.Raster, error) {
	if r.Empty() {
		return types.Raster{}, types.Degenerate("cannot normalize empty raster")
	}
	if upperBound <= 0 || math.IsInf(upperBound, 0) || math.IsNaN(upperBound) {
		return types.Raster{}, types.Degenerate("upper bound %v", upperBound)
	}

	lo, hi, ok := validRange(r.Data)
	if !ok {
		return types.Raster{}, types.Degenerate("%s has no valid samples", describe(r))
	}
	if hi == lo {
		return types.Raster{}, types.Degenerate("%s is constant (%g)", describe(r), lo)
	}

	scale := upperBound / (hi - lo)
	out := make([]float64, len(r.Data))
	for i, v := range r.Data {
		if math.IsNaN(v) {
			out[i] = v
			continue
		}
		out[i] = (v - lo) * scale
	}
	// pin the extremes against rounding
	for i, v := range r.Data {
		switch v {
		case lo:
			out[i] = 0
		case hi:
			out[i] = upperBound
		}
	}
	return r.WithData(out), nil
}

func validRange(data []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range data {
		if math.IsNaN(v) {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}

func describe(r types.Raster) string {
	if r.Source != "" {
		return r.Source
	}
	return "raster " + r.Shape().String()
}

// ValidityMask marks the flattened positions where both rasters hold a
// number. It is computed once per pair and applied before any correlation.
type ValidityMask []bool

// NewValidityMask builds the joint mask of two rasters of equal shape
func NewValidityMask(a, b types.Raster) (ValidityMask, error) {
	if !a.Shape().Equal(b.Shape()) {
		return nil, &types.ShapeMismatchError{Want: a.Shape(), Got: b.Shape()}
	}
	m := make(ValidityMask, len(a.Data))
	for i := range m {
		m[i] = !math.IsNaN(a.Data[i]) && !math.IsNaN(b.Data[i])
	}
	return m, nil
}

// Count returns the number of jointly valid positions
func (m ValidityMask) Count() int {
	n := 0
	for _, ok := range m {
		if ok {
			n++
		}
	}
	return n
}

// Apply returns the samples of a and b at valid positions, in order
func (m ValidityMask) Apply(a, b []float64) ([]float64, []float64) {
	n := m.Count()
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i, ok := range m {
		if ok {
			x = append(x, a[i])
			y = append(y, b[i])
		}
	}
	return x, y
}
