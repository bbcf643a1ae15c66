package segment

import (
	"math"

	"rastersim/types"
)

// FeatureVectors turns every pixel into a 3-component vector. Single-band
// rasters are replicated across the three components; NaN becomes 0.
func FeatureVectors(r types.Raster) [][]float64 {
	n := r.Rows * r.Cols
	vectors := make([][]float64, n)
	for i := 0; i < n; i++ {
		v := make([]float64, 3)
		for d := range v {
			c := d
			if c >= r.Channels {
				c = 0
			}
			x := r.Data[i*r.Channels+c]
			if math.IsNaN(x) {
				x = 0
			}
			v[d] = x
		}
		vectors[i] = v
	}
	return vectors
}

// Quantize replaces every pixel of r (scaled to [0,255]) with the byte value
// of its cluster centroid. The output has r's shape and georeferencing.
func Quantize(r types.Raster, opts Options) (types.Raster, Result, error) {
	if r.Empty() {
		return types.Raster{}, Result{}, types.Degenerate("cannot segment empty raster")
	}

	res, err := KMeans(FeatureVectors(r), opts)
	if err != nil {
		return types.Raster{}, Result{}, err
	}

	levels := make([][]float64, len(res.Centroids))
	for k, c := range res.Centroids {
		levels[k] = make([]float64, len(c))
		for d, x := range c {
			levels[k][d] = toByte(x)
		}
	}

	out := r.WithData(make([]float64, len(r.Data)))
	for i, label := range res.Labels {
		level := levels[label]
		if r.Channels == 1 {
			out.Data[i] = toByte((level[0] + level[1] + level[2]) / 3)
			continue
		}
		for c := 0; c < r.Channels; c++ {
			out.Data[i*r.Channels+c] = level[c%len(level)]
		}
	}
	return out, res, nil
}

func toByte(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 255:
		return 255
	}
	return math.Trunc(x)
}
