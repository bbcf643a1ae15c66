// Package segment flattens a raster into a few representative values with
// k-means clustering over per-pixel feature vectors.
package segment

import (
	"math"
	"math/rand/v2"

	"rastersim/types"
)

// Options controls the clustering. Seed makes initialization reproducible:
// two runs with the same seed and input produce the same labels.
type Options struct {
	K             int
	MaxIterations int
	Epsilon       float64
	Attempts      int
	Seed          uint64
}

// DefaultOptions mirrors the termination criteria used for NDWI rasters:
// eight clusters, ten iterations, centroid movement below one grey level.
func DefaultOptions() Options {
	return Options{
		K:             8,
		MaxIterations: 10,
		Epsilon:       1.0,
		Attempts:      1,
		Seed:          1,
	}
}

// Result is the outcome of one clustering
type Result struct {
	Labels      []int
	Centroids   [][]float64
	Compactness float64
	Iterations  int
}

// KMeans partitions vectors into opts.K clusters. Centroids start from
// k-means++ seeding; a cluster that loses all its vectors keeps its previous
// centroid. With Attempts > 1 the run with the lowest compactness wins.
func KMeans(vectors [][]float64, opts Options) (Result, error) {
	if opts.K < 1 {
		return Result{}, types.Degenerate("cluster count %d", opts.K)
	}
	if len(vectors) < opts.K {
		return Result{}, types.Degenerate("%d vectors cannot form %d clusters", len(vectors), opts.K)
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if len(v) != dim {
			return Result{}, types.Degenerate("feature vectors of mixed length")
		}
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}

	var best Result
	for attempt := 0; attempt < opts.Attempts; attempt++ {
		rng := rand.New(rand.NewPCG(opts.Seed, uint64(attempt)))
		res := run(vectors, opts, rng)
		if attempt == 0 || res.Compactness < best.Compactness {
			best = res
		}
	}
	return best, nil
}

func run(vectors [][]float64, opts Options, rng *rand.Rand) Result {
	centroids := seedPlusPlus(vectors, opts.K, rng)
	labels := make([]int, len(vectors))
	dim := len(vectors[0])

	iterations := 0
	for iterations < opts.MaxIterations {
		iterations++
		for i, v := range vectors {
			labels[i], _ = nearest(v, centroids)
		}

		sums := make([][]float64, opts.K)
		counts := make([]int, opts.K)
		for k := range sums {
			sums[k] = make([]float64, dim)
		}
		for i, v := range vectors {
			k := labels[i]
			counts[k]++
			for d, x := range v {
				sums[k][d] += x
			}
		}

		shift := 0.0
		for k := range centroids {
			if counts[k] == 0 {
				continue
			}
			moved := make([]float64, dim)
			for d := range moved {
				moved[d] = sums[k][d] / float64(counts[k])
			}
			if s := math.Sqrt(sqDist(moved, centroids[k])); s > shift {
				shift = s
			}
			centroids[k] = moved
		}
		if shift < opts.Epsilon {
			break
		}
	}

	compactness := 0.0
	for i, v := range vectors {
		var d float64
		labels[i], d = nearest(v, centroids)
		compactness += d
	}

	return Result{Labels: labels, Centroids: centroids, Compactness: compactness, Iterations: iterations}
}

// seedPlusPlus picks the first centroid uniformly and each next one with
// probability proportional to its squared distance from the chosen set.
func seedPlusPlus(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(vectors[rng.IntN(len(vectors))]))

	dists := make([]float64, len(vectors))
	for len(centroids) < k {
		total := 0.0
		for i, v := range vectors {
			_, dists[i] = nearest(v, centroids)
			total += dists[i]
		}
		if total == 0 {
			// fewer distinct vectors than clusters
			centroids = append(centroids, clone(vectors[rng.IntN(len(vectors))]))
			continue
		}
		target := rng.Float64() * total
		pick := len(vectors) - 1
		for i, d := range dists {
			target -= d
			if target <= 0 {
				pick = i
				break
			}
		}
		centroids = append(centroids, clone(vectors[pick]))
	}
	return centroids
}

func nearest(v []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for k, c := range centroids {
		if d := sqDist(v, c); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, bestDist
}

func sqDist(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
