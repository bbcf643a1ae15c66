package types

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Shape describes the grid of a raster
type Shape struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	Channels int `json:"channels"`
}

// Equal reports whether two shapes describe the same grid
func (s Shape) Equal(o Shape) bool {
	return s.Rows == o.Rows && s.Cols == o.Cols && s.Channels == o.Channels
}

// Len returns the number of samples in a raster of this shape
func (s Shape) Len() int {
	return s.Rows * s.Cols * s.Channels
}

func (s Shape) String() string {
	if s.Channels == 1 {
		return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
	}
	return fmt.Sprintf("%dx%dx%d", s.Rows, s.Cols, s.Channels)
}

// Raster holds band samples plus the georeferencing they came with.
// Data is row-major with channels interleaved and may contain NaN.
type Raster struct {
	Rows         int
	Cols         int
	Channels     int
	Data         []float64
	GeoTransform [6]float64
	Projection   string
	Source       string
}

// NewRaster allocates a zeroed raster with an identity geotransform
func NewRaster(rows, cols, channels int) Raster {
	return Raster{
		Rows:         rows,
		Cols:         cols,
		Channels:     channels,
		Data:         make([]float64, rows*cols*channels),
		GeoTransform: IdentityGeoTransform(),
	}
}

// NewRasterFromRows builds a single-channel raster from a 2-D slice
func NewRasterFromRows(rows [][]float64) (Raster, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return Raster{}, fmt.Errorf("cannot build raster from empty rows")
	}
	cols := len(rows[0])
	r := NewRaster(len(rows), cols, 1)
	for y, row := range rows {
		if len(row) != cols {
			return Raster{}, fmt.Errorf("row %d has %d columns, expected %d", y, len(row), cols)
		}
		copy(r.Data[y*cols:(y+1)*cols], row)
	}
	return r, nil
}

// IdentityGeoTransform is the transform GDAL reports for ungeoreferenced data
func IdentityGeoTransform() [6]float64 {
	return [6]float64{0, 1, 0, 0, 0, 1}
}

// Shape returns the grid of the raster
func (r Raster) Shape() Shape {
	return Shape{Rows: r.Rows, Cols: r.Cols, Channels: r.Channels}
}

// Empty reports whether the raster holds no samples
func (r Raster) Empty() bool {
	return r.Rows == 0 || r.Cols == 0 || r.Channels == 0 || len(r.Data) == 0
}

// At returns the sample at row y, column x, channel c
func (r Raster) At(y, x, c int) float64 {
	return r.Data[(y*r.Cols+x)*r.Channels+c]
}

// Set stores the sample at row y, column x, channel c
func (r Raster) Set(y, x, c int, v float64) {
	r.Data[(y*r.Cols+x)*r.Channels+c] = v
}

// WithData returns a raster sharing this raster's metadata with new samples
func (r Raster) WithData(data []float64) Raster {
	out := r
	out.Data = data
	return out
}

// Clone deep-copies the raster
func (r Raster) Clone() Raster {
	data := make([]float64, len(r.Data))
	copy(data, r.Data)
	return r.WithData(data)
}

// Band extracts one channel as a single-channel raster
func (r Raster) Band(c int) (Raster, error) {
	if c < 0 || c >= r.Channels {
		return Raster{}, fmt.Errorf("band %d out of range for %d channels", c, r.Channels)
	}
	out := r
	out.Channels = 1
	out.Data = make([]float64, r.Rows*r.Cols)
	for i := range out.Data {
		out.Data[i] = r.Data[i*r.Channels+c]
	}
	return out, nil
}

// NaNCount returns the number of NaN samples
func (r Raster) NaNCount() int {
	n := 0
	for _, v := range r.Data {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Metric names a similarity measure
type Metric string

const (
	MetricPearson    Metric = "pearson"
	MetricMSE        Metric = "mse"
	MetricPSNR       Metric = "psnr"
	MetricMatchRatio Metric = "match_ratio"
	MetricNCC        Metric = "ncc"
)

// AllMetrics lists every metric in reporting order
func AllMetrics() []Metric {
	return []Metric{MetricPearson, MetricMSE, MetricPSNR, MetricMatchRatio, MetricNCC}
}

// ParseMetric validates a metric name
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllMetrics() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// SimilarityScore maps metric names to values for one comparison
type SimilarityScore map[Metric]float64

// Get returns the value for a metric and whether it was computed
func (s SimilarityScore) Get(m Metric) (float64, bool) {
	v, ok := s[m]
	return v, ok
}

// Metrics returns the computed metrics in reporting order
func (s SimilarityScore) Metrics() []Metric {
	order := make(map[Metric]int)
	for i, m := range AllMetrics() {
		order[m] = i
	}
	out := make([]Metric, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// FormatValue renders a score value, spelling out infinities
func FormatValue(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}

// Keypoint is a detected feature location
type Keypoint struct {
	X        float64
	Y        float64
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// DescriptorNorm names the distance used to compare descriptors
type DescriptorNorm int

const (
	NormL2 DescriptorNorm = iota
	NormHamming
)

// KeypointSet holds the keypoints of one image and one descriptor row per keypoint
type KeypointSet struct {
	Keypoints   []Keypoint
	Descriptors [][]float32
	Norm        DescriptorNorm
}

// Len returns the number of keypoints
func (k KeypointSet) Len() int {
	return len(k.Keypoints)
}

// Empty reports whether there is nothing to match
func (k KeypointSet) Empty() bool {
	return len(k.Keypoints) == 0 || len(k.Descriptors) == 0
}

// MatchResult is the outcome of ratio-test matching between two sets
type MatchResult struct {
	Good       int
	KeypointsA int
	KeypointsB int
}
