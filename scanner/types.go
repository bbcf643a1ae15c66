package scanner

import (
	"context"
	"sync"
	"time"

	"rastersim/similarity"
	"rastersim/types"
)

// BatchOptions defines the options for a batch run
type BatchOptions struct {
	ManifestPath string
	LeftDir      string
	RightDir     string
	Label        string
	ForceRewrite bool
	DebugMode    bool
	DbPath       string
	MaxWorkers   int // Optional worker limit
	Metrics      []types.Metric
	Scoring      similarity.Options
	// NewScorer overrides how each pair's scorer is built. Tests use it.
	NewScorer ScorerFactory
}

// Pair is two rasters to compare; Right is resampled onto Left's grid
type Pair struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// PairScorer compares two raster files
type PairScorer interface {
	CompareFiles(ctx context.Context, pathA, pathB string, metrics []types.Metric) (types.SimilarityScore, error)
	Close() error
}

// ScorerFactory builds a PairScorer for one pair
type ScorerFactory func() (PairScorer, error)

// PairResult holds the result of comparing one pair
type PairResult struct {
	Pair    Pair
	Score   types.SimilarityScore
	Success bool
	Skipped bool
	Error   error
	GeoPair bool
}

// PairStats tracks information about pairs to be processed
type PairStats struct {
	totalPairs int
	geoPairs   int
}

// ProgressTracker tracks progress of the batch run
type ProgressTracker struct {
	processed    int
	errors       int
	skipped      int
	geoProcessed int
	geoErrors    int
	ticker       *time.Ticker
	done         chan bool
	finished     chan struct{}
	mu           sync.Mutex
	totalPairs   int
	geoPairs     int
}
