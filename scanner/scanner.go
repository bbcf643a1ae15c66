// Package scanner runs many raster pair comparisons in a worker pool and
// records each outcome in the results ledger.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"rastersim/database"
	"rastersim/imageprocessor"
	"rastersim/logging"
	"rastersim/signalhandler"
	"rastersim/similarity"
	"rastersim/types"
)

// CollectPairs resolves the pairs of a batch from the manifest or, without
// one, from the two directories. A manifest label or metric list fills in
// options left unset.
func CollectPairs(options *BatchOptions) ([]Pair, error) {
	if options.ManifestPath != "" {
		m, err := LoadManifest(options.ManifestPath)
		if err != nil {
			return nil, err
		}
		if options.Label == "" {
			options.Label = m.Label
		}
		if len(options.Metrics) == 0 {
			for _, name := range m.Metrics {
				metric, err := types.ParseMetric(name)
				if err != nil {
					return nil, fmt.Errorf("manifest %s: %v", options.ManifestPath, err)
				}
				options.Metrics = append(options.Metrics, metric)
			}
		}
		return m.Pairs, nil
	}
	if options.LeftDir == "" || options.RightDir == "" {
		return nil, fmt.Errorf("either a manifest or both directories are required")
	}
	return PairDirectories(options.LeftDir, options.RightDir)
}

// RunBatch compares every pair and stores the outcomes. Pairs run in
// parallel; each comparison is independent. Cancelling ctx stops new pairs
// from starting and lets running ones finish.
func RunBatch(ctx context.Context, db *sql.DB, pairs []Pair, options BatchOptions) error {
	var wg sync.WaitGroup
	resultsChan := make(chan PairResult, 100)

	workers := options.MaxWorkers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}
	semaphore := make(chan struct{}, workers)

	stats := countPairs(pairs)
	PrintStartupInfo(stats, options)

	progressTracker := NewProgressTracker(stats, resultsChan)

	startTime := time.Now()
	err := dispatchPairs(ctx, db, pairs, options, &wg, resultsChan, semaphore)

	wg.Wait()
	close(resultsChan)
	progressTracker.Stop()

	PrintCompletionStats(progressTracker, startTime, options)
	return err
}

func countPairs(pairs []Pair) PairStats {
	stats := PairStats{totalPairs: len(pairs)}
	for _, p := range pairs {
		if isGeoPair(p) {
			stats.geoPairs++
		}
	}
	return stats
}

// dispatchPairs starts one goroutine per pair, bounded by the semaphore
func dispatchPairs(ctx context.Context, db *sql.DB, pairs []Pair, options BatchOptions, wg *sync.WaitGroup, resultsChan chan PairResult, semaphore chan struct{}) error {
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			logging.LogWarning("Batch interrupted, %s and later pairs not started", pair.Left)
			return err
		}
		select {
		case <-ctx.Done():
			logging.LogWarning("Batch interrupted, %s and later pairs not started", pair.Left)
			return ctx.Err()
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(p Pair) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- compareAndStorePair(ctx, db, p, options)
		}(pair)
	}
	return nil
}

// compareAndStorePair compares a single pair and stores it in the ledger
func compareAndStorePair(ctx context.Context, db *sql.DB, pair Pair, options BatchOptions) PairResult {
	result := PairResult{
		Pair:    pair,
		GeoPair: isGeoPair(pair),
	}

	if !options.ForceRewrite {
		if skipResult := checkAndSkipIfUnchanged(db, pair, options); skipResult != nil {
			return *skipResult
		}
	}

	scorer, err := newScorer(options)
	if err != nil {
		result.Error = fmt.Errorf("cannot build scorer: %v", err)
		return result
	}
	defer scorer.Close()

	score, cmpErr := scorer.CompareFiles(ctx, pair.Left, pair.Right, options.Metrics)

	rec := types.ComparisonRecord{
		Label:           options.Label,
		LeftPath:        pair.Left,
		RightPath:       pair.Right,
		Score:           score,
		Success:         cmpErr == nil,
		LeftModifiedAt:  modTime(pair.Left),
		RightModifiedAt: modTime(pair.Right),
	}
	if cmpErr != nil {
		rec.Error = cmpErr.Error()
	}

	// failed pairs are stored too and retried on the next run
	if err := database.StoreComparison(db, rec, true); err != nil {
		result.Error = fmt.Errorf("cannot store result for %s: %v", pair.Left, err)
		return result
	}

	if cmpErr != nil {
		result.Error = cmpErr
		return result
	}

	if options.DebugMode {
		logging.DebugLog("Compared %s with %s", pair.Left, pair.Right)
	}
	result.Score = score
	result.Success = true
	return result
}

func newScorer(options BatchOptions) (PairScorer, error) {
	if options.NewScorer != nil {
		return options.NewScorer()
	}
	return similarity.NewScorer(options.Scoring, imageprocessor.NewLoaderRegistry())
}
