package scanner

import (
	"fmt"
	"time"

	"rastersim/logging"
)

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(stats PairStats, resultsChan chan PairResult) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan bool),
		finished:   make(chan struct{}),
		totalPairs: stats.totalPairs,
		geoPairs:   stats.geoPairs,
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start result processor goroutine
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Printf("\rProgress: %d/%d (Errors: %d, Skipped: %d, GEO: %d/%d)",
					p.processed, p.totalPairs, p.errors, p.skipped, p.geoProcessed, p.geoPairs)
			} else {
				fmt.Printf("\rProgress: %d/%d (Skipped: %d, GEO: %d/%d)",
					p.processed, p.totalPairs, p.skipped, p.geoProcessed, p.geoPairs)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state based on pair results
func (p *ProgressTracker) processResults(resultsChan chan PairResult) {
	defer close(p.finished)
	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if result.GeoPair {
			p.geoProcessed++
		}
		if result.Skipped {
			p.skipped++
		}

		if !result.Success {
			p.errors++
			if result.GeoPair {
				p.geoErrors++
			}
			if result.Error != nil {
				logging.LogPairProcessed(result.Pair.Left, result.Pair.Right, false, result.Error.Error())
			}
		} else {
			logging.LogPairProcessed(result.Pair.Left, result.Pair.Right, true, "")
		}

		p.mu.Unlock()
	}
}

// Stop waits for the results channel to drain and ends the progress display
func (p *ProgressTracker) Stop() {
	<-p.finished
	p.ticker.Stop()
	p.done <- true
}

// Counts returns processed, failed and skipped pair counts
func (p *ProgressTracker) Counts() (processed, errors, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors, p.skipped
}

// PrintStartupInfo displays information about the batch before starting
func PrintStartupInfo(stats PairStats, options BatchOptions) {
	fmt.Printf("Starting raster comparison...\nTotal pairs to compare: %d (including %d georeferenced pairs)\n",
		stats.totalPairs, stats.geoPairs)
	fmt.Printf("Force rewrite mode: %v\n", options.ForceRewrite)

	if options.Label != "" {
		fmt.Printf("Run label: %s\n", options.Label)
	}

	if options.DebugMode {
		fmt.Printf("Debug mode: enabled\n")
		logging.DebugLog("Found %d pairs to compare (%d georeferenced)", stats.totalPairs, stats.geoPairs)
	}
}

// PrintCompletionStats displays statistics after the batch completes
func PrintCompletionStats(tracker *ProgressTracker, startTime time.Time, options BatchOptions) {
	elapsed := time.Since(startTime)
	processed, errors, skipped := tracker.Counts()

	if options.DebugMode {
		logging.DebugLog("Batch completed in %v. Processed: %d, Errors: %d, Skipped: %d, GEO pairs: %d, GEO errors: %d",
			elapsed, processed, errors, skipped, tracker.geoProcessed, tracker.geoErrors)
	}

	fmt.Println("\nComparison complete.")
	fmt.Printf("Compared %d pairs in %v.\n", processed, elapsed.Round(time.Second))

	if skipped > 0 {
		fmt.Printf("Skipped %d pairs already in the ledger.\n", skipped)
	}

	if tracker.geoProcessed > 0 {
		fmt.Printf("Successfully compared %d/%d georeferenced pairs.\n",
			tracker.geoProcessed-tracker.geoErrors, tracker.geoPairs)
	}

	if errors > 0 {
		fmt.Printf("Encountered %d errors during comparison.\n", errors)
		fmt.Println("Check the log file for details.")
	}
}
