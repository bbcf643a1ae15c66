package scanner

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"rastersim/database"
	"rastersim/logging"
)

// checkAndSkipIfUnchanged checks if a pair can be skipped because it already
// has every requested metric and neither raster changed since
func checkAndSkipIfUnchanged(db *sql.DB, pair Pair, options BatchOptions) *PairResult {
	exists, comparedAt, err := database.CheckComparisonExists(db, pair.Left, pair.Right, options.Label, options.Metrics)
	if err != nil {
		return &PairResult{
			Pair:    pair,
			Success: false,
			Error:   fmt.Errorf("database error for %s: %v", pair.Left, err),
		}
	}
	if !exists {
		return nil
	}

	storedTime, err := time.Parse(time.RFC3339, comparedAt)
	if err != nil {
		return &PairResult{
			Pair:    pair,
			Success: false,
			Error:   fmt.Errorf("cannot parse stored time for %s: %v", pair.Left, err),
		}
	}

	for _, path := range []string{pair.Left, pair.Right} {
		fileInfo, err := os.Stat(path)
		if err != nil {
			return &PairResult{
				Pair:    pair,
				Success: false,
				Error:   fmt.Errorf("cannot stat file %s: %v", path, err),
			}
		}
		if fileInfo.ModTime().After(storedTime) {
			return nil
		}
	}

	if options.DebugMode {
		logging.DebugLog("Skipping unchanged pair: %s / %s", pair.Left, pair.Right)
	}
	return &PairResult{
		Pair:    pair,
		Success: true,
		Skipped: true,
		GeoPair: isGeoPair(pair),
	}
}

func modTime(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return info.ModTime().Format(time.RFC3339)
}
