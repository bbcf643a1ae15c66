package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rastersim/types"
)

// GetDefaultDatabasePath returns the default path for the results ledger
func GetDefaultDatabasePath() string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return "rastersim.db"
	}

	return filepath.Join(filepath.Dir(exePath), "rastersim.db")
}

// ParseThreshold parses and validates a correlation threshold in [0,1]
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(strings.TrimSpace(thresholdStr), 64)
	if err != nil || parsedThreshold < 0 || parsedThreshold > 1 {
		return 0.8, fmt.Errorf("invalid threshold value '%s', using default (0.8)", thresholdStr)
	}
	return parsedThreshold, nil
}

// ParseMetrics splits a comma-separated metric list. An empty list means
// every metric. Duplicates are dropped.
func ParseMetrics(list string) ([]types.Metric, error) {
	var metrics []types.Metric
	seen := make(map[types.Metric]bool)
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := types.ParseMetric(name)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			metrics = append(metrics, m)
		}
	}
	return metrics, nil
}

// MetricNames renders metrics for flag help and logs
func MetricNames(metrics []types.Metric) string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return strings.Join(names, ",")
}
