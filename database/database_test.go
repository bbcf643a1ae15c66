package database

import (
	"math"
	"path/filepath"
	"testing"

	"rastersim/types"
)

func openTemp(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := InitDatabase(path)
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	db.Close()
	return path
}

func TestStoreAndQueryComparison(t *testing.T) {
	db, err := InitDatabase(openTemp(t))
	if err != nil {
		t.Fatalf("InitDatabase on existing file: %v", err)
	}
	defer db.Close()

	rec := types.ComparisonRecord{
		Label:     "july",
		LeftPath:  "/data/uav/a.tif",
		RightPath: "/data/gf2/a.tif",
		Score: types.SimilarityScore{
			types.MetricPearson: 0.91,
			types.MetricMSE:     0,
			types.MetricPSNR:    math.Inf(1),
		},
		Success: true,
	}
	if err := StoreComparison(db, rec, false); err != nil {
		t.Fatalf("StoreComparison: %v", err)
	}

	stored := []types.Metric{types.MetricPearson, types.MetricPSNR}
	exists, comparedAt, err := CheckComparisonExists(db, rec.LeftPath, rec.RightPath, "july", stored)
	if err != nil || !exists || comparedAt == "" {
		t.Fatalf("CheckComparisonExists = %v, %q, %v", exists, comparedAt, err)
	}
	if exists, _, _ := CheckComparisonExists(db, rec.LeftPath, rec.RightPath, "august", stored); exists {
		t.Fatal("comparison found under the wrong label")
	}

	// a row lacking a requested metric does not count
	exists, _, err = CheckComparisonExists(db, rec.LeftPath, rec.RightPath, "july", []types.Metric{types.MetricPearson, types.MetricNCC})
	if err != nil || exists {
		t.Fatalf("row without ncc counted as complete: %v, %v", exists, err)
	}
	if exists, _, _ := CheckComparisonExists(db, rec.LeftPath, rec.RightPath, "july", nil); exists {
		t.Fatal("row without every metric counted as complete for an all-metrics run")
	}
	if _, _, err := CheckComparisonExists(db, rec.LeftPath, rec.RightPath, "july", []types.Metric{"pearson; DROP TABLE comparisons"}); err == nil {
		t.Fatal("expected error for unknown metric")
	}

	records, err := QueryComparisons(db, "july")
	if err != nil {
		t.Fatalf("QueryComparisons: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Score[types.MetricPearson] != 0.91 {
		t.Errorf("pearson = %v", got.Score[types.MetricPearson])
	}
	if !math.IsInf(got.Score[types.MetricPSNR], 1) {
		t.Errorf("psnr = %v, want +Inf", got.Score[types.MetricPSNR])
	}
	if _, ok := got.Score[types.MetricMatchRatio]; ok {
		t.Error("match_ratio was never computed but came back")
	}
	if !got.Success {
		t.Error("success flag lost")
	}
}

func TestStoreComparisonForceRewrite(t *testing.T) {
	db, err := InitDatabase(openTemp(t))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	defer db.Close()

	rec := types.ComparisonRecord{
		LeftPath:  "a.tif",
		RightPath: "b.tif",
		Success:   false,
		Error:     "normalize: degenerate input",
	}
	if err := StoreComparison(db, rec, false); err != nil {
		t.Fatalf("StoreComparison: %v", err)
	}

	rec.Success, rec.Error = true, ""
	rec.Score = types.SimilarityScore{types.MetricNCC: 0.85}
	if err := StoreComparison(db, rec, false); err != nil {
		t.Fatalf("StoreComparison: %v", err)
	}
	records, _ := QueryComparisons(db, "")
	if len(records) != 1 || records[0].Success {
		t.Fatalf("insert without force should keep the first row, got %+v", records)
	}

	if err := StoreComparison(db, rec, true); err != nil {
		t.Fatalf("StoreComparison force: %v", err)
	}
	records, _ = QueryComparisons(db, "")
	if len(records) != 1 || !records[0].Success || records[0].Score[types.MetricNCC] != 0.85 {
		t.Fatalf("force rewrite did not replace the row, got %+v", records)
	}
}

func TestGetRunStats(t *testing.T) {
	db, err := InitDatabase(openTemp(t))
	if err != nil {
		t.Fatalf("InitDatabase: %v", err)
	}
	defer db.Close()

	rows := []types.ComparisonRecord{
		{Label: "run", LeftPath: "1", RightPath: "1", Success: true,
			Score: types.SimilarityScore{types.MetricPearson: 1, types.MetricPSNR: math.Inf(1)}},
		{Label: "run", LeftPath: "2", RightPath: "2", Success: true,
			Score: types.SimilarityScore{types.MetricPearson: 0.5, types.MetricPSNR: 20}},
		{Label: "run", LeftPath: "3", RightPath: "3", Success: false, Error: "load: missing input"},
		{Label: "other", LeftPath: "4", RightPath: "4", Success: true,
			Score: types.SimilarityScore{types.MetricPearson: -1}},
	}
	for _, r := range rows {
		if err := StoreComparison(db, r, false); err != nil {
			t.Fatalf("StoreComparison: %v", err)
		}
	}

	stats, err := GetRunStats(db, "run")
	if err != nil {
		t.Fatalf("GetRunStats: %v", err)
	}
	if stats.TotalPairs != 3 || stats.Failed != 1 || stats.Identical != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if !stats.MeanPearson.Valid || math.Abs(stats.MeanPearson.Float64-0.75) > 1e-9 {
		t.Fatalf("mean pearson = %+v, want 0.75", stats.MeanPearson)
	}
	if stats.MeanMatchRatio.Valid {
		t.Fatalf("mean match ratio should be NULL, got %+v", stats.MeanMatchRatio)
	}

	all, err := GetRunStats(db, "")
	if err != nil {
		t.Fatalf("GetRunStats all: %v", err)
	}
	if all.TotalPairs != 4 {
		t.Fatalf("expected 4 pairs overall, got %d", all.TotalPairs)
	}
}
