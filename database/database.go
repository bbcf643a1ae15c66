package database

import (
	"database/sql"
	"fmt"
	"time"

	"rastersim/logging"
	"rastersim/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS comparisons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL DEFAULT '',
		left_path TEXT NOT NULL,
		right_path TEXT NOT NULL,
		pearson REAL,
		mse REAL,
		psnr REAL,
		match_ratio REAL,
		success INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		compared_at TEXT,
		left_modified_at TEXT,
		right_modified_at TEXT,
		UNIQUE(left_path, right_path, label)
	);
	CREATE INDEX IF NOT EXISTS idx_label ON comparisons(label);
	CREATE INDEX IF NOT EXISTS idx_left_path ON comparisons(left_path);`

	// one writer at a time; batch workers share this handle
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// ncc arrived after the first ledgers were written
	if err := ensureColumn(db, "ncc", "REAL"); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func ensureColumn(db *sql.DB, name, decl string) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('comparisons') WHERE name = ?", name).Scan(&count)
	if err != nil {
		return fmt.Errorf("error checking for %s column: %v", name, err)
	}
	if count > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE comparisons ADD COLUMN %s %s;", name, decl)); err != nil {
		return fmt.Errorf("error adding %s column: %v", name, err)
	}
	logging.DebugLog("Added '%s' column to existing database schema", name)
	return nil
}

// OpenDatabase opens an existing database connection
func OpenDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// CheckComparisonExists reports whether a pair was already compared
// successfully under label with every metric in metrics stored, and if so,
// when. An empty metrics list asks for every metric.
func CheckComparisonExists(db *sql.DB, left, right, label string, metrics []types.Metric) (bool, string, error) {
	if len(metrics) == 0 {
		metrics = types.AllMetrics()
	}
	query := "SELECT compared_at FROM comparisons WHERE left_path = ? AND right_path = ? AND label = ? AND success = 1"
	for _, m := range metrics {
		// metric names double as column names
		col, err := types.ParseMetric(string(m))
		if err != nil {
			return false, "", err
		}
		query += fmt.Sprintf(" AND %s IS NOT NULL", col)
	}

	var comparedAt sql.NullString
	err := db.QueryRow(query, left, right, label).Scan(&comparedAt)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("database error for %s / %s: %v", left, right, err)
	}
	return true, comparedAt.String, nil
}

// StoreComparison stores one comparison outcome. Metrics that were not
// computed are stored as NULL; an infinite PSNR is stored as SQLite infinity.
func StoreComparison(db *sql.DB, rec types.ComparisonRecord, forceRewrite bool) error {
	if rec.ComparedAt == "" {
		rec.ComparedAt = time.Now().Format(time.RFC3339Nano)
	}

	verb := "INSERT OR IGNORE"
	if forceRewrite {
		verb = "INSERT OR REPLACE"
	}
	stmt, err := db.Prepare(verb + ` INTO comparisons (
			label, left_path, right_path, pearson, mse, psnr, match_ratio, ncc,
			success, error, compared_at, left_modified_at, right_modified_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("cannot prepare statement for %s: %v", rec.LeftPath, err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		rec.Label,
		rec.LeftPath,
		rec.RightPath,
		metricValue(rec.Score, types.MetricPearson),
		metricValue(rec.Score, types.MetricMSE),
		metricValue(rec.Score, types.MetricPSNR),
		metricValue(rec.Score, types.MetricMatchRatio),
		metricValue(rec.Score, types.MetricNCC),
		rec.Success,
		rec.Error,
		rec.ComparedAt,
		rec.LeftModifiedAt,
		rec.RightModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("cannot insert data for %s: %v", rec.LeftPath, err)
	}
	return nil
}

func metricValue(s types.SimilarityScore, m types.Metric) sql.NullFloat64 {
	v, ok := s.Get(m)
	return sql.NullFloat64{Float64: v, Valid: ok}
}

// QueryComparisons returns the stored comparisons, newest first, optionally
// restricted to one label.
func QueryComparisons(db *sql.DB, label string) ([]types.ComparisonRecord, error) {
	query := `SELECT id, label, left_path, right_path, pearson, mse, psnr, match_ratio, ncc,
		success, error, compared_at, left_modified_at, right_modified_at FROM comparisons`
	var args []interface{}
	if label != "" {
		query += " WHERE label = ?"
		args = append(args, label)
	}
	query += " ORDER BY compared_at DESC, id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparisons: %v", err)
	}
	defer rows.Close()

	var records []types.ComparisonRecord
	for rows.Next() {
		var (
			rec                                   types.ComparisonRecord
			pearson, mse, psnr, matchRatio, ncc   sql.NullFloat64
			errMsg, comparedAt, leftMod, rightMod sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Label, &rec.LeftPath, &rec.RightPath,
			&pearson, &mse, &psnr, &matchRatio, &ncc,
			&rec.Success, &errMsg, &comparedAt, &leftMod, &rightMod); err != nil {
			return nil, fmt.Errorf("failed to read comparison row: %v", err)
		}

		rec.Score = make(types.SimilarityScore)
		for m, v := range map[types.Metric]sql.NullFloat64{
			types.MetricPearson:    pearson,
			types.MetricMSE:        mse,
			types.MetricPSNR:       psnr,
			types.MetricMatchRatio: matchRatio,
			types.MetricNCC:        ncc,
		} {
			if v.Valid {
				rec.Score[m] = v.Float64
			}
		}
		rec.Error = errMsg.String
		rec.ComparedAt = comparedAt.String
		rec.LeftModifiedAt = leftMod.String
		rec.RightModifiedAt = rightMod.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunStats summarizes the stored comparisons of a label
type RunStats struct {
	TotalPairs     int
	Failed         int
	Identical      int
	MeanPearson    sql.NullFloat64
	MeanMSE        sql.NullFloat64
	MeanMatchRatio sql.NullFloat64
	MeanNCC        sql.NullFloat64
}

// GetRunStats retrieves statistics about stored comparisons. Identical counts
// pairs whose PSNR saturated.
func GetRunStats(db *sql.DB, label string) (*RunStats, error) {
	var stats RunStats

	where := ""
	var args []interface{}
	if label != "" {
		where = " WHERE label = ?"
		args = append(args, label)
	}

	err := db.QueryRow(`SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN psnr > 1e308 THEN 1 ELSE 0 END), 0)
		FROM comparisons`+where, args...).Scan(&stats.TotalPairs, &stats.Failed, &stats.Identical)
	if err != nil {
		return nil, fmt.Errorf("failed to count comparisons: %v", err)
	}

	successWhere := " WHERE success = 1"
	if label != "" {
		successWhere += " AND label = ?"
	}
	err = db.QueryRow(`SELECT AVG(pearson), AVG(mse), AVG(match_ratio), AVG(ncc)
		FROM comparisons`+successWhere, args...).
		Scan(&stats.MeanPearson, &stats.MeanMSE, &stats.MeanMatchRatio, &stats.MeanNCC)
	if err != nil {
		return nil, fmt.Errorf("failed to average scores: %v", err)
	}

	return &stats, nil
}
