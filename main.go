package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"runtime"
	"sort"
	"time"

	"rastersim/database"
	"rastersim/features"
	"rastersim/imageprocessor"
	"rastersim/logging"
	"rastersim/scanner"
	"rastersim/signalhandler"
	"rastersim/similarity"
	"rastersim/types"
	"rastersim/utils"

	"github.com/spf13/cobra"
)

func main() {
	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	ctx, cancel := signalhandler.SetupHandler(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.CloseLogger()
		os.Exit(1)
	}
	logging.CloseLogger()
}

func newRootCmd() *cobra.Command {
	var (
		debugMode bool
		logPath   string
	)

	rootCmd := &cobra.Command{
		Use:   "rastersim",
		Short: "Score how similar two co-registered rasters are",
		Long: `rastersim compares raster pairs (for example a drone NDWI raster and a
satellite NDWI raster over the same ground) with Pearson correlation,
MSE/PSNR, keypoint match ratio and normalized cross-correlation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.SetupLogger(logPath, debugMode); err != nil {
				return err
			}
			if debugMode && logPath != "" {
				fmt.Printf("Debug mode enabled. Logging to: %s\n", logPath)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logPath, "logfile", "", "also write JSON logs to this file")

	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newBatchCmd(&debugMode))
	rootCmd.AddCommand(newStretchCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

// scoringFlags binds the comparison options shared by compare and batch
type scoringFlags struct {
	metrics         string
	detector        string
	segment         bool
	clusters        int
	seed            uint64
	bands           int
	nccThreshold    string
	firstWindowOnly bool
}

func (f *scoringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.metrics, "metrics", "", "comma-separated metrics (default: all of "+utils.MetricNames(types.AllMetrics())+")")
	cmd.Flags().StringVar(&f.detector, "detector", features.DetectorSIFT, "keypoint detector: sift or orb")
	cmd.Flags().BoolVar(&f.segment, "segment", false, "k-means segment rasters before feature extraction")
	cmd.Flags().IntVar(&f.clusters, "clusters", 8, "k-means cluster count")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "k-means initialization seed")
	cmd.Flags().IntVar(&f.bands, "bands", 1, "bands to read from each raster (0 for all)")
	cmd.Flags().StringVar(&f.nccThreshold, "ncc-threshold", "0.8", "template matching correlation threshold (0.0-1.0)")
	cmd.Flags().BoolVar(&f.firstWindowOnly, "first-window-only", false, "evaluate only the smallest template window")
}

func (f *scoringFlags) options() (similarity.Options, []types.Metric, error) {
	metrics, err := utils.ParseMetrics(f.metrics)
	if err != nil {
		return similarity.Options{}, nil, err
	}

	opts := similarity.DefaultOptions()
	opts.Detector = f.detector
	opts.Segment = f.segment
	opts.Bands = f.bands
	opts.KMeans.K = f.clusters
	opts.KMeans.Seed = f.seed
	opts.NCC.FirstWindowOnly = f.firstWindowOnly

	threshold, err := utils.ParseThreshold(f.nccThreshold)
	if err != nil {
		logging.LogWarning("%v", err)
	}
	opts.NCC.Threshold = threshold

	return opts, metrics, nil
}

func newCompareCmd() *cobra.Command {
	var (
		flags  scoringFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "compare <raster_a> <raster_b>",
		Short: "Compare two rasters",
		Long: `Compare two rasters and print the requested similarity scores. The second
raster is resampled onto the first raster's grid.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, metrics, err := flags.options()
			if err != nil {
				return err
			}
			return handleCompareCommand(cmd.Context(), args[0], args[1], opts, metrics, asJSON)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print scores as JSON")
	return cmd
}

func handleCompareCommand(ctx context.Context, pathA, pathB string, opts similarity.Options, metrics []types.Metric, asJSON bool) error {
	startTime := time.Now()

	scorer, err := similarity.NewScorer(opts, imageprocessor.NewLoaderRegistry())
	if err != nil {
		return err
	}
	defer scorer.Close()

	score, err := scorer.CompareFiles(ctx, pathA, pathB, metrics)
	if err != nil {
		return err
	}

	if asJSON {
		out := make(map[string]interface{}, len(score))
		for m, v := range score {
			// JSON has no infinity
			if math.IsInf(v, 0) || math.IsNaN(v) {
				out[string(m)] = types.FormatValue(v)
				continue
			}
			out[string(m)] = v
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("A: %s\nB: %s\n\n", pathA, pathB)
	for _, m := range score.Metrics() {
		fmt.Printf("  %-12s %s\n", m, types.FormatValue(score[m]))
	}
	fmt.Printf("\nTotal comparison time: %v\n", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func newBatchCmd(debugMode *bool) *cobra.Command {
	var (
		flags    scoringFlags
		manifest string
		leftDir  string
		rightDir string
		dbPath   string
		label    string
		force    bool
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compare many raster pairs and record the results",
		Long: `Compare the pairs listed in a YAML manifest, or the rasters of two directories
paired by file name, and store every outcome in the results ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, metrics, err := flags.options()
			if err != nil {
				return err
			}
			batchOptions := scanner.BatchOptions{
				ManifestPath: manifest,
				LeftDir:      leftDir,
				RightDir:     rightDir,
				Label:        label,
				ForceRewrite: force,
				DebugMode:    *debugMode,
				DbPath:       dbPath,
				MaxWorkers:   workers,
				Metrics:      metrics,
				Scoring:      opts,
			}
			return handleBatchCommand(cmd.Context(), batchOptions)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&manifest, "manifest", "", "YAML file listing left/right pairs")
	cmd.Flags().StringVar(&leftDir, "left-dir", "", "directory of primary rasters")
	cmd.Flags().StringVar(&rightDir, "right-dir", "", "directory of rasters resampled onto the primaries")
	cmd.Flags().StringVar(&dbPath, "db", utils.GetDefaultDatabasePath(), "results ledger path")
	cmd.Flags().StringVar(&label, "label", "", "run label stored with each result")
	cmd.Flags().BoolVar(&force, "force", false, "recompare pairs already in the ledger")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent comparisons (default: 3/4 of CPUs)")
	cmd.MarkFlagsMutuallyExclusive("manifest", "left-dir")
	cmd.MarkFlagsRequiredTogether("left-dir", "right-dir")
	return cmd
}

func handleBatchCommand(ctx context.Context, options scanner.BatchOptions) error {
	startTime := time.Now()

	pairs, err := scanner.CollectPairs(&options)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		fmt.Println("No raster pairs found.")
		return nil
	}

	// Initialize database with retry logic
	var db *sql.DB
	const maxRetries = 3
	for i := 0; i < maxRetries; i++ {
		db, err = database.InitDatabase(options.DbPath)
		if err == nil {
			break
		}
		if i == maxRetries-1 {
			return fmt.Errorf("error initializing database after %d attempts: %v", maxRetries, err)
		}
		logging.LogWarning("Error initializing database (attempt %d/%d): %v - retrying...", i+1, maxRetries, err)
		time.Sleep(time.Second * time.Duration(i+1))
	}
	defer db.Close()

	if err := scanner.RunBatch(ctx, db, pairs, options); err != nil {
		return fmt.Errorf("batch stopped: %v", err)
	}

	fmt.Printf("\nBatch completed successfully!\n")
	fmt.Printf("Total execution time: %v\n", time.Since(startTime))
	fmt.Printf("Database: %s\n", options.DbPath)

	stats, err := database.GetRunStats(db, options.Label)
	if err == nil && stats != nil {
		printRunStats(stats)
	}
	return nil
}

func newStretchCmd() *cobra.Command {
	var (
		upper float64
		band  int
	)

	cmd := &cobra.Command{
		Use:   "stretch <input> <output.tif>",
		Short: "Linearly stretch a raster band and write it as GeoTIFF",
		Long: `Rescale one band so its smallest valid value becomes 0 and its largest becomes
--upper, then write a float32 GeoTIFF with the input's georeferencing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleStretchCommand(args[0], args[1], upper, band)
		},
	}
	cmd.Flags().Float64Var(&upper, "upper", similarity.ByteRange, "upper bound of the stretched range")
	cmd.Flags().IntVar(&band, "band", 0, "zero-based band to stretch")
	return cmd
}

func handleStretchCommand(input, output string, upper float64, band int) error {
	r, err := imageprocessor.NewLoaderRegistry().Load(input, 0)
	if err != nil {
		return err
	}
	r, err = r.Band(band)
	if err != nil {
		return err
	}

	stretched, err := similarity.Normalize(r, upper)
	if err != nil {
		return &types.StageError{Stage: types.StageNormalize, Err: err}
	}
	if err := imageprocessor.WriteGeoTIFF(output, stretched); err != nil {
		return err
	}

	fmt.Printf("Stretched %s (%s) to [0, %g]: %s\n", input, r.Shape(), upper, output)
	return nil
}

func newStatsCmd() *cobra.Command {
	var (
		dbPath string
		label  string
		top    int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the results ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleStatsCommand(dbPath, label, top)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", utils.GetDefaultDatabasePath(), "results ledger path")
	cmd.Flags().StringVar(&label, "label", "", "only pairs stored under this label")
	cmd.Flags().IntVar(&top, "top", 5, "list the most correlated pairs")
	return cmd
}

func handleStatsCommand(dbPath, label string, top int) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("database does not exist: %s. Run batch command first", dbPath)
	}

	db, err := database.OpenDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %v", err)
	}
	defer db.Close()

	stats, err := database.GetRunStats(db, label)
	if err != nil {
		return err
	}
	if label != "" {
		fmt.Printf("Label: %s\n", label)
	}
	printRunStats(stats)

	if top <= 0 {
		return nil
	}
	records, err := database.QueryComparisons(db, label)
	if err != nil {
		return err
	}
	ranked := records[:0]
	for _, r := range records {
		if _, ok := r.Score[types.MetricPearson]; ok && r.Success {
			ranked = append(ranked, r)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score[types.MetricPearson] > ranked[j].Score[types.MetricPearson]
	})

	fmt.Println("\nTop Pairs:")
	if len(ranked) == 0 {
		fmt.Println("No correlated pairs found.")
		return nil
	}
	for i := 0; i < top && i < len(ranked); i++ {
		r := ranked[i]
		fmt.Printf("%d. %s\n   %s\n", i+1, r.LeftPath, r.RightPath)
		for _, m := range r.Score.Metrics() {
			fmt.Printf("   %-12s %s\n", m, types.FormatValue(r.Score[m]))
		}
	}
	return nil
}

func printRunStats(stats *database.RunStats) {
	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Total pairs: %d\n", stats.TotalPairs)
	fmt.Printf("- Failed pairs: %d\n", stats.Failed)
	fmt.Printf("- Identical pairs: %d\n", stats.Identical)
	for _, row := range []struct {
		name string
		v    sql.NullFloat64
	}{
		{"pearson", stats.MeanPearson},
		{"mse", stats.MeanMSE},
		{"match_ratio", stats.MeanMatchRatio},
		{"ncc", stats.MeanNCC},
	} {
		if row.v.Valid {
			fmt.Printf("- Mean %s: %s\n", row.name, types.FormatValue(row.v.Float64))
		}
	}
}
