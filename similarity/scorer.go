package similarity

import (
	"context"
	"fmt"

	"rastersim/features"
	"rastersim/imageprocessor"
	"rastersim/logging"
	"rastersim/segment"
	"rastersim/types"

	"github.com/rs/zerolog"
)

// RasterSource loads band data for CompareFiles
type RasterSource interface {
	Load(path string, bands int) (types.Raster, error)
}

// Options configures a Scorer
type Options struct {
	// Bands read from each input; 0 reads every band
	Bands    int
	Detector string
	// Segment runs k-means before feature extraction
	Segment bool
	KMeans  segment.Options
	NCC     NCCOptions
	// Peak is the PSNR reference level for byte-normalized rasters
	Peak float64
}

// DefaultOptions compares the first band of each input with SIFT features
// and no segmentation.
func DefaultOptions() Options {
	return Options{
		Bands:    1,
		Detector: features.DetectorSIFT,
		KMeans:   segment.DefaultOptions(),
		NCC:      DefaultNCCOptions(),
		Peak:     ByteRange,
	}
}

// Scorer runs the comparison pipeline for one pair at a time. It holds a
// detector and is not safe for concurrent use.
type Scorer struct {
	opts      Options
	source    RasterSource
	extractor features.Extractor
	log       zerolog.Logger
}

// NewScorer builds a scorer. source may be nil when only Compare is used.
func NewScorer(opts Options, source RasterSource) (*Scorer, error) {
	if opts.Peak <= 0 {
		opts.Peak = ByteRange
	}
	extractor, err := features.NewExtractor(opts.Detector)
	if err != nil {
		return nil, err
	}
	return &Scorer{
		opts:      opts,
		source:    source,
		extractor: extractor,
		log:       logging.Component("scorer"),
	}, nil
}

// Close releases the detector
func (s *Scorer) Close() error {
	return s.extractor.Close()
}

// CompareFiles loads both rasters and compares them
func (s *Scorer) CompareFiles(ctx context.Context, pathA, pathB string, metrics []types.Metric) (types.SimilarityScore, error) {
	if s.source == nil {
		return nil, &types.StageError{Stage: types.StageLoad, Err: fmt.Errorf("scorer has no raster source")}
	}
	a, err := s.source.Load(pathA, s.opts.Bands)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageLoad, Err: err}
	}
	b, err := s.source.Load(pathB, s.opts.Bands)
	if err != nil {
		return nil, &types.StageError{Stage: types.StageLoad, Err: err}
	}
	return s.Compare(ctx, a, b, metrics)
}

// Compare computes the requested metrics for a and b, or every metric when
// none is named. b is resampled onto a's grid. The first failing stage
// aborts the comparison; no partial score is returned.
func (s *Scorer) Compare(ctx context.Context, a, b types.Raster, metrics []types.Metric) (types.SimilarityScore, error) {
	if len(metrics) == 0 {
		metrics = types.AllMetrics()
	}
	want := make(map[types.Metric]bool)
	for _, m := range metrics {
		pm, err := types.ParseMetric(string(m))
		if err != nil {
			return nil, &types.StageError{Stage: types.StageScore, Err: err}
		}
		want[pm] = true
	}
	needByte := want[types.MetricMSE] || want[types.MetricPSNR] || want[types.MetricMatchRatio]
	needUnit := want[types.MetricNCC]

	p := &pipeline{ctx: ctx}

	var byteA, byteB, unitA, unitB types.Raster
	if needByte {
		byteA = p.normalize(a, ByteRange)
		byteB = p.normalize(b, ByteRange)
	}
	if needUnit {
		unitA = p.normalize(a, UnitRange)
		unitB = p.normalize(b, UnitRange)
	}

	var rawA, rawB types.Raster
	if want[types.MetricPearson] {
		rawA, rawB = p.resample(a, b)
	}
	if needByte {
		byteA, byteB = p.resample(byteA, byteB)
	}
	if needUnit {
		unitA, unitB = p.resample(unitA, unitB)
	}
	if p.err != nil {
		return nil, p.err
	}

	score := make(types.SimilarityScore)
	if want[types.MetricPearson] {
		r, err := Pearson(rawA, rawB)
		if err != nil {
			return nil, &types.StageError{Stage: types.StageScore, Err: err}
		}
		score[types.MetricPearson] = r
	}
	if want[types.MetricMSE] || want[types.MetricPSNR] {
		mse, err := MSE(byteA, byteB)
		if err != nil {
			return nil, &types.StageError{Stage: types.StageScore, Err: err}
		}
		if want[types.MetricMSE] {
			score[types.MetricMSE] = mse
		}
		if want[types.MetricPSNR] {
			score[types.MetricPSNR] = PSNR(mse, s.opts.Peak)
		}
	}
	if want[types.MetricMatchRatio] {
		res, err := s.matchFeatures(ctx, byteA, byteB)
		if err != nil {
			return nil, err
		}
		score[types.MetricMatchRatio] = MatchRatio(res)
	}
	if want[types.MetricNCC] {
		if err := ctx.Err(); err != nil {
			return nil, &types.StageError{Stage: types.StageScore, Err: err}
		}
		v, err := s.ncc(unitA, unitB)
		if err != nil {
			return nil, &types.StageError{Stage: types.StageScore, Err: err}
		}
		score[types.MetricNCC] = v
	}

	ev := s.log.Debug().Str("a", a.Source).Str("b", b.Source)
	for _, m := range score.Metrics() {
		ev = ev.Str(string(m), types.FormatValue(score[m]))
	}
	ev.Msg("comparison scored")
	return score, nil
}

// matchFeatures runs segment, denoise, extract and match on byte-scaled rasters
func (s *Scorer) matchFeatures(ctx context.Context, a, b types.Raster) (types.MatchResult, error) {
	setA, err := s.keypoints(ctx, a)
	if err != nil {
		return types.MatchResult{}, err
	}
	setB, err := s.keypoints(ctx, b)
	if err != nil {
		return types.MatchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return types.MatchResult{}, &types.StageError{Stage: types.StageMatch, Err: err}
	}
	res, err := features.Match(setA, setB)
	if err != nil {
		return types.MatchResult{}, &types.StageError{Stage: types.StageMatch, Err: err}
	}
	s.log.Debug().
		Int("good", res.Good).
		Int("keypoints_a", res.KeypointsA).
		Int("keypoints_b", res.KeypointsB).
		Msg("features matched")
	return res, nil
}

func (s *Scorer) keypoints(ctx context.Context, r types.Raster) (types.KeypointSet, error) {
	if err := ctx.Err(); err != nil {
		return types.KeypointSet{}, &types.StageError{Stage: types.StageSegment, Err: err}
	}
	r, err := colorBands(r)
	if err != nil {
		return types.KeypointSet{}, &types.StageError{Stage: types.StageSegment, Err: err}
	}
	if r.Rows < features.MinImageSide || r.Cols < features.MinImageSide {
		s.log.Debug().Str("shape", r.Shape().String()).Msg("raster too small for features")
		return types.KeypointSet{}, nil
	}
	if s.opts.Segment {
		r, _, err = segment.Quantize(r, s.opts.KMeans)
		if err != nil {
			return types.KeypointSet{}, &types.StageError{Stage: types.StageSegment, Err: err}
		}
	}

	img, err := imageprocessor.ToByteMat(r)
	if err != nil {
		return types.KeypointSet{}, &types.StageError{Stage: types.StageDenoise, Err: err}
	}
	defer img.Close()
	value := imageprocessor.ValueChannel(img)
	defer value.Close()

	clean, err := imageprocessor.Denoise(value)
	if err != nil {
		return types.KeypointSet{}, &types.StageError{Stage: types.StageDenoise, Err: err}
	}
	defer clean.Close()

	set, err := s.extractor.Extract(clean)
	if err != nil {
		return types.KeypointSet{}, &types.StageError{Stage: types.StageExtract, Err: err}
	}
	return set, nil
}

// colorBands keeps rasters with one or three bands and reduces any other
// band count to its first band, the only layouts the HSV step accepts.
func colorBands(r types.Raster) (types.Raster, error) {
	if r.Channels == 1 || r.Channels == 3 {
		return r, nil
	}
	return r.Band(0)
}

// ncc matches the first band of multi-band rasters
func (s *Scorer) ncc(a, b types.Raster) (float64, error) {
	if a.Channels > 1 {
		var err error
		if a, err = a.Band(0); err != nil {
			return 0, err
		}
		if b, err = b.Band(0); err != nil {
			return 0, err
		}
	}
	return NCC(a, b, s.opts.NCC)
}

// pipeline threads the first error through a run of stage calls
type pipeline struct {
	ctx context.Context
	err error
}

func (p *pipeline) normalize(r types.Raster, upper float64) types.Raster {
	if p.err != nil {
		return types.Raster{}
	}
	if err := p.ctx.Err(); err != nil {
		p.err = &types.StageError{Stage: types.StageNormalize, Err: err}
		return types.Raster{}
	}
	out, err := Normalize(r, upper)
	if err != nil {
		p.err = &types.StageError{Stage: types.StageNormalize, Err: err}
	}
	return out
}

func (p *pipeline) resample(a, b types.Raster) (types.Raster, types.Raster) {
	if p.err != nil {
		return types.Raster{}, types.Raster{}
	}
	if err := p.ctx.Err(); err != nil {
		p.err = &types.StageError{Stage: types.StageResample, Err: err}
		return types.Raster{}, types.Raster{}
	}
	ra, rb, err := imageprocessor.Resample(a, b)
	if err != nil {
		p.err = &types.StageError{Stage: types.StageResample, Err: err}
	}
	return ra, rb
}
