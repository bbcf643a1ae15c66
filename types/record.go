package types

// ComparisonRecord is one stored outcome of comparing a raster pair.
// Times are RFC3339.
type ComparisonRecord struct {
	ID              int64
	Label           string
	LeftPath        string
	RightPath       string
	Score           SimilarityScore
	Success         bool
	Error           string
	ComparedAt      string
	LeftModifiedAt  string
	RightModifiedAt string
}
