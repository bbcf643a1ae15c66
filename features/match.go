package features

import (
	"fmt"

	"rastersim/types"

	"gocv.io/x/gocv"
)

// RatioThreshold is Lowe's ratio: a match is good when its distance is
// strictly below this fraction of the second-best distance.
const RatioThreshold = 0.75

// Match brute-force matches a against b with two nearest neighbours per
// query descriptor and counts the matches passing the ratio test.
func Match(a, b types.KeypointSet) (types.MatchResult, error) {
	res := types.MatchResult{KeypointsA: a.Len(), KeypointsB: b.Len()}
	if a.Empty() || b.Empty() {
		return res, nil
	}
	if a.Norm != b.Norm {
		return res, fmt.Errorf("cannot match %s descriptors against %s descriptors", normName(a.Norm), normName(b.Norm))
	}
	if len(a.Descriptors[0]) != len(b.Descriptors[0]) {
		return res, fmt.Errorf("descriptor length %d does not match %d", len(a.Descriptors[0]), len(b.Descriptors[0]))
	}

	query := descriptorMat(a)
	defer query.Close()
	train := descriptorMat(b)
	defer train.Close()

	matcher := gocv.NewBFMatcherWithParams(cvNorm(a.Norm), false)
	defer matcher.Close()

	res.Good = CountGoodMatches(matcher.KnnMatch(query, train, 2), RatioThreshold)
	return res, nil
}

// CountGoodMatches applies the ratio test to k-nearest-neighbour results.
// A query with fewer than two neighbours cannot be judged and is not counted.
func CountGoodMatches(knn [][]gocv.DMatch, ratio float64) int {
	good := 0
	for _, pair := range knn {
		if len(pair) < 2 {
			continue
		}
		if pair[0].Distance < ratio*pair[1].Distance {
			good++
		}
	}
	return good
}

func cvNorm(n types.DescriptorNorm) gocv.NormType {
	if n == types.NormHamming {
		return gocv.NormHamming
	}
	return gocv.NormL2
}

func normName(n types.DescriptorNorm) string {
	if n == types.NormHamming {
		return "binary"
	}
	return "float"
}
