// Package features detects keypoints on prepared 8-bit images and matches
// their descriptors between two images.
package features

import (
	"fmt"
	"strings"

	"rastersim/types"

	"gocv.io/x/gocv"
)

// Extractor detects keypoints and computes one descriptor per keypoint
type Extractor interface {
	Name() string
	Extract(img gocv.Mat) (types.KeypointSet, error)
	Close() error
}

const (
	DetectorSIFT = "sift"
	DetectorORB  = "orb"
)

// MinImageSide is the smallest width or height handed to a detector.
// Smaller images yield an empty KeypointSet.
const MinImageSide = 32

// NewExtractor returns the detector registered under name
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DetectorSIFT, "":
		return NewSIFTExtractor(), nil
	case DetectorORB:
		return NewORBExtractor(), nil
	}
	return nil, fmt.Errorf("unknown detector %q", name)
}

// SIFTExtractor uses scale-invariant keypoints with float descriptors
type SIFTExtractor struct {
	sift gocv.SIFT
}

func NewSIFTExtractor() *SIFTExtractor {
	return &SIFTExtractor{sift: gocv.NewSIFT()}
}

func (e *SIFTExtractor) Name() string { return DetectorSIFT }

func (e *SIFTExtractor) Extract(img gocv.Mat) (types.KeypointSet, error) {
	if err := checkInput(img); err != nil {
		return types.KeypointSet{}, err
	}
	if tooSmall(img) {
		return types.KeypointSet{Norm: types.NormL2}, nil
	}
	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := e.sift.DetectAndCompute(img, mask)
	defer desc.Close()
	return toKeypointSet(kps, desc, types.NormL2), nil
}

func (e *SIFTExtractor) Close() error {
	return e.sift.Close()
}

// ORBExtractor uses oriented FAST keypoints with binary descriptors
type ORBExtractor struct {
	orb gocv.ORB
}

func NewORBExtractor() *ORBExtractor {
	return &ORBExtractor{orb: gocv.NewORB()}
}

func (e *ORBExtractor) Name() string { return DetectorORB }

func (e *ORBExtractor) Extract(img gocv.Mat) (types.KeypointSet, error) {
	if err := checkInput(img); err != nil {
		return types.KeypointSet{}, err
	}
	if tooSmall(img) {
		return types.KeypointSet{Norm: types.NormHamming}, nil
	}
	mask := gocv.NewMat()
	defer mask.Close()

	kps, desc := e.orb.DetectAndCompute(img, mask)
	defer desc.Close()
	return toKeypointSet(kps, desc, types.NormHamming), nil
}

func (e *ORBExtractor) Close() error {
	return e.orb.Close()
}

func checkInput(img gocv.Mat) error {
	if img.Empty() {
		return types.Degenerate("cannot extract features from empty image")
	}
	if img.Type() != gocv.MatTypeCV8UC1 {
		return fmt.Errorf("feature extraction expects a single-channel 8-bit image, got %v", img.Type())
	}
	return nil
}

func tooSmall(img gocv.Mat) bool {
	return img.Rows() < MinImageSide || img.Cols() < MinImageSide
}

// toKeypointSet copies keypoints and descriptor rows out of OpenCV memory
func toKeypointSet(kps []gocv.KeyPoint, desc gocv.Mat, norm types.DescriptorNorm) types.KeypointSet {
	set := types.KeypointSet{Norm: norm}
	if len(kps) == 0 || desc.Empty() {
		return set
	}

	set.Keypoints = make([]types.Keypoint, len(kps))
	for i, kp := range kps {
		set.Keypoints[i] = types.Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}

	set.Descriptors = make([][]float32, desc.Rows())
	for r := range set.Descriptors {
		row := make([]float32, desc.Cols())
		for c := range row {
			if norm == types.NormHamming {
				row[c] = float32(desc.GetUCharAt(r, c))
			} else {
				row[c] = desc.GetFloatAt(r, c)
			}
		}
		set.Descriptors[r] = row
	}
	return set
}

// descriptorMat rebuilds the OpenCV descriptor matrix for a set
func descriptorMat(set types.KeypointSet) gocv.Mat {
	rows, cols := len(set.Descriptors), len(set.Descriptors[0])
	if set.Norm == types.NormHamming {
		m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
		for r, row := range set.Descriptors {
			for c, v := range row {
				m.SetUCharAt(r, c, uint8(v))
			}
		}
		return m
	}
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32FC1)
	for r, row := range set.Descriptors {
		for c, v := range row {
			m.SetFloatAt(r, c, v)
		}
	}
	return m
}
