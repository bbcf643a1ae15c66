package features

import (
	"image"
	"image/color"
	"testing"

	"rastersim/types"

	"gocv.io/x/gocv"
)

func TestCountGoodMatches(t *testing.T) {
	knn := [][]gocv.DMatch{
		{{Distance: 10}, {Distance: 100}}, // good
		{{Distance: 75}, {Distance: 100}}, // exactly at the ratio, rejected
		{{Distance: 80}, {Distance: 90}},  // ambiguous
		{{Distance: 1}},                   // single neighbour
		{},
	}
	if got := CountGoodMatches(knn, RatioThreshold); got != 1 {
		t.Fatalf("expected 1 good match, got %d", got)
	}
}

func TestMatchEmptySets(t *testing.T) {
	a := types.KeypointSet{}
	b := types.KeypointSet{
		Keypoints:   []types.Keypoint{{X: 1, Y: 1}},
		Descriptors: [][]float32{{1, 2, 3}},
	}
	res, err := Match(a, b)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if res.Good != 0 || res.KeypointsA != 0 || res.KeypointsB != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMatchRejectsMixedNorms(t *testing.T) {
	a := types.KeypointSet{
		Keypoints:   []types.Keypoint{{}},
		Descriptors: [][]float32{{1}},
		Norm:        types.NormL2,
	}
	b := a
	b.Norm = types.NormHamming
	if _, err := Match(a, b); err == nil {
		t.Fatal("expected error matching float against binary descriptors")
	}
}

func TestNewExtractor(t *testing.T) {
	for _, name := range []string{"sift", "ORB", ""} {
		e, err := NewExtractor(name)
		if err != nil {
			t.Fatalf("NewExtractor(%q): %v", name, err)
		}
		e.Close()
	}
	if _, err := NewExtractor("surf"); err == nil {
		t.Fatal("expected error for unknown detector")
	}
}

func texturedImage(size int) gocv.Mat {
	img := gocv.NewMatWithSize(size, size, gocv.MatTypeCV8UC1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetUCharAt(y, x, uint8((x*37+y*91+(x*y)%53)%256))
		}
	}
	for i := 0; i < 12; i++ {
		c := image.Pt(20+(i*47)%(size-40), 20+(i*71)%(size-40))
		gocv.Circle(&img, c, 6+i%5, color.RGBA{255, 255, 255, 0}, -1)
		gocv.Rectangle(&img, image.Rect(c.X-4, c.Y-12, c.X+4, c.Y-6), color.RGBA{0, 0, 0, 0}, -1)
	}
	return img
}

func TestSelfMatchIsStrong(t *testing.T) {
	img := texturedImage(256)
	defer img.Close()

	for _, name := range []string{DetectorSIFT, DetectorORB} {
		e, err := NewExtractor(name)
		if err != nil {
			t.Fatalf("NewExtractor: %v", err)
		}
		set, err := e.Extract(img)
		e.Close()
		if err != nil {
			t.Fatalf("%s Extract: %v", name, err)
		}
		if set.Empty() {
			t.Fatalf("%s found no keypoints on a textured image", name)
		}

		res, err := Match(set, set)
		if err != nil {
			t.Fatalf("%s Match: %v", name, err)
		}
		if res.Good == 0 {
			t.Errorf("%s self-match produced no good matches out of %d keypoints", name, set.Len())
		}
	}
}

func TestExtractRejectsWrongDepth(t *testing.T) {
	img := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV32FC1)
	defer img.Close()

	e := NewSIFTExtractor()
	defer e.Close()
	if _, err := e.Extract(img); err == nil {
		t.Fatal("expected error for float input")
	}
}

func TestExtractUniformAndTinyImagesAreEmpty(t *testing.T) {
	uniform := gocv.NewMatWithSize(64, 64, gocv.MatTypeCV8UC1)
	defer uniform.Close()
	tiny := texturedImage(64)
	defer tiny.Close()
	small := tiny.Region(image.Rect(0, 0, 8, 8))
	defer small.Close()

	for _, name := range []string{DetectorSIFT, DetectorORB} {
		e, _ := NewExtractor(name)
		for _, img := range []gocv.Mat{uniform, small} {
			set, err := e.Extract(img)
			if err != nil {
				t.Fatalf("%s Extract: %v", name, err)
			}
			if !set.Empty() {
				t.Errorf("%s found %d keypoints on a featureless image", name, set.Len())
			}
		}
		e.Close()
	}
}
