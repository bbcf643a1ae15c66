package similarity

import (
	"image"
	"math"

	"rastersim/imageprocessor"
	"rastersim/types"

	"gocv.io/x/gocv"
)

// NCCOptions controls template matching. Windows are square, cut from the
// centre of the second raster and slid across the first.
type NCCOptions struct {
	Threshold  float64
	MinWindow  int
	MaxWindow  int
	WindowStep int
	// FirstWindowOnly stops after MinWindow even when nothing qualified
	FirstWindowOnly bool
}

// DefaultNCCOptions sweeps 5..50 pixel windows with a 0.8 threshold
func DefaultNCCOptions() NCCOptions {
	return NCCOptions{
		Threshold:  0.8,
		MinWindow:  5,
		MaxWindow:  50,
		WindowStep: 5,
	}
}

// NCC returns the best normalized cross-correlation at or above the
// threshold, taken at the first window size where any position qualifies.
// It returns 0 when no size qualifies. A MinWindow of 0 uses the whole of b
// as the template. NaN samples are matched as 0.
func NCC(a, b types.Raster, opts NCCOptions) (float64, error) {
	if !a.Shape().Equal(b.Shape()) {
		return 0, &types.ShapeMismatchError{Want: a.Shape(), Got: b.Shape()}
	}
	if a.Channels != 1 {
		return 0, types.Degenerate("template matching needs single-band rasters, got %d bands", a.Channels)
	}

	img, err := imageprocessor.ToFloatMat(zeroNaN(a))
	if err != nil {
		return 0, err
	}
	defer img.Close()
	templ, err := imageprocessor.ToFloatMat(zeroNaN(b))
	if err != nil {
		return 0, err
	}
	defer templ.Close()

	if opts.MinWindow <= 0 {
		best, _ := matchWindow(img, templ, opts.Threshold)
		return best, nil
	}

	step := opts.WindowStep
	if step <= 0 {
		step = 1
	}
	for w := opts.MinWindow; w <= opts.MaxWindow; w += step {
		if w > b.Rows || w > b.Cols {
			break
		}
		window := centreWindow(templ, w)
		best, ok := matchWindow(img, window, opts.Threshold)
		window.Close()
		if ok {
			return best, nil
		}
		if opts.FirstWindowOnly {
			break
		}
	}
	return 0, nil
}

func centreWindow(m gocv.Mat, w int) gocv.Mat {
	x0 := (m.Cols() - w) / 2
	y0 := (m.Rows() - w) / 2
	region := m.Region(image.Rect(x0, y0, x0+w, y0+w))
	defer region.Close()
	return region.Clone()
}

// matchWindow scores every placement of templ over img and returns the
// highest score meeting threshold.
func matchWindow(img, templ gocv.Mat, threshold float64) (float64, bool) {
	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(img, templ, &result, gocv.TmCcorrNormed, mask)

	best, found := 0.0, false
	for y := 0; y < result.Rows(); y++ {
		for x := 0; x < result.Cols(); x++ {
			v := float64(result.GetFloatAt(y, x))
			if math.IsNaN(v) || v < threshold {
				continue
			}
			if !found || v > best {
				best, found = v, true
			}
		}
	}
	return best, found
}

func zeroNaN(r types.Raster) types.Raster {
	out := r.Clone()
	for i, v := range out.Data {
		if math.IsNaN(v) {
			out.Data[i] = 0
		}
	}
	return out
}
