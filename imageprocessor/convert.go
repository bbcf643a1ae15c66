package imageprocessor

import (
	"fmt"
	"math"

	"rastersim/types"

	"gocv.io/x/gocv"
)

// RasterToMat copies a raster into a CV_64F Mat with one channel per band.
// The caller owns the returned Mat.
func RasterToMat(r types.Raster) (gocv.Mat, error) {
	if r.Empty() {
		return gocv.NewMat(), types.Degenerate("empty raster")
	}
	if len(r.Data) != r.Shape().Len() {
		return gocv.NewMat(), fmt.Errorf("raster %s has %d samples", r.Shape(), len(r.Data))
	}

	planes := make([]gocv.Mat, r.Channels)
	for c := range planes {
		plane := gocv.NewMatWithSize(r.Rows, r.Cols, gocv.MatTypeCV64FC1)
		for y := 0; y < r.Rows; y++ {
			for x := 0; x < r.Cols; x++ {
				plane.SetDoubleAt(y, x, r.At(y, x, c))
			}
		}
		planes[c] = plane
	}
	if r.Channels == 1 {
		return planes[0], nil
	}

	merged := gocv.NewMat()
	gocv.Merge(planes, &merged)
	for _, p := range planes {
		p.Close()
	}
	return merged, nil
}

// MatToRaster copies a Mat of any depth into a raster carrying the
// georeferencing of template.
func MatToRaster(m gocv.Mat, template types.Raster) (types.Raster, error) {
	if m.Empty() {
		return types.Raster{}, types.Degenerate("empty image")
	}

	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV64F)

	channels := f.Channels()
	out := template
	out.Rows, out.Cols, out.Channels = f.Rows(), f.Cols(), channels
	out.Data = make([]float64, out.Rows*out.Cols*channels)

	planes := []gocv.Mat{f}
	if channels > 1 {
		planes = gocv.Split(f)
		defer func() {
			for _, p := range planes {
				p.Close()
			}
		}()
	}
	for c, plane := range planes {
		for y := 0; y < out.Rows; y++ {
			for x := 0; x < out.Cols; x++ {
				out.Set(y, x, c, plane.GetDoubleAt(y, x))
			}
		}
	}
	return out, nil
}

// ToByteMat converts a raster already scaled to [0,255] into an 8-bit Mat.
// NaN samples become 0; the feature path has no use for them.
func ToByteMat(r types.Raster) (gocv.Mat, error) {
	clean := r.Clone()
	for i, v := range clean.Data {
		if math.IsNaN(v) {
			clean.Data[i] = 0
		}
	}
	f, err := RasterToMat(clean)
	if err != nil {
		return f, err
	}
	defer f.Close()

	out := gocv.NewMat()
	f.ConvertTo(&out, gocv.MatTypeCV8U)
	return out, nil
}

// ToFloatMat converts a raster into a CV_32F Mat, the depth template matching expects
func ToFloatMat(r types.Raster) (gocv.Mat, error) {
	f, err := RasterToMat(r)
	if err != nil {
		return f, err
	}
	defer f.Close()

	out := gocv.NewMat()
	f.ConvertTo(&out, gocv.MatTypeCV32F)
	return out, nil
}
