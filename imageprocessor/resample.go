package imageprocessor

import (
	"image"

	"rastersim/logging"
	"rastersim/types"

	"gocv.io/x/gocv"
)

// Resample brings secondary onto primary's grid with linear interpolation.
// Both results are fresh copies; the primary keeps its grid.
func Resample(primary, secondary types.Raster) (types.Raster, types.Raster, error) {
	if primary.Shape().Equal(secondary.Shape()) {
		return primary.Clone(), secondary.Clone(), nil
	}
	if primary.Channels != secondary.Channels {
		return types.Raster{}, types.Raster{}, &types.ShapeMismatchError{Want: primary.Shape(), Got: secondary.Shape()}
	}

	resized, err := ResampleTo(secondary, primary.Shape())
	if err != nil {
		return types.Raster{}, types.Raster{}, err
	}
	return primary.Clone(), resized, nil
}

// ResampleTo resizes r to the target grid. The pixel size in the
// geotransform is scaled to keep the same ground footprint.
func ResampleTo(r types.Raster, target types.Shape) (types.Raster, error) {
	if target.Rows <= 0 || target.Cols <= 0 {
		return types.Raster{}, types.Degenerate("target shape %s has no pixels", target)
	}
	if target.Channels != r.Channels {
		return types.Raster{}, &types.ShapeMismatchError{Want: target, Got: r.Shape()}
	}
	if r.Shape().Equal(target) {
		return r.Clone(), nil
	}

	src, err := RasterToMat(r)
	if err != nil {
		return types.Raster{}, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Point{X: target.Cols, Y: target.Rows}, 0, 0, gocv.InterpolationLinear)

	out, err := MatToRaster(dst, r)
	if err != nil {
		return types.Raster{}, err
	}
	if !out.Shape().Equal(target) {
		return types.Raster{}, &types.ShapeMismatchError{Want: target, Got: out.Shape()}
	}

	sx := float64(r.Cols) / float64(target.Cols)
	sy := float64(r.Rows) / float64(target.Rows)
	out.GeoTransform[1] *= sx
	out.GeoTransform[4] *= sx
	out.GeoTransform[2] *= sy
	out.GeoTransform[5] *= sy

	logging.DebugLog("Resampled %s from %s to %s", r.Source, r.Shape(), target)
	return out, nil
}
