// Package imageprocessor loads and writes rasters and wraps the OpenCV
// primitives the comparison pipeline delegates to: resizing, smoothing,
// morphology and color-space conversion.
package imageprocessor

import "rastersim/types"

// RasterLoader is the interface that all raster loaders must implement
type RasterLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// Load reads up to bands bands from the file; 0 reads them all
	Load(path string, bands int) (types.Raster, error)
}
