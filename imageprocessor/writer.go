package imageprocessor

import (
	"math"
	"os"
	"path/filepath"

	"rastersim/logging"
	"rastersim/types"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
)

// WriteGeoTIFF writes band 0 of r as a single-band float32 GeoTIFF carrying
// r's geotransform and projection unchanged. NaN samples are flagged as nodata.
func WriteGeoTIFF(path string, r types.Raster) error {
	if r.Empty() {
		return types.Degenerate("cannot write empty raster")
	}
	band0 := r
	if r.Channels > 1 {
		var err error
		if band0, err = r.Band(0); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "create output directory for %s", path)
		}
	}
	ensureDrivers()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, band0.Cols, band0.Rows,
		godal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	if err := ds.SetGeoTransform(band0.GeoTransform); err != nil {
		ds.Close()
		return errors.Wrapf(err, "set geotransform on %s", path)
	}
	if band0.Projection != "" {
		if err := ds.SetProjection(band0.Projection); err != nil {
			ds.Close()
			return errors.Wrapf(err, "set projection on %s", path)
		}
	}

	buf := make([]float32, len(band0.Data))
	hasNaN := false
	for i, v := range band0.Data {
		buf[i] = float32(v)
		if math.IsNaN(v) {
			hasNaN = true
		}
	}

	band := ds.Bands()[0]
	if hasNaN {
		if err := band.SetNoData(math.NaN()); err != nil {
			logging.LogWarning("Could not flag NaN as nodata on %s: %v", path, err)
		}
	}
	if err := band.Write(0, 0, buf, band0.Cols, band0.Rows); err != nil {
		ds.Close()
		return errors.Wrapf(err, "write band of %s", path)
	}

	if err := ds.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	logging.DebugLog("Wrote %s (%s)", path, band0.Shape())
	return nil
}
