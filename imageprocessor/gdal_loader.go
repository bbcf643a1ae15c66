package imageprocessor

import (
	"math"
	"sync"

	"rastersim/logging"
	"rastersim/types"

	"github.com/airbusgeo/godal"
	"github.com/pkg/errors"
)

var registerDrivers sync.Once

func ensureDrivers() {
	registerDrivers.Do(func() {
		godal.RegisterAll()
		logging.DebugLog("GDAL drivers registered")
	})
}

// GDALLoader reads georeferenced rasters through GDAL. Nodata samples are
// returned as NaN so they are filtered by the validity mask downstream.
type GDALLoader struct {
	BaseRasterLoader
}

// NewGDALLoader creates a loader for every GDAL-backed format
func NewGDALLoader() *GDALLoader {
	return &GDALLoader{
		BaseRasterLoader: BaseRasterLoader{
			SupportedFormats: []FormatType{
				FormatGeoTIFF, FormatERDAS, FormatVRT, FormatENVI, FormatJP2, FormatNetCDF,
			},
		},
	}
}

// Load reads the first bands bands of the dataset as float64 samples, or
// every band when bands is 0
func (l *GDALLoader) Load(path string, bands int) (types.Raster, error) {
	if err := checkReadable(path); err != nil {
		return types.Raster{}, err
	}
	ensureDrivers()

	ds, err := godal.Open(path)
	if err != nil {
		return types.Raster{}, &types.MissingInputError{Path: path, Err: err}
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands == 0 || st.SizeX == 0 || st.SizeY == 0 {
		return types.Raster{}, &types.MissingInputError{Path: path, Err: errors.New("dataset has no raster bands")}
	}
	if bands < 1 || bands > st.NBands {
		bands = st.NBands
	}

	r := types.NewRaster(st.SizeY, st.SizeX, bands)
	r.Source = path
	r.Projection = ds.Projection()
	if gt, err := ds.GeoTransform(); err == nil {
		r.GeoTransform = gt
	} else {
		logging.DebugLog("No geotransform for %s, using identity: %v", path, err)
	}

	buf := make([]float64, st.SizeX*st.SizeY)
	for b, band := range ds.Bands()[:bands] {
		if err := band.Read(0, 0, buf, st.SizeX, st.SizeY); err != nil {
			return types.Raster{}, errors.Wrapf(err, "read band %d of %s", b+1, path)
		}
		nodata, hasNoData := band.NoData()
		for i, v := range buf {
			if hasNoData && (v == nodata || (math.IsNaN(nodata) && math.IsNaN(v))) {
				v = math.NaN()
			}
			r.Data[i*bands+b] = v
		}
	}

	logging.DebugLog("Loaded %s: %s, %d NaN samples", path, r.Shape(), r.NaNCount())
	return r, nil
}
