package imageprocessor

import (
	"rastersim/types"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFileLoader reads plain image files through OpenCV. These carry no
// georeferencing, so the raster gets an identity transform.
type ImageFileLoader struct {
	BaseRasterLoader
}

// NewImageFileLoader creates a loader for PNG, JPEG, BMP and PNM files
func NewImageFileLoader() *ImageFileLoader {
	return &ImageFileLoader{
		BaseRasterLoader: BaseRasterLoader{
			SupportedFormats: []FormatType{FormatPNG, FormatJPEG, FormatBMP, FormatPortable},
		},
	}
}

// Load reads the image keeping its bit depth. A color image is converted to
// gray when one band is requested and kept as BGR otherwise; alpha is dropped.
func (l *ImageFileLoader) Load(path string, bands int) (types.Raster, error) {
	if err := checkReadable(path); err != nil {
		return types.Raster{}, err
	}

	img := gocv.IMRead(path, gocv.IMReadAnyDepth|gocv.IMReadAnyColor)
	if img.Empty() {
		img.Close()
		return types.Raster{}, &types.MissingInputError{Path: path, Err: errors.New("failed to decode image")}
	}
	defer img.Close()

	if img.Channels() == 4 {
		bgr := gocv.NewMat()
		defer bgr.Close()
		gocv.CvtColor(img, &bgr, gocv.ColorBGRAToBGR)
		bgr.CopyTo(&img)
	}

	if img.Channels() > 1 && bands == 1 {
		gray := gocv.NewMat()
		defer gray.Close()
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
		gray.CopyTo(&img)
	}

	template := types.Raster{GeoTransform: types.IdentityGeoTransform(), Source: path}
	r, err := MatToRaster(img, template)
	if err != nil {
		return types.Raster{}, errors.Wrapf(err, "convert %s", path)
	}
	return r, nil
}
