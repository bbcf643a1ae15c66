package imageprocessor

import (
	"errors"
	"math"
	"path/filepath"
	"sort"
	"testing"

	"rastersim/types"

	"gocv.io/x/gocv"
)

func TestFormats(t *testing.T) {
	cases := map[string]FormatType{
		"scene.TIF":    FormatGeoTIFF,
		"scene.img":    FormatERDAS,
		"mosaic.vrt":   FormatVRT,
		"ndwi.png":     FormatPNG,
		"notes.txt":    FormatUnknown,
		"no_extension": FormatUnknown,
	}
	for path, want := range cases {
		if got := GetFileFormat(path); got != want {
			t.Errorf("GetFileFormat(%q) = %q, want %q", path, got, want)
		}
	}

	if !IsGeoFormat(FormatERDAS) || IsGeoFormat(FormatJPEG) {
		t.Error("IsGeoFormat misclassifies formats")
	}
	if IsRasterFile("readme.md") || !IsRasterFile("a.tiff") {
		t.Error("IsRasterFile misclassifies files")
	}

	exts := ExtensionsFor(FormatGeoTIFF)
	sort.Strings(exts)
	if len(exts) != 3 || exts[0] != ".gtif" {
		t.Errorf("ExtensionsFor(gtiff) = %v", exts)
	}
}

func TestRegistryPicksLoader(t *testing.T) {
	registry := NewLoaderRegistry()

	if _, ok := registry.GetLoader("a.tif").(*GDALLoader); !ok {
		t.Error("GeoTIFF should go through GDAL")
	}
	if _, ok := registry.GetLoader("a.png").(*ImageFileLoader); !ok {
		t.Error("PNG should go through the image file loader")
	}
	if _, ok := registry.GetLoader("a.nc4").(*GDALLoader); !ok {
		t.Error("unknown extensions should fall back to GDAL")
	}
	if registry.CanLoadFile("a.nc4") {
		t.Error("fallback extensions are not registered")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoaderRegistry().Load(filepath.Join(t.TempDir(), "absent.tif"), 1)
	if !errors.Is(err, types.ErrMissingInput) {
		t.Fatalf("expected missing input, got %v", err)
	}
}

func TestGeoTIFFRoundTrip(t *testing.T) {
	r := types.NewRaster(6, 8, 1)
	for i := range r.Data {
		r.Data[i] = float64(i) * 0.5
	}
	r.Data[5] = math.NaN()
	r.GeoTransform = [6]float64{500000, 10, 0, 4000000, 0, -10}

	path := filepath.Join(t.TempDir(), "out", "stretched.tif")
	if err := WriteGeoTIFF(path, r); err != nil {
		t.Fatalf("WriteGeoTIFF: %v", err)
	}

	back, err := NewLoaderRegistry().Load(path, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !back.Shape().Equal(r.Shape()) {
		t.Fatalf("shape = %s", back.Shape())
	}
	if back.GeoTransform != r.GeoTransform {
		t.Fatalf("geotransform = %v", back.GeoTransform)
	}
	if back.NaNCount() != 1 || !math.IsNaN(back.Data[5]) {
		t.Fatalf("nodata not restored: %d NaN", back.NaNCount())
	}
	for i, v := range r.Data {
		if i != 5 && back.Data[i] != v {
			t.Fatalf("sample %d = %v, want %v", i, back.Data[i], v)
		}
	}
}

func TestWriteGeoTIFFRejectsEmpty(t *testing.T) {
	err := WriteGeoTIFF(filepath.Join(t.TempDir(), "x.tif"), types.Raster{})
	if !errors.Is(err, types.ErrDegenerateInput) {
		t.Fatalf("expected degenerate input, got %v", err)
	}
}

func TestImageFileBands(t *testing.T) {
	img := gocv.NewMatWithSize(5, 6, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(10, 20, 30, 0))

	path := filepath.Join(t.TempDir(), "scene.png")
	if !gocv.IMWrite(path, img) {
		t.Fatal("IMWrite failed")
	}

	loader := NewImageFileLoader()
	if !loader.CanLoad(path) {
		t.Fatal("CanLoad rejected a PNG")
	}

	gray, err := loader.Load(path, 1)
	if err != nil {
		t.Fatalf("Load gray: %v", err)
	}
	if gray.Channels != 1 || gray.Rows != 5 || gray.Cols != 6 {
		t.Fatalf("gray shape = %s", gray.Shape())
	}
	if gray.GeoTransform != types.IdentityGeoTransform() {
		t.Fatalf("geotransform = %v", gray.GeoTransform)
	}

	color, err := loader.Load(path, 0)
	if err != nil {
		t.Fatalf("Load color: %v", err)
	}
	if color.Channels != 3 || color.At(0, 0, 2) != 30 {
		t.Fatalf("color shape %s, red = %v", color.Shape(), color.At(0, 0, 2))
	}
}
