package imageprocessor

import (
	"path/filepath"
	"strings"
)

// FormatType represents a known raster format type
type FormatType string

// Known raster format constants
const (
	FormatUnknown  FormatType = "unknown"
	FormatGeoTIFF  FormatType = "gtiff"
	FormatERDAS    FormatType = "hfa"
	FormatVRT      FormatType = "vrt"
	FormatENVI     FormatType = "envi"
	FormatJP2      FormatType = "jp2"
	FormatNetCDF   FormatType = "netcdf"
	FormatJPEG     FormatType = "jpeg"
	FormatPNG      FormatType = "png"
	FormatBMP      FormatType = "bmp"
	FormatPortable FormatType = "pnm"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".tif":  FormatGeoTIFF,
	".tiff": FormatGeoTIFF,
	".gtif": FormatGeoTIFF,
	".img":  FormatERDAS,
	".vrt":  FormatVRT,
	".dat":  FormatENVI,
	".hdr":  FormatENVI,
	".jp2":  FormatJP2,
	".nc":   FormatNetCDF,

	// plain image files, no georeferencing
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".bmp":  FormatBMP,
	".pgm":  FormatPortable,
	".ppm":  FormatPortable,
}

// IsRasterFile checks if a file is a supported raster based on extension
func IsRasterFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, supported := formatExtensions[ext]
	return supported
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	ext := strings.ToLower(filepath.Ext(path))
	format, exists := formatExtensions[ext]
	if !exists {
		return FormatUnknown
	}
	return format
}

// IsGeoFormat reports whether the format carries georeferencing and goes through GDAL
func IsGeoFormat(format FormatType) bool {
	switch format {
	case FormatGeoTIFF, FormatERDAS, FormatVRT, FormatENVI, FormatJP2, FormatNetCDF:
		return true
	}
	return false
}

// GetSupportedExtensions returns all supported raster file extensions
func GetSupportedExtensions() []string {
	extensions := make([]string, 0, len(formatExtensions))
	for ext := range formatExtensions {
		extensions = append(extensions, ext)
	}
	return extensions
}

// ExtensionsFor returns the file extensions mapped to a format
func ExtensionsFor(format FormatType) []string {
	var exts []string
	for ext, f := range formatExtensions {
		if f == format {
			exts = append(exts, ext)
		}
	}
	return exts
}
