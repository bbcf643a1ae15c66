package imageprocessor

import (
	"os"

	"rastersim/types"
)

// BaseRasterLoader provides common functionality for all raster loaders
type BaseRasterLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseRasterLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)

	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}

	return false
}

// fileExists checks if a file exists and is accessible
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// hasFileContent checks if a file exists and has a non-zero size
func hasFileContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// checkReadable returns a MissingInputError when the path cannot be read
func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &types.MissingInputError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &types.MissingInputError{Path: path, Err: os.ErrInvalid}
	}
	if !hasFileContent(path) {
		return &types.MissingInputError{Path: path, Err: os.ErrInvalid}
	}
	return nil
}
