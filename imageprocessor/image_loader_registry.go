package imageprocessor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"rastersim/types"
)

// LoaderRegistry maintains a registry of raster loaders keyed by extension
type LoaderRegistry struct {
	loaders       map[string]RasterLoader
	defaultLoader RasterLoader
	mutex         sync.RWMutex
}

// NewLoaderRegistry creates a registry with the GDAL and image file loaders
func NewLoaderRegistry() *LoaderRegistry {
	registry := &LoaderRegistry{
		loaders: make(map[string]RasterLoader),
	}

	gdalLoader := NewGDALLoader()
	for _, format := range gdalLoader.SupportedFormats {
		for _, ext := range ExtensionsFor(format) {
			registry.RegisterLoader(ext, gdalLoader)
		}
	}

	imageLoader := NewImageFileLoader()
	for _, format := range imageLoader.SupportedFormats {
		for _, ext := range ExtensionsFor(format) {
			registry.RegisterLoader(ext, imageLoader)
		}
	}

	// GDAL opens far more formats than we list by extension
	registry.defaultLoader = gdalLoader

	return registry
}

// RegisterLoader registers a loader for a specific file extension
func (r *LoaderRegistry) RegisterLoader(ext string, loader RasterLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ext = strings.ToLower(ext)
	r.loaders[ext] = loader
}

// GetLoader returns the appropriate loader for the given path
func (r *LoaderRegistry) GetLoader(path string) RasterLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := r.loaders[ext]; ok {
		return loader
	}

	return r.defaultLoader
}

// CanLoadFile checks if a loader is registered for the file's extension
func (r *LoaderRegistry) CanLoadFile(path string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	_, ok := r.loaders[ext]
	return ok
}

// Load reads a raster using the appropriate registered loader
func (r *LoaderRegistry) Load(path string, bands int) (types.Raster, error) {
	loader := r.GetLoader(path)
	if loader == nil {
		return types.Raster{}, &types.MissingInputError{Path: path, Err: fmt.Errorf("no suitable loader")}
	}

	return loader.Load(path, bands)
}

// LoadRaster loads the first band of a raster with a fresh registry
func LoadRaster(path string) (types.Raster, error) {
	return NewLoaderRegistry().Load(path, 1)
}
