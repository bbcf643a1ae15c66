package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rastersim/imageprocessor"
	"rastersim/logging"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest lists the pairs of a batch run
type Manifest struct {
	Label   string   `yaml:"label"`
	Metrics []string `yaml:"metrics"`
	Pairs   []Pair   `yaml:"pairs"`
}

// LoadManifest reads a YAML manifest. Relative pair paths are resolved
// against the manifest's directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "parse manifest %s", path)
	}
	if len(m.Pairs) == 0 {
		return nil, fmt.Errorf("manifest %s lists no pairs", path)
	}

	base := filepath.Dir(path)
	for i, p := range m.Pairs {
		if p.Left == "" || p.Right == "" {
			return nil, fmt.Errorf("manifest %s: pair %d needs both left and right", path, i+1)
		}
		m.Pairs[i] = Pair{Left: resolve(base, p.Left), Right: resolve(base, p.Right)}
	}
	return &m, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// PairDirectories pairs raster files of two directories by file name stem,
// so uav/0712.tif pairs with gf2/0712.img. Files without a partner are
// logged and left out. Pairs come back sorted by left path.
func PairDirectories(leftDir, rightDir string) ([]Pair, error) {
	left, err := rasterStems(leftDir)
	if err != nil {
		return nil, err
	}
	right, err := rasterStems(rightDir)
	if err != nil {
		return nil, err
	}

	var pairs []Pair
	for stem, l := range left {
		r, ok := right[stem]
		if !ok {
			logging.LogWarning("No partner for %s in %s", l, rightDir)
			continue
		}
		pairs = append(pairs, Pair{Left: l, Right: r})
	}
	for stem, r := range right {
		if _, ok := left[stem]; !ok {
			logging.LogWarning("No partner for %s in %s", r, leftDir)
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Left < pairs[j].Left })
	return pairs, nil
}

// rasterStems maps lower-cased file stems to paths for the raster files
// under dir. When two files share a stem the first in walk order wins.
func rasterStems(dir string) (map[string]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read directory %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	stems := make(map[string]string)
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !imageprocessor.IsRasterFile(path) {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		stem := strings.ToLower(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if prev, dup := stems[stem]; dup {
			logging.DebugLog("Ignoring %s, %s already uses its name", path, prev)
			return nil
		}
		stems[stem] = path
		return nil
	})
	return stems, err
}

// isGeoPair reports whether both sides are georeferenced formats
func isGeoPair(p Pair) bool {
	return imageprocessor.IsGeoFormat(imageprocessor.GetFileFormat(p.Left)) &&
		imageprocessor.IsGeoFormat(imageprocessor.GetFileFormat(p.Right))
}
