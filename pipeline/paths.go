package pipeline

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/HashSteck/chicken-count/raster"
)

// CollectImagePaths lists the files in dir that carry a supported image
// extension, in directory-listing order. Subdirectories are not descended
// into. A listing failure ends the run before any image is processed.
func CollectImagePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list directory %s", dir)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if raster.IsSupportedImage(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}
