package datasets

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// FindContainers lists the regular files in root matching pattern, sorted
// lexicographically by path. The sort defines the logical index space, so
// the same directory contents always produce the same order.
func FindContainers(root, pattern string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, configErrorf("root %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, configErrorf("root %s is not a directory", root)
	}

	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, configErrorf("bad pattern %q: %v", pattern, err)
	}

	paths := matches[:0]
	for _, p := range matches {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "datasets: stat %s", p)
		}
		if fi.Mode().IsRegular() {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// diskUsage sums the sizes of paths.
func diskUsage(paths []string) (int64, error) {
	var total int64
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return 0, err
		}
		total += fi.Size()
	}
	return total, nil
}
