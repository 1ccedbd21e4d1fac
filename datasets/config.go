package datasets

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Noofbiz/clipset/container"
)

// DefaultPattern matches container files inside the root directory.
const DefaultPattern = "*" + container.Ext

// Config holds the recognized constructor options of a ClipDataset. It can
// be loaded from JSON with LoadConfig.
type Config struct {
	// RootPath is the directory scanned for container files.
	RootPath string `json:"root_path"`

	// Pattern is the glob, relative to RootPath, selecting container files.
	// Defaults to DefaultPattern.
	Pattern string `json:"pattern,omitempty"`

	// SpatialSize is the expected frame dimension. Advisory only.
	SpatialSize int `json:"spatial_size,omitempty"`

	// TemporalSize is the expected clip length. Advisory only.
	TemporalSize int `json:"temporal_size,omitempty"`

	// ScanWorkers bounds how many containers are scanned at once while
	// building the corpus. Zero means one.
	ScanWorkers int `json:"scan_workers,omitempty"`
}

// LoadConfig reads a JSON config file. A relative root_path is resolved
// against the directory holding the file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, configErrorf("read config %s: %v", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, configErrorf("parse config %s: %v", path, err)
	}
	if cfg.RootPath != "" && !filepath.IsAbs(cfg.RootPath) {
		cfg.RootPath = filepath.Join(filepath.Dir(path), cfg.RootPath)
	}
	return cfg, nil
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Pattern == "" {
		c.Pattern = DefaultPattern
	}
	if c.ScanWorkers == 0 {
		c.ScanWorkers = 1
	}
	return c
}

// Validate checks the config without touching the filesystem.
func (c Config) Validate() error {
	if c.RootPath == "" {
		return configErrorf("root_path is required")
	}
	if c.SpatialSize < 0 {
		return configErrorf("spatial_size must be >= 0, got %d", c.SpatialSize)
	}
	if c.TemporalSize < 0 {
		return configErrorf("temporal_size must be >= 0, got %d", c.TemporalSize)
	}
	if c.ScanWorkers < 0 {
		return configErrorf("scan_workers must be >= 0, got %d", c.ScanWorkers)
	}
	if _, err := filepath.Match(c.Pattern, ""); err != nil {
		return configErrorf("bad pattern %q: %v", c.Pattern, err)
	}
	return nil
}
