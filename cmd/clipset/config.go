package main

import (
	"github.com/spf13/cobra"

	"github.com/Noofbiz/clipset/datasets"
)

// corpusFlags are the dataset settings shared by inspect and get. Values
// given on the command line override the JSON config file.
type corpusFlags struct {
	config   string
	root     string
	pattern  string
	workers  int
	spatial  int
	temporal int
}

func (f *corpusFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "path to a JSON dataset config (optional)")
	fs.StringVar(&f.root, "root", "", "directory holding the containers")
	fs.StringVar(&f.pattern, "pattern", datasets.DefaultPattern, "glob pattern selecting container files")
	fs.IntVar(&f.workers, "workers", 0, "containers scanned in parallel (0 = one at a time)")
	fs.IntVar(&f.spatial, "spatial-size", 0, "expected frame size (advisory)")
	fs.IntVar(&f.temporal, "temporal-size", 0, "expected frames per clip (advisory)")
}

// resolve merges the JSON config, if any, with explicitly set flags.
func (f *corpusFlags) resolve(cmd *cobra.Command) (datasets.Config, error) {
	var cfg datasets.Config
	if f.config != "" {
		loaded, err := datasets.LoadConfig(f.config)
		if err != nil {
			return datasets.Config{}, err
		}
		cfg = loaded
	}
	fs := cmd.Flags()
	if fs.Changed("root") || cfg.RootPath == "" {
		cfg.RootPath = f.root
	}
	if fs.Changed("pattern") || cfg.Pattern == "" {
		cfg.Pattern = f.pattern
	}
	if fs.Changed("workers") {
		cfg.ScanWorkers = f.workers
	}
	if fs.Changed("spatial-size") {
		cfg.SpatialSize = f.spatial
	}
	if fs.Changed("temporal-size") {
		cfg.TemporalSize = f.temporal
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}
