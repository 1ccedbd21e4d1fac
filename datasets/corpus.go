package datasets

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Noofbiz/clipset/container"
)

// Corpus is the immutable summary of a directory of containers, computed
// once by BuildCorpus.
type Corpus struct {
	root string

	// Sorted container paths; their order defines the logical index space.
	paths []string

	// Example count of each container.
	counts []int

	// Cumulative counts for fast index mapping: container i holds logical
	// indices [cumCounts[i], cumCounts[i+1]).
	cumCounts []int

	// Example count of the first container.
	examplesPerContainer int

	// Total number of examples across all containers.
	totalExamples int

	// Occurrences of every distinct raw label.
	targets map[int64]int

	// Smallest raw label.
	targetOffset int64
}

// Location is the physical position of a logical index.
type Location struct {
	Container int
	Example   int
	Path      string
}

// BuildCorpus discovers the containers under cfg.RootPath and reads every
// label array once. The first unreadable container aborts the build.
func BuildCorpus(ctx context.Context, cfg Config, logger *zap.Logger) (*Corpus, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, err := FindContainers(cfg.RootPath, cfg.Pattern)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Wrapf(ErrEmptyCorpus, "no files matching %q in %s", cfg.Pattern, cfg.RootPath)
	}

	labels, err := scanLabels(ctx, paths, cfg.ScanWorkers)
	if err != nil {
		return nil, err
	}

	c := &Corpus{
		root:      cfg.RootPath,
		paths:     paths,
		counts:    make([]int, len(paths)),
		cumCounts: make([]int, len(paths)+1),
		targets:   make(map[int64]int),
	}
	for i, ls := range labels {
		c.counts[i] = len(ls)
		c.cumCounts[i+1] = c.cumCounts[i] + len(ls)
		for _, l := range ls {
			c.targets[l]++
		}
	}
	c.examplesPerContainer = c.counts[0]
	c.totalExamples = c.cumCounts[len(paths)]
	if c.totalExamples == 0 {
		return nil, errors.Wrapf(ErrEmptyCorpus, "%d containers in %s hold no examples", len(paths), cfg.RootPath)
	}

	first := true
	for l := range c.targets {
		if first || l < c.targetOffset {
			c.targetOffset = l
			first = false
		}
	}

	if !c.Uniform() {
		logger.Warn("containers hold different numbers of examples",
			zap.Int("examples_per_container", c.examplesPerContainer),
			zap.Ints("counts", c.counts))
	}
	logger.Info("corpus built",
		zap.String("root", c.root),
		zap.Int("containers", len(c.paths)),
		zap.Int("examples", c.totalExamples),
		zap.Int("targets", len(c.targets)),
		zap.Int64("target_offset", c.targetOffset))

	return c, nil
}

// scanLabels reads the label array of every container. Up to workers
// containers are open at once; results keep path order.
func scanLabels(ctx context.Context, paths []string, workers int) ([][]int64, error) {
	labels := make([][]int64, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := container.Open(path)
			if err != nil {
				return &ContainerReadError{Path: path, Op: "scan", Err: err}
			}
			defer r.Close()
			labels[i] = r.Labels()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

// Root returns the scanned directory.
func (c *Corpus) Root() string {
	return c.root
}

// Paths returns the sorted container paths.
func (c *Corpus) Paths() []string {
	return append([]string(nil), c.paths...)
}

// NumContainers returns the number of containers.
func (c *Corpus) NumContainers() int {
	return len(c.paths)
}

// Counts returns the example count of every container.
func (c *Corpus) Counts() []int {
	return append([]int(nil), c.counts...)
}

// ExamplesPerContainer returns the example count of the first container.
func (c *Corpus) ExamplesPerContainer() int {
	return c.examplesPerContainer
}

// Uniform reports whether every container holds ExamplesPerContainer
// examples, i.e. Len() == NumContainers() * ExamplesPerContainer().
func (c *Corpus) Uniform() bool {
	for _, n := range c.counts {
		if n != c.examplesPerContainer {
			return false
		}
	}
	return true
}

// DiskUsage returns the combined size in bytes of the containers.
func (c *Corpus) DiskUsage() (int64, error) {
	return diskUsage(c.paths)
}

// Len returns the total number of examples.
func (c *Corpus) Len() int {
	return c.totalExamples
}

// NumTargets returns the number of distinct labels.
func (c *Corpus) NumTargets() int {
	return len(c.targets)
}

// Targets returns the distinct raw labels in ascending order.
func (c *Corpus) Targets() []int64 {
	out := make([]int64, 0, len(c.targets))
	for l := range c.targets {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TargetCounts returns how often each raw label occurs.
func (c *Corpus) TargetCounts() map[int64]int {
	out := make(map[int64]int, len(c.targets))
	for l, n := range c.targets {
		out[l] = n
	}
	return out
}

// TargetOffset returns the smallest raw label; it is subtracted from every
// label to produce zero-based class indices.
func (c *Corpus) TargetOffset() int64 {
	return c.targetOffset
}

// Locate maps a logical index to its container and offset. For a uniform
// corpus this is idx / n, idx % n with n = ExamplesPerContainer().
func (c *Corpus) Locate(idx int) (Location, error) {
	if idx < 0 || idx >= c.totalExamples {
		return Location{}, &IndexError{Index: idx, Len: c.totalExamples}
	}
	// First container whose range ends after idx; empty containers are skipped.
	i := sort.Search(len(c.paths), func(k int) bool { return c.cumCounts[k+1] > idx })
	return Location{
		Container: i,
		Example:   idx - c.cumCounts[i],
		Path:      c.paths[i],
	}, nil
}
