package datasets

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Noofbiz/clipset/container"
	"github.com/Noofbiz/clipset/transforms"
)

// ClipDataset serves (clip, label) samples from a Corpus of containers.
//
// Get is synchronous and opens its own container handle per call, so
// concurrent calls do not share file state. The spatial transform, however,
// carries per-clip random state; callers that call Get from several
// goroutines must give each goroutine its own dataset or serialize Get.
type ClipDataset struct {
	cfg    Config
	corpus *Corpus
	logger *zap.Logger

	spatial  transforms.SpatialTransform
	temporal transforms.TemporalTransform
	// target is accepted for API compatibility but never applied.
	target transforms.TargetTransform
}

// Option configures a ClipDataset.
type Option func(*ClipDataset)

// WithSpatialTransform sets the per-frame transform. Its random parameters
// are drawn once per Get and shared by every frame of the clip.
func WithSpatialTransform(t transforms.SpatialTransform) Option {
	return func(d *ClipDataset) {
		d.spatial = t
	}
}

// WithTemporalTransform is accepted so callers can express the option, but
// any non-nil transform makes New fail with ErrTemporalTransformUnsupported.
func WithTemporalTransform(t transforms.TemporalTransform) Option {
	return func(d *ClipDataset) {
		d.temporal = t
	}
}

// WithTargetTransform stores a label transform. It is not invoked by Get;
// labels are only shifted by the corpus target offset.
func WithTargetTransform(t transforms.TargetTransform) Option {
	return func(d *ClipDataset) {
		d.target = t
	}
}

// WithLogger sets the logger used for corpus progress and diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *ClipDataset) {
		if l != nil {
			d.logger = l
		}
	}
}

// New validates cfg, scans the containers under cfg.RootPath and returns a
// dataset ready to serve samples. A temporal transform is rejected before
// any file is touched.
func New(ctx context.Context, cfg Config, opts ...Option) (*ClipDataset, error) {
	d := &ClipDataset{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if d.temporal != nil {
		return nil, errors.WithStack(ErrTemporalTransformUnsupported)
	}

	d.cfg = cfg.WithDefaults()
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}

	corpus, err := BuildCorpus(ctx, d.cfg, d.logger)
	if err != nil {
		return nil, err
	}
	d.corpus = corpus
	return d, nil
}

// Config returns the effective configuration.
func (d *ClipDataset) Config() Config {
	return d.cfg
}

// Corpus returns the corpus summary built at construction.
func (d *ClipDataset) Corpus() *Corpus {
	return d.corpus
}

// SpatialSize returns the configured frame size. It is not checked against
// the data.
func (d *ClipDataset) SpatialSize() int {
	return d.cfg.SpatialSize
}

// TemporalSize returns the configured clip length. It is not checked against
// the data.
func (d *ClipDataset) TemporalSize() int {
	return d.cfg.TemporalSize
}

// Name returns the name of the dataset.
func (d *ClipDataset) Name() string {
	return "ClipDataset"
}

// Len returns the total number of examples across all containers.
func (d *ClipDataset) Len() int {
	return d.corpus.Len()
}

// Get reads the sample at logical index idx.
//
// Errors: *IndexError for idx outside [0, Len()), *ContainerReadError when
// the container cannot be read, and any error returned by the spatial
// transform, unchanged.
func (d *ClipDataset) Get(idx int) (*Sample, error) {
	loc, err := d.corpus.Locate(idx)
	if err != nil {
		return nil, err
	}

	clip, label, err := readExample(loc)
	if err != nil {
		return nil, err
	}
	if d.cfg.TemporalSize > 0 && clip.Frames != d.cfg.TemporalSize {
		d.logger.Debug("clip length differs from temporal_size",
			zap.Int("index", idx), zap.Int("frames", clip.Frames), zap.Int("temporal_size", d.cfg.TemporalSize))
	}

	frames := make([]*transforms.Frame, clip.Frames)
	for t := range frames {
		frames[t], err = transforms.FrameFromHWC(clip.Frame(t), clip.Height, clip.Width, clip.Channels)
		if err != nil {
			return nil, &ContainerReadError{Path: loc.Path, Op: "decode", Err: err}
		}
	}

	if d.spatial != nil {
		d.spatial.RandomizeParameters()
		for t, f := range frames {
			out, err := d.spatial.Apply(f)
			if err != nil {
				return nil, err
			}
			frames[t] = out
		}
	}

	data, shape, err := stackFrames(frames)
	if err != nil {
		return nil, err
	}

	return &Sample{
		Index:    idx,
		Location: loc,
		Clip:     data,
		Shape:    shape,
		Label:    []int64{label - d.corpus.TargetOffset()},
	}, nil
}

// readExample opens the container at loc, reads one clip and its label and
// closes the container on every path.
func readExample(loc Location) (*container.Clip, int64, error) {
	r, err := container.Open(loc.Path)
	if err != nil {
		return nil, 0, &ContainerReadError{Path: loc.Path, Op: "open", Err: err}
	}
	defer r.Close()

	clip, err := r.Clip(loc.Example)
	if err != nil {
		return nil, 0, &ContainerReadError{Path: loc.Path, Op: "read clip", Err: err}
	}
	label, err := r.Label(loc.Example)
	if err != nil {
		return nil, 0, &ContainerReadError{Path: loc.Path, Op: "read label", Err: err}
	}
	return clip, label, nil
}
