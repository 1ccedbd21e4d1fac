// Package datasets exposes a directory of .vclip container files as a single
// randomly indexable sequence of (clip, label) samples for a training loop.
//
// Layout and intended usage:
//
// ClipDataset
//   - Scans a root directory for container files and sorts them by path; the
//     sorted order defines the logical index space.
//   - Reads every container's label array once at construction to build the
//     Corpus: per-container counts, a cumulative offset table, the set of
//     distinct labels and the target offset (smallest label).
//   - Loads clips on demand: Get(i) resolves i to (container, offset), opens
//     that container, reads one clip and its label and closes it again.
//   - Clips come back as float32 (C, T, H, W) buffers; labels are remapped to
//     zero-based class indices and wrapped in a length-1 slice.
//
// Nothing is cached between calls and there is no batching, shuffling or
// prefetching; those belong to the caller. Sample.Tensors and
// ClipDataset.Loader convert samples into gomlx tensors for training loops
// built on gomlx's train.Dataset.
package datasets

// Dataset is what iteration, sampling and batching layers need from a
// clip dataset.
type Dataset interface {
	Len() int
	Get(idx int) (*Sample, error)
}

var _ Dataset = (*ClipDataset)(nil)
