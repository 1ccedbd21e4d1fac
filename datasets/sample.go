package datasets

import (
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"

	"github.com/Noofbiz/clipset/transforms"
)

// Sample is one retrieved example. It is built fresh on every Get.
type Sample struct {
	// Index is the logical index the sample was read from.
	Index int

	// Location is the container and offset Index resolved to.
	Location Location

	// Clip holds the frames stacked along the time axis, laid out as
	// Shape = (channels, time, height, width).
	Clip  []float32
	Shape [4]int

	// Label is the zero-based class index, wrapped as a single element.
	Label []int64
}

// At returns the clip value at channel c, time t, row y, column x.
func (s *Sample) At(c, t, y, x int) float32 {
	return s.Clip[((c*s.Shape[1]+t)*s.Shape[2]+y)*s.Shape[3]+x]
}

// Frame extracts frame t as a CHW frame.
func (s *Sample) Frame(t int) *transforms.Frame {
	ch, h, w := s.Shape[0], s.Shape[2], s.Shape[3]
	f := transforms.NewFrame(ch, h, w)
	plane := h * w
	for c := 0; c < ch; c++ {
		src := (c*s.Shape[1] + t) * plane
		copy(f.Data[c*plane:(c+1)*plane], s.Clip[src:src+plane])
	}
	return f
}

// Tensors converts the sample into gomlx tensors: the clip as a float32
// tensor of shape [C, T, H, W] and the label as an int64 tensor of shape [1].
func (s *Sample) Tensors() (clip *tensors.Tensor, label *tensors.Tensor) {
	clip = tensors.FromFlatDataAndDimensions(s.Clip, s.Shape[:]...)
	label = tensors.FromFlatDataAndDimensions(s.Label, len(s.Label))
	return clip, label
}

// stackFrames stacks CHW frames along a new time axis after the channel
// axis, producing a (C, T, H, W) buffer. All frames must share one shape.
func stackFrames(frames []*transforms.Frame) ([]float32, [4]int, error) {
	if len(frames) == 0 {
		return nil, [4]int{}, errors.New("datasets: clip has no frames")
	}
	first := frames[0]
	for t, f := range frames[1:] {
		if !f.SameShape(first) {
			return nil, [4]int{}, errors.Errorf("datasets: frame %d is %dx%dx%d, frame 0 is %dx%dx%d",
				t+1, f.Channels, f.Height, f.Width, first.Channels, first.Height, first.Width)
		}
	}

	shape := [4]int{first.Channels, len(frames), first.Height, first.Width}
	plane := first.Height * first.Width
	data := make([]float32, shape[0]*shape[1]*plane)
	for c := 0; c < shape[0]; c++ {
		for t, f := range frames {
			dst := (c*shape[1] + t) * plane
			copy(data[dst:dst+plane], f.Data[c*plane:(c+1)*plane])
		}
	}
	return data, shape, nil
}

// Loader walks a ClipDataset in index order and yields one sample per call
// as gomlx tensors. It implements gomlx's train.Dataset (Name, Yield, Reset).
// There is no batching or shuffling.
type Loader struct {
	ds   *ClipDataset
	next int
}

var _ train.Dataset = (*Loader)(nil)

// Loader returns a new Loader positioned at index 0.
func (d *ClipDataset) Loader() *Loader {
	return &Loader{ds: d}
}

// Name implements train.Dataset.
func (l *Loader) Name() string {
	return l.ds.Name()
}

// Yield returns the next sample as inputs = [clip] and labels = [label].
// It returns io.EOF once every index has been yielded.
func (l *Loader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if l.next >= l.ds.Len() {
		return nil, nil, nil, io.EOF
	}
	s, err := l.ds.Get(l.next)
	if err != nil {
		return nil, nil, nil, err
	}
	l.next++
	clip, label := s.Tensors()
	return nil, []*tensors.Tensor{clip}, []*tensors.Tensor{label}, nil
}

// Reset implements train.Dataset; the next Yield starts again at index 0.
func (l *Loader) Reset() {
	l.next = 0
}
