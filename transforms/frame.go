// Package transforms holds the per-frame spatial transforms applied to clips
// as they are read from a dataset.
//
// A SpatialTransform draws its random parameters once per clip in
// RandomizeParameters and then applies the same parameters to every frame,
// so a crop or flip stays consistent across the time axis of a clip.
package transforms

import (
	"github.com/pkg/errors"
)

// Frame is a single image in CHW layout.
type Frame struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// NewFrame allocates a zeroed frame.
func NewFrame(channels, height, width int) *Frame {
	return &Frame{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// FrameFromHWC converts interleaved uint8 pixels into a float32 CHW frame.
// Values are cast, not rescaled.
func FrameFromHWC(pixels []uint8, height, width, channels int) (*Frame, error) {
	if len(pixels) != height*width*channels {
		return nil, errors.Errorf("transforms: %d pixels for %dx%dx%d frame", len(pixels), height, width, channels)
	}
	f := NewFrame(channels, height, width)
	plane := height * width
	for i := 0; i < plane; i++ {
		for c := 0; c < channels; c++ {
			f.Data[c*plane+i] = float32(pixels[i*channels+c])
		}
	}
	return f, nil
}

// At returns the value at channel c, row y, column x.
func (f *Frame) At(c, y, x int) float32 {
	return f.Data[(c*f.Height+y)*f.Width+x]
}

// Set stores v at channel c, row y, column x.
func (f *Frame) Set(c, y, x int, v float32) {
	f.Data[(c*f.Height+y)*f.Width+x] = v
}

// Len returns the number of values in the frame.
func (f *Frame) Len() int {
	return f.Channels * f.Height * f.Width
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{Channels: f.Channels, Height: f.Height, Width: f.Width}
	out.Data = append([]float32(nil), f.Data...)
	return out
}

// SameShape reports whether f and o have identical dimensions.
func (f *Frame) SameShape(o *Frame) bool {
	return f.Channels == o.Channels && f.Height == o.Height && f.Width == o.Width
}
