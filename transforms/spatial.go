package transforms

import (
	"math/rand"

	"github.com/pkg/errors"
)

// CenterCrop cuts a Size x Size square from the middle of each frame.
type CenterCrop struct {
	Size int
}

func (CenterCrop) RandomizeParameters() {}

func (c CenterCrop) Apply(f *Frame) (*Frame, error) {
	if c.Size <= 0 {
		return nil, errors.Errorf("transforms: center crop size must be positive, got %d", c.Size)
	}
	if c.Size > f.Height || c.Size > f.Width {
		return nil, errors.Errorf("transforms: center crop %d larger than %dx%d frame", c.Size, f.Height, f.Width)
	}
	return crop(f, (f.Width-c.Size)/2, (f.Height-c.Size)/2, c.Size), nil
}

// RandomCrop cuts a Size x Size square at a position drawn once per clip.
// The position is stored as a fraction of the free space so frames of any
// size can share it.
type RandomCrop struct {
	Size int

	rng    *rand.Rand
	tx, ty float64
}

// NewRandomCrop returns a RandomCrop drawing from rng, or from a time-seeded
// source when rng is nil.
func NewRandomCrop(size int, rng *rand.Rand) *RandomCrop {
	return &RandomCrop{Size: size, rng: newRand(rng)}
}

func (c *RandomCrop) RandomizeParameters() {
	c.tx = c.rng.Float64()
	c.ty = c.rng.Float64()
}

func (c *RandomCrop) Apply(f *Frame) (*Frame, error) {
	if c.Size <= 0 {
		return nil, errors.Errorf("transforms: random crop size must be positive, got %d", c.Size)
	}
	if c.Size > f.Height || c.Size > f.Width {
		return nil, errors.Errorf("transforms: random crop %d larger than %dx%d frame", c.Size, f.Height, f.Width)
	}
	x0 := int(c.tx * float64(f.Width-c.Size+1))
	y0 := int(c.ty * float64(f.Height-c.Size+1))
	return crop(f, x0, y0, c.Size), nil
}

// Offset returns the crop origin that Apply would use on a width x height
// frame with the current parameters.
func (c *RandomCrop) Offset(width, height int) (x0, y0 int) {
	return int(c.tx * float64(width-c.Size+1)), int(c.ty * float64(height-c.Size+1))
}

func crop(f *Frame, x0, y0, size int) *Frame {
	out := NewFrame(f.Channels, size, size)
	for c := 0; c < f.Channels; c++ {
		for y := 0; y < size; y++ {
			src := (c*f.Height+y0+y)*f.Width + x0
			copy(out.Data[(c*size+y)*size:(c*size+y+1)*size], f.Data[src:src+size])
		}
	}
	return out
}

// RandomHorizontalFlip mirrors frames left to right with probability P,
// decided once per clip.
type RandomHorizontalFlip struct {
	P float64

	rng  *rand.Rand
	flip bool
}

// NewRandomHorizontalFlip returns a flip with probability p.
func NewRandomHorizontalFlip(p float64, rng *rand.Rand) *RandomHorizontalFlip {
	return &RandomHorizontalFlip{P: p, rng: newRand(rng)}
}

func (h *RandomHorizontalFlip) RandomizeParameters() {
	h.flip = h.rng.Float64() < h.P
}

// Flipped reports whether the current parameters mirror frames.
func (h *RandomHorizontalFlip) Flipped() bool {
	return h.flip
}

func (h *RandomHorizontalFlip) Apply(f *Frame) (*Frame, error) {
	out := f.Clone()
	if !h.flip {
		return out, nil
	}
	for c := 0; c < f.Channels; c++ {
		for y := 0; y < f.Height; y++ {
			row := out.Data[(c*f.Height+y)*f.Width : (c*f.Height+y+1)*f.Width]
			for i, j := 0, len(row)-1; i < j; i, j = i+1, j-1 {
				row[i], row[j] = row[j], row[i]
			}
		}
	}
	return out, nil
}

// Scale multiplies every value by Factor, e.g. 1/255 to map pixels to [0, 1].
type Scale struct {
	Factor float32
}

func (Scale) RandomizeParameters() {}

func (s Scale) Apply(f *Frame) (*Frame, error) {
	out := f.Clone()
	for i := range out.Data {
		out.Data[i] *= s.Factor
	}
	return out, nil
}

// Normalize subtracts a per-channel mean and divides by a per-channel
// standard deviation.
type Normalize struct {
	Mean []float32
	Std  []float32
}

func (Normalize) RandomizeParameters() {}

func (n Normalize) Apply(f *Frame) (*Frame, error) {
	if len(n.Mean) != f.Channels || len(n.Std) != f.Channels {
		return nil, errors.Errorf("transforms: normalize has %d/%d stats for %d channels", len(n.Mean), len(n.Std), f.Channels)
	}
	out := f.Clone()
	plane := f.Height * f.Width
	for c := 0; c < f.Channels; c++ {
		if n.Std[c] == 0 {
			return nil, errors.Errorf("transforms: zero std for channel %d", c)
		}
		vals := out.Data[c*plane : (c+1)*plane]
		for i := range vals {
			vals[i] = (vals[i] - n.Mean[c]) / n.Std[c]
		}
	}
	return out, nil
}
