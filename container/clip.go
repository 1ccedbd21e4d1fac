package container

import "github.com/pkg/errors"

// Clip is one entry of the videos array: an ordered sequence of frames
// stored as a single THWC uint8 buffer.
type Clip struct {
	Frames   int
	Height   int
	Width    int
	Channels int

	// Pixels holds Frames*Height*Width*Channels bytes, frame-major, with
	// channels interleaved per pixel.
	Pixels []uint8
}

// NewClip allocates a zeroed clip with the given dimensions.
func NewClip(frames, height, width, channels int) *Clip {
	return &Clip{
		Frames:   frames,
		Height:   height,
		Width:    width,
		Channels: channels,
		Pixels:   make([]uint8, frames*height*width*channels),
	}
}

// FrameSize is the number of bytes per frame.
func (c *Clip) FrameSize() int {
	return c.Height * c.Width * c.Channels
}

// Frame returns the HWC pixels of frame t. The slice aliases the clip.
func (c *Clip) Frame(t int) []uint8 {
	n := c.FrameSize()
	return c.Pixels[t*n : (t+1)*n]
}

// Validate checks that the dimensions are positive and agree with the
// pixel buffer.
func (c *Clip) Validate() error {
	if c.Frames <= 0 || c.Height <= 0 || c.Width <= 0 || c.Channels <= 0 {
		return errors.Errorf("container: invalid clip dimensions %dx%dx%dx%d",
			c.Frames, c.Height, c.Width, c.Channels)
	}
	if want := c.Frames * c.FrameSize(); len(c.Pixels) != want {
		return errors.Errorf("container: clip has %d bytes, want %d", len(c.Pixels), want)
	}
	return nil
}
