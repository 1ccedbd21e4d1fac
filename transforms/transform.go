package transforms

import (
	"math/rand"
	"time"
)

// SpatialTransform is applied to every frame of a clip.
//
// RandomizeParameters is called once per clip before the first Apply; all
// Apply calls until the next RandomizeParameters must use the same random
// state. Implementations carry that state, so a single instance must not be
// shared between goroutines without external locking.
type SpatialTransform interface {
	RandomizeParameters()
	Apply(f *Frame) (*Frame, error)
}

// TemporalTransform selects or reorders frame indices of a clip (temporal
// cropping, looping). Datasets currently reject it.
type TemporalTransform interface {
	Apply(frameIndices []int) []int
}

// TargetTransform maps a raw label.
type TargetTransform func(label int64) int64

// Compose chains transforms left to right.
type Compose []SpatialTransform

// RandomizeParameters randomizes every member.
func (c Compose) RandomizeParameters() {
	for _, t := range c {
		t.RandomizeParameters()
	}
}

// Apply runs f through every member in order.
func (c Compose) Apply(f *Frame) (*Frame, error) {
	var err error
	for _, t := range c {
		f, err = t.Apply(f)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func newRand(rng *rand.Rand) *rand.Rand {
	if rng != nil {
		return rng
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
