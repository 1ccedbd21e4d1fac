package main

// Example command that demonstrates loading a clip dataset, reading a few
// samples through a spatial transform and converting them into gomlx tensors.
//
// Clips are loaded lazily - the dataset only scans label arrays up front and
// reads a clip's pixels when Get is called for it.
//
// Usage:
//
//	go run ./datasets/example ./assets/synthetic
//
// The directory should contain .vclip containers, e.g. written by
// `clipset synth --out ./assets/synthetic`.

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"github.com/Noofbiz/clipset/datasets"
	"github.com/Noofbiz/clipset/transforms"
)

func main() {
	root := "./assets/synthetic"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	spatial := transforms.Compose{
		transforms.NewRandomCrop(32, rand.New(rand.NewSource(1))),
		transforms.NewRandomHorizontalFlip(0.5, rand.New(rand.NewSource(2))),
		transforms.Scale{Factor: 1.0 / 255},
	}
	ds, err := datasets.New(context.Background(),
		datasets.Config{RootPath: root, SpatialSize: 32, TemporalSize: 8},
		datasets.WithSpatialTransform(spatial),
		datasets.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to load clip dataset", zap.String("root", root), zap.Error(err))
	}

	corpus := ds.Corpus()
	fmt.Printf("Containers: %d\n", corpus.NumContainers())
	fmt.Printf("Examples:   %d\n", ds.Len())
	fmt.Printf("Targets:    %d (offset %d)\n", corpus.NumTargets(), corpus.TargetOffset())

	n := min(4, ds.Len())
	for i := range n {
		s, err := ds.Get(i)
		if err != nil {
			logger.Fatal("failed to read sample", zap.Int("index", i), zap.Error(err))
		}
		clip, label := s.Tensors()
		fmt.Printf("  sample %d: %s #%d clip=%v label=%v %v\n",
			i, s.Location.Path, s.Location.Example, clip.Shape(), label.Shape(), s.Label)
	}
}
