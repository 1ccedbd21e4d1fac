package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Noofbiz/clipset/datasets"
	"github.com/Noofbiz/clipset/transforms"
)

type getOptions struct {
	corpusFlags
	index int
	crop  int
	flip  bool
	scale bool
	seed  int64
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Read one example and print its location, shape and label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, root.logger, opts)
		},
	}
	opts.register(cmd)
	f := cmd.Flags()
	f.IntVar(&opts.index, "index", 0, "logical example index")
	f.IntVar(&opts.crop, "crop", 0, "random square crop size (0 = no crop)")
	f.BoolVar(&opts.flip, "flip", false, "randomly flip clips horizontally")
	f.BoolVar(&opts.scale, "scale", false, "scale pixel values into [0,1]")
	f.Int64Var(&opts.seed, "seed", time.Now().UnixNano(), "random seed for spatial transforms")
	return cmd
}

func runGet(cmd *cobra.Command, logger *zap.Logger, opts *getOptions) error {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	var spatial transforms.Compose
	if opts.crop > 0 {
		spatial = append(spatial, transforms.NewRandomCrop(opts.crop, rng))
	}
	if opts.flip {
		spatial = append(spatial, transforms.NewRandomHorizontalFlip(0.5, rng))
	}
	if opts.scale {
		spatial = append(spatial, transforms.Scale{Factor: 1.0 / 255})
	}

	dsOpts := []datasets.Option{datasets.WithLogger(logger)}
	if len(spatial) > 0 {
		dsOpts = append(dsOpts, datasets.WithSpatialTransform(spatial))
	}
	ds, err := datasets.New(cmd.Context(), cfg, dsOpts...)
	if err != nil {
		return err
	}

	s, err := ds.Get(opts.index)
	if err != nil {
		return err
	}
	lo, hi, mean := stats(s.Clip)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "index:       %d of %d\n", s.Index, ds.Len())
	fmt.Fprintf(out, "container:   %s (#%d, example %d)\n", s.Location.Path, s.Location.Container, s.Location.Example)
	fmt.Fprintf(out, "clip shape:  %v (C,T,H,W)\n", s.Shape)
	fmt.Fprintf(out, "label:       %v of %d classes\n", s.Label, ds.Corpus().NumTargets())
	fmt.Fprintf(out, "pixels:      min %.3f max %.3f mean %.3f\n", lo, hi, mean)
	return nil
}

func stats(xs []float32) (lo, hi, mean float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, x := range xs {
		v := float64(x)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		sum += v
	}
	return lo, hi, sum / float64(len(xs))
}
