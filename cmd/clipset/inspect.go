package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/clipset/datasets"
)

type inspectOptions struct {
	corpusFlags
	plotPath    string
	printConfig bool
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Scan a corpus and summarize its containers and labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, root.logger, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.plotPath, "plot", "", "write a label histogram to this file (.png, .svg or .pdf)")
	cmd.Flags().BoolVar(&opts.printConfig, "print-effective-config", false, "print the effective (JSON+CLI merged) configuration")
	return cmd
}

func runInspect(cmd *cobra.Command, logger *zap.Logger, opts *inspectOptions) error {
	cfg, err := opts.resolve(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if opts.printConfig {
		fmt.Fprintf(out, "config: root=%s pattern=%s spatial_size=%d temporal_size=%d scan_workers=%d\n",
			cfg.RootPath, cfg.Pattern, cfg.SpatialSize, cfg.TemporalSize, cfg.ScanWorkers)
	}

	corpus, err := datasets.BuildCorpus(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if err := printSummary(out, corpus); err != nil {
		return err
	}

	if opts.plotPath != "" {
		if err := plotTargets(opts.plotPath, corpus); err != nil {
			return errors.Wrapf(err, "plot %s", opts.plotPath)
		}
		logger.Info("label histogram written", zap.String("path", opts.plotPath))
		fmt.Fprintf(out, "plot:        %s\n", opts.plotPath)
	}
	return nil
}

func printSummary(w io.Writer, c *datasets.Corpus) error {
	size, err := c.DiskUsage()
	if err != nil {
		return err
	}
	layout := "uniform"
	if !c.Uniform() {
		layout = "uneven"
	}
	fmt.Fprintf(w, "root:        %s\n", c.Root())
	fmt.Fprintf(w, "containers:  %d (%s on disk)\n", c.NumContainers(), humanize.Bytes(uint64(size)))
	fmt.Fprintf(w, "examples:    %s (%d per container, %s)\n", humanize.Comma(int64(c.Len())), c.ExamplesPerContainer(), layout)
	fmt.Fprintf(w, "targets:     %d (offset %d)\n", c.NumTargets(), c.TargetOffset())

	counts := c.TargetCounts()
	fmt.Fprintln(w, "labels:")
	for _, l := range c.Targets() {
		fmt.Fprintf(w, "  %6d -> class %-4d %s\n", l, l-c.TargetOffset(), humanize.Comma(int64(counts[l])))
	}
	return nil
}

// plotTargets draws one bar per raw label, in ascending label order.
func plotTargets(path string, c *datasets.Corpus) error {
	counts := c.TargetCounts()
	labels := make([]int64, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	values := make(plotter.Values, len(labels))
	names := make([]string, len(labels))
	for i, l := range labels {
		values[i] = float64(counts[l])
		names[i] = strconv.FormatInt(l, 10)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Label distribution (%d examples)", c.Len())
	p.X.Label.Text = "label"
	p.Y.Label.Text = "examples"

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return err
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())
	p.NominalX(names...)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
