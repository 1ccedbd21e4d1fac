// Command clipset builds, inspects and reads clip datasets stored as .vclip
// container files.
//
// Usage:
//
//	clipset synth --out data --containers 4 --per-container 16
//	clipset inspect --root data --plot labels.png
//	clipset get --root data --index 17 --crop 32 --flip
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootOptions struct {
	logLevel string
	logJSON  bool

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "clipset",
		Short:         "Index and read video clip datasets stored in .vclip containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel, opts.logJSON)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&opts.logJSON, "log-json", false, "emit JSON logs instead of console logs")

	cmd.AddCommand(
		newSynthCmd(opts),
		newInspectCmd(opts),
		newGetCmd(opts),
	)
	return cmd
}

// newLogger builds a stderr logger; console encoding unless asJSON.
func newLogger(level string, asJSON bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	if asJSON {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		cmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
