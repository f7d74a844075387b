package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/OpenTraceLab/OpenTraceIEEE/internal/config"
	"github.com/OpenTraceLab/OpenTraceIEEE/internal/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	adapter    string
	target     *targetValue
	pause      time.Duration
	simStatus  string
	logLevel   string
	logFile    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{target: newTargetValue()}

	root := &cobra.Command{
		Use:   "ieeediag <char> [iterations]",
		Short: "Send single character commands to an IEEE-488 drive diagnostics ROM",
		Long: `Send a single character to the drive on device 8 via channel 15, using an
xum1541/ZoomFloppy adapter with an IEEE-488 cable.

The drive status is read once, then the character is written the requested
number of times (default 1) with a short pause between each iteration.

Examples:
  ieeediag A                                  # Send 'A' once
  ieeediag U 10                               # Send 'U' ten times
  ieeediag --adapter simulator A 3            # Dry run without hardware
  ieeediag --device 9:15 --pause 250ms R 2    # Another drive, slower pacing
  ieeediag interfaces                         # List detected adapters`,
		Version: "0.3.0",
		Args:    cobra.ArbitraryArgs,
		// Errors are reported by main; usage is printed only for
		// command line errors.
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, args)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "",
		"YAML configuration file (default $"+config.EnvConfigFile+")")
	pf.StringVarP(&opts.adapter, "adapter", "a", config.AdapterXUM1541,
		"adapter type (xum1541, simulator)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFile, "log-file", "", "write logs to a rotated file instead of stderr")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (debug logging)")

	f := root.Flags()
	f.Var(opts.target, "device", "target device and channel")
	f.DurationVar(&opts.pause, "pause", 100*time.Millisecond, "pause between iterations")
	f.StringVar(&opts.simStatus, "sim-status", "",
		"simulator: status reply returned by the drive")

	root.AddCommand(newInterfacesCmd(opts))
	return root
}

// Execute runs the command line in os.Args and returns the first error.
// Exiting is left to the caller.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(normalizeArgs(args))
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// setup resolves the configuration (defaults, file, environment, then
// explicitly set flags) and builds the logger.
func (o *rootOptions) setup(cmd *cobra.Command) (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("adapter") {
		cfg.Adapter.Type = o.adapter
	}
	if flags.Changed("device") {
		cfg.Target.Device = o.target.dc.Device()
		cfg.Target.Channel = o.target.dc.Channel()
	}
	if flags.Changed("pause") {
		cfg.Pause = o.pause
	}
	if flags.Changed("sim-status") {
		cfg.Adapter.SimStatus = o.simStatus
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = o.logFile
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log, closer, err := logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, closer, nil
}
