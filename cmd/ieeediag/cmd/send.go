package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/OpenTraceLab/OpenTraceIEEE/internal/config"
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/xum1541"
	"github.com/spf13/cobra"
)

// Replaced in tests.
var (
	openTransport = defaultOpenTransport
	sleep         = time.Sleep
)

func defaultOpenTransport(cfg *config.Config, log *slog.Logger) (ieee488.Transport, error) {
	switch cfg.Adapter.Type {
	case config.AdapterSimulator:
		return ieee488.NewSimTransport(cfg.Adapter.SimStatus), nil
	default:
		t, err := xum1541.Open(cfg.XUM1541(), xum1541.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

func runSend(cmd *cobra.Command, opts *rootOptions, args []string) error {
	inv, err := ParseInvocation(args)
	if err != nil {
		return err
	}
	if inv.Help {
		return cmd.Help()
	}
	cmd.SilenceUsage = true

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if inv.IterationsErr != nil {
		fmt.Fprintf(errOut, "Warning: %v, defaulting to %d\n", inv.IterationsErr, inv.Iterations)
	}

	cfg, log, closer, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	target, err := cfg.TargetChannel()
	if err != nil {
		return err
	}
	printBanner(out, inv, target, cfg.Pause)

	t, err := openTransport(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	bus := ieee488.NewBus(t, ieee488.WithLogger(log))
	defer func() {
		if cerr := bus.Close(); cerr != nil {
			log.Warn("failed to close bus", "error", cerr)
		}
	}()

	seq := diag.NewSequencer(bus, target,
		diag.WithSequencerLogger(log),
		diag.WithStatusSize(cfg.StatusSize))

	st, err := seq.Probe()
	if err != nil {
		return err
	}
	if st.Warning != nil {
		fmt.Fprintf(out, "IEEE Diagnostics ROM status: % X\n", st.Raw)
		fmt.Fprintf(errOut, "Warning: %v\n", st.Warning)
	} else {
		fmt.Fprintf(out, "IEEE Diagnostics ROM status: %s\n", st.Text)
	}

	ctrl := diag.NewController(seq, diag.WithPause(cfg.Pause), diag.WithSleeper(sleep))
	var sum diag.Summary
	for res := range ctrl.Iterate(inv.Byte, inv.Iterations) {
		sum.Add(res)
		if res.OK() {
			fmt.Fprintf(out, "Iteration %d: Char sent %c\n", res.Iteration, inv.Char)
		} else {
			fmt.Fprintf(errOut, "Iteration %d: failed: %v\n", res.Iteration, res.Err)
		}
	}

	if err := sum.Err(); err != nil {
		return fmt.Errorf("%d of %d iterations failed: %w", sum.Failed, sum.Total(), err)
	}
	return nil
}

func printBanner(w io.Writer, inv Invocation, target ieee488.DeviceChannel, pause time.Duration) {
	if inv.Iterations == 1 {
		fmt.Fprintf(w, "Sending character '%c' to device %d on channel %d\n",
			inv.Char, target.Device(), target.Channel())
		return
	}
	fmt.Fprintf(w, "Sending character '%c' to device %d on channel %d %d times, pausing %dms between each iteration\n",
		inv.Char, target.Device(), target.Channel(), inv.Iterations, pause.Milliseconds())
}
