package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/xum1541"
	"github.com/spf13/cobra"
)

var discoverInterfaces = xum1541.Discover

func newInterfacesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List available IEEE-488 adapters",
		Long: `Scan the host for xum1541/ZoomFloppy adapters and print a summary of the
detected devices. Use this to verify connectivity or pick a serial number
before sending commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			_, log, closer, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			infos, err := discoverInterfaces(ctx)
			if err != nil {
				return fmt.Errorf("discover interfaces: %w", err)
			}
			log.Debug("interfaces discovered", "count", len(infos))

			out := cmd.OutOrStdout()
			if len(infos) == 0 {
				fmt.Fprintln(out, "No interfaces found.")
				return nil
			}
			fmt.Fprintln(out, "Detected IEEE-488 interfaces:")
			for _, iface := range infos {
				if iface.Kind == xum1541.InterfaceKindSim {
					fmt.Fprintf(out, "  - %s [%s]\n", iface.Label(), iface.Kind)
					continue
				}
				fmt.Fprintf(out, "  - %s [%s] (VID:PID %04X:%04X, bus %d address %d)\n",
					iface.Label(), iface.Kind, iface.VendorID, iface.ProductID, iface.Bus, iface.Address)
			}
			return nil
		},
	}
}
