// Package diag runs the drive diagnostics probe over an ieee488.Bus.
//
// A probe initializes the bus, addresses the target (device 8, channel 15
// by default) to talk and reads the diagnostics ROM status. The single
// character command is then written in N iterations, each one addressing
// the target to listen, writing the byte and unlistening:
//
//	seq := diag.NewSequencer(bus, diag.DefaultTarget)
//	status, err := seq.Probe()
//	ctrl := diag.NewController(seq)
//	for res := range ctrl.Iterate('A', 3) {
//		...
//	}
//
// Probe failures are fatal. Iteration failures are recorded in the
// TransferResult of that iteration and the remaining iterations still run.
// Nothing is retried.
package diag
