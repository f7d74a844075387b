package diag

import (
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
)

// DefaultTarget is the drive diagnostics endpoint: device 8, command channel 15.
var DefaultTarget = ieee488.MustDeviceChannel(8, 15)

// TransferResult records the outcome of one write iteration.
type TransferResult struct {
	Iteration int // 1-based
	Byte      byte
	Err       error
}

// OK reports whether the iteration completed.
func (r TransferResult) OK() bool { return r.Err == nil }

// Kind returns the ieee488 error kind of a failed iteration, or nil.
func (r TransferResult) Kind() error { return ieee488.Kind(r.Err) }

// Sequencer encodes the diagnostics probe as an ordered series of bus calls.
type Sequencer struct {
	bus    *ieee488.Bus
	target ieee488.DeviceChannel
	size   int
	log    *slog.Logger
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithSequencerLogger sets the logger for per-step diagnostics
func WithSequencerLogger(l *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStatusSize sets the read buffer offered for the status reply.
func WithStatusSize(n int) SequencerOption {
	return func(s *Sequencer) {
		if n > 0 {
			s.size = n
		}
	}
}

// NewSequencer drives bus against target.
func NewSequencer(bus *ieee488.Bus, target ieee488.DeviceChannel, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		bus:    bus,
		target: target,
		size:   StatusBufferSize,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Target returns the addressed endpoint
func (s *Sequencer) Target() ieee488.DeviceChannel { return s.target }

// Probe initializes the bus, addresses the target to talk and reads its
// status. Any bus failure here is fatal to the whole sequence and is
// returned; an undecodable status is not, and is reported in Status.Warning.
//
// The bus is left Talking: no untalk follows the read.
func (s *Sequencer) Probe() (Status, error) {
	if err := s.bus.Initialize(); err != nil {
		return Status{}, fmt.Errorf("failed to initialize bus: %w", err)
	}
	if err := s.bus.Talk(s.target); err != nil {
		return Status{}, fmt.Errorf("failed to address %s to talk: %w", s.target, err)
	}

	buf := make([]byte, s.size)
	n, err := s.bus.Read(buf)
	if err != nil {
		return Status{}, fmt.Errorf("failed to read status from %s: %w", s.target, err)
	}

	st := DecodeStatus(buf[:n])
	if st.Warning != nil {
		s.log.Warn("status is not printable text", "target", s.target.String(), "bytes", n, "error", st.Warning)
	} else {
		s.log.Debug("status read", "target", s.target.String(), "status", st.Text)
	}
	return st, nil
}

// Send performs one write iteration: listen, write b, unlisten. A failure
// ends only this iteration and is recorded in the result. If the write fails
// after the target was addressed, the listener is released so the next
// iteration starts from Ready.
//
// A listener left over from an earlier iteration whose unlisten failed is
// released first, as part of this iteration.
func (s *Sequencer) Send(iteration int, b byte) TransferResult {
	res := TransferResult{Iteration: iteration, Byte: b}
	log := s.log.With("iteration", iteration, "target", s.target.String())

	if st := s.bus.State(); st.Kind == ieee488.StateListening {
		log.Debug("releasing stale listener", "state", st.String())
		if err := s.bus.Unlisten(); err != nil {
			res.Err = fmt.Errorf("release listener: %w", err)
			log.Debug("iteration failed", "error", res.Err)
			return res
		}
	}
	if err := s.bus.Listen(s.target); err != nil {
		res.Err = fmt.Errorf("listen: %w", err)
		log.Debug("iteration failed", "error", res.Err)
		return res
	}
	if err := s.bus.Write([]byte{b}); err != nil {
		res.Err = fmt.Errorf("write 0x%02X: %w", b, err)
		log.Debug("iteration failed", "error", res.Err)
		if rerr := s.bus.Unlisten(); rerr != nil {
			log.Warn("failed to release listener after write error", "error", rerr)
		}
		return res
	}
	if err := s.bus.Unlisten(); err != nil {
		res.Err = fmt.Errorf("unlisten: %w", err)
		log.Debug("iteration failed", "error", res.Err)
		return res
	}
	log.Debug("iteration complete", "byte", fmt.Sprintf("0x%02X", b))
	return res
}
