package ieee488

import (
	"fmt"
	"log/slog"
)

// Bus is the single logical connection to one adapter. It owns the transport
// for its whole lifetime and gates every primitive on the current bus state:
//
//	Uninitialized --Initialize--> Ready
//	Ready         --Talk(dc)----> Talking(dc)
//	Ready         --Listen(dc)--> Listening(dc)
//	Talking(dc)   --Read-------> Talking(dc)
//	Talking(dc)   --Listen(dc')-> Listening(dc')   talker released implicitly
//	Listening(dc) --Write------> Listening(dc)
//	Listening(dc) --Unlisten---> Ready
//
// Any other call fails with ErrInvalidState. A failed call, whether rejected
// or failed by the transport, never changes the state.
//
// Bus is not safe for concurrent use; the bus has a single controller.
type Bus struct {
	transport Transport
	state     State
	closed    bool
	log       *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.log = l
		}
	}
}

// NewBus takes ownership of t. The caller must not use t afterwards and must
// call Close to release it.
func NewBus(t Transport, opts ...BusOption) *Bus {
	b := &Bus{
		transport: t,
		state:     State{Kind: StateUninitialized},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State reports the current bus state.
func (b *Bus) State() State {
	return b.state
}

// Initialize resets the adapter and moves the bus to Ready.
func (b *Bus) Initialize() error {
	if err := b.require("initialize", StateUninitialized); err != nil {
		return err
	}
	if err := b.transport.Initialize(); err != nil {
		return b.fail("initialize", err)
	}
	b.transition(State{Kind: StateReady})
	return nil
}

// Talk addresses dc to transmit.
func (b *Bus) Talk(dc DeviceChannel) error {
	if err := b.require("talk", StateReady); err != nil {
		return err
	}
	if err := dc.Validate(); err != nil {
		return &BusError{Op: "talk", State: b.state, Err: err}
	}
	if err := b.transport.Talk(dc.Device(), dc.Channel()); err != nil {
		return b.fail("talk", err)
	}
	b.transition(State{Kind: StateTalking, Channel: dc})
	return nil
}

// Listen addresses dc to receive. It is accepted from Talking as well as
// Ready: the diagnostics protocol never sends an untalk after reading the
// status, so addressing a listener is what ends the talk role.
func (b *Bus) Listen(dc DeviceChannel) error {
	if err := b.require("listen", StateReady, StateTalking); err != nil {
		return err
	}
	if err := dc.Validate(); err != nil {
		return &BusError{Op: "listen", State: b.state, Err: err}
	}
	if err := b.transport.Listen(dc.Device(), dc.Channel()); err != nil {
		return b.fail("listen", err)
	}
	if b.state.Kind == StateTalking {
		b.log.Debug("talker released without untalk", "talker", b.state.Channel.String())
	}
	b.transition(State{Kind: StateListening, Channel: dc})
	return nil
}

// Read fills buf from the current talker and returns the number of bytes
// received, which may be less than len(buf).
func (b *Bus) Read(buf []byte) (int, error) {
	if err := b.require("read", StateTalking); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	data, err := b.transport.Read(len(buf))
	if err != nil {
		return 0, b.fail("read", err)
	}
	if len(data) > len(buf) {
		return 0, b.fail("read", fmt.Errorf("%w: adapter returned %d bytes for a %d byte read", ErrIO, len(data), len(buf)))
	}
	n := copy(buf, data)
	b.log.Debug("bus read", "channel", b.state.Channel.String(), "bytes", n)
	return n, nil
}

// Write sends all of buf to the current listener. A short transfer is an
// error.
func (b *Bus) Write(buf []byte) error {
	if err := b.require("write", StateListening); err != nil {
		return err
	}
	if len(buf) == 0 {
		return nil
	}
	n, err := b.transport.Write(buf)
	if err != nil {
		return b.fail("write", err)
	}
	if n != len(buf) {
		return b.fail("write", fmt.Errorf("%w: short write, %d of %d bytes", ErrIO, n, len(buf)))
	}
	b.log.Debug("bus write", "channel", b.state.Channel.String(), "bytes", n)
	return nil
}

// Unlisten releases the listener and returns the bus to Ready.
func (b *Bus) Unlisten() error {
	if err := b.require("unlisten", StateListening); err != nil {
		return err
	}
	if err := b.transport.Unlisten(); err != nil {
		return b.fail("unlisten", err)
	}
	b.transition(State{Kind: StateReady})
	return nil
}

// Close releases the adapter from any state. It is safe to call more than
// once; every later operation fails with ErrClosed.
func (b *Bus) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	from := b.state
	b.state = State{Kind: StateUninitialized}
	b.log.Debug("bus closed", "from", from.String())
	if err := b.transport.Close(); err != nil {
		return &BusError{Op: "close", State: from, Err: classify(err)}
	}
	return nil
}

func (b *Bus) require(op string, allowed ...StateKind) error {
	if b.closed {
		return &BusError{Op: op, State: b.state, Err: ErrClosed}
	}
	for _, k := range allowed {
		if b.state.Kind == k {
			return nil
		}
	}
	return &BusError{Op: op, State: b.state, Err: ErrInvalidState}
}

func (b *Bus) fail(op string, err error) error {
	return &BusError{Op: op, State: b.state, Err: classify(err)}
}

func (b *Bus) transition(next State) {
	b.log.Debug("bus transition", "from", b.state.String(), "to", next.String())
	b.state = next
}
