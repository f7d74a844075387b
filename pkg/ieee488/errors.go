package ieee488

import (
	"errors"
	"fmt"
)

// Bus error kinds. Transports wrap these so callers can classify failures
// with errors.Is regardless of the adapter in use.
var (
	// ErrInvalidAddress indicates a device or channel outside the bus limits.
	ErrInvalidAddress = errors.New("invalid bus address")

	// ErrInvalidState indicates an operation issued in the wrong bus state.
	ErrInvalidState = errors.New("invalid bus state")

	// ErrDeviceNotResponding indicates the addressed device did not acknowledge.
	ErrDeviceNotResponding = errors.New("device not responding")

	// ErrTimeout indicates the transport stalled.
	ErrTimeout = errors.New("bus timeout")

	// ErrIO indicates a transport-level fault.
	ErrIO = errors.New("bus I/O error")

	// ErrDecode indicates status bytes that are not printable text. It is a
	// warning and never aborts a sequence.
	ErrDecode = errors.New("status is not printable text")

	// ErrClosed indicates the connection has already released its adapter.
	ErrClosed = errors.New("bus connection closed")
)

var kinds = []error{
	ErrInvalidAddress,
	ErrInvalidState,
	ErrDeviceNotResponding,
	ErrTimeout,
	ErrClosed,
	ErrDecode,
	ErrIO,
}

// BusError records the operation that failed and the bus state it was issued
// in.
type BusError struct {
	Op    string
	State State
	Err   error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("ieee488: %s in state %s: %v", e.Op, e.State, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Kind returns the error kind sentinel err belongs to. Errors that carry no
// kind are treated as ErrIO; a nil error returns nil.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrIO
}

// classify makes sure a transport error carries a kind, defaulting to ErrIO.
func classify(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
