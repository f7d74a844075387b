package ieee488

// Transport abstracts the USB adapter that drives the physical bus. Each call
// is blocking and synchronous; electrical timing is the adapter's concern.
//
// Implementations report failures by wrapping ErrTimeout,
// ErrDeviceNotResponding or ErrIO. Opening the adapter is done by the
// concrete constructor; Close releases it.
type Transport interface {
	// Initialize resets the adapter and performs its firmware handshake.
	Initialize() error
	// Talk addresses device to transmit on channel.
	Talk(device, channel uint8) error
	// Listen addresses device to receive on channel.
	Listen(device, channel uint8) error
	// Read returns up to maxLen bytes from the current talker.
	Read(maxLen int) ([]byte, error)
	// Write sends p to the current listeners and returns the count accepted.
	Write(p []byte) (int, error)
	// Unlisten releases all listeners.
	Unlisten() error
	Close() error
}
