package xum1541

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
)

const (
	DefaultTimeout     = 3 * time.Second
	DefaultStatusPolls = 50
)

// link is the raw USB plumbing underneath a Transport. The gousb-backed
// implementation lives in usb.go.
type link interface {
	controlIn(request uint8, buf []byte) (int, error)
	controlOut(request uint8) error
	bulkWrite(p []byte) (int, error)
	bulkRead(p []byte) (int, error)
	close() error
}

// Config selects the adapter and bounds its transfers.
type Config struct {
	VendorID  uint16
	ProductID uint16
	// Serial picks one adapter when several are attached. Empty matches any.
	Serial  string
	Timeout time.Duration
	// StatusPolls bounds how many BUSY replies a write tolerates before
	// giving up with a timeout.
	StatusPolls int
}

// DefaultConfig targets the stock xum1541/ZoomFloppy identifiers.
func DefaultConfig() Config {
	return Config{
		VendorID:    VendorID,
		ProductID:   ProductID,
		Timeout:     DefaultTimeout,
		StatusPolls: DefaultStatusPolls,
	}
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger used for adapter diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.log = l
		}
	}
}

// Transport drives an IEEE-488 bus through an xum1541 adapter. It implements
// ieee488.Transport.
type Transport struct {
	link link
	cfg  Config
	info InitReply
	log  *slog.Logger
}

var _ ieee488.Transport = (*Transport)(nil)

// Open claims the adapter described by cfg. The returned Transport must be
// closed, normally by handing it to an ieee488.Bus.
func Open(cfg Config, opts ...Option) (*Transport, error) {
	cfg = withDefaults(cfg)
	l, err := openUSB(cfg)
	if err != nil {
		return nil, err
	}
	return newTransport(l, cfg, opts...), nil
}

func newTransport(l link, cfg Config, opts ...Option) *Transport {
	t := &Transport{
		link: l,
		cfg:  withDefaults(cfg),
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.VendorID == 0 {
		cfg.VendorID = def.VendorID
	}
	if cfg.ProductID == 0 {
		cfg.ProductID = def.ProductID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.StatusPolls <= 0 {
		cfg.StatusPolls = def.StatusPolls
	}
	return cfg
}

// Info returns the reply to the last successful INIT
func (t *Transport) Info() InitReply {
	return t.info
}

// Initialize performs the INIT handshake.
func (t *Transport) Initialize() error {
	if t.link == nil {
		return ieee488.ErrClosed
	}
	buf := make([]byte, InitReplySize)
	n, err := t.link.controlIn(CtrlInit, buf)
	if err != nil {
		return fmt.Errorf("xum1541: init: %w", err)
	}
	reply, err := DecodeInitReply(buf[:n])
	if err != nil {
		return fmt.Errorf("%w: %v", ieee488.ErrIO, err)
	}
	if !reply.SupportsIEEE488() {
		return fmt.Errorf("%w: xum1541: firmware v%d has no IEEE-488 support", ieee488.ErrIO, reply.Firmware)
	}
	if reply.WasResetting() {
		t.log.Info("adapter was recovering from an interrupted transfer")
	}
	if !reply.IEEE488Attached() {
		t.log.Warn("no IEEE-488 cable detected by adapter", "info", reply.String())
	}
	t.info = reply
	t.log.Debug("adapter initialized", "info", reply.String())
	return nil
}

// Talk sends MTA and MSA under ATN, then turns the bus around so the adapter
// listens.
func (t *Transport) Talk(device, channel uint8) error {
	dc, err := ieee488.NewDeviceChannel(device, channel)
	if err != nil {
		return err
	}
	return t.command("talk", WriteTalk, dc.TalkAddress(), dc.SecondaryAddress())
}

// Listen sends MLA and MSA under ATN
func (t *Transport) Listen(device, channel uint8) error {
	dc, err := ieee488.NewDeviceChannel(device, channel)
	if err != nil {
		return err
	}
	return t.command("listen", 0, dc.ListenAddress(), dc.SecondaryAddress())
}

// Unlisten sends UNL under ATN
func (t *Transport) Unlisten() error {
	return t.command("unlisten", 0, ieee488.CmdUnlisten)
}

// Read requests up to maxLen bytes from the current talker.
func (t *Transport) Read(maxLen int) ([]byte, error) {
	if t.link == nil {
		return nil, ieee488.ErrClosed
	}
	if maxLen > MaxTransfer {
		maxLen = MaxTransfer
	}
	hdr, err := EncodeCommand(CmdRead, ProtoCBM, maxLen)
	if err != nil {
		return nil, err
	}
	if _, err := t.link.bulkWrite(hdr); err != nil {
		return nil, fmt.Errorf("xum1541: read command: %w", err)
	}
	buf := make([]byte, maxLen)
	n, err := t.link.bulkRead(buf)
	if err != nil {
		return nil, fmt.Errorf("xum1541: read: %w", err)
	}
	return buf[:n], nil
}

// Write sends p to the current listeners and returns the count the adapter
// reports as transferred.
func (t *Transport) Write(p []byte) (int, error) {
	return t.write("write", ProtoCBM, p)
}

// Close shuts the adapter down and releases the USB handles. It is safe to
// call more than once.
func (t *Transport) Close() error {
	if t.link == nil {
		return nil
	}
	if err := t.link.controlOut(CtrlShutdown); err != nil {
		t.log.Debug("adapter shutdown failed", "error", err)
	}
	err := t.link.close()
	t.link = nil
	return err
}

// command sends bus command bytes under ATN. Every device on the bus takes
// part in the ATN handshake, so a short count means nobody answered.
func (t *Transport) command(op string, flags byte, cmds ...byte) error {
	n, err := t.write(op, ProtoCBM|WriteATN|flags, cmds)
	if err != nil {
		return err
	}
	if n != len(cmds) {
		return fmt.Errorf("xum1541: %s: %w (% X accepted %d of %d bytes)",
			op, ieee488.ErrDeviceNotResponding, cmds, n, len(cmds))
	}
	return nil
}

func (t *Transport) write(op string, flags byte, p []byte) (int, error) {
	if t.link == nil {
		return 0, ieee488.ErrClosed
	}
	hdr, err := EncodeCommand(CmdWrite, flags, len(p))
	if err != nil {
		return 0, err
	}
	if _, err := t.link.bulkWrite(hdr); err != nil {
		return 0, fmt.Errorf("xum1541: %s command: %w", op, err)
	}
	if _, err := t.link.bulkWrite(p); err != nil {
		return 0, fmt.Errorf("xum1541: %s data: %w", op, err)
	}
	return t.waitStatus(op)
}

// waitStatus polls the adapter until the last write completes
func (t *Transport) waitStatus(op string) (int, error) {
	buf := make([]byte, StatusSize)
	for i := 0; i < t.cfg.StatusPolls; i++ {
		n, err := t.link.bulkRead(buf)
		if err != nil {
			return 0, fmt.Errorf("xum1541: %s status: %w", op, err)
		}
		status, count, err := DecodeStatus(buf[:n])
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ieee488.ErrIO, err)
		}
		switch status {
		case IOReady:
			return count, nil
		case IOError:
			return count, fmt.Errorf("xum1541: %s: %w: adapter reported io error after %d bytes", op, ieee488.ErrIO, count)
		}
	}
	return 0, fmt.Errorf("xum1541: %s: %w: adapter busy after %d polls", op, ieee488.ErrTimeout, t.cfg.StatusPolls)
}
