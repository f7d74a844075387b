package xum1541

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
)

// usbLink handles USB communication with the xum1541
type usbLink struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface

	epOut *gousb.OutEndpoint
	epIn  *gousb.InEndpoint

	timeout time.Duration
}

func openUSB(cfg Config) (*usbLink, error) {
	ctx := gousb.NewContext()

	dev, err := openDevice(ctx, cfg)
	if err != nil {
		ctx.Close()
		return nil, err
	}

	// Not supported on every platform; claiming still works without it.
	_ = dev.SetAutoDetach(true)
	dev.ControlTimeout = cfg.Timeout

	l := &usbLink{
		ctx:     ctx,
		dev:     dev,
		timeout: cfg.Timeout,
	}
	if err := l.claimInterface(); err != nil {
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return l, nil
}

// openDevice opens the first adapter matching VID/PID and, when set, serial.
func openDevice(ctx *gousb.Context, cfg Config) (*gousb.Device, error) {
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(cfg.VendorID) && desc.Product == gousb.ID(cfg.ProductID)
	})
	if len(devs) == 0 {
		if err != nil {
			return nil, fmt.Errorf("%w: xum1541: USB error: %v", ieee488.ErrIO, err)
		}
		return nil, fmt.Errorf("%w: xum1541: device not found (VID:0x%04X PID:0x%04X)",
			ieee488.ErrIO, cfg.VendorID, cfg.ProductID)
	}

	var chosen *gousb.Device
	for _, dev := range devs {
		if chosen == nil && matchesSerial(dev, cfg.Serial) {
			chosen = dev
			continue
		}
		dev.Close()
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: xum1541: no adapter with serial %q", ieee488.ErrIO, cfg.Serial)
	}
	return chosen, nil
}

func matchesSerial(dev *gousb.Device, serial string) bool {
	if serial == "" {
		return true
	}
	got, err := dev.SerialNumber()
	return err == nil && got == serial
}

// claimInterface claims the vendor-class interface, falling back to
// interface 0, and opens its bulk endpoints.
func (l *usbLink) claimInterface() error {
	cfgNum, err := l.dev.ActiveConfigNum()
	if err != nil {
		cfgNum = 1
	}
	cfg, err := l.dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("%w: xum1541: failed to get config %d: %v", ieee488.ErrIO, cfgNum, err)
	}

	intfNum := 0
	for _, desc := range cfg.Desc.Interfaces {
		if len(desc.AltSettings) > 0 && desc.AltSettings[0].Class == gousb.ClassVendorSpec {
			intfNum = desc.Number
			break
		}
	}

	intf, err := cfg.Interface(intfNum, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("%w: xum1541: failed to claim interface %d: %v", ieee488.ErrIO, intfNum, err)
	}
	l.config = cfg
	l.intf = intf

	if err := l.findEndpoints(); err != nil {
		intf.Close()
		cfg.Close()
		return err
	}
	return nil
}

func (l *usbLink) findEndpoints() error {
	var outNum, inNum int
	for _, ep := range l.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if outNum == 0 {
				outNum = ep.Number
			}
		case gousb.EndpointDirectionIn:
			if inNum == 0 {
				inNum = ep.Number
			}
		}
	}
	if outNum == 0 {
		return fmt.Errorf("%w: xum1541: bulk OUT endpoint not found", ieee488.ErrIO)
	}
	if inNum == 0 {
		return fmt.Errorf("%w: xum1541: bulk IN endpoint not found", ieee488.ErrIO)
	}

	epOut, err := l.intf.OutEndpoint(outNum)
	if err != nil {
		return fmt.Errorf("%w: xum1541: failed to open OUT endpoint: %v", ieee488.ErrIO, err)
	}
	epIn, err := l.intf.InEndpoint(inNum)
	if err != nil {
		return fmt.Errorf("%w: xum1541: failed to open IN endpoint: %v", ieee488.ErrIO, err)
	}
	l.epOut = epOut
	l.epIn = epIn
	return nil
}

const (
	ctrlIn  = gousb.ControlIn | gousb.ControlVendor | gousb.ControlDevice
	ctrlOut = gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice
)

func (l *usbLink) controlIn(request uint8, buf []byte) (int, error) {
	n, err := l.dev.Control(ctrlIn, request, 0, 0, buf)
	return n, usbError(err, nil)
}

func (l *usbLink) controlOut(request uint8) error {
	_, err := l.dev.Control(ctrlOut, request, 0, 0, nil)
	return usbError(err, nil)
}

func (l *usbLink) bulkWrite(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	n, err := l.epOut.WriteContext(ctx, p)
	return n, usbError(err, ctx.Err())
}

func (l *usbLink) bulkRead(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	n, err := l.epIn.ReadContext(ctx, p)
	return n, usbError(err, ctx.Err())
}

func (l *usbLink) close() error {
	if l.intf != nil {
		l.intf.Close()
		l.intf = nil
	}
	var err error
	if l.config != nil {
		err = l.config.Close()
		l.config = nil
	}
	if l.dev != nil {
		if cerr := l.dev.Close(); err == nil {
			err = cerr
		}
		l.dev = nil
	}
	if l.ctx != nil {
		if cerr := l.ctx.Close(); err == nil {
			err = cerr
		}
		l.ctx = nil
	}
	return err
}

// usbError maps gousb failures onto the ieee488 error kinds.
func usbError(err, ctxErr error) error {
	if err == nil {
		return nil
	}
	if errors.Is(ctxErr, context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gousb.TransferTimedOut) ||
		errors.Is(err, gousb.ErrorTimeout) {
		return fmt.Errorf("%w: %v", ieee488.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ieee488.ErrIO, err)
}
