package ieee488

import (
	"fmt"
	"strconv"
	"strings"
)

// Bus addressing limits. Primary address 31 is reserved for the
// unlisten/untalk commands, so devices occupy 0-30.
const (
	MaxDevice  = 30
	MaxChannel = 31
)

// IEEE-488 command bytes sent while ATN is asserted.
const (
	cmdListen    = 0x20 // MLA: my listen address
	cmdTalk      = 0x40 // MTA: my talk address
	cmdSecondary = 0x60 // MSA: secondary address
	cmdUnlisten  = 0x3F // UNL
	cmdUntalk    = 0x5F // UNT
)

// Command bytes for releasing every listener or talker on the bus.
const (
	CmdUnlisten byte = cmdUnlisten
	CmdUntalk   byte = cmdUntalk
)

// DeviceChannel identifies a bus endpoint: a primary device address and a
// secondary address (channel). The zero value is device 0, channel 0.
type DeviceChannel struct {
	device  uint8
	channel uint8
}

// NewDeviceChannel validates device and channel against the bus addressing
// limits.
func NewDeviceChannel(device, channel uint8) (DeviceChannel, error) {
	dc := DeviceChannel{device: device, channel: channel}
	if err := dc.Validate(); err != nil {
		return DeviceChannel{}, err
	}
	return dc, nil
}

// MustDeviceChannel is like NewDeviceChannel but panics on an invalid address.
// It is intended for constants such as the default diagnostics target.
func MustDeviceChannel(device, channel uint8) DeviceChannel {
	dc, err := NewDeviceChannel(device, channel)
	if err != nil {
		panic(err)
	}
	return dc
}

// ParseDeviceChannel parses the "device:channel" form, e.g. "8:15".
func ParseDeviceChannel(s string) (DeviceChannel, error) {
	devStr, chStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DeviceChannel{}, fmt.Errorf("%w: %q is not in device:channel form", ErrInvalidAddress, s)
	}
	dev, err := strconv.ParseUint(devStr, 10, 8)
	if err != nil {
		return DeviceChannel{}, fmt.Errorf("%w: device %q: %v", ErrInvalidAddress, devStr, err)
	}
	ch, err := strconv.ParseUint(chStr, 10, 8)
	if err != nil {
		return DeviceChannel{}, fmt.Errorf("%w: channel %q: %v", ErrInvalidAddress, chStr, err)
	}
	return NewDeviceChannel(uint8(dev), uint8(ch))
}

// Validate reports whether the address is within the bus limits.
func (dc DeviceChannel) Validate() error {
	if dc.device > MaxDevice {
		return fmt.Errorf("%w: device %d out of range [0, %d]", ErrInvalidAddress, dc.device, MaxDevice)
	}
	if dc.channel > MaxChannel {
		return fmt.Errorf("%w: channel %d out of range [0, %d]", ErrInvalidAddress, dc.channel, MaxChannel)
	}
	return nil
}

func (dc DeviceChannel) Device() uint8  { return dc.device }
func (dc DeviceChannel) Channel() uint8 { return dc.channel }

// TalkAddress returns the MTA command byte for the device.
func (dc DeviceChannel) TalkAddress() byte { return cmdTalk | dc.device }

// ListenAddress returns the MLA command byte for the device.
func (dc DeviceChannel) ListenAddress() byte { return cmdListen | dc.device }

// SecondaryAddress returns the MSA command byte for the channel.
func (dc DeviceChannel) SecondaryAddress() byte { return cmdSecondary | dc.channel }

func (dc DeviceChannel) String() string {
	return fmt.Sprintf("%d:%d", dc.device, dc.channel)
}
