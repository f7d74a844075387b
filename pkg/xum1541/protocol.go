package xum1541

import (
	"encoding/binary"
	"fmt"
)

// USB identifiers shared by xum1541 firmware and ZoomFloppy
const (
	VendorID  = 0x16D0
	ProductID = 0x0504
)

// MinFirmwareVersion is the oldest firmware speaking this command set.
const MinFirmwareVersion = 7

// Control requests (vendor, device recipient)
const (
	CtrlInit     = 0x01
	CtrlShutdown = 0x03
)

// Bulk commands
const (
	CmdRead  = 0x08
	CmdWrite = 0x09
)

// Protocol selector and write flags (second command byte)
const (
	ProtoCBM  = 1 << 4
	WriteTalk = 1 << 0 // after the ATN bytes, turn around and become listener
	WriteATN  = 1 << 1 // send the bytes under ATN (bus commands)
)

// IO status codes reported after a write
const (
	IOBusy  = 1
	IOReady = 2
	IOError = 3
)

// Capability bits in the INIT reply
const (
	CapCBM     = 0x01
	CapIEEE488 = 0x08
)

// Status bits in the INIT reply
const (
	StatusDoingReset     = 0x01
	StatusIEEE488Present = 0x10
)

// Sizes fixed by the firmware
const (
	CommandSize   = 4
	StatusSize    = 3
	InitReplySize = 8
	MaxTransfer   = 32768
)

// InitReply is the decoded response to the INIT control request.
type InitReply struct {
	Firmware     uint8
	Capabilities uint8
	Status       uint8
}

// SupportsIEEE488 reports whether the firmware can drive an IEEE-488 bus.
func (r InitReply) SupportsIEEE488() bool {
	return r.Capabilities&CapIEEE488 != 0
}

// IEEE488Attached reports whether the firmware detected an IEEE-488 cable.
func (r InitReply) IEEE488Attached() bool {
	return r.Status&StatusIEEE488Present != 0
}

// WasResetting reports whether the adapter was still recovering from an
// interrupted transfer when INIT arrived.
func (r InitReply) WasResetting() bool {
	return r.Status&StatusDoingReset != 0
}

func (r InitReply) String() string {
	return fmt.Sprintf("firmware v%d caps 0x%02X status 0x%02X", r.Firmware, r.Capabilities, r.Status)
}

// EncodeCommand builds the 4-byte bulk command header.
func EncodeCommand(cmd, flags byte, length int) ([]byte, error) {
	if length < 0 || length > MaxTransfer {
		return nil, fmt.Errorf("xum1541: transfer length %d out of range [0, %d]", length, MaxTransfer)
	}
	buf := make([]byte, CommandSize)
	buf[0] = cmd
	buf[1] = flags
	binary.LittleEndian.PutUint16(buf[2:], uint16(length))
	return buf, nil
}

// DecodeInitReply parses the INIT control response.
func DecodeInitReply(resp []byte) (InitReply, error) {
	if len(resp) < 3 {
		return InitReply{}, fmt.Errorf("xum1541: init reply too short (%d bytes)", len(resp))
	}
	reply := InitReply{
		Firmware:     resp[0],
		Capabilities: resp[1],
		Status:       resp[2],
	}
	if reply.Firmware < MinFirmwareVersion {
		return reply, fmt.Errorf("xum1541: firmware v%d too old, need v%d or newer", reply.Firmware, MinFirmwareVersion)
	}
	return reply, nil
}

// DecodeStatus parses the 3-byte status returned after a write. It returns
// the IO status code and the byte count the adapter reports.
func DecodeStatus(resp []byte) (status byte, count int, err error) {
	if len(resp) < StatusSize {
		return 0, 0, fmt.Errorf("xum1541: status reply too short (%d bytes)", len(resp))
	}
	status = resp[0]
	switch status {
	case IOBusy, IOReady, IOError:
	default:
		return 0, 0, fmt.Errorf("xum1541: unknown io status 0x%02X", status)
	}
	return status, int(binary.LittleEndian.Uint16(resp[1:])), nil
}
