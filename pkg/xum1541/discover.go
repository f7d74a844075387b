package xum1541

import (
	"context"
	"fmt"

	"github.com/google/gousb"
)

// InterfaceKind categorizes adapter families
type InterfaceKind string

const (
	InterfaceKindXUM1541 InterfaceKind = "xum1541"
	InterfaceKindSim     InterfaceKind = "simulator"
)

// InterfaceInfo describes a detected adapter
type InterfaceInfo struct {
	Kind        InterfaceKind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Bus         int
	Address     int
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	label := i.Description
	if label == "" {
		label = fmt.Sprintf("%s (%04X:%04X)", i.Kind, i.VendorID, i.ProductID)
	}
	if i.Serial != "" {
		label += " serial " + i.Serial
	}
	return label
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

var knownAdapters = []knownUSBDevice{
	{VendorID: VendorID, ProductID: ProductID, Description: "xum1541 / ZoomFloppy"},
}

// Discover enumerates attached adapters with known VID/PID pairs. The
// simulator entry is always appended so a dry run can be selected without
// hardware.
func Discover(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	devs, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		_, ok := classify(desc)
		return ok
	})
	for _, dev := range devs {
		info, _ := classify(dev.Desc)
		if serial, serr := dev.SerialNumber(); serr == nil {
			info.Serial = serial
		}
		results = append(results, info)
		dev.Close()
	}
	if err != nil && err != gousb.ErrorAccess {
		return results, err
	}

	results = append(results, InterfaceInfo{
		Kind:        InterfaceKindSim,
		Description: "Simulator (no hardware)",
	})
	return results, nil
}

func classify(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, known := range knownAdapters {
		if uint16(desc.Vendor) == known.VendorID && uint16(desc.Product) == known.ProductID {
			return InterfaceInfo{
				Kind:        InterfaceKindXUM1541,
				Description: known.Description,
				VendorID:    known.VendorID,
				ProductID:   known.ProductID,
				Bus:         desc.Bus,
				Address:     desc.Address,
			}, true
		}
	}
	return InterfaceInfo{}, false
}
