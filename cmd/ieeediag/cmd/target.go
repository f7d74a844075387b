package cmd

import (
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/diag"
	"github.com/OpenTraceLab/OpenTraceIEEE/pkg/ieee488"
	"github.com/spf13/pflag"
)

// targetValue parses --device "device:channel"
type targetValue struct {
	dc ieee488.DeviceChannel
}

var _ pflag.Value = (*targetValue)(nil)

func newTargetValue() *targetValue {
	return &targetValue{dc: diag.DefaultTarget}
}

func (v *targetValue) String() string { return v.dc.String() }

func (v *targetValue) Set(s string) error {
	dc, err := ieee488.ParseDeviceChannel(s)
	if err != nil {
		return err
	}
	v.dc = dc
	return nil
}

func (v *targetValue) Type() string { return "device:channel" }
