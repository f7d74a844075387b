package ieee488

import (
	"errors"
	"testing"
)

func TestNewDeviceChannelRange(t *testing.T) {
	for dev := 0; dev <= 255; dev++ {
		for ch := 0; ch <= 255; ch++ {
			dc, err := NewDeviceChannel(uint8(dev), uint8(ch))
			valid := dev <= MaxDevice && ch <= MaxChannel
			if valid {
				if err != nil {
					t.Fatalf("NewDeviceChannel(%d, %d) returned error: %v", dev, ch, err)
				}
				if dc.Device() != uint8(dev) || dc.Channel() != uint8(ch) {
					t.Fatalf("NewDeviceChannel(%d, %d) = %s", dev, ch, dc)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidAddress) {
				t.Fatalf("NewDeviceChannel(%d, %d) error = %v, want ErrInvalidAddress", dev, ch, err)
			}
		}
	}
}

func TestDeviceChannelValueSemantics(t *testing.T) {
	a := MustDeviceChannel(8, 15)
	b := a
	if a != b {
		t.Fatalf("copy %s != original %s", b, a)
	}
	if c := MustDeviceChannel(8, 2); c == a {
		t.Fatalf("%s should differ from %s", c, a)
	}
	if a.String() != "8:15" {
		t.Fatalf("String() = %q, want 8:15", a.String())
	}
}

func TestDeviceChannelCommandBytes(t *testing.T) {
	dc := MustDeviceChannel(8, 15)
	if got := dc.TalkAddress(); got != 0x48 {
		t.Errorf("TalkAddress() = 0x%02X, want 0x48", got)
	}
	if got := dc.ListenAddress(); got != 0x28 {
		t.Errorf("ListenAddress() = 0x%02X, want 0x28", got)
	}
	if got := dc.SecondaryAddress(); got != 0x6F {
		t.Errorf("SecondaryAddress() = 0x%02X, want 0x6F", got)
	}
	if CmdUnlisten != 0x3F || CmdUntalk != 0x5F {
		t.Errorf("unexpected release commands UNL=0x%02X UNT=0x%02X", CmdUnlisten, CmdUntalk)
	}
}

func TestParseDeviceChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    DeviceChannel
		wantErr bool
	}{
		{in: "8:15", want: MustDeviceChannel(8, 15)},
		{in: " 9:2 ", want: MustDeviceChannel(9, 2)},
		{in: "0:0", want: MustDeviceChannel(0, 0)},
		{in: "30:31", want: MustDeviceChannel(30, 31)},
		{in: "31:0", wantErr: true},
		{in: "8:32", wantErr: true},
		{in: "8", wantErr: true},
		{in: "a:15", wantErr: true},
		{in: "8:-1", wantErr: true},
		{in: "300:1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDeviceChannel(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("ParseDeviceChannel(%q) error = %v, want ErrInvalidAddress", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeviceChannel(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDeviceChannel(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestMustDeviceChannelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for device 31")
		}
	}()
	MustDeviceChannel(31, 0)
}
