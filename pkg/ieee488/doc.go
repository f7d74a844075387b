// Package ieee488 models the controller side of an IEEE-488 bus driven
// through a USB adapter.
//
// The package provides:
//   - DeviceChannel: a validated primary/secondary address pair
//   - Bus: the single connection to an adapter, gated by an explicit state
//     machine (Uninitialized, Ready, Talking, Listening)
//   - Transport: the primitive operations an adapter must expose
//   - SimTransport: an in-memory adapter for tests and dry runs
//
// # Usage
//
//	bus := ieee488.NewBus(transport)
//	defer bus.Close()
//
//	dc, _ := ieee488.NewDeviceChannel(8, 15)
//	if err := bus.Initialize(); err != nil { ... }
//	if err := bus.Talk(dc); err != nil { ... }
//	n, err := bus.Read(buf)
//
// # Talk/Listen asymmetry
//
// After a talk/read exchange the bus moves straight to Listen without an
// untalk on the wire, matching the drive diagnostics protocol. Bus accepts
// Listen from Talking for that reason. There is no Untalk operation.
package ieee488
