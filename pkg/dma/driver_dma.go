package dma

import "github.com/tapasco-rs/runtime/pkg/driver"

// DriverDMA routes every transfer through the tlkm driver's copy_to/copy_from
// ioctls. It works on any platform; it is also the slowest strategy, since
// every call crosses into the kernel and the driver does its own staging.
type DriverDMA struct {
	dev *driver.DeviceFile
}

// NewDriverDMA builds a DriverDMA over an open device handle.
func NewDriverDMA(dev *driver.DeviceFile) *DriverDMA {
	return &DriverDMA{dev: dev}
}

// CopyTo copies data from host memory to the device address addr via the
// driver's copy_to ioctl.
func (d *DriverDMA) CopyTo(addr uint64, data []byte) error {
	if err := d.dev.CopyTo(addr, data); err != nil {
		return &Error{Kind: KindDMAToDevice, Cause: err}
	}
	return nil
}

// CopyFrom copies data from the device address addr into host memory via
// the driver's copy_from ioctl.
func (d *DriverDMA) CopyFrom(addr uint64, data []byte) error {
	if err := d.dev.CopyFrom(addr, data); err != nil {
		return &Error{Kind: KindDMAFromDevice, Cause: err}
	}
	return nil
}
