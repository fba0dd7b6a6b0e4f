// Package interrupt provides the blocking interrupt-source abstraction that
// processing elements and the DMA engine synchronize against.
package interrupt

import (
	"fmt"

	"github.com/tapasco-rs/runtime/pkg/driver"
)

// Source is a single interrupt line, identified by its driver-assigned
// index. Wait blocks until the kernel reports the line has fired; it never
// cancels.
type Source interface {
	Wait() error
}

// Error wraps a failure to wait on an interrupt source.
type Error struct {
	Index uint32
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("interrupt %d: %v", e.Index, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// DeviceSource is a Source backed by the tlkm driver's
// wait_for_interrupt ioctl.
type DeviceSource struct {
	dev   *driver.DeviceFile
	index uint32
}

// NewDeviceSource builds a Source for interrupt line index on dev.
func NewDeviceSource(dev *driver.DeviceFile, index uint32) *DeviceSource {
	return &DeviceSource{dev: dev, index: index}
}

// Index returns the interrupt line index.
func (s *DeviceSource) Index() uint32 {
	return s.index
}

// Wait blocks until the interrupt source fires once.
func (s *DeviceSource) Wait() error {
	if err := s.dev.WaitForInterrupt(s.index); err != nil {
		return &Error{Index: s.index, Cause: err}
	}
	return nil
}
