// Package device opens and enumerates tapasco device nodes and maps the
// register window processing elements and the DMA engine are programmed
// through.
package device

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/tapasco-rs/runtime/pkg/driver"
	"github.com/tapasco-rs/runtime/pkg/register"
)

// defaultMapSize is the size of the register window mapped over a device's
// architecture BAR when the caller doesn't specify one.
const defaultMapSize = 4 * 1024 * 1024

// Device is an open tapasco device: the driver handle plus the mmap'd
// register window over its architecture address space.
type Device struct {
	file   *driver.DeviceFile
	window *register.MMIOWindow
	mem    []byte
	path   string
}

// Open opens the device node at path and maps mapSize bytes of its register
// window. A mapSize of 0 uses defaultMapSize.
func Open(path string, mapSize int) (*Device, error) {
	return open(path, 0, mapSize)
}

// OpenWithTimeout is Open with a bound on how long the open itself may take.
func OpenWithTimeout(path string, timeout time.Duration, mapSize int) (*Device, error) {
	return open(path, timeout, mapSize)
}

func open(path string, timeout time.Duration, mapSize int) (*Device, error) {
	if mapSize == 0 {
		mapSize = defaultMapSize
	}

	var file *driver.DeviceFile
	var err error
	if timeout > 0 {
		file, err = driver.OpenDeviceWithTimeout(path, timeout)
	} else {
		file, err = driver.OpenDevice(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open device %s: %w", path, err)
	}

	mem, err := unix.Mmap(file.Fd(), 0, mapSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmap device %s: %w", path, err)
	}

	return &Device{
		file:   file,
		window: register.NewMMIOWindow(mem),
		mem:    mem,
		path:   path,
	}, nil
}

// Close unmaps the register window and closes the device file.
func (d *Device) Close() error {
	if err := unix.Munmap(d.mem); err != nil {
		d.file.Close()
		return fmt.Errorf("munmap device %s: %w", d.path, err)
	}
	return d.file.Close()
}

// Path returns the device node this Device was opened from.
func (d *Device) Path() string {
	return d.path
}

// File returns the underlying driver handle, for packages (vfio, dmaengine)
// that need the same file descriptor.
func (d *Device) File() *driver.DeviceFile {
	return d.file
}

// Window returns the mapped register window.
func (d *Device) Window() *register.MMIOWindow {
	return d.window
}

// Info reports the device driver's version triple.
func (d *Device) Info() (major, minor, revision uint32, err error) {
	return d.file.DeviceInfo()
}
