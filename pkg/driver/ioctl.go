package driver

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DeviceFile is an open handle to a tapasco device node (/dev/tapascoN).
// It owns the file descriptor and exposes the raw ioctl surface the rest of
// the runtime is built on.
type DeviceFile struct {
	fd   int
	path string
}

// OpenDevice opens the device node at path.
func OpenDevice(path string) (*DeviceFile, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, NewErrorWithCause(ErrnoToStatus(err.(unix.Errno)), "open "+path, err)
	}
	return &DeviceFile{fd: fd, path: path}, nil
}

// OpenDeviceWithTimeout opens the device node at path, giving up if the open
// has not completed within timeout. Useful for device nodes whose driver may
// briefly hold the node busy during a reset.
func OpenDeviceWithTimeout(path string, timeout time.Duration) (*DeviceFile, error) {
	type result struct {
		dev *DeviceFile
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dev, err := OpenDevice(path)
		ch <- result{dev, err}
	}()

	select {
	case r := <-ch:
		return r.dev, r.err
	case <-time.After(timeout):
		return nil, NewError(StatusTimeout, "open "+path)
	}
}

// Close closes the underlying file descriptor.
func (d *DeviceFile) Close() error {
	return unix.Close(d.fd)
}

// Fd returns the raw file descriptor, for use by packages (vfio, dmaengine)
// that need to mmap against the same device node.
func (d *DeviceFile) Fd() int {
	return d.fd
}

// Path returns the device node path this handle was opened from.
func (d *DeviceFile) Path() string {
	return d.path
}

func (d *DeviceFile) ioctl(cmd uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), cmd, uintptr(arg))
	if errno != 0 {
		return StatusFromErrno(errno, "ioctl")
	}
	return nil
}

// CopyTo copies data from host memory to the device address addr, via the
// driver's copy_to_user ioctl path. It blocks until the kernel completes the
// transfer; there is no cancellation.
func (d *DeviceFile) CopyTo(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	params := CopyParams{
		DeviceAddress: addr,
		Length:        uint64(len(data)),
		UserAddr:      uintptr(unsafe.Pointer(&data[0])),
	}
	if err := d.ioctl(ioctlCopyTo, unsafe.Pointer(&params)); err != nil {
		return fmt.Errorf("copy_to device addr %#x: %w", addr, err)
	}
	return nil
}

// CopyFrom copies data from the device address addr into host memory, via
// the driver's copy_from_user ioctl path. It blocks until the kernel
// completes the transfer.
func (d *DeviceFile) CopyFrom(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	params := CopyParams{
		DeviceAddress: addr,
		Length:        uint64(len(data)),
		UserAddr:      uintptr(unsafe.Pointer(&data[0])),
	}
	if err := d.ioctl(ioctlCopyFrom, unsafe.Pointer(&params)); err != nil {
		return fmt.Errorf("copy_from device addr %#x: %w", addr, err)
	}
	return nil
}

// AllocateDMABuffer asks the driver to allocate a pinned DMA buffer of size
// bytes for the given direction. It returns the driver-assigned buffer id
// and the device-visible address of the buffer; the id is what the caller
// must use for the buffer's mmap offset and for FreeDMABuffer, not whatever
// value was passed in.
func (d *DeviceFile) AllocateDMABuffer(size uint64, fromDevice bool) (bufferID uint64, addr uint64, err error) {
	fromDev := uint32(0)
	if fromDevice {
		fromDev = 1
	}
	params := DMABufferAllocateParams{
		Size:       size,
		FromDevice: fromDev,
		BufferID:   bufferIDPlaceholder,
	}
	if err := d.ioctl(ioctlAllocateDMABuffer, unsafe.Pointer(&params)); err != nil {
		return 0, 0, fmt.Errorf("dma_buffer_allocate size=%d from_device=%v: %w", size, fromDevice, err)
	}
	return params.BufferID, params.Addr, nil
}

// FreeDMABuffer releases a buffer previously returned by AllocateDMABuffer.
func (d *DeviceFile) FreeDMABuffer(bufferID uint64) error {
	if err := d.ioctl(ioctlFreeDMABuffer, unsafe.Pointer(&bufferID)); err != nil {
		return fmt.Errorf("dma_buffer_free id=%d: %w", bufferID, err)
	}
	return nil
}

// WaitForInterrupt blocks until interrupt source index fires once.
func (d *DeviceFile) WaitForInterrupt(index uint32) error {
	params := WaitForInterruptParams{Index: index}
	if err := d.ioctl(ioctlWaitForInterrupt, unsafe.Pointer(&params)); err != nil {
		return fmt.Errorf("wait_for_interrupt index=%d: %w", index, err)
	}
	return nil
}

// DeviceInfo reports the device driver's version triple.
func (d *DeviceFile) DeviceInfo() (major, minor, revision uint32, err error) {
	var params DeviceInfoParams
	if err := d.ioctl(ioctlDeviceInfo, unsafe.Pointer(&params)); err != nil {
		return 0, 0, 0, fmt.Errorf("device_info: %w", err)
	}
	return params.MajorVersion, params.MinorVersion, params.RevisionVersion, nil
}
