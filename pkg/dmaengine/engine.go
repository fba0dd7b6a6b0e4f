// Package dmaengine implements the user-space DMA engine: a bounce-buffer
// based DMA strategy for platforms where neither the driver ioctl path nor a
// host-mapped window is fast enough, and the bitstream instead carries its
// own MMIO-programmable DMA core.
package dmaengine

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tapasco-rs/runtime/pkg/driver"
	"github.com/tapasco-rs/runtime/pkg/interrupt"
	"github.com/tapasco-rs/runtime/pkg/register"
)

// DefaultBufferSize is the bounce-buffer size used when a caller does not
// override it. 256 KiB balances interrupt overhead (too small chunks a
// transfer too finely) against staging latency (too large delays the first
// chunk's completion).
const DefaultBufferSize = 256 * 1024

// DefaultPoolSize is the number of buffers kept per direction when a caller
// does not override it.
const DefaultPoolSize = 2

// Register offsets relative to the engine's base.
const (
	regHostAddr   = 0x00
	regDeviceAddr = 0x08
	regLength     = 0x10
	regCommand    = 0x20
)

// Command words that start a transfer once written to regCommand.
const (
	cmdHostToDevice = uint32(0x10000001)
	cmdDeviceToHost = uint32(0x10001000)
)

// Kind classifies an Engine failure.
type Kind int

const (
	KindDMABufferAllocate Kind = iota
	KindFailedMMapDMA
	KindErrorInterrupt
	KindTooManyInterrupts
)

var kindMessages = map[Kind]string{
	KindDMABufferAllocate: "dma buffer allocation failed",
	KindFailedMMapDMA:     "failed to mmap dma bounce buffer",
	KindErrorInterrupt:    "dma engine interrupt wait failed",
	KindTooManyInterrupts: "dma engine interrupt source had stale pending completions",
}

func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("unknown dma engine error kind (%d)", int(k))
}

// Error wraps an Engine failure.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// buffer is one pinned bounce buffer: size bytes of host memory, pinned and
// mapped by the driver, with a device-visible address the engine's DMA core
// can target.
type buffer struct {
	id      uint64
	size    uint64
	devAddr uint64
	mapped  []byte
}

// pending reporter, satisfied by interrupt.FakeSource in tests. Real
// driver-backed sources don't implement it; the check is skipped for those,
// since the driver itself guarantees at most one outstanding completion per
// wait_for_interrupt call.
type pendingReporter interface {
	Pending() int
}

// Engine is the user-space DMA engine: a pool of pinned bounce buffers per
// direction, an MMIO register window used to program transfers, and a pair
// of interrupt sources used to know when a programmed transfer completes.
type Engine struct {
	dev    *driver.DeviceFile
	window register.Window
	base   uint64

	toDevice   *pool
	fromDevice *pool

	writeInterrupt interrupt.Source
	readInterrupt  interrupt.Source
}

// Config collects the parameters needed to stand up an Engine.
type Config struct {
	Device         *driver.DeviceFile
	Window         register.Window
	Base           uint64
	WriteInterrupt interrupt.Source
	ReadInterrupt  interrupt.Source
	BufferSize     uint64 // 0 uses DefaultBufferSize
	PoolSize       int    // 0 uses DefaultPoolSize
}

// New allocates and maps the engine's bounce-buffer pools and returns an
// Engine ready to transfer.
func New(cfg Config) (*Engine, error) {
	bufSize := cfg.BufferSize
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}
	poolSize := cfg.PoolSize
	if poolSize == 0 {
		poolSize = DefaultPoolSize
	}

	toDevice, err := newPool(cfg.Device, bufSize, poolSize, false)
	if err != nil {
		return nil, err
	}
	fromDevice, err := newPool(cfg.Device, bufSize, poolSize, true)
	if err != nil {
		toDevice.close()
		return nil, err
	}

	return &Engine{
		dev:            cfg.Device,
		window:         cfg.Window,
		base:           cfg.Base,
		toDevice:       toDevice,
		fromDevice:     fromDevice,
		writeInterrupt: cfg.WriteInterrupt,
		readInterrupt:  cfg.ReadInterrupt,
	}, nil
}

// Close unmaps and frees every buffer in both pools.
func (e *Engine) Close() error {
	err1 := e.toDevice.close()
	err2 := e.fromDevice.close()
	if err1 != nil {
		return err1
	}
	return err2
}

func (e *Engine) scheduleTransfer(hostAddr, deviceAddr, size uint64, fromDevice bool) error {
	if err := e.window.WriteUint64(e.base+regHostAddr, hostAddr); err != nil {
		return err
	}
	if err := e.window.WriteUint64(e.base+regDeviceAddr, deviceAddr); err != nil {
		return err
	}
	if err := e.window.WriteUint64(e.base+regLength, size); err != nil {
		return err
	}
	cmd := cmdHostToDevice
	if fromDevice {
		cmd = cmdDeviceToHost
	}
	return e.window.WriteUint32(e.base+regCommand, cmd)
}

func checkNoStaleInterrupts(src interrupt.Source) error {
	reporter, ok := src.(pendingReporter)
	if !ok {
		return nil
	}
	if n := reporter.Pending(); n > 0 {
		return &Error{Kind: KindTooManyInterrupts, Cause: fmt.Errorf("%d stale completions pending before transfer", n)}
	}
	return nil
}

// CopyTo copies data from host memory to the device address addr, chunked
// through the to-device bounce buffer pool.
func (e *Engine) CopyTo(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	buf := e.toDevice.get()
	defer e.toDevice.put(buf)

	if err := checkNoStaleInterrupts(e.writeInterrupt); err != nil {
		return err
	}

	var offset uint64
	for offset < uint64(len(data)) {
		n := buf.size
		if remaining := uint64(len(data)) - offset; remaining < n {
			n = remaining
		}
		copy(buf.mapped[:n], data[offset:offset+n])

		if err := e.scheduleTransfer(buf.devAddr, addr+offset, n, false); err != nil {
			return fmt.Errorf("schedule to-device transfer: %w", err)
		}
		if err := e.writeInterrupt.Wait(); err != nil {
			return &Error{Kind: KindErrorInterrupt, Cause: err}
		}

		offset += n
	}
	return nil
}

// CopyFrom copies data from the device address addr into host memory,
// chunked through the from-device bounce buffer pool.
func (e *Engine) CopyFrom(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	buf := e.fromDevice.get()
	defer e.fromDevice.put(buf)

	if err := checkNoStaleInterrupts(e.readInterrupt); err != nil {
		return err
	}

	var offset uint64
	for offset < uint64(len(data)) {
		n := buf.size
		if remaining := uint64(len(data)) - offset; remaining < n {
			n = remaining
		}

		if err := e.scheduleTransfer(buf.devAddr, addr+offset, n, true); err != nil {
			return fmt.Errorf("schedule from-device transfer: %w", err)
		}
		if err := e.readInterrupt.Wait(); err != nil {
			return &Error{Kind: KindErrorInterrupt, Cause: err}
		}

		copy(data[offset:offset+n], buf.mapped[:n])
		offset += n
	}
	return nil
}

func newBuffer(dev *driver.DeviceFile, size uint64, fromDevice bool) (*buffer, error) {
	id, devAddr, err := dev.AllocateDMABuffer(size, fromDevice)
	if err != nil {
		return nil, &Error{Kind: KindDMABufferAllocate, Cause: err}
	}

	mapOffset := int64((4 + id) * 4096)
	mapped, err := unix.Mmap(dev.Fd(), mapOffset, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = dev.FreeDMABuffer(id)
		return nil, &Error{Kind: KindFailedMMapDMA, Cause: err}
	}

	return &buffer{id: id, size: size, devAddr: devAddr, mapped: mapped}, nil
}

func (b *buffer) release(dev *driver.DeviceFile) error {
	if err := unix.Munmap(b.mapped); err != nil {
		return err
	}
	return dev.FreeDMABuffer(b.id)
}
