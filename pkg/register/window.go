// Package register provides the memory-mapped register window abstraction
// that processing elements and the user-space DMA engine program through.
package register

import (
	"fmt"
	"sync/atomic"
)

// Window is a byte-addressable register window. Offsets are relative to the
// window's own base; callers never see the underlying device address.
type Window interface {
	ReadUint32(offset uint64) (uint32, error)
	WriteUint32(offset uint64, value uint32) error
	ReadUint64(offset uint64) (uint64, error)
	WriteUint64(offset uint64, value uint64) error
}

// UnsupportedRegisterSizeError is returned when a caller asks for a register
// width the window does not implement (anything other than 32 or 64 bits).
type UnsupportedRegisterSizeError struct {
	Size int
}

func (e *UnsupportedRegisterSizeError) Error() string {
	return fmt.Sprintf("unsupported register size: %d bytes", e.Size)
}

// OutOfRangeError is returned when an access falls outside the window.
type OutOfRangeError struct {
	Offset uint64
	End    uint64
	Size   uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("register access out of range: offset=%#x end=%#x size=%#x", e.Offset, e.End, e.Size)
}

// MMIOWindow is a Window backed by a slice mapped over device memory (via
// mmap). Accesses use sync/atomic so they hit the slot exactly once with
// ordering guarantees, the nearest Go equivalent to the volatile reads and
// writes a memory-mapped register file requires.
type MMIOWindow struct {
	mem []byte
}

// NewMMIOWindow wraps mem, an mmap'd byte slice, as a register window.
func NewMMIOWindow(mem []byte) *MMIOWindow {
	return &MMIOWindow{mem: mem}
}

func (w *MMIOWindow) bounds(offset, width uint64) error {
	end := offset + width
	if end > uint64(len(w.mem)) || end < offset {
		return &OutOfRangeError{Offset: offset, End: end, Size: uint64(len(w.mem))}
	}
	return nil
}

// ReadUint32 performs an atomic 32-bit load at offset.
func (w *MMIOWindow) ReadUint32(offset uint64) (uint32, error) {
	if err := w.bounds(offset, 4); err != nil {
		return 0, err
	}
	word := (*uint32)(atomicPointer32(w.mem, offset))
	return atomic.LoadUint32(word), nil
}

// WriteUint32 performs an atomic 32-bit store at offset.
func (w *MMIOWindow) WriteUint32(offset uint64, value uint32) error {
	if err := w.bounds(offset, 4); err != nil {
		return err
	}
	word := (*uint32)(atomicPointer32(w.mem, offset))
	atomic.StoreUint32(word, value)
	return nil
}

// ReadUint64 performs an atomic 64-bit load at offset.
func (w *MMIOWindow) ReadUint64(offset uint64) (uint64, error) {
	if err := w.bounds(offset, 8); err != nil {
		return 0, err
	}
	word := (*uint64)(atomicPointer64(w.mem, offset))
	return atomic.LoadUint64(word), nil
}

// WriteUint64 performs an atomic 64-bit store at offset.
func (w *MMIOWindow) WriteUint64(offset uint64, value uint64) error {
	if err := w.bounds(offset, 8); err != nil {
		return err
	}
	word := (*uint64)(atomicPointer64(w.mem, offset))
	atomic.StoreUint64(word, value)
	return nil
}
