package register

import "encoding/binary"

// FakeWindow is an in-memory Window for tests. It has no atomicity
// guarantees; it exists to let pe/dma/dmaengine tests drive register
// sequences without real hardware.
type FakeWindow struct {
	mem []byte
}

// NewFakeWindow allocates a fake register window of the given size in bytes.
func NewFakeWindow(size int) *FakeWindow {
	return &FakeWindow{mem: make([]byte, size)}
}

func (w *FakeWindow) bounds(offset, width uint64) error {
	end := offset + width
	if end > uint64(len(w.mem)) || end < offset {
		return &OutOfRangeError{Offset: offset, End: end, Size: uint64(len(w.mem))}
	}
	return nil
}

func (w *FakeWindow) ReadUint32(offset uint64) (uint32, error) {
	if err := w.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(w.mem[offset:]), nil
}

func (w *FakeWindow) WriteUint32(offset uint64, value uint32) error {
	if err := w.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.mem[offset:], value)
	return nil
}

func (w *FakeWindow) ReadUint64(offset uint64) (uint64, error) {
	if err := w.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(w.mem[offset:]), nil
}

func (w *FakeWindow) WriteUint64(offset uint64, value uint64) error {
	if err := w.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(w.mem[offset:], value)
	return nil
}
