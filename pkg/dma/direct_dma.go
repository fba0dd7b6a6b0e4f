package dma

// DirectDMA copies directly into a host-mapped window over device memory:
// no ioctl, no kernel round trip. It is the fastest strategy and is used on
// platforms whose device memory is directly addressable from host
// userspace (e.g. a PCIe BAR mapped with mmap).
//
// There is deliberately no lock around the memcpy: this is the hot path for
// PE argument staging. DirectDMA does not serialize concurrent transfers;
// callers must not run concurrent transfers over overlapping device address
// ranges.
type DirectDMA struct {
	offset uint64
	size   uint64
	memory []byte
}

// NewDirectDMA wraps a host-mapped memory region. offset is where the
// device's addressable region begins within memory; size is its extent.
func NewDirectDMA(memory []byte, offset, size uint64) *DirectDMA {
	return &DirectDMA{offset: offset, size: size, memory: memory}
}

func (d *DirectDMA) bounds(ptr uint64, length int) (start, end uint64, err error) {
	end = ptr + uint64(length)
	if end > d.size || end < ptr {
		return 0, 0, &OutOfRangeError{Ptr: ptr, End: end, Size: d.size}
	}
	return d.offset + ptr, d.offset + end, nil
}

// CopyTo copies data into the device address ptr.
func (d *DirectDMA) CopyTo(ptr uint64, data []byte) error {
	start, end, err := d.bounds(ptr, len(data))
	if err != nil {
		return err
	}
	copy(d.memory[start:end], data)
	return nil
}

// CopyFrom copies data out of the device address ptr.
func (d *DirectDMA) CopyFrom(ptr uint64, data []byte) error {
	start, end, err := d.bounds(ptr, len(data))
	if err != nil {
		return err
	}
	copy(data, d.memory[start:end])
	return nil
}
