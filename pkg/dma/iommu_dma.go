package dma

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/tapasco-rs/runtime/pkg/vfio"
)

const pageSize = 4096

// IOMMUDMA stages a host buffer through an anonymous, page-aligned mmap and
// maps it into the device's IOVA space via vfio, so the device's DMA engine
// can target it directly instead of going through the driver's per-call
// staging buffer.
//
// CopyTo maps a fresh staging region per call and does not unmap it
// afterward: the mapping is left live so a device-side consumer can keep
// reading from the same IOVA after the call returns (the tlkm driver never
// tells this layer when the device is done with a buffer). Reclaiming the
// mapping is the caller's responsibility, via Unmap once the corresponding
// PE copy-back fires.
//
// CopyFrom has no IOMMU-specific path: reading device memory back to the
// host goes through the driver ioctl fallback unconditionally.
type IOMMUDMA struct {
	dev      *vfio.Device
	fallback *DriverDMA
}

// NewIOMMUDMA builds an IOMMUDMA over an open vfio device and a driver
// handle used for the CopyFrom fallback.
func NewIOMMUDMA(dev *vfio.Device, fallback *DriverDMA) *IOMMUDMA {
	return &IOMMUDMA{dev: dev, fallback: fallback}
}

func pageAlign(size int) int {
	if size == 0 {
		return pageSize
	}
	pages := (size + pageSize - 1) / pageSize
	return pages * pageSize
}

// CopyTo stages data into an anonymous mmap, maps it into the device's IOVA
// space at iova, and leaves the mapping live.
func (d *IOMMUDMA) CopyTo(iova uint64, data []byte) error {
	mapLen := pageAlign(len(data))
	buf, err := unix.Mmap(-1, 0, mapLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANONYMOUS|unix.MAP_PRIVATE)
	if err != nil {
		return &Error{Kind: KindFailedMMapDMA, Cause: err}
	}
	copy(buf, data)

	vaddr := mmapAddr(buf)
	if err := d.dev.Map(vaddr, iova, uint64(mapLen)); err != nil {
		return &Error{Kind: KindDMAToDevice, Cause: fmt.Errorf("vfio map: %w", err)}
	}
	return nil
}

// CopyFrom falls through to the driver ioctl path.
func (d *IOMMUDMA) CopyFrom(iova uint64, data []byte) error {
	return d.fallback.CopyFrom(iova, data)
}

// Unmap releases a mapping previously established by CopyTo.
func (d *IOMMUDMA) Unmap(iova uint64, size uint64) error {
	return d.dev.Unmap(iova, size)
}
