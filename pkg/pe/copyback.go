package pe

import "github.com/tapasco-rs/runtime/pkg/memory"

// CopyBack is a deferred action a processing element takes after it
// completes: either hand a staged device buffer back to the caller as
// output, or release a device memory region that was only needed for the
// duration of the job.
type CopyBack interface {
	isCopyBack()
}

// Transfer describes a device-side buffer that should be copied back to the
// host once the PE finishes.
type Transfer struct {
	DeviceAddress uint64
	Length        uint64
}

func (Transfer) isCopyBack() {}

// FreeRegion releases a device memory allocation once the PE finishes,
// against the allocator that owns it.
type FreeRegion struct {
	DeviceAddress uint64
	Allocator     *memory.OffchipMemory
}

func (FreeRegion) isCopyBack() {}
