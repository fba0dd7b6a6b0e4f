package driver

import "unsafe"

// CopyParams mirrors the tlkm_ioctl_copy_to/copy_from UAPI struct: a device
// address, a transfer length and a pointer into the calling process's
// address space that the kernel copy_to_user/copy_from_user's against.
type CopyParams struct {
	DeviceAddress uint64
	Length        uint64
	UserAddr      uintptr
}

const sizeofCopyParams = unsafe.Sizeof(CopyParams{})

// DMABufferAllocateParams mirrors tlkm_ioctl_dma_buffer_allocate. BufferID is
// an out parameter: the caller seeds it with a placeholder and the driver
// overwrites it with the id it assigned before mapping. Addr is the
// device-visible base address of the allocated buffer.
type DMABufferAllocateParams struct {
	Size       uint64
	FromDevice uint32
	_          uint32
	BufferID   uint64
	Addr       uint64
}

const sizeofDMABufferAllocateParams = unsafe.Sizeof(DMABufferAllocateParams{})

// WaitForInterruptParams mirrors tlkm_ioctl_wait_for_interrupt. Index
// selects which interrupt source to block on; the ioctl does not return
// until that source fires or the wait is canceled.
type WaitForInterruptParams struct {
	Index uint32
	_     uint32
}

const sizeofWaitForInterruptParams = unsafe.Sizeof(WaitForInterruptParams{})

// DeviceInfoParams mirrors tlkm_ioctl_device_info, the driver/firmware
// version triple reported by a tapasco device node.
type DeviceInfoParams struct {
	MajorVersion    uint32
	MinorVersion    uint32
	RevisionVersion uint32
	_               uint32
}

const sizeofDeviceInfoParams = unsafe.Sizeof(DeviceInfoParams{})
