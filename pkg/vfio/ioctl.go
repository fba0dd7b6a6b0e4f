package vfio

import (
	"unsafe"

	"github.com/tapasco-rs/runtime/pkg/driver"
)

// VFIO ioctl magic and base, from <linux/vfio.h>.
const (
	vfioType = uintptr(';')
	vfioBase = 100
)

// VFIO ioctl numbers, relative to vfioBase.
const (
	nrGetAPIVersion = iota
	nrCheckExtension
	nrSetIOMMU
	nrGroupGetStatus
	nrGroupSetContainer
	nrGroupUnsetContainer
	nrGroupGetDeviceFD
	nrDeviceGetInfo
	nrDeviceGetRegionInfo
	nrDeviceGetIRQInfo
	nrDeviceSetIRQs
	nrDeviceReset
	nrIOMMUGetInfo
	nrIOMMUMapDMA
	nrIOMMUUnmapDMA
)

var (
	ioctlGetAPIVersion      = driver.Io(vfioType, vfioBase+nrGetAPIVersion)
	ioctlCheckExtension     = driver.IoW(vfioType, vfioBase+nrCheckExtension, 4)
	ioctlSetIOMMU           = driver.IoW(vfioType, vfioBase+nrSetIOMMU, 4)
	ioctlGroupGetStatus     = driver.IoR(vfioType, vfioBase+nrGroupGetStatus, uintptr(sizeofGroupStatus))
	ioctlGroupSetContainer  = driver.IoW(vfioType, vfioBase+nrGroupSetContainer, 4)
	ioctlGroupGetDeviceFD   = driver.Io(vfioType, vfioBase+nrGroupGetDeviceFD)
	ioctlDeviceGetInfo      = driver.IoR(vfioType, vfioBase+nrDeviceGetInfo, uintptr(sizeofDeviceInfo))
	ioctlDeviceGetRegionInfo = driver.IoWR(vfioType, vfioBase+nrDeviceGetRegionInfo, uintptr(sizeofRegionInfo))
	ioctlIOMMUGetInfo       = driver.IoR(vfioType, vfioBase+nrIOMMUGetInfo, uintptr(sizeofIOMMUTypeInfo))
	ioctlIOMMUMapDMA        = driver.IoW(vfioType, vfioBase+nrIOMMUMapDMA, uintptr(sizeofIOMMUDMAMap))
	ioctlIOMMUUnmapDMA      = driver.IoWR(vfioType, vfioBase+nrIOMMUUnmapDMA, uintptr(sizeofIOMMUDMAUnmap))
)

// apiVersion is the VFIO API version this package was written against.
const apiVersion = 0

// type1IOMMU selects the TYPE1 IOMMU model, the only one this package
// supports.
const type1IOMMU = 1

// groupFlagsViable is set in GroupStatus.Flags when every device in the
// group is bound to a vfio driver and the group is usable.
const groupFlagsViable = 1 << 0

// GroupStatus mirrors struct vfio_group_status.
type GroupStatus struct {
	ArgSz uint32
	Flags uint32
}

const sizeofGroupStatus = uint32(unsafe.Sizeof(GroupStatus{}))

// DeviceInfo mirrors struct vfio_device_info.
type DeviceInfo struct {
	ArgSz   uint32
	Flags   uint32
	NumRegions uint32
	NumIRQs uint32
}

const sizeofDeviceInfo = uint32(unsafe.Sizeof(DeviceInfo{}))

// RegionInfo mirrors struct vfio_region_info.
type RegionInfo struct {
	ArgSz     uint32
	Flags     uint32
	Index     uint32
	CapOffset uint32
	Size      uint64
	Offset    uint64
}

const sizeofRegionInfo = uint32(unsafe.Sizeof(RegionInfo{}))

// IOMMUTypeInfo mirrors struct vfio_iommu_type1_info.
type IOMMUTypeInfo struct {
	ArgSz     uint32
	Flags     uint32
	IovaPgSizes uint64
}

const sizeofIOMMUTypeInfo = uint32(unsafe.Sizeof(IOMMUTypeInfo{}))

// dmaMapFlagRead and dmaMapFlagWrite request read and write access for a
// mapping; Map sets both.
const (
	dmaMapFlagRead  = 1 << 0
	dmaMapFlagWrite = 1 << 1
)

// IOMMUDMAMap mirrors struct vfio_iommu_type1_dma_map.
type IOMMUDMAMap struct {
	ArgSz uint32
	Flags uint32
	VAddr uint64
	IOVA  uint64
	Size  uint64
}

const sizeofIOMMUDMAMap = uint32(unsafe.Sizeof(IOMMUDMAMap{}))

// IOMMUDMAUnmap mirrors struct vfio_iommu_type1_dma_unmap.
type IOMMUDMAUnmap struct {
	ArgSz uint32
	Flags uint32
	IOVA  uint64
	Size  uint64
}

const sizeofIOMMUDMAUnmap = uint32(unsafe.Sizeof(IOMMUDMAUnmap{}))
