// Package vfio implements the IOMMU-backed device container that the
// IOMMU-mapped DMA strategy maps host buffers through.
package vfio

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Error wraps a failure opening or operating on a vfio container, group or
// device file.
type Error struct {
	File  string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vfio %s: %v", e.File, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Mapping describes one active IOVA mapping.
type Mapping struct {
	IOVA uint64
	Size uint64
}

// Device is an open vfio container, group and device, bound together into
// the IOMMU TYPE1 model. It is the host-side handle used to map and unmap
// host buffers into device-visible I/O virtual addresses.
type Device struct {
	container *os.File
	group     *os.File
	device    *os.File
	iommu     iommuIoctl

	mu       sync.Mutex
	mappings []Mapping
}

// iommuIoctl is the container-level IOMMU mapping operations Map and Unmap
// need. It's satisfied by realIOMMU in production and by a fake in tests, so
// the mapping-list bookkeeping can be unit tested without a real IOMMU
// group.
type iommuIoctl interface {
	mapDMA(req *IOMMUDMAMap) error
	unmapDMA(req *IOMMUDMAUnmap) error
}

// realIOMMU issues the real vfio_iommu_type1_dma_map/unmap ioctls against a
// container file.
type realIOMMU struct {
	container *os.File
}

func (r *realIOMMU) mapDMA(req *IOMMUDMAMap) error {
	if _, err := ioctlFile(r.container, ioctlIOMMUMapDMA, unsafe.Pointer(req)); err != nil {
		return fmt.Errorf("iommu_map_dma(iova=%#x, size=%d): %w", req.IOVA, req.Size, err)
	}
	return nil
}

func (r *realIOMMU) unmapDMA(req *IOMMUDMAUnmap) error {
	if _, err := ioctlFile(r.container, ioctlIOMMUUnmapDMA, unsafe.Pointer(req)); err != nil {
		return fmt.Errorf("iommu_unmap_dma(iova=%#x, size=%d): %w", req.IOVA, req.Size, err)
	}
	return nil
}

func ioctlFile(f *os.File, cmd uintptr, arg unsafe.Pointer) (uintptr, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), cmd, uintptr(arg))
	if errno != 0 {
		return 0, errno
	}
	return r1, nil
}

// Open binds groupPath (e.g. "/dev/vfio/12") into a TYPE1 IOMMU container
// and returns the device fd named deviceName within that group (the tlkm
// device registers itself with vfio under this name).
func Open(groupPath, deviceName string) (*Device, error) {
	container, err := os.OpenFile("/dev/vfio/vfio", os.O_RDWR, 0)
	if err != nil {
		return nil, &Error{File: "/dev/vfio/vfio", Cause: err}
	}

	version, err := ioctlFile(container, ioctlGetAPIVersion, nil)
	if err != nil {
		container.Close()
		return nil, &Error{File: "/dev/vfio/vfio", Cause: fmt.Errorf("get_api_version: %w", err)}
	}
	if version != apiVersion {
		container.Close()
		return nil, &Error{File: "/dev/vfio/vfio", Cause: fmt.Errorf("unsupported api version %d", version)}
	}

	ext, err := ioctlFile(container, ioctlCheckExtension, unsafe.Pointer(uintptr(type1IOMMU)))
	if err != nil || ext == 0 {
		container.Close()
		return nil, &Error{File: "/dev/vfio/vfio", Cause: fmt.Errorf("type1 iommu extension unavailable")}
	}

	group, err := os.OpenFile(groupPath, os.O_RDWR, 0)
	if err != nil {
		container.Close()
		return nil, &Error{File: groupPath, Cause: err}
	}

	status := GroupStatus{ArgSz: sizeofGroupStatus}
	if _, err := ioctlFile(group, ioctlGroupGetStatus, unsafe.Pointer(&status)); err != nil {
		group.Close()
		container.Close()
		return nil, &Error{File: groupPath, Cause: fmt.Errorf("group_get_status: %w", err)}
	}
	if status.Flags&groupFlagsViable == 0 {
		group.Close()
		container.Close()
		return nil, &Error{File: groupPath, Cause: fmt.Errorf("group is not viable")}
	}

	containerFd := int32(container.Fd())
	if _, err := ioctlFile(group, ioctlGroupSetContainer, unsafe.Pointer(&containerFd)); err != nil {
		group.Close()
		container.Close()
		return nil, &Error{File: groupPath, Cause: fmt.Errorf("group_set_container: %w", err)}
	}

	if _, err := ioctlFile(container, ioctlSetIOMMU, unsafe.Pointer(uintptr(type1IOMMU))); err != nil {
		group.Close()
		container.Close()
		return nil, &Error{File: "/dev/vfio/vfio", Cause: fmt.Errorf("set_iommu: %w", err)}
	}

	nameBytes, err := unix.BytePtrFromString(deviceName)
	if err != nil {
		group.Close()
		container.Close()
		return nil, &Error{File: groupPath, Cause: err}
	}
	deviceFd, err := ioctlFile(group, ioctlGroupGetDeviceFD, unsafe.Pointer(nameBytes))
	if err != nil {
		group.Close()
		container.Close()
		return nil, &Error{File: groupPath, Cause: fmt.Errorf("group_get_device_fd(%s): %w", deviceName, err)}
	}

	device := os.NewFile(deviceFd, deviceName)

	return &Device{
		container: container,
		group:     group,
		device:    device,
		iommu:     &realIOMMU{container: container},
	}, nil
}

// Close releases the device, group and container handles, in that order:
// the device must be released before the group can be detached from the
// container.
func (d *Device) Close() error {
	var firstErr error
	if err := d.device.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := d.group.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := d.container.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Info reports the device's region and interrupt counts.
func (d *Device) Info() (*DeviceInfo, error) {
	info := DeviceInfo{ArgSz: sizeofDeviceInfo}
	if _, err := ioctlFile(d.device, ioctlDeviceGetInfo, unsafe.Pointer(&info)); err != nil {
		return nil, &Error{File: d.device.Name(), Cause: fmt.Errorf("device_get_info: %w", err)}
	}
	return &info, nil
}

// RegionInfo reports the size and container offset of device memory
// region index.
func (d *Device) RegionInfo(index uint32) (*RegionInfo, error) {
	info := RegionInfo{ArgSz: sizeofRegionInfo, Index: index}
	if _, err := ioctlFile(d.device, ioctlDeviceGetRegionInfo, unsafe.Pointer(&info)); err != nil {
		return nil, &Error{File: d.device.Name(), Cause: fmt.Errorf("device_get_region_info(%d): %w", index, err)}
	}
	return &info, nil
}

// Map establishes an IOMMU mapping from the host virtual address vaddr to
// the device-visible I/O virtual address iova, for size bytes.
func (d *Device) Map(vaddr uintptr, iova uint64, size uint64) error {
	req := IOMMUDMAMap{
		ArgSz: sizeofIOMMUDMAMap,
		Flags: dmaMapFlagRead | dmaMapFlagWrite,
		VAddr: uint64(vaddr),
		IOVA:  iova,
		Size:  size,
	}
	if err := d.iommu.mapDMA(&req); err != nil {
		return &Error{File: "/dev/vfio/vfio", Cause: err}
	}
	d.mu.Lock()
	d.mappings = append(d.mappings, Mapping{IOVA: iova, Size: size})
	d.mu.Unlock()
	return nil
}

// Unmap tears down a previously established mapping at iova.
func (d *Device) Unmap(iova uint64, size uint64) error {
	req := IOMMUDMAUnmap{ArgSz: sizeofIOMMUDMAUnmap, IOVA: iova, Size: size}
	if err := d.iommu.unmapDMA(&req); err != nil {
		return &Error{File: "/dev/vfio/vfio", Cause: err}
	}
	d.mu.Lock()
	for i, m := range d.mappings {
		if m.IOVA == iova {
			d.mappings = append(d.mappings[:i], d.mappings[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
	return nil
}

// Mappings returns a snapshot of currently active IOVA mappings, for
// diagnostics.
func (d *Device) Mappings() []Mapping {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Mapping, len(d.mappings))
	copy(out, d.mappings)
	return out
}
