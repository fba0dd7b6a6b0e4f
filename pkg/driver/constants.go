package driver

// ioctl command encoding, mirroring the Linux _IOC() family of macros used
// by the tlkm kernel driver's UAPI header.
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14
	iocDirBits  = 2

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

// Ioc builds a raw ioctl command number from its direction, type, number and
// size fields.
func Ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) |
		(typ << iocTypeShift) |
		(nr << iocNrShift) |
		(size << iocSizeShift)
}

// Io builds a parameterless ioctl command number.
func Io(typ, nr uintptr) uintptr {
	return Ioc(iocNone, typ, nr, 0)
}

// IoR builds a read-only ioctl command number.
func IoR(typ, nr, size uintptr) uintptr {
	return Ioc(iocRead, typ, nr, size)
}

// IoW builds a write-only ioctl command number.
func IoW(typ, nr, size uintptr) uintptr {
	return Ioc(iocWrite, typ, nr, size)
}

// IoWR builds a read-write ioctl command number.
func IoWR(typ, nr, size uintptr) uintptr {
	return Ioc(iocRead|iocWrite, typ, nr, size)
}

// tlkmIoctlMagic is the ioctl magic number ('t') reserved by the tlkm driver.
const tlkmIoctlMagic = uintptr('t')

// tlkm ioctl numbers, in the order the driver's UAPI header declares them.
const (
	nrCopyTo = iota + 1
	nrCopyFrom
	nrAllocateDMABuffer
	nrFreeDMABuffer
	nrWaitForInterrupt
	nrDeviceInfo
)

var (
	ioctlCopyTo             = IoW(tlkmIoctlMagic, nrCopyTo, sizeofCopyParams)
	ioctlCopyFrom           = IoWR(tlkmIoctlMagic, nrCopyFrom, sizeofCopyParams)
	ioctlAllocateDMABuffer  = IoWR(tlkmIoctlMagic, nrAllocateDMABuffer, sizeofDMABufferAllocateParams)
	ioctlFreeDMABuffer      = IoW(tlkmIoctlMagic, nrFreeDMABuffer, 8)
	ioctlWaitForInterrupt   = IoWR(tlkmIoctlMagic, nrWaitForInterrupt, sizeofWaitForInterruptParams)
	ioctlDeviceInfo         = IoR(tlkmIoctlMagic, nrDeviceInfo, sizeofDeviceInfoParams)
)

// bufferIDPlaceholder is written into DMABufferAllocateParams.BufferID before
// the allocate ioctl runs. The driver treats the field as an out parameter
// and overwrites it with the id it assigns; the placeholder value itself is
// never observed by callers.
const bufferIDPlaceholder = ^uint64(0)
