package register

import "unsafe"

func atomicPointer32(mem []byte, offset uint64) unsafe.Pointer {
	return unsafe.Pointer(&mem[offset])
}

func atomicPointer64(mem []byte, offset uint64) unsafe.Pointer {
	return unsafe.Pointer(&mem[offset])
}
