package dma

import "unsafe"

func mmapAddr(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}
