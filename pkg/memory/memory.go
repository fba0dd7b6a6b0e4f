// Package memory implements the off-chip device memory allocator that
// backs deferred copy-back frees: a processing element may stage an input
// buffer in device memory for the duration of a job and only release it once
// the job completes, so the release has to be deferred past PE.Release.
package memory

import (
	"fmt"
	"sort"
	"sync"
)

// region is a free or allocated span of device memory, [Addr, Addr+Size).
type region struct {
	addr uint64
	size uint64
}

// OffchipMemory is a simple first-fit allocator over a fixed device address
// range. It exists so DMA strategies and the PE copy-back list have somewhere
// to stage and later release device-side buffers.
type OffchipMemory struct {
	mu    sync.Mutex
	base  uint64
	size  uint64
	free  []region
	inUse map[uint64]uint64 // addr -> size, for allocations currently outstanding
}

// New creates an allocator over [base, base+size).
func New(base, size uint64) *OffchipMemory {
	return &OffchipMemory{
		base:  base,
		size:  size,
		free:  []region{{addr: base, size: size}},
		inUse: make(map[uint64]uint64),
	}
}

// Error reports an allocator failure.
type Error struct {
	Context string
}

func (e *Error) Error() string {
	return "offchip memory: " + e.Context
}

// Allocate reserves size bytes and returns the device address of the
// reservation, using first-fit over the free list.
func (m *OffchipMemory) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, &Error{Context: "allocate: zero size"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.free {
		if r.size < size {
			continue
		}
		addr := r.addr
		if r.size == size {
			m.free = append(m.free[:i], m.free[i+1:]...)
		} else {
			m.free[i] = region{addr: r.addr + size, size: r.size - size}
		}
		m.inUse[addr] = size
		return addr, nil
	}
	return 0, &Error{Context: fmt.Sprintf("allocate: no %d-byte region available", size)}
}

// Free releases a previously allocated region, coalescing with adjacent free
// regions.
func (m *OffchipMemory) Free(addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, ok := m.inUse[addr]
	if !ok {
		return &Error{Context: fmt.Sprintf("free: unknown address %#x", addr)}
	}
	delete(m.inUse, addr)

	m.free = append(m.free, region{addr: addr, size: size})
	sort.Slice(m.free, func(i, j int) bool { return m.free[i].addr < m.free[j].addr })

	merged := m.free[:1]
	for _, r := range m.free[1:] {
		last := &merged[len(merged)-1]
		if last.addr+last.size == r.addr {
			last.size += r.size
		} else {
			merged = append(merged, r)
		}
	}
	m.free = merged
	return nil
}
