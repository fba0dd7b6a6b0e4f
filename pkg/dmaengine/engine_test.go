package dmaengine

import (
	"bytes"
	"testing"

	"github.com/tapasco-rs/runtime/pkg/interrupt"
	"github.com/tapasco-rs/runtime/pkg/register"
)

// chunkRecorder is a test interrupt.Source standing in for the moment the
// engine's hardware DMA core would consume a just-programmed transfer: each
// Wait call snapshots the registers scheduleTransfer just wrote, optionally
// runs fill to simulate the device depositing data into the buffer before
// the "from device" copy-out happens, and then snapshots the bounce buffer's
// contents.
type chunkRecorder struct {
	win  register.Window
	base uint64
	buf  *buffer
	fill func(mapped []byte, length uint64)

	hostAddrs []uint64
	devAddrs  []uint64
	lengths   []uint64
	cmds      []uint32
	payloads  [][]byte
}

func (r *chunkRecorder) Wait() error {
	host, err := r.win.ReadUint64(r.base + regHostAddr)
	if err != nil {
		return err
	}
	dev, err := r.win.ReadUint64(r.base + regDeviceAddr)
	if err != nil {
		return err
	}
	length, err := r.win.ReadUint64(r.base + regLength)
	if err != nil {
		return err
	}
	cmd, err := r.win.ReadUint32(r.base + regCommand)
	if err != nil {
		return err
	}

	if r.fill != nil {
		r.fill(r.buf.mapped, length)
	}
	payload := make([]byte, length)
	copy(payload, r.buf.mapped[:length])

	r.hostAddrs = append(r.hostAddrs, host)
	r.devAddrs = append(r.devAddrs, dev)
	r.lengths = append(r.lengths, length)
	r.cmds = append(r.cmds, cmd)
	r.payloads = append(r.payloads, payload)
	return nil
}

func singleBufferPool(buf *buffer) *pool {
	p := &pool{buffers: make(chan *buffer, 1), all: []*buffer{buf}}
	p.buffers <- buf
	return p
}

// TestCopyToChunksIntoBufferSizedSequences covers the chunking invariant (a
// transfer of L bytes through a K-byte bounce buffer consumes exactly
// ceil(L/K) programming sequences and interrupts) and the 640 KiB-through-
// 256 KiB-buffers scenario: three sequences of 262144/262144/131072 bytes.
func TestCopyToChunksIntoBufferSizedSequences(t *testing.T) {
	win := register.NewFakeWindow(4096)
	buf := &buffer{id: 0, size: DefaultBufferSize, devAddr: 0xd0000000, mapped: make([]byte, DefaultBufferSize)}
	p := singleBufferPool(buf)
	rec := &chunkRecorder{win: win, base: 0x500, buf: buf}

	e := &Engine{window: win, base: 0x500, toDevice: p, writeInterrupt: rec}

	data := make([]byte, 640*1024)
	for i := range data {
		data[i] = byte(i)
	}

	if err := e.CopyTo(0x20000000, data); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}

	wantLengths := []uint64{262144, 262144, 131072}
	if len(rec.lengths) != len(wantLengths) {
		t.Fatalf("consumed %d interrupts, want %d (ceil(640KiB/256KiB))", len(rec.lengths), len(wantLengths))
	}

	var offset uint64
	for i, want := range wantLengths {
		if rec.lengths[i] != want {
			t.Fatalf("chunk %d length = %d, want %d", i, rec.lengths[i], want)
		}
		if rec.cmds[i] != cmdHostToDevice {
			t.Fatalf("chunk %d command = %#x, want cmdHostToDevice", i, rec.cmds[i])
		}
		if rec.hostAddrs[i] != buf.devAddr {
			t.Fatalf("chunk %d host addr = %#x, want bounce buffer addr %#x", i, rec.hostAddrs[i], buf.devAddr)
		}
		if rec.devAddrs[i] != 0x20000000+offset {
			t.Fatalf("chunk %d device addr = %#x, want %#x", i, rec.devAddrs[i], 0x20000000+offset)
		}
		if !bytes.Equal(rec.payloads[i], data[offset:offset+want]) {
			t.Fatalf("chunk %d payload mismatch", i)
		}
		offset += want
	}

	// Buffer-queue conservation: the single buffer must be back in the pool.
	select {
	case got := <-p.buffers:
		if got != buf {
			t.Fatal("expected the same buffer back in the pool")
		}
	default:
		t.Fatal("expected buffer to be returned to the pool after CopyTo")
	}
}

// TestCopyFromChunksIntoBufferSizedSequences mirrors the CopyTo case for the
// from-device direction: same chunking invariant, with the recorder playing
// the device's role of depositing data into the bounce buffer before each
// copy-out.
func TestCopyFromChunksIntoBufferSizedSequences(t *testing.T) {
	win := register.NewFakeWindow(4096)
	buf := &buffer{id: 1, size: DefaultBufferSize, devAddr: 0xe0000000, mapped: make([]byte, DefaultBufferSize)}
	p := singleBufferPool(buf)

	want := make([]byte, 640*1024)
	for i := range want {
		want[i] = byte(i * 7)
	}

	var filled uint64
	rec := &chunkRecorder{win: win, base: 0x500, buf: buf}
	rec.fill = func(mapped []byte, length uint64) {
		copy(mapped[:length], want[filled:filled+length])
		filled += length
	}

	e := &Engine{window: win, base: 0x500, fromDevice: p, readInterrupt: rec}

	got := make([]byte, 640*1024)
	if err := e.CopyFrom(0x30000000, got); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}

	if len(rec.lengths) != 3 {
		t.Fatalf("consumed %d interrupts, want 3 (ceil(640KiB/256KiB))", len(rec.lengths))
	}
	for i, cmd := range rec.cmds {
		if cmd != cmdDeviceToHost {
			t.Fatalf("chunk %d command = %#x, want cmdDeviceToHost", i, cmd)
		}
	}
	if !bytes.Equal(got, want) {
		t.Fatal("reassembled data does not match what the device deposited")
	}

	select {
	case gotBuf := <-p.buffers:
		if gotBuf != buf {
			t.Fatal("expected the same buffer back in the pool")
		}
	default:
		t.Fatal("expected buffer to be returned to the pool after CopyFrom")
	}
}

// TestCopyToEmptyDataIsNoop covers the zero-length edge case: no buffer is
// ever taken from the pool and no interrupt is consumed.
func TestCopyToEmptyDataIsNoop(t *testing.T) {
	win := register.NewFakeWindow(4096)
	buf := &buffer{id: 0, size: DefaultBufferSize, devAddr: 0xd0000000, mapped: make([]byte, DefaultBufferSize)}
	p := singleBufferPool(buf)
	rec := &chunkRecorder{win: win, base: 0x500, buf: buf}
	e := &Engine{window: win, base: 0x500, toDevice: p, writeInterrupt: rec}

	if err := e.CopyTo(0x1000, nil); err != nil {
		t.Fatalf("CopyTo with empty data: %v", err)
	}
	if len(rec.lengths) != 0 {
		t.Fatalf("expected no interrupts consumed for empty transfer, got %d", len(rec.lengths))
	}
	if len(p.buffers) != 1 {
		t.Fatal("expected the buffer to remain untouched in the pool")
	}
}

func TestScheduleTransferWritesRegistersInOrder(t *testing.T) {
	win := register.NewFakeWindow(4096)
	e := &Engine{window: win, base: 0x200}

	if err := e.scheduleTransfer(0xaaaa, 0xbbbb, 0x40, false); err != nil {
		t.Fatalf("scheduleTransfer: %v", err)
	}

	host, err := win.ReadUint64(0x200 + regHostAddr)
	if err != nil || host != 0xaaaa {
		t.Fatalf("host addr = %#x, err=%v", host, err)
	}
	dev, err := win.ReadUint64(0x200 + regDeviceAddr)
	if err != nil || dev != 0xbbbb {
		t.Fatalf("device addr = %#x, err=%v", dev, err)
	}
	length, err := win.ReadUint64(0x200 + regLength)
	if err != nil || length != 0x40 {
		t.Fatalf("length = %#x, err=%v", length, err)
	}
	cmd, err := win.ReadUint32(0x200 + regCommand)
	if err != nil || cmd != cmdHostToDevice {
		t.Fatalf("command = %#x, err=%v", cmd, err)
	}

	if err := e.scheduleTransfer(0, 0, 0, true); err != nil {
		t.Fatalf("scheduleTransfer (from device): %v", err)
	}
	cmd, err = win.ReadUint32(0x200 + regCommand)
	if err != nil || cmd != cmdDeviceToHost {
		t.Fatalf("command = %#x, err=%v", cmd, err)
	}
}

func TestCheckNoStaleInterruptsRejectsPending(t *testing.T) {
	src := interrupt.NewFakeSource(4)
	src.Post()

	err := checkNoStaleInterrupts(src)
	if err == nil {
		t.Fatal("expected TooManyInterrupts error with a pending firing")
	}
	dmaErr, ok := err.(*Error)
	if !ok || dmaErr.Kind != KindTooManyInterrupts {
		t.Fatalf("expected KindTooManyInterrupts, got %#v", err)
	}
}

func TestCheckNoStaleInterruptsAllowsEmptySource(t *testing.T) {
	src := interrupt.NewFakeSource(4)
	if err := checkNoStaleInterrupts(src); err != nil {
		t.Fatalf("unexpected error with no pending firings: %v", err)
	}
}

type noopPendingSource struct{}

func (noopPendingSource) Wait() error { return nil }

func TestCheckNoStaleInterruptsSkipsSourcesWithoutPending(t *testing.T) {
	if err := checkNoStaleInterrupts(noopPendingSource{}); err != nil {
		t.Fatalf("expected check to be skipped for a source without Pending(): %v", err)
	}
}
