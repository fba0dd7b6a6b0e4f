package pe

import (
	"testing"

	"github.com/tapasco-rs/runtime/pkg/interrupt"
	"github.com/tapasco-rs/runtime/pkg/memory"
	"github.com/tapasco-rs/runtime/pkg/register"
)

func newTestPE(t *testing.T) (*PE, *interrupt.FakeSource) {
	t.Helper()
	win := register.NewFakeWindow(4096)
	src := interrupt.NewFakeSource(4)
	p := New(Config{
		ID:        1,
		TypeID:    42,
		Base:      0x100,
		Size:      0x100,
		Name:      "test-pe",
		Window:    win,
		Interrupt: src,
	})
	return p, src
}

func TestStartThenStartFailsWhileActive(t *testing.T) {
	p, src := newTestPE(t)
	if err := p.Start(); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := p.Start()
	if err == nil {
		t.Fatal("expected PEAlreadyActiveError on second Start")
	}
	if _, ok := err.(*PEAlreadyActiveError); !ok {
		t.Fatalf("expected *PEAlreadyActiveError, got %T: %v", err, err)
	}

	src.Post()
	if _, _, err := p.Release(false); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestStartReleaseRoundTrip(t *testing.T) {
	p, src := newTestPE(t)

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !p.IsActive() {
		t.Fatal("expected PE to be active after Start")
	}

	src.Post()

	rv, cb, err := p.Release(false)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if rv != 0 {
		t.Fatalf("rv = %d, want 0 (not requested)", rv)
	}
	if cb != nil {
		t.Fatalf("cb = %v, want nil", cb)
	}
	if p.IsActive() {
		t.Fatal("expected PE to be idle after Release")
	}

	set, err := p.InterruptSet()
	if err != nil {
		t.Fatalf("InterruptSet: %v", err)
	}
	if !set {
		t.Fatal("expected interrupt-ack bit to be set after completion")
	}
}

func TestReleaseOnIdlePEIsNoop(t *testing.T) {
	p, _ := newTestPE(t)
	rv, cb, err := p.Release(false)
	if err != nil {
		t.Fatalf("Release on idle PE: %v", err)
	}
	if rv != 0 || cb != nil {
		t.Fatalf("unexpected rv=%d cb=%v on idle release", rv, cb)
	}
}

func TestEnableInterruptWhileActiveFails(t *testing.T) {
	p, src := newTestPE(t)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.EnableInterrupt(); err == nil {
		t.Fatal("expected error enabling interrupt while active")
	}
	src.Post()
	if _, _, err := p.Release(false); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := p.EnableInterrupt(); err != nil {
		t.Fatalf("EnableInterrupt while idle: %v", err)
	}
	global, local, err := p.InterruptStatus()
	if err != nil {
		t.Fatalf("InterruptStatus: %v", err)
	}
	if !global || !local {
		t.Fatalf("expected both interrupt lines enabled, got global=%v local=%v", global, local)
	}
}

func TestSetArgAndReadArgRoundTrip(t *testing.T) {
	p, _ := newTestPE(t)

	if err := p.SetArg(0, Single32(0xcafef00d)); err != nil {
		t.Fatalf("SetArg 32: %v", err)
	}
	got, err := p.ReadArg(0, 4)
	if err != nil {
		t.Fatalf("ReadArg 32: %v", err)
	}
	if got != Single32(0xcafef00d) {
		t.Fatalf("got %#v, want Single32(0xcafef00d)", got)
	}

	if err := p.SetArg(1, Single64(0x1122334455667788)); err != nil {
		t.Fatalf("SetArg 64: %v", err)
	}
	got64, err := p.ReadArg(1, 8)
	if err != nil {
		t.Fatalf("ReadArg 64: %v", err)
	}
	if got64 != Single64(0x1122334455667788) {
		t.Fatalf("got %#v, want Single64", got64)
	}
}

type fakeParam struct{}

func (fakeParam) isParameter() {}

func TestSetArgUnsupportedParameter(t *testing.T) {
	p, _ := newTestPE(t)
	err := p.SetArg(0, fakeParam{})
	if err == nil {
		t.Fatal("expected UnsupportedParameterError")
	}
	if _, ok := err.(*UnsupportedParameterError); !ok {
		t.Fatalf("expected *UnsupportedParameterError, got %T: %v", err, err)
	}
}

func TestReadArgUnsupportedSize(t *testing.T) {
	p, _ := newTestPE(t)
	_, err := p.ReadArg(0, 2)
	if err == nil {
		t.Fatal("expected UnsupportedRegisterSizeError")
	}
	if _, ok := err.(*UnsupportedRegisterSizeError); !ok {
		t.Fatalf("expected *UnsupportedRegisterSizeError, got %T: %v", err, err)
	}
}

func TestCopyBackQueuedAndReturnedOnRelease(t *testing.T) {
	p, src := newTestPE(t)

	p.AddCopyBack(Transfer{DeviceAddress: 0x1000, Length: 64})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Post()

	_, cb, err := p.Release(false)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(cb) != 1 {
		t.Fatalf("len(cb) = %d, want 1", len(cb))
	}
	tr, ok := cb[0].(Transfer)
	if !ok || tr.DeviceAddress != 0x1000 || tr.Length != 64 {
		t.Fatalf("unexpected copy-back entry: %#v", cb[0])
	}

	// Queue must be empty after being taken once.
	if err := p.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	src.Post()
	_, cb2, err := p.Release(false)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if cb2 != nil {
		t.Fatalf("expected empty copy-back on second release, got %v", cb2)
	}
}

func TestCopyBacksReturnedInInsertionOrder(t *testing.T) {
	p, src := newTestPE(t)
	alloc := memory.New(0, 0x10000)

	p.AddCopyBack(Transfer{DeviceAddress: 0x1000, Length: 64})
	p.AddCopyBack(FreeRegion{DeviceAddress: 0x2000, Allocator: alloc})
	p.AddCopyBack(Transfer{DeviceAddress: 0x3000, Length: 128})

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Post()

	_, cb, err := p.Release(false)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(cb) != 3 {
		t.Fatalf("len(cb) = %d, want 3", len(cb))
	}

	tr0, ok := cb[0].(Transfer)
	if !ok || tr0.DeviceAddress != 0x1000 || tr0.Length != 64 {
		t.Fatalf("cb[0] = %#v, want Transfer{0x1000, 64}", cb[0])
	}
	fr1, ok := cb[1].(FreeRegion)
	if !ok || fr1.DeviceAddress != 0x2000 || fr1.Allocator != alloc {
		t.Fatalf("cb[1] = %#v, want FreeRegion{0x2000, alloc}", cb[1])
	}
	tr2, ok := cb[2].(Transfer)
	if !ok || tr2.DeviceAddress != 0x3000 || tr2.Length != 128 {
		t.Fatalf("cb[2] = %#v, want Transfer{0x3000, 128}", cb[2])
	}
}

func TestReleaseReadsReturnValue(t *testing.T) {
	p, src := newTestPE(t)
	if err := p.window.WriteUint64(p.base+regReturn, 0xabad1dea); err != nil {
		t.Fatalf("seed return value: %v", err)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	src.Post()

	rv, _, err := p.Release(true)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if rv != 0xabad1dea {
		t.Fatalf("rv = %#x, want %#x", rv, uint64(0xabad1dea))
	}
}
