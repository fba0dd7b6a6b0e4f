package register

import "testing"

func TestFakeWindowRoundTrip32(t *testing.T) {
	w := NewFakeWindow(64)
	if err := w.WriteUint32(0x10, 0xdeadbeef); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	got, err := w.ReadUint32(0x10)
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestFakeWindowRoundTrip64(t *testing.T) {
	w := NewFakeWindow(64)
	if err := w.WriteUint64(0x18, 0x1122334455667788); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	got, err := w.ReadUint64(0x18)
	if err != nil {
		t.Fatalf("ReadUint64: %v", err)
	}
	if got != 0x1122334455667788 {
		t.Fatalf("got %#x, want %#x", got, uint64(0x1122334455667788))
	}
}

func TestFakeWindowOutOfRange(t *testing.T) {
	w := NewFakeWindow(16)
	if _, err := w.ReadUint32(13); err == nil {
		t.Fatal("expected out-of-range error")
	}
	_, err := w.ReadUint64(12)
	if err == nil {
		t.Fatal("expected out-of-range error for 64-bit read spanning the end")
	}
	if _, ok := err.(*OutOfRangeError); !ok {
		t.Fatalf("expected *OutOfRangeError, got %T: %v", err, err)
	}
}
