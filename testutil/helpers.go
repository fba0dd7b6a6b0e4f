// Package testutil provides small test helpers shared across the runtime's
// integration-tagged test suites.
package testutil

import (
	"os"
	"testing"

	"github.com/tapasco-rs/runtime/pkg/device"
)

// SkipIfNoDevice skips the current test unless at least one tapasco device
// node is present, so integration-tagged tests degrade gracefully on a
// machine with no FPGA attached.
func SkipIfNoDevice(t *testing.T) []device.Info {
	t.Helper()
	infos, err := device.Scan()
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return infos
}

// TempDir returns a fresh temporary directory cleaned up at test end.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// TempFile creates a temporary file with the given contents and returns its
// path. The file is removed at test end.
func TempFile(t *testing.T, contents []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "tapasco-test-*")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(contents); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return f.Name()
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
}

// AssertEqual fails the test if got != want.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// AssertBytesEqual fails the test if got and want differ.
func AssertBytesEqual(t *testing.T, got, want []byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d bytes, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("byte %d differs: got %#x, want %#x", i, got[i], want[i])
		}
	}
}
