//go:build integration

package driver

import (
	"testing"
	"time"
)

func skipIfNoDevice(t *testing.T, path string) *DeviceFile {
	t.Helper()
	dev, err := OpenDeviceWithTimeout(path, time.Second)
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	return dev
}

func TestOpenDeviceRealHardware(t *testing.T) {
	dev := skipIfNoDevice(t, "/dev/tapasco0")
	defer dev.Close()

	major, minor, revision, err := dev.DeviceInfo()
	if err != nil {
		t.Fatalf("DeviceInfo: %v", err)
	}
	t.Logf("tapasco0 driver version %d.%d.%d", major, minor, revision)
}

func TestCopyToFromRealHardware(t *testing.T) {
	dev := skipIfNoDevice(t, "/dev/tapasco0")
	defer dev.Close()

	payload := []byte("integration test payload")
	if err := dev.CopyTo(0x0, payload); err != nil {
		t.Fatalf("CopyTo: %v", err)
	}

	out := make([]byte, len(payload))
	if err := dev.CopyFrom(0x0, out); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
}
