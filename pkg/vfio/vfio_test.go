//go:build integration

package vfio

import (
	"os"
	"testing"
)

const testGroupPath = "/dev/vfio/0"

func TestOpenRealIOMMUGroup(t *testing.T) {
	if _, err := os.Stat(testGroupPath); err != nil {
		t.Skipf("skipping: %v", err)
	}

	dev, err := Open(testGroupPath, "tapasco")
	if err != nil {
		t.Skipf("skipping: %v", err)
	}
	defer dev.Close()

	info, err := dev.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	t.Logf("device has %d regions, %d irqs", info.NumRegions, info.NumIRQs)
}
