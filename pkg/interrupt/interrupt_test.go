package interrupt

import (
	"testing"
	"time"
)

func TestFakeSourceWaitBlocksUntilPost(t *testing.T) {
	src := NewFakeSource(4)

	done := make(chan error, 1)
	go func() {
		done <- src.Wait()
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before any Post")
	case <-time.After(20 * time.Millisecond):
	}

	src.Post()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Post")
	}
}

func TestFakeSourcePendingCount(t *testing.T) {
	src := NewFakeSource(4)
	src.Post()
	src.Post()
	if got := src.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}
	if err := src.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := src.Pending(); got != 1 {
		t.Fatalf("Pending() after one Wait = %d, want 1", got)
	}
}
