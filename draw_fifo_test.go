package main

import (
	"errors"
	"testing"
	"time"
)

// TestFIFOOrder verifies strict FIFO drain order.
func TestFIFOOrder(t *testing.T) {
	f := NewCommandFIFO()
	for i := uint32(0); i < 10; i++ {
		if err := f.Push(i); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}
	for i := uint32(0); i < 10; i++ {
		got, ok := f.Pop()
		if !ok || got != i {
			t.Fatalf("pop %d got (%d, %t)", i, got, ok)
		}
	}
}

// TestFIFOBackpressure verifies that a full FIFO rejects pushes with
// ErrFifoFull and keeps queued words intact.
func TestFIFOBackpressure(t *testing.T) {
	f := NewCommandFIFO()
	for i := 0; i < FIFO_DEPTH; i++ {
		if err := f.Push(uint32(i)); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}
	if err := f.Push(0xFFFF); !errors.Is(err, ErrFifoFull) {
		t.Fatalf("push on full FIFO returned %v, expected ErrFifoFull", err)
	}
	if f.Len() != FIFO_DEPTH {
		t.Fatalf("occupancy %d after rejected push, expected %d", f.Len(), FIFO_DEPTH)
	}
	if got, _ := f.Pop(); got != 0 {
		t.Fatalf("head is %d after rejected push, expected 0", got)
	}
}

// TestFIFOPushWaitBlocks verifies that PushWait stalls on a full FIFO
// and completes once a slot frees up.
func TestFIFOPushWaitBlocks(t *testing.T) {
	f := NewCommandFIFO()
	for i := 0; i < FIFO_DEPTH; i++ {
		_ = f.Push(uint32(i))
	}

	done := make(chan bool, 1)
	go func() {
		done <- f.PushWait(0xABCD)
	}()

	select {
	case <-done:
		t.Fatal("PushWait returned while the FIFO was full")
	case <-time.After(20 * time.Millisecond):
	}

	f.Pop()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("PushWait returned false on an open FIFO")
		}
	case <-time.After(time.Second):
		t.Fatal("PushWait did not complete after a slot freed")
	}
}

// TestFIFOCloseDrains verifies that Close wakes a blocked Pop and that
// queued words still drain before the closed signal.
func TestFIFOCloseDrains(t *testing.T) {
	f := NewCommandFIFO()
	_ = f.Push(0x11)
	f.Close()

	if got, ok := f.Pop(); !ok || got != 0x11 {
		t.Fatalf("pop after close got (0x%X, %t), expected (0x11, true)", got, ok)
	}
	if _, ok := f.Pop(); ok {
		t.Fatal("pop on closed drained FIFO reported a word")
	}
	if f.PushWait(0x22) {
		t.Fatal("PushWait succeeded on a closed FIFO")
	}
}
