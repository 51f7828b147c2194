// draw_fifo.go - Command FIFO for the Draw Engine

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import (
	"errors"
	"sync"
)

// ErrFifoFull reports backpressure on the command FIFO. The push is
// rejected without disturbing queued words; callers retry or stall.
var ErrFifoFull = errors.New("command FIFO full")

// CommandFIFO is the bounded queue of raw command words feeding the
// pipeline. It is the sole synchronization point between the legacy
// register path and the VirtIO path: words drain strictly in push order.
type CommandFIFO struct {
	mutex    sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	words    [FIFO_DEPTH]uint32
	head     int
	count    int
	closed   bool
}

func NewCommandFIFO() *CommandFIFO {
	f := &CommandFIFO{}
	f.notEmpty = sync.NewCond(&f.mutex)
	f.notFull = sync.NewCond(&f.mutex)
	return f
}

// Push enqueues one command word. A full FIFO fails with ErrFifoFull and
// leaves the queued words intact.
func (f *CommandFIFO) Push(word uint32) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.closed {
		return ErrFifoFull
	}
	if f.count == FIFO_DEPTH {
		return ErrFifoFull
	}
	f.words[(f.head+f.count)%FIFO_DEPTH] = word
	f.count++
	f.notEmpty.Signal()
	return nil
}

// PushWait enqueues one command word, blocking while the FIFO is full.
// Used by producers that stall instead of retrying (the GPU translator).
// Returns false once the FIFO is closed.
func (f *CommandFIFO) PushWait(word uint32) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for f.count == FIFO_DEPTH && !f.closed {
		f.notFull.Wait()
	}
	if f.closed {
		return false
	}
	f.words[(f.head+f.count)%FIFO_DEPTH] = word
	f.count++
	f.notEmpty.Signal()
	return true
}

// Pop dequeues the oldest word, blocking while the FIFO is empty. The
// second result is false once the FIFO is closed and drained.
func (f *CommandFIFO) Pop() (uint32, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	for f.count == 0 && !f.closed {
		f.notEmpty.Wait()
	}
	if f.count == 0 {
		return 0, false
	}
	word := f.words[f.head]
	f.head = (f.head + 1) % FIFO_DEPTH
	f.count--
	f.notFull.Signal()
	return word, true
}

// Len reports the current occupancy, surfaced in STATUS.
func (f *CommandFIFO) Len() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.count
}

// Close wakes all waiters; queued words still drain.
func (f *CommandFIFO) Close() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.closed = true
	f.notEmpty.Broadcast()
	f.notFull.Broadcast()
}

// Reset discards queued words. Only safe while the pipeline is stopped.
func (f *CommandFIFO) Reset() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.head = 0
	f.count = 0
	f.closed = false
	f.notFull.Broadcast()
}
