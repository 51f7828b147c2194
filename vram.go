// vram.go - Video RAM model for the Draw Engine SoC

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrOutOfRange reports a VRAM (or DMA) access outside the addressable
// window. Real hardware would alias or wrap; the model reports the fault
// instead because deterministic testability is the hard requirement.
var ErrOutOfRange = errors.New("address out of range")

// VRAM is the byte-addressable buffer standing in for the AXI4-mastered
// video memory. It is the sole mutator gateway for pixel data: every other
// component reaches it through bounds-checked read/write operations using
// absolute bus addresses.
type VRAM struct {
	mutex sync.RWMutex
	base  uint32
	data  []byte
}

func NewVRAM(base uint32, size int) *VRAM {
	return &VRAM{
		base: base,
		data: make([]byte, size),
	}
}

func (v *VRAM) Base() uint32 { return v.base }
func (v *VRAM) Size() int    { return len(v.data) }

func (v *VRAM) checkRange(addr uint32, n int) error {
	if n < 0 || addr < v.base || int64(addr)-int64(v.base)+int64(n) > int64(len(v.data)) {
		return fmt.Errorf("VRAM access [0x%X,+%d): %w", addr, n, ErrOutOfRange)
	}
	return nil
}

// ReadBytes returns a copy of n bytes starting at the absolute address addr.
func (v *VRAM) ReadBytes(addr uint32, n int) ([]byte, error) {
	if err := v.checkRange(addr, n); err != nil {
		return nil, err
	}
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	off := addr - v.base
	out := make([]byte, n)
	copy(out, v.data[off:int(off)+n])
	return out, nil
}

// WriteBytes stores p at the absolute address addr. The write is applied in
// full or not at all, preserving per-range write atomicity for pipeline
// destination writes.
func (v *VRAM) WriteBytes(addr uint32, p []byte) error {
	if err := v.checkRange(addr, len(p)); err != nil {
		return err
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	copy(v.data[addr-v.base:], p)
	return nil
}

// Read32 reads a little-endian 32-bit word. Out-of-range or misaligned-tail
// reads return zero, matching open-bus behaviour on the memory-mapped window.
func (v *VRAM) Read32(addr uint32) uint32 {
	if v.checkRange(addr, 4) != nil {
		return 0
	}
	v.mutex.RLock()
	defer v.mutex.RUnlock()
	return binary.LittleEndian.Uint32(v.data[addr-v.base:])
}

// Write32 writes a little-endian 32-bit word. Out-of-range writes are
// dropped on the memory-mapped window.
func (v *VRAM) Write32(addr uint32, value uint32) {
	if v.checkRange(addr, 4) != nil {
		return
	}
	v.mutex.Lock()
	defer v.mutex.Unlock()
	binary.LittleEndian.PutUint32(v.data[addr-v.base:], value)
}

// HandleRead adapts VRAM to the machine bus I/O window callback signature.
func (v *VRAM) HandleRead(addr uint32) uint32 {
	return v.Read32(addr)
}

// HandleWrite adapts VRAM to the machine bus I/O window callback signature.
func (v *VRAM) HandleWrite(addr uint32, value uint32) {
	v.Write32(addr, value)
}

func (v *VRAM) Reset() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	for i := range v.data {
		v.data[i] = 0
	}
}
