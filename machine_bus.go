// machine_bus.go - Machine bus for the Draw Engine SoC

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
machine_bus.go - Machine Bus

This module implements the memory bus that forms the backbone of the SoC
model. It provides a unified interface for 32-bit memory operations, covering
both guest RAM and memory-mapped I/O, plus a byte-level DMA port used by the
virtqueue processor to walk descriptor rings and guest page lists.

Core Features:

    16MB of guest RAM allocated as a contiguous block.
    Memory-mapped I/O via an I/O region mapping table that uses page masking
    and fixed page sizes.
    Little-endian read/write operations for 8-bit and 32-bit data.
    Byte-range DMA access (ReadBytes/WriteBytes) into guest RAM, modelling
    the device-side AXI master port. DMA deliberately bypasses I/O windows:
    a hardware bus master addresses RAM directly.
    Full reset capability to clear the entire memory state.
    Thread-safe access implemented with a read/write mutex.

The page mapping uses 0x100-byte pages, so an I/O region registered once
is found with a single map lookup per access.
*/

package main

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const (
	DEFAULT_RAM_SIZE = 16 * 1024 * 1024
	PAGE_SIZE        = 0x100
	PAGE_MASK        = 0xFFFFFF00
	WORD_SIZE        = 4
)

// Bus32 is the interface the CPU-side producers and the device-side DMA
// masters use to reach guest memory and memory-mapped I/O.
type Bus32 interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, value uint32)
	Read8(addr uint32) uint8
	Write8(addr uint32, value uint8)
	ReadBytes(addr uint32, n int) ([]byte, error)
	WriteBytes(addr uint32, p []byte) error
	Reset()
}

// IORegion represents a memory-mapped I/O region. Reads and writes that fall
// within [start, end] are routed to the callbacks instead of guest RAM.
type IORegion struct {
	start   uint32
	end     uint32
	onRead  func(addr uint32) uint32
	onWrite func(addr uint32, value uint32)
}

// MachineBus implements Bus32 for the SoC model.
type MachineBus struct {
	memory  []byte
	mutex   sync.RWMutex
	mapping map[uint32][]IORegion
}

func NewMachineBus() *MachineBus {
	return &MachineBus{
		memory:  make([]byte, DEFAULT_RAM_SIZE),
		mapping: make(map[uint32][]IORegion),
	}
}

// MapIO registers a memory-mapped I/O region. The region spans [start, end]
// inclusive; either callback may be nil, in which case accesses of that kind
// fall through to guest RAM.
func (bus *MachineBus) MapIO(start, end uint32, onRead func(addr uint32) uint32, onWrite func(addr uint32, value uint32)) {
	region := IORegion{
		start:   start,
		end:     end,
		onRead:  onRead,
		onWrite: onWrite,
	}
	firstPage := start & PAGE_MASK
	lastPage := end & PAGE_MASK
	for page := firstPage; page <= lastPage; page += PAGE_SIZE {
		bus.mapping[page] = append(bus.mapping[page], region)
	}
}

func (bus *MachineBus) findRegion(addr uint32) *IORegion {
	if regions, exists := bus.mapping[addr&PAGE_MASK]; exists {
		for i := range regions {
			if addr >= regions[i].start && addr <= regions[i].end {
				return &regions[i]
			}
		}
	}
	return nil
}

func (bus *MachineBus) Write32(addr uint32, value uint32) {
	bus.mutex.Lock()
	region := bus.findRegion(addr)
	if region != nil && region.onWrite != nil {
		// I/O handlers run outside the bus lock: a register write may
		// trigger virtqueue processing which DMAs back through the bus.
		bus.mutex.Unlock()
		region.onWrite(addr, value)
		return
	}
	defer bus.mutex.Unlock()
	if int(addr)+WORD_SIZE <= len(bus.memory) {
		binary.LittleEndian.PutUint32(bus.memory[addr:addr+WORD_SIZE], value)
	}
}

func (bus *MachineBus) Read32(addr uint32) uint32 {
	bus.mutex.RLock()
	region := bus.findRegion(addr)
	if region != nil && region.onRead != nil {
		bus.mutex.RUnlock()
		return region.onRead(addr)
	}
	defer bus.mutex.RUnlock()
	if int(addr)+WORD_SIZE <= len(bus.memory) {
		return binary.LittleEndian.Uint32(bus.memory[addr : addr+WORD_SIZE])
	}
	return 0
}

func (bus *MachineBus) Write8(addr uint32, value uint8) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	if int(addr) < len(bus.memory) {
		bus.memory[addr] = value
	}
}

func (bus *MachineBus) Read8(addr uint32) uint8 {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	if int(addr) < len(bus.memory) {
		return bus.memory[addr]
	}
	return 0
}

// ReadBytes copies n bytes of guest RAM starting at addr. It is the
// device-side DMA read port; I/O windows are not consulted.
func (bus *MachineBus) ReadBytes(addr uint32, n int) ([]byte, error) {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	if n < 0 || int(addr)+n > len(bus.memory) {
		return nil, fmt.Errorf("bus DMA read [0x%X,+%d): %w", addr, n, ErrOutOfRange)
	}
	out := make([]byte, n)
	copy(out, bus.memory[addr:int(addr)+n])
	return out, nil
}

// WriteBytes copies p into guest RAM starting at addr. It is the device-side
// DMA write port; I/O windows are not consulted.
func (bus *MachineBus) WriteBytes(addr uint32, p []byte) error {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	if int(addr)+len(p) > len(bus.memory) {
		return fmt.Errorf("bus DMA write [0x%X,+%d): %w", addr, len(p), ErrOutOfRange)
	}
	copy(bus.memory[addr:int(addr)+len(p)], p)
	return nil
}

func (bus *MachineBus) Reset() {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	for i := range bus.memory {
		bus.memory[i] = 0
	}
}
