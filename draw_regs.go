// draw_regs.go - Draw Engine register file

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
	"fmt"
	"sync"
)

// ErrInvalidRegister reports an access to a register id outside the
// implemented register file.
var ErrInvalidRegister = errors.New("invalid register")

// RegisterFile holds the engine's control state. Registers persist across
// commands until explicitly overwritten; they are the only state shared
// between state-set and draw commands. The file has an explicit lifecycle
// tied to the device session: created at machine construction, cleared by
// Reset.
type RegisterFile struct {
	mutex sync.RWMutex
	regs  [REG_COUNT]uint32
}

func NewRegisterFile() *RegisterFile {
	rf := &RegisterFile{}
	rf.Reset()
	return rf
}

// Write stores value into the register, masked to the register's bit
// width. Out-of-range values are never rejected, hardware registers do not
// validate width. Writes to STATUS and to the write-only command ports are
// side-effecting at the engine level and are ignored here.
func (rf *RegisterFile) Write(id int, value uint32) error {
	if id < 0 || id >= REG_COUNT {
		return fmt.Errorf("register %d: %w", id, ErrInvalidRegister)
	}
	switch id {
	case REG_STATUS, REG_FIFO_PUSH, REG_IRQ_ACK:
		return nil
	}
	rf.mutex.Lock()
	defer rf.mutex.Unlock()
	rf.regs[id] = value & drawRegMask[id]
	return nil
}

// Read returns the stored register value. STATUS is assembled by the engine,
// not stored; reading it through the register file yields zero.
func (rf *RegisterFile) Read(id int) (uint32, error) {
	if id < 0 || id >= REG_COUNT {
		return 0, fmt.Errorf("register %d: %w", id, ErrInvalidRegister)
	}
	rf.mutex.RLock()
	defer rf.mutex.RUnlock()
	return rf.regs[id], nil
}

// RegSnapshot is the set of register values a draw command latches at the
// moment it is dequeued by the parse stage.
type RegSnapshot struct {
	FBAddr     uint32
	FBStride   uint32
	X, Y, W, H uint32
	FillColor  uint32
	SrcAddr    uint32
	SrcStride  uint32
	StencilKey uint32
	AlphaMode  uint32
	PixFmt     uint32
	IRQEnable  bool
}

// Snapshot latches the currently effective register values.
func (rf *RegisterFile) Snapshot() RegSnapshot {
	rf.mutex.RLock()
	defer rf.mutex.RUnlock()
	return RegSnapshot{
		FBAddr:     rf.regs[REG_FB_ADDR],
		FBStride:   rf.regs[REG_FB_STRIDE],
		X:          rf.regs[REG_DRAW_X],
		Y:          rf.regs[REG_DRAW_Y],
		W:          rf.regs[REG_DRAW_W],
		H:          rf.regs[REG_DRAW_H],
		FillColor:  rf.regs[REG_FILL_COLOR],
		SrcAddr:    rf.regs[REG_SRC_ADDR],
		SrcStride:  rf.regs[REG_SRC_STRIDE],
		StencilKey: rf.regs[REG_STENCIL_KEY],
		AlphaMode:  rf.regs[REG_ALPHA_MODE],
		PixFmt:     rf.regs[REG_PIX_FMT],
		IRQEnable:  rf.regs[REG_IRQ_ENABLE] != 0,
	}
}

func (rf *RegisterFile) Reset() {
	rf.mutex.Lock()
	defer rf.mutex.Unlock()
	for i := range rf.regs {
		rf.regs[i] = 0
	}
	// The framebuffer defaults to the base of VRAM with a 640x480 XRGB8888
	// layout, matching the prototype's reset state.
	rf.regs[REG_FB_ADDR] = VRAM_START
	rf.regs[REG_FB_STRIDE] = 640 * 4
}
