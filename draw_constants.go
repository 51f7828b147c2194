// draw_constants.go - Draw Engine register map, command opcodes and status bits

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

// Legacy register window offsets (APB3 analogue). One 32-bit register per
// word; register id = (address - DRAW_REGION_BASE) / 4.
const (
	DRAW_FB_ADDR     = DRAW_REGION_BASE + 0x00 // Destination framebuffer base (RW)
	DRAW_FB_STRIDE   = DRAW_REGION_BASE + 0x04 // Destination row stride, bytes (RW)
	DRAW_X           = DRAW_REGION_BASE + 0x08 // Draw rectangle left (RW)
	DRAW_Y           = DRAW_REGION_BASE + 0x0C // Draw rectangle top (RW)
	DRAW_W           = DRAW_REGION_BASE + 0x10 // Draw rectangle width, pixels (RW)
	DRAW_H           = DRAW_REGION_BASE + 0x14 // Draw rectangle height, pixels (RW)
	DRAW_FILL_COLOR  = DRAW_REGION_BASE + 0x18 // Fill colour, ARGB8888 (RW)
	DRAW_SRC_ADDR    = DRAW_REGION_BASE + 0x1C // Blit source base (RW)
	DRAW_SRC_STRIDE  = DRAW_REGION_BASE + 0x20 // Blit source row stride, bytes (RW)
	DRAW_STENCIL_KEY = DRAW_REGION_BASE + 0x24 // Colour key, packed pixel value (RW)
	DRAW_ALPHA_MODE  = DRAW_REGION_BASE + 0x28 // Blend/stencil enables (RW)
	DRAW_PIX_FMT     = DRAW_REGION_BASE + 0x2C // Pixel format select (RW)
	DRAW_IRQ_ENABLE  = DRAW_REGION_BASE + 0x30 // Completion IRQ enable (RW)
	DRAW_STATUS      = DRAW_REGION_BASE + 0x34 // FIFO/pipeline status (RO)
	DRAW_FIFO_PUSH   = DRAW_REGION_BASE + 0x38 // Command FIFO push port (WO)
	DRAW_IRQ_ACK     = DRAW_REGION_BASE + 0x3C // DONE/FAULT acknowledge (WO)
)

// Register ids, shared by the SET command and the register file.
const (
	REG_FB_ADDR = iota
	REG_FB_STRIDE
	REG_DRAW_X
	REG_DRAW_Y
	REG_DRAW_W
	REG_DRAW_H
	REG_FILL_COLOR
	REG_SRC_ADDR
	REG_SRC_STRIDE
	REG_STENCIL_KEY
	REG_ALPHA_MODE
	REG_PIX_FMT
	REG_IRQ_ENABLE
	REG_STATUS
	REG_FIFO_PUSH
	REG_IRQ_ACK
	REG_COUNT
)

// Width masks per register. Hardware registers never reject wide values:
// they are masked to the implemented bit width.
var drawRegMask = [REG_COUNT]uint32{
	REG_FB_ADDR:     0xFFFFFFFF,
	REG_FB_STRIDE:   0x0000FFFF,
	REG_DRAW_X:      0x0000FFFF,
	REG_DRAW_Y:      0x0000FFFF,
	REG_DRAW_W:      0x0000FFFF,
	REG_DRAW_H:      0x0000FFFF,
	REG_FILL_COLOR:  0xFFFFFFFF,
	REG_SRC_ADDR:    0xFFFFFFFF,
	REG_SRC_STRIDE:  0x0000FFFF,
	REG_STENCIL_KEY: 0xFFFFFFFF,
	REG_ALPHA_MODE:  0x00000003,
	REG_PIX_FMT:     0x00000001,
	REG_IRQ_ENABLE:  0x00000001,
}

// Command word layout: opcode in bits 31..24, immediate in bits 23..0.
// SET carries the target register id in the immediate field and consumes
// one following operand word; the draw and control opcodes are standalone.
const (
	OP_NOP  = 0x00 // No operation
	OP_SET  = 0x01 // State-set: imm = register id, next word = value
	OP_FILL = 0x02 // Fill draw rectangle with FILL_COLOR
	OP_BLIT = 0x03 // Copy SRC rectangle to draw rectangle
	OP_EOL  = 0x04 // End of display list
)

// EncodeOp builds a command word from opcode and immediate.
func EncodeOp(op uint8, imm uint32) uint32 {
	return uint32(op)<<24 | imm&0x00FFFFFF
}

// ALPHA_MODE bits. Blend and stencil apply to blits; a pure fill always
// replaces.
const (
	ALPHA_MODE_BLEND   = 1 << 0 // Porter-Duff "over" blend
	ALPHA_MODE_STENCIL = 1 << 1 // Suppress writes where source == STENCIL_KEY
)

// PIX_FMT values.
const (
	PIXFMT_ARGB8888 = 0 // 32-bit, little-endian B,G,R,A in memory
	PIXFMT_RGB888   = 1 // 24-bit packed, little-endian B,G,R in memory
)

// STATUS register bits.
const (
	STAT_BUSY  = 1 << 0 // Commands queued or in flight
	STAT_DONE  = 1 << 1 // Display list completed (sticky, cleared by IRQ_ACK)
	STAT_FAULT = 1 << 2 // A command faulted (sticky, cleared by IRQ_ACK)

	STAT_FAULT_SHIFT = 8 // Fault code field, bits 15..8
	STAT_FIFO_SHIFT  = 16
)

// Fault codes latched into STATUS bits 15..8.
const (
	FAULT_NONE      = 0
	FAULT_OPCODE    = 1 // Unknown opcode, treated as NOP
	FAULT_TRUNCATED = 2 // SET without its operand word
	FAULT_RANGE     = 3 // VRAM access outside the window
	FAULT_REGISTER  = 4 // Register id outside the register file
	FAULT_FIFO      = 5 // FIFO push dropped on a full queue
)

// Native command FIFO depth, matching the prototype.
const FIFO_DEPTH = 256
