// registers.go - Centralized I/O register address map for the Draw Engine SoC

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
registers.go - Master I/O Register Address Map

This file provides a centralized reference for all memory-mapped I/O regions
in the Draw Engine SoC model. Individual device implementations define their
own detailed register constants in separate *_constants.go files.

MEMORY MAP OVERVIEW
===================

Address Range       Size    Device              Constants File
---------------------------------------------------------------------------
0x00000-0xEFFFF     960KB   Guest RAM (low)     -
0xF0000-0xF003F     64B     Draw Engine         draw_constants.go
0xF0200-0xF03FF     512B    VirtIO MMIO (GPU)   virtio_constants.go
0x100000-0x4FFFFF   4MB     Video RAM           registers.go (VRAM_START)
0x500000-0xFFFFFF   11MB    Guest RAM (high)    -

Draw Engine (0xF0000-0xF003F) - draw_constants.go
  DRAW_FB_ADDR, DRAW_FB_STRIDE, DRAW_X/Y/W/H
  DRAW_FILL_COLOR, DRAW_SRC_ADDR, DRAW_SRC_STRIDE
  DRAW_STENCIL_KEY, DRAW_ALPHA_MODE, DRAW_PIX_FMT
  DRAW_IRQ_ENABLE, DRAW_STATUS (RO), DRAW_FIFO_PUSH (WO), DRAW_IRQ_ACK (WO)

VirtIO MMIO (0xF0200-0xF03FF) - virtio_constants.go
  Standard virtio-mmio register block (magic, version, device/vendor id,
  feature negotiation, queue configuration, interrupt status/ack, status)
  followed by the virtio-gpu config space at +0x100.

The virtqueue rings and guest page lists live in ordinary guest RAM and are
reached by the device through the byte-level DMA port of the machine bus.
*/

package main

const (
	// Main I/O region boundaries
	IO_REGION_BASE = 0xF0000 // Start of I/O mapped region
	IO_REGION_END  = 0xFFFFF // End of I/O mapped region

	// Draw Engine legacy register window (APB3 analogue)
	DRAW_REGION_BASE = 0xF0000
	DRAW_REGION_END  = 0xF003F

	// VirtIO MMIO transport window
	VIRTIO_REGION_BASE = 0xF0200
	VIRTIO_REGION_END  = 0xF03FF
	VIRTIO_REGION_SIZE = 0x200
)

const (
	// Main VRAM (framebuffer, resource regions and transfer staging)
	VRAM_START = 0x100000 // 1MB
	VRAM_END   = 0x4FFFFF // 5MB - 1
	VRAM_SIZE  = 0x400000 // 4MB
)

// Native scanout geometry. One fixed mode, XRGB8888.
const (
	DISPLAY_WIDTH  = 640
	DISPLAY_HEIGHT = 480
)

// IsIOAddress returns true if the address is in the I/O region
func IsIOAddress(addr uint32) bool {
	return addr >= IO_REGION_BASE && addr <= IO_REGION_END
}

// IsVRAMAddress returns true if the address is in main VRAM
func IsVRAMAddress(addr uint32) bool {
	return addr >= VRAM_START && addr <= VRAM_END
}

// GetIORegion returns the device name mapped at an address.
func GetIORegion(addr uint32) string {
	switch {
	case addr >= DRAW_REGION_BASE && addr <= DRAW_REGION_END:
		return "DrawEngine"
	case addr >= VIRTIO_REGION_BASE && addr <= VIRTIO_REGION_END:
		return "VirtIO-GPU"
	case IsVRAMAddress(addr):
		return "VRAM"
	default:
		return "Unknown"
	}
}
