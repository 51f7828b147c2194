// machine.go - Top-level SoC wiring for the Draw Engine model

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import "sync/atomic"

// IRQLine is a single edge-triggered interrupt line into the interrupt
// controller. The model only needs the edge; level tracking lives with
// the device's own status registers.
type IRQLine interface {
	Pulse()
}

// IRQCounter is the default line used when no interrupt controller is
// attached: it just counts edges, which is what the tests and the
// monitor inspect.
type IRQCounter struct {
	count uint64
}

func (c *IRQCounter) Pulse() {
	atomic.AddUint64(&c.count, 1)
}

func (c *IRQCounter) Count() uint64 {
	return atomic.LoadUint64(&c.count)
}

// Machine assembles the SoC: guest RAM and VRAM on the bus, the Draw
// Engine behind its legacy register window, and the VirtIO-GPU transport
// in front of the same engine.
type Machine struct {
	Bus     *MachineBus
	VRAM    *VRAM
	Engine  *DrawEngine
	GPU     *GPUTranslator
	VirtIO  *VirtioMMIO
	DrawIRQ *IRQCounter
	GPUIRQ  *IRQCounter
}

func NewMachine() *Machine {
	m := &Machine{
		Bus:     NewMachineBus(),
		DrawIRQ: &IRQCounter{},
		GPUIRQ:  &IRQCounter{},
	}
	m.VRAM = NewVRAM(VRAM_START, VRAM_SIZE)
	m.Engine = NewDrawEngine(m.VRAM, m.DrawIRQ)
	m.GPU = NewGPUTranslator(m.Bus, m.Engine)
	m.VirtIO = NewVirtioMMIO(m.Bus, VIRTIO_REGION_BASE, m.GPUIRQ, m.GPU)

	m.Bus.MapIO(DRAW_REGION_BASE, DRAW_REGION_END,
		m.Engine.HandleRead,
		m.Engine.HandleWrite)
	m.Bus.MapIO(VIRTIO_REGION_BASE, VIRTIO_REGION_END,
		m.VirtIO.HandleRead,
		m.VirtIO.HandleWrite)
	m.Bus.MapIO(VRAM_START, VRAM_END,
		m.VRAM.HandleRead,
		m.VRAM.HandleWrite)

	return m
}

// Start brings the pipeline up. The transports are passive register
// blocks and need no lifecycle of their own.
func (m *Machine) Start() {
	m.Engine.Start()
}

// Stop drains the pipeline and parks the machine.
func (m *Machine) Stop() {
	m.Engine.Stop()
}

// StatusTokens samples live device state for the window's status overlay.
func (m *Machine) StatusTokens() []statusToken {
	status := m.Engine.Status()
	return []statusToken{
		{"BUSY", status&STAT_BUSY != 0},
		{"DONE", status&STAT_DONE != 0},
		{"FAULT", status&STAT_FAULT != 0},
		{"VIRTIO", m.VirtIO.Status()&VIRTIO_STATUS_DRIVER_OK != 0},
	}
}
