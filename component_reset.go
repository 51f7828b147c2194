// component_reset.go - Hard reset sequencing for the machine

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

// HardReset returns the whole SoC to power-on state: the pipeline is
// drained first so no stage is mid-span while memory is cleared, then
// every component resets in dependency order.
func (m *Machine) HardReset() {
	m.Engine.Stop()

	m.Bus.Reset()
	m.VRAM.Reset()
	m.Engine.Reset()
	m.GPU.Reset()
	m.VirtIO.Reset()

	m.Engine.Start()
}
