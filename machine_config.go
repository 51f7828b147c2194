// machine_config.go - Machine configuration and guest integration strings

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import "fmt"

// Interrupt line numbers on the platform interrupt controller.
const (
	IRQ_LINE_DRAW   = 10
	IRQ_LINE_VIRTIO = 11
)

// MachineConfig collects the knobs the CLI exposes.
type MachineConfig struct {
	Headless bool   // headless display sink instead of a window
	Scale    int    // integer window scaling
	Script   string // Lua scene script to run at startup
	Image    string // image file to upload and blit at startup
	Monitor  bool   // drop into the interactive monitor
}

func DefaultMachineConfig() MachineConfig {
	return MachineConfig{Scale: 1}
}

// LinuxCommandLine returns the kernel parameter that makes an unmodified
// Linux guest probe the VirtIO window without a devicetree.
func (c MachineConfig) LinuxCommandLine() string {
	return fmt.Sprintf("virtio_mmio.device=0x%X@0x%X:%d",
		VIRTIO_REGION_SIZE, VIRTIO_REGION_BASE, IRQ_LINE_VIRTIO)
}

// DeviceTreeNodes returns the dts fragment describing both device
// windows, for guests that boot from a devicetree instead of the
// command line.
func (c MachineConfig) DeviceTreeNodes() string {
	return fmt.Sprintf(
		`drawengine@%x {
	compatible = "cojt,draw-engine";
	reg = <0x%x 0x%x>;
	interrupts = <%d>;
};

virtio@%x {
	compatible = "virtio,mmio";
	reg = <0x%x 0x%x>;
	interrupts = <%d>;
};
`,
		DRAW_REGION_BASE, DRAW_REGION_BASE, DRAW_REGION_END-DRAW_REGION_BASE+1, IRQ_LINE_DRAW,
		VIRTIO_REGION_BASE, VIRTIO_REGION_BASE, VIRTIO_REGION_SIZE, IRQ_LINE_VIRTIO)
}
