package main

import (
	"strings"
	"testing"
)

// TestLinuxCommandLine pins the virtio_mmio parameter an unmodified
// guest kernel needs to find the device.
func TestLinuxCommandLine(t *testing.T) {
	got := DefaultMachineConfig().LinuxCommandLine()
	want := "virtio_mmio.device=0x200@0xF0200:11"
	if got != want {
		t.Fatalf("command line %q, expected %q", got, want)
	}
}

// TestDeviceTreeNodes verifies both device windows appear in the dts
// fragment with their compatible strings.
func TestDeviceTreeNodes(t *testing.T) {
	dts := DefaultMachineConfig().DeviceTreeNodes()

	for _, want := range []string{
		`compatible = "cojt,draw-engine";`,
		`compatible = "virtio,mmio";`,
		"drawengine@f0000",
		"virtio@f0200",
		"interrupts = <10>;",
		"interrupts = <11>;",
	} {
		if !strings.Contains(dts, want) {
			t.Fatalf("dts fragment missing %q:\n%s", want, dts)
		}
	}
}

// TestDefaultMachineConfig pins the defaults the CLI starts from.
func TestDefaultMachineConfig(t *testing.T) {
	cfg := DefaultMachineConfig()
	if cfg.Scale != 1 {
		t.Fatalf("default scale %d, expected 1", cfg.Scale)
	}
	if cfg.Headless || cfg.Monitor || cfg.Script != "" || cfg.Image != "" {
		t.Fatalf("defaults not empty: %+v", cfg)
	}
}
