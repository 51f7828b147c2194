//go:build headless

// display_backend_headless.go - Headless display for CI builds

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

func NewEbitenDisplay() (DisplayOutput, error) {
	return NewHeadlessDisplay(), nil
}
