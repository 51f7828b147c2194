// display_interface.go - Display backend interface for the Draw Engine model

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync/atomic"
)

// DisplayError provides detailed error context for display operations
type DisplayError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *DisplayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("display %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("display %s failed: %s", e.Operation, e.Details)
}

func (e *DisplayError) Unwrap() error {
	return e.Err
}

// DisplayConfig contains hardware-independent configuration
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	RefreshRate int // Target refresh rate in Hz
	VSync       bool
}

// statusToken is one indicator lamp on the window's status overlay.
type statusToken struct {
	name string
	on   bool
}

// DisplayOutput is the minimal interface a display backend must
// implement. The compositor feeds it raw RGBA frames; everything else is
// backend detail.
type DisplayOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // raw RGBA pixels only

	GetFrameCount() uint64
	GetRefreshRate() int
}

// Predefined display backend types
const (
	DISPLAY_BACKEND_EBITEN   = iota // Pure Go Ebiten backend
	DISPLAY_BACKEND_HEADLESS        // Frame counter only, for tests and CI
)

// NewDisplayOutput creates a display output using the specified backend.
func NewDisplayOutput(backend int) (DisplayOutput, error) {
	switch backend {
	case DISPLAY_BACKEND_EBITEN:
		return NewEbitenDisplay()
	case DISPLAY_BACKEND_HEADLESS:
		return NewHeadlessDisplay(), nil
	default:
		return nil, &DisplayError{
			Operation: "create",
			Details:   fmt.Sprintf("unknown backend %d", backend),
		}
	}
}

// HeadlessDisplay swallows frames and counts them. It backs the headless
// build and every test that needs a display sink.
type HeadlessDisplay struct {
	started     bool
	config      DisplayConfig
	frameCount  uint64
	refreshRate int
}

func NewHeadlessDisplay() *HeadlessDisplay {
	return &HeadlessDisplay{refreshRate: 60}
}

func (h *HeadlessDisplay) Start() error {
	h.started = true
	return nil
}

func (h *HeadlessDisplay) Stop() error {
	h.started = false
	return nil
}

func (h *HeadlessDisplay) Close() error {
	h.started = false
	return nil
}

func (h *HeadlessDisplay) IsStarted() bool {
	return h.started
}

func (h *HeadlessDisplay) SetDisplayConfig(config DisplayConfig) error {
	h.config = config
	return nil
}

func (h *HeadlessDisplay) GetDisplayConfig() DisplayConfig {
	return h.config
}

func (h *HeadlessDisplay) UpdateFrame(buffer []byte) error {
	atomic.AddUint64(&h.frameCount, 1)
	return nil
}

func (h *HeadlessDisplay) GetFrameCount() uint64 {
	return atomic.LoadUint64(&h.frameCount)
}

func (h *HeadlessDisplay) GetRefreshRate() int {
	if h.refreshRate == 0 {
		return 60
	}
	return h.refreshRate
}
