//go:build !headless

// display_backend_ebiten.go - Ebiten display backend

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
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

type EbitenDisplay struct {
	running        bool
	window         *ebiten.Image
	width          int
	height         int
	scale          int
	windowedW      int
	windowedH      int
	frameBuffer    []byte
	bufferMutex    sync.RWMutex
	frameCount     uint64
	refreshRate    int
	showStatusBar  bool
	statusProvider func() []statusToken
	vsyncChan      chan struct{}
	done           chan struct{}
}

func NewEbitenDisplay() (DisplayOutput, error) {
	return &EbitenDisplay{
		width:         DISPLAY_WIDTH,
		height:        DISPLAY_HEIGHT,
		scale:         1,
		windowedW:     DISPLAY_WIDTH,
		windowedH:     DISPLAY_HEIGHT,
		frameBuffer:   make([]byte, DISPLAY_WIDTH*DISPLAY_HEIGHT*4),
		refreshRate:   60,
		showStatusBar: true,
		vsyncChan:     make(chan struct{}, 1),
		done:          make(chan struct{}),
	}, nil
}

// SetStatusProvider installs the callback the status overlay samples each
// frame. A nil provider leaves the overlay blank.
func (ed *EbitenDisplay) SetStatusProvider(fn func() []statusToken) {
	ed.bufferMutex.Lock()
	ed.statusProvider = fn
	ed.bufferMutex.Unlock()
}

func (ed *EbitenDisplay) Start() error {
	if ed.running {
		return nil
	}
	ed.running = true
	ebiten.SetWindowSize(ed.windowedW, ed.windowedH)
	ebiten.SetWindowTitle("COJT Draw Engine (c) 2025 - 2026")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		defer func() {
			ed.running = false
			select {
			case <-ed.done:
			default:
				close(ed.done)
			}
		}()
		if err := ebiten.RunGame(ed); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for the first Draw call so the window exists before frames land
	<-ed.vsyncChan
	return nil
}

func (ed *EbitenDisplay) Stop() error {
	ed.running = false
	return nil
}

func (ed *EbitenDisplay) Close() error {
	return ed.Stop()
}

func (ed *EbitenDisplay) Done() <-chan struct{} {
	return ed.done
}

func (ed *EbitenDisplay) IsStarted() bool {
	return ed.running
}

func (ed *EbitenDisplay) SetDisplayConfig(config DisplayConfig) error {
	if config.Width <= 0 || config.Height <= 0 {
		return &DisplayError{
			Operation: "configure",
			Details:   fmt.Sprintf("invalid geometry %dx%d", config.Width, config.Height),
		}
	}
	ed.bufferMutex.Lock()
	defer ed.bufferMutex.Unlock()
	ed.width = config.Width
	ed.height = config.Height
	if config.Scale > 0 {
		ed.scale = config.Scale
	}
	ed.windowedW = ed.width * ed.scale
	ed.windowedH = ed.height * ed.scale
	if config.RefreshRate > 0 {
		ed.refreshRate = config.RefreshRate
	}
	if need := ed.width * ed.height * 4; len(ed.frameBuffer) != need {
		ed.frameBuffer = make([]byte, need)
	}
	ed.window = nil
	if ed.running {
		ebiten.SetWindowSize(ed.windowedW, ed.windowedH)
	}
	return nil
}

func (ed *EbitenDisplay) GetDisplayConfig() DisplayConfig {
	ed.bufferMutex.RLock()
	defer ed.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:       ed.width,
		Height:      ed.height,
		Scale:       ed.scale,
		RefreshRate: ed.refreshRate,
		VSync:       true,
	}
}

func (ed *EbitenDisplay) UpdateFrame(buffer []byte) error {
	ed.bufferMutex.Lock()
	defer ed.bufferMutex.Unlock()
	if len(buffer) != len(ed.frameBuffer) {
		return &DisplayError{
			Operation: "update",
			Details:   fmt.Sprintf("frame is %d bytes, want %d", len(buffer), len(ed.frameBuffer)),
		}
	}
	copy(ed.frameBuffer, buffer)
	ed.frameCount++
	return nil
}

func (ed *EbitenDisplay) GetFrameCount() uint64 {
	ed.bufferMutex.RLock()
	defer ed.bufferMutex.RUnlock()
	return ed.frameCount
}

func (ed *EbitenDisplay) GetRefreshRate() int {
	return ed.refreshRate
}

// Update implements ebiten.Game.
func (ed *EbitenDisplay) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		ed.showStatusBar = !ed.showStatusBar
	}
	return nil
}

// Draw implements ebiten.Game.
func (ed *EbitenDisplay) Draw(screen *ebiten.Image) {
	ed.bufferMutex.RLock()
	if ed.window == nil || ed.window.Bounds().Dx() != ed.width || ed.window.Bounds().Dy() != ed.height {
		ed.bufferMutex.RUnlock()
		ed.bufferMutex.Lock()
		ed.window = ebiten.NewImage(ed.width, ed.height)
		ed.bufferMutex.Unlock()
		ed.bufferMutex.RLock()
	}
	ed.window.WritePixels(ed.frameBuffer)
	provider := ed.statusProvider
	frames := ed.frameCount
	height := ed.height
	ed.bufferMutex.RUnlock()

	screen.DrawImage(ed.window, nil)
	if ed.showStatusBar && provider != nil {
		drawStatusLine(screen, 4, height-6, fmt.Sprintf("frame %d", frames), provider())
	}
	select {
	case ed.vsyncChan <- struct{}{}:
	default:
	}
}

// drawStatusLine renders a label followed by indicator tokens, lit green
// when on and grey when off.
func drawStatusLine(screen *ebiten.Image, x, baselineY int, label string, tokens []statusToken) {
	face := basicfont.Face7x13
	labelColor := color.RGBA{190, 190, 190, 255}
	offColor := color.RGBA{120, 120, 120, 255}
	onColor := color.RGBA{0, 220, 90, 255}

	text.Draw(screen, label, face, x, baselineY, labelColor)
	cursorX := x + text.BoundString(face, label).Dx() + 6
	for _, token := range tokens {
		c := offColor
		if token.on {
			c = onColor
		}
		text.Draw(screen, token.name, face, cursorX, baselineY, c)
		cursorX += text.BoundString(face, token.name).Dx() + 8
	}
}

// Layout implements ebiten.Game.
func (ed *EbitenDisplay) Layout(_, _ int) (int, int) {
	ed.bufferMutex.RLock()
	defer ed.bufferMutex.RUnlock()
	return ed.width, ed.height
}
