// display_compositor.go - Scanout refresh loop for the Draw Engine model

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
display_compositor.go - Scanout Compositor

Presents the engine's framebuffer on a display backend. Each refresh the
compositor samples the engine's effective FB_ADDR/FB_STRIDE/PIX_FMT
registers, reads the scanout rectangle out of VRAM and converts it to the
RGBA layout the backends consume.

Signal Flow:

  DrawEngine registers -> VRAM scanout window -> RGBA frame -> DisplayOutput

The compositor is a pure reader: it never writes VRAM and never touches
the command stream, exactly like a hardware video DMA engine sharing the
memory port with the draw pipeline.
*/

package main

import (
	"sync"
	"time"
)

const (
	COMPOSITOR_REFRESH_RATE     = 60
	COMPOSITOR_REFRESH_INTERVAL = time.Second / COMPOSITOR_REFRESH_RATE
)

type DisplayCompositor struct {
	mutex       sync.Mutex
	engine      *DrawEngine
	vram        *VRAM
	output      DisplayOutput
	frame       []byte
	frameWidth  int
	frameHeight int
	done        chan struct{}
	running     bool
}

func NewDisplayCompositor(engine *DrawEngine, vram *VRAM, output DisplayOutput) *DisplayCompositor {
	return &DisplayCompositor{
		engine:      engine,
		vram:        vram,
		output:      output,
		frameWidth:  DISPLAY_WIDTH,
		frameHeight: DISPLAY_HEIGHT,
	}
}

// Start begins the refresh loop.
func (c *DisplayCompositor) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.running {
		return nil
	}
	c.frame = make([]byte, c.frameWidth*c.frameHeight*4)
	c.done = make(chan struct{})
	c.running = true
	go c.refreshLoop(c.done)
	return nil
}

// Stop halts the refresh loop.
func (c *DisplayCompositor) Stop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.done)
}

func (c *DisplayCompositor) refreshLoop(done chan struct{}) {
	ticker := time.NewTicker(COMPOSITOR_REFRESH_INTERVAL)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.PresentFrame()
		}
	}
}

// PresentFrame converts the current scanout window to RGBA and pushes it
// to the backend. Exposed so tests and the monitor can force a frame
// without waiting on the ticker.
func (c *DisplayCompositor) PresentFrame() error {
	snap := c.engine.Snapshot()
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.frame == nil {
		c.frame = make([]byte, c.frameWidth*c.frameHeight*4)
	}

	bpp := pixelBytes(snap.PixFmt)
	rowPixels := uint32(c.frameWidth)
	for y := 0; y < c.frameHeight; y++ {
		src, err := c.vram.ReadBytes(snap.FBAddr+uint32(y)*snap.FBStride, int(rowPixels)*bpp)
		if err != nil {
			// A misprogrammed base just shows as a black frame, like
			// real scanout pointing at unmapped memory.
			for i := y * c.frameWidth * 4; i < (y+1)*c.frameWidth*4; i++ {
				c.frame[i] = 0
			}
			continue
		}
		row := c.frame[y*c.frameWidth*4:]
		for x := 0; x < c.frameWidth; x++ {
			argb := widenPixel(snap.PixFmt, src[x*bpp:(x+1)*bpp])
			row[x*4+0] = byte(argb >> 16) // R
			row[x*4+1] = byte(argb >> 8)  // G
			row[x*4+2] = byte(argb)       // B
			row[x*4+3] = 0xFF             // scanout is opaque
		}
	}
	return c.output.UpdateFrame(c.frame)
}

// FrameSize reports the presented geometry.
func (c *DisplayCompositor) FrameSize() (int, int) {
	return c.frameWidth, c.frameHeight
}
