// virtio_gpu.go - virtio-gpu command translator for the Draw Engine

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
virtio_gpu.go - GPU Command Translator

Bridges the virtio-gpu 2D control protocol onto the native Draw Engine
command stream. Resources are rectangles of VRAM handed out by a bump
allocator; TRANSFER_TO_HOST_2D DMAs guest backing pages into a staging
strip and replays them as native BLIT display lists, so the engine's own
pipeline performs every pixel write. SET_SCANOUT retargets the engine
framebuffer base at the scanout resource, which is what the display
compositor presents.

A command's response is not produced until its pixel effects are
observable in VRAM: transfer and flush wait for the engine to drain
before acknowledging.
*/

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownResource reports a command naming a resource id that was never
// created or was already unreferenced.
var ErrUnknownResource = errors.New("unknown resource id")

// Staging strip for guest-to-VRAM transfers. Sized for a couple dozen
// full-width rows per chunk.
const gpuStagingSize = 0x10000

type gpuMemEntry struct {
	addr   uint64
	length uint32
}

type gpuResource struct {
	id       uint32
	format   uint32
	width    uint32
	height   uint32
	vramAddr uint32
	stride   uint32
	backing  []gpuMemEntry
}

type gpuCtrlHdr struct {
	Type    uint32
	Flags   uint32
	FenceID uint64
	CtxID   uint32
	RingIdx uint8
}

type gpuRect struct {
	X, Y, Width, Height uint32
}

// GPUTranslator implements GPUCommandHandler over the Draw Engine.
type GPUTranslator struct {
	mutex  sync.Mutex
	bus    Bus32
	vram   *VRAM
	engine *DrawEngine

	resources map[uint32]*gpuResource
	scanout   uint32 // resource id bound to scanout 0; 0 = disabled

	stagingAddr uint32
	allocBase   uint32
	allocNext   uint32
}

func NewGPUTranslator(bus Bus32, engine *DrawEngine) *GPUTranslator {
	// VRAM layout: the native scanout framebuffer sits at VRAM_START,
	// the transfer staging strip follows it, resources fill the rest.
	fbSize := uint32(DISPLAY_WIDTH * DISPLAY_HEIGHT * 4)
	g := &GPUTranslator{
		bus:         bus,
		vram:        engine.vram,
		engine:      engine,
		resources:   make(map[uint32]*gpuResource),
		stagingAddr: VRAM_START + fbSize,
	}
	g.allocBase = g.stagingAddr + gpuStagingSize
	g.allocNext = g.allocBase
	return g
}

// Reset drops every resource and the scanout binding, as on device reset.
func (g *GPUTranslator) Reset() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.resources = make(map[uint32]*gpuResource)
	g.scanout = 0
	g.allocNext = g.allocBase
}

// alloc hands out VRAM for a new resource. Bump allocation only: UNREF
// releases the id but the region is not reclaimed until the next reset.
func (g *GPUTranslator) alloc(size uint32) (uint32, error) {
	if size == 0 || g.allocNext+size < g.allocNext || g.allocNext+size > VRAM_END+1 {
		return 0, fmt.Errorf("resource of %d bytes: VRAM exhausted", size)
	}
	addr := g.allocNext
	g.allocNext += size
	return addr, nil
}

func (g *GPUTranslator) lookup(id uint32) (*gpuResource, error) {
	res, ok := g.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource %d: %w", id, ErrUnknownResource)
	}
	return res, nil
}

// --- wire format ---

func parseGPUHdr(b []byte) gpuCtrlHdr {
	return gpuCtrlHdr{
		Type:    binary.LittleEndian.Uint32(b[0:4]),
		Flags:   binary.LittleEndian.Uint32(b[4:8]),
		FenceID: binary.LittleEndian.Uint64(b[8:16]),
		CtxID:   binary.LittleEndian.Uint32(b[16:20]),
		RingIdx: b[20],
	}
}

// respond builds a response buffer whose header mirrors the request's
// fence, so a fenced command completes its fence in the same used entry.
func (h gpuCtrlHdr) respond(rtype uint32, payload []byte) []byte {
	out := make([]byte, virtioGPUHdrSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], rtype)
	if h.Flags&VIRTIO_GPU_FLAG_FENCE != 0 {
		binary.LittleEndian.PutUint32(out[4:8], VIRTIO_GPU_FLAG_FENCE)
		binary.LittleEndian.PutUint64(out[8:16], h.FenceID)
	}
	binary.LittleEndian.PutUint32(out[16:20], h.CtxID)
	out[20] = h.RingIdx
	copy(out[virtioGPUHdrSize:], payload)
	return out
}

func parseGPURect(b []byte) gpuRect {
	return gpuRect{
		X:      binary.LittleEndian.Uint32(b[0:4]),
		Y:      binary.LittleEndian.Uint32(b[4:8]),
		Width:  binary.LittleEndian.Uint32(b[8:12]),
		Height: binary.LittleEndian.Uint32(b[12:16]),
	}
}

func validGPUFormat(format uint32) bool {
	switch format {
	case VIRTIO_GPU_FORMAT_B8G8R8A8_UNORM, VIRTIO_GPU_FORMAT_B8G8R8X8_UNORM,
		VIRTIO_GPU_FORMAT_A8R8G8B8_UNORM, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM,
		VIRTIO_GPU_FORMAT_R8G8B8A8_UNORM, VIRTIO_GPU_FORMAT_X8B8G8R8_UNORM,
		VIRTIO_GPU_FORMAT_A8B8G8R8_UNORM, VIRTIO_GPU_FORMAT_R8G8B8X8_UNORM:
		return true
	}
	return false
}

// HandleCommand decodes one control-queue request and returns its
// response. Unknown or undersized requests get RESP_ERR_UNSPEC rather
// than no answer; the driver always sees a completion.
func (g *GPUTranslator) HandleCommand(payload []byte) []byte {
	if len(payload) < virtioGPUHdrSize {
		return gpuCtrlHdr{}.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	hdr := parseGPUHdr(payload)
	body := payload[virtioGPUHdrSize:]

	g.mutex.Lock()
	defer g.mutex.Unlock()

	switch hdr.Type {
	case VIRTIO_GPU_CMD_GET_DISPLAY_INFO:
		return g.cmdGetDisplayInfo(hdr)
	case VIRTIO_GPU_CMD_RESOURCE_CREATE_2D:
		return g.cmdResourceCreate2D(hdr, body)
	case VIRTIO_GPU_CMD_RESOURCE_UNREF:
		return g.cmdResourceUnref(hdr, body)
	case VIRTIO_GPU_CMD_SET_SCANOUT:
		return g.cmdSetScanout(hdr, body)
	case VIRTIO_GPU_CMD_RESOURCE_FLUSH:
		return g.cmdResourceFlush(hdr, body)
	case VIRTIO_GPU_CMD_TRANSFER_TO_HOST_2D:
		return g.cmdTransferToHost2D(hdr, body)
	case VIRTIO_GPU_CMD_RESOURCE_ATTACH_BACKING:
		return g.cmdAttachBacking(hdr, body)
	case VIRTIO_GPU_CMD_RESOURCE_DETACH_BACKING:
		return g.cmdDetachBacking(hdr, body)
	}
	return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
}

// cmdGetDisplayInfo reports the single fixed scanout.
func (g *GPUTranslator) cmdGetDisplayInfo(hdr gpuCtrlHdr) []byte {
	// struct virtio_gpu_resp_display_info: pmodes[16] of
	// {rect, enabled u32, flags u32}.
	payload := make([]byte, VIRTIO_GPU_MAX_SCANOUTS*24)
	binary.LittleEndian.PutUint32(payload[8:12], DISPLAY_WIDTH)
	binary.LittleEndian.PutUint32(payload[12:16], DISPLAY_HEIGHT)
	binary.LittleEndian.PutUint32(payload[16:20], 1) // enabled
	return hdr.respond(VIRTIO_GPU_RESP_OK_DISPLAY_INFO, payload)
}

func (g *GPUTranslator) cmdResourceCreate2D(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 16 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	id := binary.LittleEndian.Uint32(body[0:4])
	format := binary.LittleEndian.Uint32(body[4:8])
	width := binary.LittleEndian.Uint32(body[8:12])
	height := binary.LittleEndian.Uint32(body[12:16])

	if id == 0 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	if _, exists := g.resources[id]; exists {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	// Width is bounded by what the 16-bit stride register can express.
	if !validGPUFormat(format) || width == 0 || height == 0 || width > 0x3FFF || height > 0xFFFF {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER, nil)
	}
	addr, err := g.alloc(width * height * 4)
	if err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_OUT_OF_MEMORY, nil)
	}
	g.resources[id] = &gpuResource{
		id:       id,
		format:   format,
		width:    width,
		height:   height,
		vramAddr: addr,
		stride:   width * 4,
	}
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

func (g *GPUTranslator) cmdResourceUnref(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 4 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	id := binary.LittleEndian.Uint32(body[0:4])
	if _, err := g.lookup(id); err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	delete(g.resources, id)
	if g.scanout == id {
		g.scanout = 0
	}
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

// cmdSetScanout binds a resource to the single scanout by retargeting the
// engine framebuffer base registers through the native command stream.
func (g *GPUTranslator) cmdSetScanout(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 24 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	scanoutID := binary.LittleEndian.Uint32(body[16:20])
	resID := binary.LittleEndian.Uint32(body[20:24])

	if scanoutID != 0 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_SCANOUT_ID, nil)
	}
	if resID == 0 {
		// Disable the scanout; the engine keeps its current base.
		g.scanout = 0
		return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
	}
	res, err := g.lookup(resID)
	if err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	if err := g.engine.SubmitList([]uint32{
		EncodeOp(OP_SET, REG_FB_ADDR), res.vramAddr,
		EncodeOp(OP_SET, REG_FB_STRIDE), res.stride,
		EncodeOp(OP_SET, REG_PIX_FMT), PIXFMT_ARGB8888,
	}); err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	g.engine.WaitIdle()
	g.scanout = resID
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

// cmdResourceFlush marks a frame boundary. The scanout already aliases
// the resource's VRAM, so flushing is an end-of-list through the engine:
// completion (and the completion IRQ, if enabled) fires exactly as it
// would for a native display list.
func (g *GPUTranslator) cmdResourceFlush(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 20 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	resID := binary.LittleEndian.Uint32(body[16:20])
	if _, err := g.lookup(resID); err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	if err := g.engine.SubmitList([]uint32{EncodeOp(OP_EOL, 0)}); err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	g.engine.WaitIdle()
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

func (g *GPUTranslator) cmdTransferToHost2D(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 32 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	rect := parseGPURect(body[0:16])
	offset := binary.LittleEndian.Uint64(body[16:24])
	resID := binary.LittleEndian.Uint32(body[24:28])

	res, err := g.lookup(resID)
	if err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	if len(res.backing) == 0 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	if rect.Width == 0 || rect.Height == 0 ||
		rect.X+rect.Width > res.width || rect.Y+rect.Height > res.height {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER, nil)
	}
	if err := g.transferRect(res, rect, offset); err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

// transferRect DMAs the rectangle's rows from guest backing pages into
// the staging strip and blits them into the resource with native
// commands, chunked so a large rectangle never outgrows the strip.
// The engine must drain before each chunk reuses the strip and before
// the response makes the pixels observable.
func (g *GPUTranslator) transferRect(res *gpuResource, rect gpuRect, offset uint64) error {
	rowBytes := rect.Width * 4
	rowsPerChunk := uint32(gpuStagingSize) / rowBytes
	if rowsPerChunk == 0 {
		return fmt.Errorf("transfer row of %d bytes exceeds staging strip", rowBytes)
	}

	for row := uint32(0); row < rect.Height; row += rowsPerChunk {
		rows := rect.Height - row
		if rows > rowsPerChunk {
			rows = rowsPerChunk
		}
		for r := uint32(0); r < rows; r++ {
			// Guest layout is the resource's own stride; the rect row
			// starts offset bytes into the backing store.
			src := offset + uint64(row+r)*uint64(res.stride)
			data, err := g.backingRead(res, src, int(rowBytes))
			if err != nil {
				return err
			}
			if err := g.vram.WriteBytes(g.stagingAddr+r*rowBytes, data); err != nil {
				return err
			}
		}
		list := []uint32{
			EncodeOp(OP_SET, REG_FB_ADDR), res.vramAddr,
			EncodeOp(OP_SET, REG_FB_STRIDE), res.stride,
			EncodeOp(OP_SET, REG_SRC_ADDR), g.stagingAddr,
			EncodeOp(OP_SET, REG_SRC_STRIDE), rowBytes,
			EncodeOp(OP_SET, REG_DRAW_X), rect.X,
			EncodeOp(OP_SET, REG_DRAW_Y), rect.Y + row,
			EncodeOp(OP_SET, REG_DRAW_W), rect.Width,
			EncodeOp(OP_SET, REG_DRAW_H), rows,
			EncodeOp(OP_SET, REG_ALPHA_MODE), 0,
			EncodeOp(OP_SET, REG_PIX_FMT), PIXFMT_ARGB8888,
			EncodeOp(OP_BLIT, 0),
		}
		if err := g.engine.SubmitList(list); err != nil {
			return err
		}
		g.engine.WaitIdle()
	}
	return g.restoreScanout()
}

// restoreScanout re-points the engine framebuffer base at the scanout
// resource after a transfer clobbered the FB registers.
func (g *GPUTranslator) restoreScanout() error {
	if g.scanout == 0 {
		return nil
	}
	res, err := g.lookup(g.scanout)
	if err != nil {
		return err
	}
	if err := g.engine.SubmitList([]uint32{
		EncodeOp(OP_SET, REG_FB_ADDR), res.vramAddr,
		EncodeOp(OP_SET, REG_FB_STRIDE), res.stride,
	}); err != nil {
		return err
	}
	g.engine.WaitIdle()
	return nil
}

// backingRead gathers n bytes starting at a byte offset into the
// resource's scatter list of guest pages.
func (g *GPUTranslator) backingRead(res *gpuResource, offset uint64, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for _, entry := range res.backing {
		if n == 0 {
			break
		}
		if offset >= uint64(entry.length) {
			offset -= uint64(entry.length)
			continue
		}
		take := int(uint64(entry.length) - offset)
		if take > n {
			take = n
		}
		addr := entry.addr + offset
		if addr > 0xFFFFFFFF {
			return nil, fmt.Errorf("backing page at 0x%X beyond bus", addr)
		}
		data, err := g.bus.ReadBytes(uint32(addr), take)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		n -= take
		offset = 0
	}
	if n > 0 {
		return nil, fmt.Errorf("transfer runs %d bytes past the backing store", n)
	}
	return out, nil
}

func (g *GPUTranslator) cmdAttachBacking(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 8 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	resID := binary.LittleEndian.Uint32(body[0:4])
	nr := binary.LittleEndian.Uint32(body[4:8])

	res, err := g.lookup(resID)
	if err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	if nr == 0 || len(body) < 8+int(nr)*virtioGPUMemEntrySize {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER, nil)
	}
	entries := make([]gpuMemEntry, nr)
	for i := range entries {
		base := 8 + i*virtioGPUMemEntrySize
		entries[i] = gpuMemEntry{
			addr:   binary.LittleEndian.Uint64(body[base : base+8]),
			length: binary.LittleEndian.Uint32(body[base+8 : base+12]),
		}
	}
	res.backing = entries
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

func (g *GPUTranslator) cmdDetachBacking(hdr gpuCtrlHdr, body []byte) []byte {
	if len(body) < 4 {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_UNSPEC, nil)
	}
	resID := binary.LittleEndian.Uint32(body[0:4])
	res, err := g.lookup(resID)
	if err != nil {
		return hdr.respond(VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID, nil)
	}
	res.backing = nil
	return hdr.respond(VIRTIO_GPU_RESP_OK_NODATA, nil)
}

// ResourceCount reports live resources, for the monitor.
func (g *GPUTranslator) ResourceCount() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.resources)
}

// ScanoutResource reports the resource currently bound to scanout 0.
func (g *GPUTranslator) ScanoutResource() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.scanout
}
