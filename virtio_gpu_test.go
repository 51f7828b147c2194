package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

const tqBacking = 0x20000

func gpuPutRect(b []byte, x, y, w, h uint32) {
	binary.LittleEndian.PutUint32(b[0:4], x)
	binary.LittleEndian.PutUint32(b[4:8], y)
	binary.LittleEndian.PutUint32(b[8:12], w)
	binary.LittleEndian.PutUint32(b[12:16], h)
}

func gpuCreate2D(id, format, w, h uint32) []byte {
	req := append(gpuHdr(VIRTIO_GPU_CMD_RESOURCE_CREATE_2D), make([]byte, 16)...)
	body := req[virtioGPUHdrSize:]
	binary.LittleEndian.PutUint32(body[0:4], id)
	binary.LittleEndian.PutUint32(body[4:8], format)
	binary.LittleEndian.PutUint32(body[8:12], w)
	binary.LittleEndian.PutUint32(body[12:16], h)
	return req
}

func gpuAttach(id uint32, addr uint64, length uint32) []byte {
	req := append(gpuHdr(VIRTIO_GPU_CMD_RESOURCE_ATTACH_BACKING), make([]byte, 8+virtioGPUMemEntrySize)...)
	body := req[virtioGPUHdrSize:]
	binary.LittleEndian.PutUint32(body[0:4], id)
	binary.LittleEndian.PutUint32(body[4:8], 1)
	binary.LittleEndian.PutUint64(body[8:16], addr)
	binary.LittleEndian.PutUint32(body[16:20], length)
	return req
}

func gpuTransfer(id uint32, x, y, w, h uint32, offset uint64) []byte {
	req := append(gpuHdr(VIRTIO_GPU_CMD_TRANSFER_TO_HOST_2D), make([]byte, 32)...)
	body := req[virtioGPUHdrSize:]
	gpuPutRect(body[0:16], x, y, w, h)
	binary.LittleEndian.PutUint64(body[16:24], offset)
	binary.LittleEndian.PutUint32(body[24:28], id)
	return req
}

func gpuSetScanout(scanoutID, resID uint32, w, h uint32) []byte {
	req := append(gpuHdr(VIRTIO_GPU_CMD_SET_SCANOUT), make([]byte, 24)...)
	body := req[virtioGPUHdrSize:]
	gpuPutRect(body[0:16], 0, 0, w, h)
	binary.LittleEndian.PutUint32(body[16:20], scanoutID)
	binary.LittleEndian.PutUint32(body[20:24], resID)
	return req
}

func gpuFlush(id uint32, w, h uint32) []byte {
	req := append(gpuHdr(VIRTIO_GPU_CMD_RESOURCE_FLUSH), make([]byte, 20)...)
	body := req[virtioGPUHdrSize:]
	gpuPutRect(body[0:16], 0, 0, w, h)
	binary.LittleEndian.PutUint32(body[16:20], id)
	return req
}

func gpuSingleID(cmdType, id uint32) []byte {
	req := append(gpuHdr(cmdType), make([]byte, 8)...)
	binary.LittleEndian.PutUint32(req[virtioGPUHdrSize:], id)
	return req
}

func respType(resp []byte) uint32 {
	return binary.LittleEndian.Uint32(resp[0:4])
}

func expectResp(t *testing.T, m *Machine, req []byte, want uint32) []byte {
	t.Helper()
	resp := gpuSubmit(t, m, req)
	if got := respType(resp); got != want {
		t.Fatalf("response 0x%04X, expected 0x%04X", got, want)
	}
	return resp
}

// TestGPUDisplayInfo verifies the fixed scanout geometry is reported.
func TestGPUDisplayInfo(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	resp := expectResp(t, m, gpuHdr(VIRTIO_GPU_CMD_GET_DISPLAY_INFO), VIRTIO_GPU_RESP_OK_DISPLAY_INFO)
	pmode := resp[virtioGPUHdrSize:]
	if w := binary.LittleEndian.Uint32(pmode[8:12]); w != DISPLAY_WIDTH {
		t.Fatalf("reported width %d, expected %d", w, DISPLAY_WIDTH)
	}
	if h := binary.LittleEndian.Uint32(pmode[12:16]); h != DISPLAY_HEIGHT {
		t.Fatalf("reported height %d, expected %d", h, DISPLAY_HEIGHT)
	}
	if enabled := binary.LittleEndian.Uint32(pmode[16:20]); enabled != 1 {
		t.Fatal("scanout 0 not reported enabled")
	}
}

// TestGPUTransferFlushRoundTrip walks the full guest flow: create,
// attach backing, transfer, set scanout, flush. The backing pixels must
// land in the resource's VRAM and the engine must scan out from it.
func TestGPUTransferFlushRoundTrip(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	const w, h = 8, 4
	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, w, h), VIRTIO_GPU_RESP_OK_NODATA)

	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	if err := m.Bus.WriteBytes(tqBacking, pixels); err != nil {
		t.Fatalf("seed backing: %v", err)
	}
	expectResp(t, m, gpuAttach(1, tqBacking, uint32(len(pixels))), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuTransfer(1, 0, 0, w, h, 0), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuSetScanout(0, 1, w, h), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuFlush(1, w, h), VIRTIO_GPU_RESP_OK_NODATA)

	res := m.GPU.resources[1]
	if res == nil {
		t.Fatal("resource 1 missing after round trip")
	}
	got, err := m.VRAM.ReadBytes(res.vramAddr, len(pixels))
	if err != nil {
		t.Fatalf("resource readback: %v", err)
	}
	if !bytes.Equal(got, pixels) {
		t.Fatalf("resource pixels differ from backing\n got % X\nwant % X", got[:16], pixels[:16])
	}

	if snap := m.Engine.Snapshot(); snap.FBAddr != res.vramAddr {
		t.Fatalf("scanout base 0x%X, expected resource at 0x%X", snap.FBAddr, res.vramAddr)
	}
}

// TestGPUTransferSubRectangle verifies a partial transfer only touches
// the named rectangle within the resource.
func TestGPUTransferSubRectangle(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	const w, h = 4, 4
	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, w, h), VIRTIO_GPU_RESP_OK_NODATA)

	backing := make([]byte, w*h*4)
	for i := range backing {
		backing[i] = 0xCC
	}
	_ = m.Bus.WriteBytes(tqBacking, backing)
	expectResp(t, m, gpuAttach(1, tqBacking, uint32(len(backing))), VIRTIO_GPU_RESP_OK_NODATA)

	// One row, starting at (1,2): offset = y*stride + x*4.
	offset := uint64(2*w*4 + 1*4)
	expectResp(t, m, gpuTransfer(1, 1, 2, 2, 1, offset), VIRTIO_GPU_RESP_OK_NODATA)

	res := m.GPU.resources[1]
	row, _ := m.VRAM.ReadBytes(res.vramAddr+2*res.stride, int(res.stride))
	if row[0] != 0 || row[4] != 0xCC || row[8] != 0xCC || row[12] != 0 {
		t.Fatalf("sub-rect transfer touched wrong pixels: % X", row)
	}
	above, _ := m.VRAM.ReadBytes(res.vramAddr+1*res.stride, int(res.stride))
	for i, b := range above {
		if b != 0 {
			t.Fatalf("row above rect modified at byte %d", i)
		}
	}
}

// TestGPUResourceErrors verifies the id validation paths: zero ids,
// duplicates, bad formats and unknown resources.
func TestGPUResourceErrors(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	expectResp(t, m, gpuCreate2D(0, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 4, 4), VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID)
	expectResp(t, m, gpuCreate2D(1, 5, 4, 4), VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER)
	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 0, 4), VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER)
	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 4, 4), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 4, 4), VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID)

	expectResp(t, m, gpuTransfer(9, 0, 0, 1, 1, 0), VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID)
	expectResp(t, m, gpuFlush(9, 1, 1), VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID)
	expectResp(t, m, gpuSingleID(VIRTIO_GPU_CMD_RESOURCE_UNREF, 9), VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID)
	expectResp(t, m, gpuSetScanout(3, 1, 4, 4), VIRTIO_GPU_RESP_ERR_INVALID_SCANOUT_ID)

	// A transfer without backing is refused.
	expectResp(t, m, gpuTransfer(1, 0, 0, 4, 4, 0), VIRTIO_GPU_RESP_ERR_UNSPEC)
	// Out-of-bounds rectangles are refused.
	expectResp(t, m, gpuAttach(1, tqBacking, 4*4*4), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuTransfer(1, 2, 2, 4, 4, 0), VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER)
}

// TestGPUDetachAndUnref verifies backing detach blocks transfers and
// unref releases the id and the scanout binding.
func TestGPUDetachAndUnref(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 2, 2), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuAttach(1, tqBacking, 16), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuSetScanout(0, 1, 2, 2), VIRTIO_GPU_RESP_OK_NODATA)

	expectResp(t, m, gpuSingleID(VIRTIO_GPU_CMD_RESOURCE_DETACH_BACKING, 1), VIRTIO_GPU_RESP_OK_NODATA)
	expectResp(t, m, gpuTransfer(1, 0, 0, 2, 2, 0), VIRTIO_GPU_RESP_ERR_UNSPEC)

	expectResp(t, m, gpuSingleID(VIRTIO_GPU_CMD_RESOURCE_UNREF, 1), VIRTIO_GPU_RESP_OK_NODATA)
	if m.GPU.ResourceCount() != 0 {
		t.Fatalf("resource count %d after unref", m.GPU.ResourceCount())
	}
	if m.GPU.ScanoutResource() != 0 {
		t.Fatal("scanout binding survived unref")
	}
}

// TestGPUFenceMirrored verifies fenced requests complete their fence in
// the response header.
func TestGPUFenceMirrored(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	req := gpuHdr(VIRTIO_GPU_CMD_GET_DISPLAY_INFO)
	binary.LittleEndian.PutUint32(req[4:8], VIRTIO_GPU_FLAG_FENCE)
	binary.LittleEndian.PutUint64(req[8:16], 0xABCDEF0123)

	resp := gpuSubmit(t, m, req)
	if flags := binary.LittleEndian.Uint32(resp[4:8]); flags&VIRTIO_GPU_FLAG_FENCE == 0 {
		t.Fatal("fence flag not mirrored")
	}
	if fence := binary.LittleEndian.Uint64(resp[8:16]); fence != 0xABCDEF0123 {
		t.Fatalf("fence id 0x%X, expected 0xABCDEF0123", fence)
	}
}

// TestGPUUnknownCommand verifies an unsupported command type still
// produces a completion.
func TestGPUUnknownCommand(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)
	expectResp(t, m, gpuHdr(0x0300), VIRTIO_GPU_RESP_ERR_UNSPEC)
}

// TestGPUDeviceResetDropsResources verifies a transport reset clears the
// translator's resource table.
func TestGPUDeviceResetDropsResources(t *testing.T) {
	m := newTestMachine(t)
	virtioBringUp(t, m)

	expectResp(t, m, gpuCreate2D(1, VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM, 2, 2), VIRTIO_GPU_RESP_OK_NODATA)
	vregW(m, VIRTIO_MMIO_STATUS, 0)
	if m.GPU.ResourceCount() != 0 {
		t.Fatalf("resources survived device reset: %d", m.GPU.ResourceCount())
	}
}
