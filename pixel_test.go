package main

import "testing"

// TestBlendOpaqueReplaces verifies that a fully opaque source replaces
// the destination exactly.
func TestBlendOpaqueReplaces(t *testing.T) {
	src := uint32(0xFF336699)
	dst := uint32(0x80FFFFFF)
	if got := blendOver(src, dst); got != src {
		t.Fatalf("opaque blend 0x%08X, expected 0x%08X", got, src)
	}
}

// TestBlendTransparentKeepsDestination verifies that a fully transparent
// source leaves the destination unchanged.
func TestBlendTransparentKeepsDestination(t *testing.T) {
	dst := uint32(0xFF102030)
	if got := blendOver(0x00FFFFFF, dst); got != dst {
		t.Fatalf("transparent blend 0x%08X, expected 0x%08X", got, dst)
	}
}

// TestBlendTruncatingDivision pins the integer arithmetic: the reference
// blend truncates dst*(255-srcA)/255 per channel.
func TestBlendTruncatingDivision(t *testing.T) {
	// srcA=0x80, dst channel 0x55: 0x55*127/255 = 42 (truncated), +src.
	src := uint32(0x80000000 | 0x10<<16)
	dst := uint32(0x00550000)
	got := blendOver(src, dst)
	wantR := uint32(0x10 + 0x55*127/255)
	if (got>>16)&0xFF != wantR {
		t.Fatalf("red channel 0x%02X, expected 0x%02X", (got>>16)&0xFF, wantR)
	}
}

// TestPixelNarrowWiden verifies the memory layout of both formats and
// that RGB888 widens with full opacity.
func TestPixelNarrowWiden(t *testing.T) {
	var buf [4]byte

	narrowPixel(PIXFMT_ARGB8888, 0x80112233, buf[:])
	if buf[0] != 0x33 || buf[1] != 0x22 || buf[2] != 0x11 || buf[3] != 0x80 {
		t.Fatalf("ARGB8888 bytes % X, expected 33 22 11 80", buf)
	}
	if got := widenPixel(PIXFMT_ARGB8888, buf[:]); got != 0x80112233 {
		t.Fatalf("ARGB8888 widened to 0x%08X", got)
	}

	narrowPixel(PIXFMT_RGB888, 0x80112233, buf[:3])
	if buf[0] != 0x33 || buf[1] != 0x22 || buf[2] != 0x11 {
		t.Fatalf("RGB888 bytes % X, expected 33 22 11", buf[:3])
	}
	if got := widenPixel(PIXFMT_RGB888, buf[:3]); got != 0xFF112233 {
		t.Fatalf("RGB888 widened to 0x%08X, expected alpha forced opaque", got)
	}
}

// TestPackedPixel verifies the raw stencil-compare value is the stored
// packed pixel, not the widened one.
func TestPackedPixel(t *testing.T) {
	rgb := []byte{0x33, 0x22, 0x11}
	if got := packedPixel(PIXFMT_RGB888, rgb); got != 0x00112233 {
		t.Fatalf("RGB888 packed 0x%08X, expected 0x00112233", got)
	}
	if pixelBytes(PIXFMT_RGB888) != 3 || pixelBytes(PIXFMT_ARGB8888) != 4 {
		t.Fatal("pixelBytes wrong")
	}
	if pixelMask(PIXFMT_RGB888) != 0x00FFFFFF || pixelMask(PIXFMT_ARGB8888) != 0xFFFFFFFF {
		t.Fatal("pixelMask wrong")
	}
}
