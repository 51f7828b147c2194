// pixel.go - Pixel packing and blend arithmetic for the Draw Engine

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

// All internal pixel arithmetic runs on canonical ARGB8888 values
// (A in bits 31..24, R in 23..16, G in 15..8, B in 7..0); pixels are
// narrowed or widened at the memory boundary. Multi-byte pixel values
// in VRAM are little-endian, so ARGB8888 lands as B,G,R,A bytes and
// RGB888 as B,G,R.

func pixelBytes(pixFmt uint32) int {
	if pixFmt == PIXFMT_RGB888 {
		return 3
	}
	return 4
}

// pixelMask is the set of bits a packed pixel occupies in the given format.
func pixelMask(pixFmt uint32) uint32 {
	if pixFmt == PIXFMT_RGB888 {
		return 0x00FFFFFF
	}
	return 0xFFFFFFFF
}

// packedPixel returns the raw packed value stored in memory, without
// widening. This is the value the stencil key is compared against.
func packedPixel(pixFmt uint32, p []byte) uint32 {
	v := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
	if pixFmt != PIXFMT_RGB888 {
		v |= uint32(p[3]) << 24
	}
	return v
}

// widenPixel converts a stored pixel to canonical ARGB8888. RGB888 pixels
// widen with full opacity.
func widenPixel(pixFmt uint32, p []byte) uint32 {
	v := packedPixel(pixFmt, p)
	if pixFmt == PIXFMT_RGB888 {
		v |= 0xFF000000
	}
	return v
}

// narrowPixel stores a canonical ARGB8888 value into memory in the given
// format, dropping the alpha channel for RGB888.
func narrowPixel(pixFmt uint32, argb uint32, p []byte) {
	p[0] = byte(argb)
	p[1] = byte(argb >> 8)
	p[2] = byte(argb >> 16)
	if pixFmt != PIXFMT_RGB888 {
		p[3] = byte(argb >> 24)
	}
}

// blendOver applies the Porter-Duff "over" operator per channel:
// out = src + dst*(255-srcA)/255, in 8-bit fixed point with truncating
// integer division, matching the reference blend.
func blendOver(src, dst uint32) uint32 {
	sa := src >> 24
	inv := 255 - sa

	sr := (src >> 16) & 0xFF
	sg := (src >> 8) & 0xFF
	sb := src & 0xFF
	da := dst >> 24
	dr := (dst >> 16) & 0xFF
	dg := (dst >> 8) & 0xFF
	db := dst & 0xFF

	oa := sa + da*inv/255
	or := sr + dr*inv/255
	og := sg + dg*inv/255
	ob := sb + db*inv/255

	if oa > 255 {
		oa = 255
	}
	if or > 255 {
		or = 255
	}
	if og > 255 {
		og = 255
	}
	if ob > 255 {
		ob = 255
	}
	return oa<<24 | or<<16 | og<<8 | ob
}
