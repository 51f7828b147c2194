// media_loader.go - Image asset loading into VRAM blit sources

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
media_loader.go - Media Loader

Decodes host-side image files (PNG, JPEG, GIF, BMP) into raw pixel data
laid out exactly as the Draw Engine consumes it, so a decoded image can
be dropped into VRAM and blitted with native commands. Images larger
than the requested bounds are scaled down; the aspect ratio is the
caller's problem, matching the img2raw tool this replaces.
*/

package main

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	xdraw "golang.org/x/image/draw"
)

// ImageAsset is a decoded image in engine pixel layout.
type ImageAsset struct {
	Width  uint32
	Height uint32
	Stride uint32 // bytes per row
	PixFmt uint32
	Data   []byte
}

// LoadImageAsset decodes path into the given engine pixel format,
// scaling down to fit maxW x maxH when necessary.
func LoadImageAsset(path string, pixFmt uint32, maxW, maxH int) (*ImageAsset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxW > 0 && w > maxW || maxH > 0 && h > maxH {
		scaleW, scaleH := w, h
		if maxW > 0 && scaleW > maxW {
			scaleH = scaleH * maxW / scaleW
			scaleW = maxW
		}
		if maxH > 0 && scaleH > maxH {
			scaleW = scaleW * maxH / scaleH
			scaleH = maxH
		}
		if scaleW < 1 {
			scaleW = 1
		}
		if scaleH < 1 {
			scaleH = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, scaleW, scaleH))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Over, nil)
		src = scaled
		w, h = scaleW, scaleH
	}

	bpp := pixelBytes(pixFmt)
	asset := &ImageAsset{
		Width:  uint32(w),
		Height: uint32(h),
		Stride: uint32(w * bpp),
		PixFmt: pixFmt,
		Data:   make([]byte, w*h*bpp),
	}
	b := src.Bounds()
	for y := 0; y < h; y++ {
		row := asset.Data[y*w*bpp:]
		for x := 0; x < w; x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			argb := uint32(a>>8)<<24 | uint32(r>>8)<<16 | uint32(g>>8)<<8 | uint32(bl>>8)
			narrowPixel(pixFmt, argb, row[x*bpp:(x+1)*bpp])
		}
	}
	return asset, nil
}

// UploadTo copies the asset's pixels into VRAM at addr.
func (a *ImageAsset) UploadTo(vram *VRAM, addr uint32) error {
	return vram.WriteBytes(addr, a.Data)
}

// BlitList builds the native display list that blits the whole asset to
// (dstX, dstY) on the current framebuffer. srcAddr is where UploadTo
// placed the pixels.
func (a *ImageAsset) BlitList(srcAddr, dstX, dstY uint32) []uint32 {
	return []uint32{
		EncodeOp(OP_SET, REG_SRC_ADDR), srcAddr,
		EncodeOp(OP_SET, REG_SRC_STRIDE), a.Stride,
		EncodeOp(OP_SET, REG_DRAW_X), dstX,
		EncodeOp(OP_SET, REG_DRAW_Y), dstY,
		EncodeOp(OP_SET, REG_DRAW_W), a.Width,
		EncodeOp(OP_SET, REG_DRAW_H), a.Height,
		EncodeOp(OP_SET, REG_PIX_FMT), a.PixFmt,
		EncodeOp(OP_BLIT, 0),
		EncodeOp(OP_EOL, 0),
	}
}
