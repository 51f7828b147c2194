// script_lua.go - Lua scene scripting for the Draw Engine model

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
script_lua.go - Scene Scripting

Exposes the machine to Lua so test scenes and demos can be written
without recompiling. The "draw" table maps one-to-one onto the native
command stream; a script is just a display list generator:

    draw.set("fill_color", 0xFF2040C0)
    draw.fill(10, 10, 100, 50)
    draw.eol()
    draw.wait()

poke32/peek32 give scripts raw bus access for the VirtIO side and VRAM
inspection.
*/

package main

import (
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"
)

// Register names accepted by draw.set, in script-friendly lowercase.
var luaRegNames = map[string]int{
	"fb_addr":     REG_FB_ADDR,
	"fb_stride":   REG_FB_STRIDE,
	"x":           REG_DRAW_X,
	"y":           REG_DRAW_Y,
	"w":           REG_DRAW_W,
	"h":           REG_DRAW_H,
	"fill_color":  REG_FILL_COLOR,
	"src_addr":    REG_SRC_ADDR,
	"src_stride":  REG_SRC_STRIDE,
	"stencil_key": REG_STENCIL_KEY,
	"alpha_mode":  REG_ALPHA_MODE,
	"pix_fmt":     REG_PIX_FMT,
	"irq_enable":  REG_IRQ_ENABLE,
}

// ScriptHost runs Lua scene scripts against a machine.
type ScriptHost struct {
	machine *Machine
	state   *lua.LState
}

func NewScriptHost(machine *Machine) *ScriptHost {
	host := &ScriptHost{
		machine: machine,
		state:   lua.NewState(),
	}
	host.register()
	return host
}

// Close releases the Lua state.
func (s *ScriptHost) Close() {
	s.state.Close()
}

// RunFile executes a scene script from disk.
func (s *ScriptHost) RunFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("scene script: %w", err)
	}
	return s.state.DoFile(path)
}

// RunString executes an inline scene script.
func (s *ScriptHost) RunString(src string) error {
	return s.state.DoString(src)
}

func (s *ScriptHost) register() {
	L := s.state
	draw := L.NewTable()

	L.SetField(draw, "set", L.NewFunction(s.luaSet))
	L.SetField(draw, "fill", L.NewFunction(s.luaFill))
	L.SetField(draw, "blit", L.NewFunction(s.luaBlit))
	L.SetField(draw, "eol", L.NewFunction(s.luaEOL))
	L.SetField(draw, "push", L.NewFunction(s.luaPush))
	L.SetField(draw, "wait", L.NewFunction(s.luaWait))
	L.SetField(draw, "status", L.NewFunction(s.luaStatus))
	L.SetField(draw, "ack", L.NewFunction(s.luaAck))
	L.SetField(draw, "image", L.NewFunction(s.luaImage))
	L.SetGlobal("draw", draw)

	L.SetGlobal("poke32", L.NewFunction(s.luaPoke32))
	L.SetGlobal("peek32", L.NewFunction(s.luaPeek32))
}

func (s *ScriptHost) submit(L *lua.LState, words []uint32) int {
	if err := s.machine.Engine.SubmitList(words); err != nil {
		L.RaiseError("submit: %v", err)
	}
	return 0
}

// draw.set(name, value) emits a SET command.
func (s *ScriptHost) luaSet(L *lua.LState) int {
	name := L.CheckString(1)
	value := uint32(L.CheckInt64(2))
	id, ok := luaRegNames[name]
	if !ok {
		L.RaiseError("unknown register %q", name)
	}
	return s.submit(L, []uint32{EncodeOp(OP_SET, uint32(id)), value})
}

// draw.fill(x, y, w, h [, color]) emits the rectangle state and a FILL.
func (s *ScriptHost) luaFill(L *lua.LState) int {
	words := []uint32{
		EncodeOp(OP_SET, REG_DRAW_X), uint32(L.CheckInt64(1)),
		EncodeOp(OP_SET, REG_DRAW_Y), uint32(L.CheckInt64(2)),
		EncodeOp(OP_SET, REG_DRAW_W), uint32(L.CheckInt64(3)),
		EncodeOp(OP_SET, REG_DRAW_H), uint32(L.CheckInt64(4)),
	}
	if L.GetTop() >= 5 {
		words = append(words, EncodeOp(OP_SET, REG_FILL_COLOR), uint32(L.CheckInt64(5)))
	}
	words = append(words, EncodeOp(OP_FILL, 0))
	return s.submit(L, words)
}

// draw.blit(src_addr, src_stride, x, y, w, h) emits a BLIT.
func (s *ScriptHost) luaBlit(L *lua.LState) int {
	words := []uint32{
		EncodeOp(OP_SET, REG_SRC_ADDR), uint32(L.CheckInt64(1)),
		EncodeOp(OP_SET, REG_SRC_STRIDE), uint32(L.CheckInt64(2)),
		EncodeOp(OP_SET, REG_DRAW_X), uint32(L.CheckInt64(3)),
		EncodeOp(OP_SET, REG_DRAW_Y), uint32(L.CheckInt64(4)),
		EncodeOp(OP_SET, REG_DRAW_W), uint32(L.CheckInt64(5)),
		EncodeOp(OP_SET, REG_DRAW_H), uint32(L.CheckInt64(6)),
		EncodeOp(OP_BLIT, 0),
	}
	return s.submit(L, words)
}

func (s *ScriptHost) luaEOL(L *lua.LState) int {
	return s.submit(L, []uint32{EncodeOp(OP_EOL, 0)})
}

// draw.push(word) pushes a raw command word.
func (s *ScriptHost) luaPush(L *lua.LState) int {
	return s.submit(L, []uint32{uint32(L.CheckInt64(1))})
}

func (s *ScriptHost) luaWait(L *lua.LState) int {
	s.machine.Engine.WaitIdle()
	return 0
}

func (s *ScriptHost) luaStatus(L *lua.LState) int {
	L.Push(lua.LNumber(s.machine.Engine.Status()))
	return 1
}

func (s *ScriptHost) luaAck(L *lua.LState) int {
	s.machine.Bus.Write32(DRAW_IRQ_ACK, 1)
	return 0
}

// draw.image(path, vram_addr, x, y) decodes an image, uploads it and
// blits it. Returns width, height.
func (s *ScriptHost) luaImage(L *lua.LState) int {
	path := L.CheckString(1)
	addr := uint32(L.CheckInt64(2))
	x := uint32(L.CheckInt64(3))
	y := uint32(L.CheckInt64(4))

	asset, err := LoadImageAsset(path, PIXFMT_ARGB8888, DISPLAY_WIDTH, DISPLAY_HEIGHT)
	if err != nil {
		L.RaiseError("image: %v", err)
	}
	if err := asset.UploadTo(s.machine.VRAM, addr); err != nil {
		L.RaiseError("image upload: %v", err)
	}
	s.submit(L, asset.BlitList(addr, x, y))
	L.Push(lua.LNumber(asset.Width))
	L.Push(lua.LNumber(asset.Height))
	return 2
}

func (s *ScriptHost) luaPoke32(L *lua.LState) int {
	s.machine.Bus.Write32(uint32(L.CheckInt64(1)), uint32(L.CheckInt64(2)))
	return 0
}

func (s *ScriptHost) luaPeek32(L *lua.LState) int {
	L.Push(lua.LNumber(s.machine.Bus.Read32(uint32(L.CheckInt64(1)))))
	return 1
}
