package main

import (
	"image/color"
	"strings"
	"testing"
)

func newScriptRig(t *testing.T) (*Machine, *ScriptHost) {
	t.Helper()
	m := newTestMachine(t)
	host := NewScriptHost(m)
	t.Cleanup(host.Close)
	return m, host
}

// TestScriptFillScene verifies a scripted fill lands in the framebuffer.
func TestScriptFillScene(t *testing.T) {
	m, host := newScriptRig(t)

	err := host.RunString(`
		draw.fill(2, 3, 4, 2, 0xFF112233)
		draw.eol()
		draw.wait()
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if got := pixelAt(t, m, 2, 3); got != 0xFF112233 {
		t.Fatalf("scripted fill pixel 0x%08X, expected 0xFF112233", got)
	}
	if got := pixelAt(t, m, 6, 3); got != 0 {
		t.Fatalf("pixel outside scripted rect 0x%08X, expected untouched", got)
	}
}

// TestScriptSetRegister verifies draw.set emits a SET for a named
// register.
func TestScriptSetRegister(t *testing.T) {
	m, host := newScriptRig(t)

	err := host.RunString(`
		draw.set("fill_color", 0xFFAA5500)
		draw.fill(0, 0, 1, 1)
		draw.wait()
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if got := pixelAt(t, m, 0, 0); got != 0xFFAA5500 {
		t.Fatalf("pixel 0x%08X, expected the scripted fill colour", got)
	}
}

// TestScriptUnknownRegister verifies draw.set rejects bogus names with a
// Lua error.
func TestScriptUnknownRegister(t *testing.T) {
	_, host := newScriptRig(t)

	err := host.RunString(`draw.set("bogus", 1)`)
	if err == nil {
		t.Fatal("expected an error for an unknown register name")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("error does not name the register: %v", err)
	}
}

// TestScriptPeekPoke verifies raw bus access round-trips through RAM.
func TestScriptPeekPoke(t *testing.T) {
	_, host := newScriptRig(t)

	err := host.RunString(`
		poke32(0x1000, 0xDEADBEEF)
		if peek32(0x1000) ~= 0xDEADBEEF then
			error("readback mismatch")
		end
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
}

// TestScriptStatusAndAck verifies a script can observe completion and
// acknowledge it.
func TestScriptStatusAndAck(t *testing.T) {
	m, host := newScriptRig(t)

	err := host.RunString(`
		draw.fill(0, 0, 1, 1, 0xFFFFFFFF)
		draw.eol()
		draw.wait()
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if m.Engine.Status()&STAT_DONE == 0 {
		t.Fatalf("DONE not set after scripted EOL: 0x%08X", m.Engine.Status())
	}
	if err := host.RunString(`draw.ack()`); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if m.Engine.Status()&STAT_DONE != 0 {
		t.Fatalf("DONE survived scripted ack: 0x%08X", m.Engine.Status())
	}
}

// TestScriptImage verifies draw.image decodes, uploads and blits in one
// call.
func TestScriptImage(t *testing.T) {
	m, host := newScriptRig(t)
	path := writeTestPNG(t, t.TempDir(), 2, 2, color.RGBA{0x44, 0x55, 0x66, 0xFF})

	err := host.RunString(`
		local w, h = draw.image("` + path + `", 0x300000, 5, 5)
		if w ~= 2 or h ~= 2 then
			error("unexpected image size")
		end
		draw.wait()
	`)
	if err != nil {
		t.Fatalf("RunString: %v", err)
	}
	if got := pixelAt(t, m, 5, 5); got != 0xFF445566 {
		t.Fatalf("scripted image pixel 0x%08X, expected 0xFF445566", got)
	}
}

// TestScriptMissingFile verifies RunFile reports a useful error.
func TestScriptMissingFile(t *testing.T) {
	_, host := newScriptRig(t)
	if err := host.RunFile("/nonexistent/scene.lua"); err == nil {
		t.Fatal("expected an error for a missing script")
	}
}
