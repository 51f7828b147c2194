package main

import (
	"bytes"
	"strings"
	"testing"
)

func monExec(t *testing.T, mon *Monitor, line string) string {
	t.Helper()
	var buf bytes.Buffer
	if mon.execute(&buf, strings.Fields(line)) {
		t.Fatalf("command %q requested quit", line)
	}
	return buf.String()
}

// TestMonitorPeekPoke verifies the raw bus commands round-trip.
func TestMonitorPeekPoke(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	monExec(t, mon, "poke 0x2000 0xCAFEBABE")
	out := monExec(t, mon, "peek 0x2000")
	if !strings.Contains(out, "0xCAFEBABE") {
		t.Fatalf("peek output %q, expected the poked value", out)
	}
	if strings.Contains(out, "[") {
		t.Fatalf("peek output %q, plain RAM should carry no region tag", out)
	}
}

// TestMonitorPeekNamesRegion verifies peeks into mapped windows name the
// device behind the address.
func TestMonitorPeekNamesRegion(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	out := monExec(t, mon, "peek 0xF0034") // DRAW_STATUS
	if !strings.Contains(out, "[DrawEngine]") {
		t.Fatalf("peek output %q, expected DrawEngine tag", out)
	}
	out = monExec(t, mon, "peek 0xF0200") // VIRTIO_MMIO_MAGIC_VALUE
	if !strings.Contains(out, "[VirtIO-GPU]") || !strings.Contains(out, "0x74726976") {
		t.Fatalf("peek output %q, expected VirtIO-GPU tag and magic", out)
	}
	if out = monExec(t, mon, "peek 0x100000"); !strings.Contains(out, "[VRAM]") {
		t.Fatalf("peek output %q, expected VRAM tag", out)
	}
}

// TestMonitorFill verifies the quick-fill command draws through the FIFO.
func TestMonitorFill(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	monExec(t, mon, "fill 3 4 1 1 0xFF00FF00")
	if got := pixelAt(t, m, 3, 4); got != 0xFF00FF00 {
		t.Fatalf("monitor fill pixel 0x%08X, expected 0xFF00FF00", got)
	}
	out := monExec(t, mon, "status")
	if !strings.Contains(out, "done=true") {
		t.Fatalf("status output %q, expected done=true", out)
	}
}

// TestMonitorBadArguments verifies argument errors report instead of
// acting.
func TestMonitorBadArguments(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	if out := monExec(t, mon, "peek"); !strings.Contains(out, "missing argument") {
		t.Fatalf("output %q, expected missing argument", out)
	}
	if out := monExec(t, mon, "peek zz"); !strings.Contains(out, "bad argument") {
		t.Fatalf("output %q, expected bad argument", out)
	}
	if out := monExec(t, mon, "frobnicate"); !strings.Contains(out, "unknown command") {
		t.Fatalf("output %q, expected unknown command", out)
	}
}

// TestMonitorQuit verifies the quit aliases end the session.
func TestMonitorQuit(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	var buf bytes.Buffer
	for _, cmd := range []string{"quit", "q", "exit"} {
		if !mon.execute(&buf, []string{cmd}) {
			t.Fatalf("%q did not quit", cmd)
		}
	}
	if mon.execute(&buf, nil) {
		t.Fatal("empty line quit the monitor")
	}
}

// TestMonitorReset verifies the reset command clears sticky state.
func TestMonitorReset(t *testing.T) {
	m := newTestMachine(t)
	mon := NewMonitor(m, nil)

	monExec(t, mon, "fill 0 0 1 1 0xFFFFFFFF")
	monExec(t, mon, "reset")
	if got := pixelAt(t, m, 0, 0); got != 0 {
		t.Fatalf("pixel 0x%08X after monitor reset, expected cleared", got)
	}
	if out := monExec(t, mon, "status"); !strings.Contains(out, "done=false") {
		t.Fatalf("status output %q after reset", out)
	}
}
