// monitor.go - Interactive machine monitor

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
monitor.go - Machine Monitor

A minimal interactive monitor on raw stdin for poking the model by hand:
register dumps, bus peek/poke, quick fills and status decoding. Only
instantiated from main for interactive use, never in tests.
*/

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Monitor struct {
	machine    *Machine
	compositor *DisplayCompositor
}

func NewMonitor(machine *Machine, compositor *DisplayCompositor) *Monitor {
	return &Monitor{machine: machine, compositor: compositor}
}

// Run owns the terminal until the user quits.
func (mon *Monitor) Run() error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	screen := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	t := term.NewTerminal(screen, "drawengine> ")
	fmt.Fprintln(t, "Draw Engine monitor. Type 'help' for commands.")

	for {
		line, err := t.ReadLine()
		if err != nil {
			return nil // EOF or ^D
		}
		if mon.execute(t, strings.Fields(strings.TrimSpace(line))) {
			return nil
		}
	}
}

// execute runs one command line; returns true on quit.
func (mon *Monitor) execute(w io.Writer, fields []string) bool {
	if len(fields) == 0 {
		return false
	}
	m := mon.machine

	switch fields[0] {
	case "quit", "q", "exit":
		return true

	case "help", "?":
		fmt.Fprint(w, "status            decode the STATUS register\n"+
			"regs              dump the draw register file\n"+
			"virtio            VirtIO transport state\n"+
			"irq               interrupt edge counters\n"+
			"peek <addr>       read a bus word\n"+
			"poke <addr> <val> write a bus word\n"+
			"fill <x> <y> <w> <h> <argb>  quick fill via the FIFO\n"+
			"frame             force a compositor frame\n"+
			"reset             hard reset the machine\n"+
			"quit              leave the monitor\n")

	case "status":
		status := m.Engine.Status()
		fmt.Fprintf(w, "STATUS=0x%08X busy=%t done=%t fault=%t code=%d fifo=%d\n",
			status,
			status&STAT_BUSY != 0,
			status&STAT_DONE != 0,
			status&STAT_FAULT != 0,
			(status>>STAT_FAULT_SHIFT)&0xFF,
			status>>STAT_FIFO_SHIFT)

	case "regs":
		snap := m.Engine.Snapshot()
		fmt.Fprintf(w, "FB_ADDR=0x%08X FB_STRIDE=%d PIX_FMT=%d\n", snap.FBAddr, snap.FBStride, snap.PixFmt)
		fmt.Fprintf(w, "RECT x=%d y=%d w=%d h=%d\n", snap.X, snap.Y, snap.W, snap.H)
		fmt.Fprintf(w, "FILL=0x%08X SRC_ADDR=0x%08X SRC_STRIDE=%d\n", snap.FillColor, snap.SrcAddr, snap.SrcStride)
		fmt.Fprintf(w, "STENCIL=0x%08X ALPHA_MODE=%d IRQ_ENABLE=%t\n", snap.StencilKey, snap.AlphaMode, snap.IRQEnable)

	case "virtio":
		fmt.Fprintf(w, "status=0x%02X chain_faults=%d resources=%d scanout=%d\n",
			m.VirtIO.Status(), m.VirtIO.ChainFaults(),
			m.GPU.ResourceCount(), m.GPU.ScanoutResource())

	case "irq":
		fmt.Fprintf(w, "draw=%d virtio=%d\n", m.DrawIRQ.Count(), m.GPUIRQ.Count())

	case "peek":
		if addr, ok := monArg(w, fields, 1); ok {
			if IsIOAddress(addr) || IsVRAMAddress(addr) {
				fmt.Fprintf(w, "0x%08X [%s]: 0x%08X\n", addr, GetIORegion(addr), m.Bus.Read32(addr))
			} else {
				fmt.Fprintf(w, "0x%08X: 0x%08X\n", addr, m.Bus.Read32(addr))
			}
		}

	case "poke":
		addr, ok1 := monArg(w, fields, 1)
		val, ok2 := monArg(w, fields, 2)
		if ok1 && ok2 {
			m.Bus.Write32(addr, val)
		}

	case "fill":
		args := make([]uint32, 5)
		ok := true
		for i := range args {
			args[i], ok = monArg(w, fields, i+1)
			if !ok {
				break
			}
		}
		if ok {
			err := m.Engine.SubmitList([]uint32{
				EncodeOp(OP_SET, REG_DRAW_X), args[0],
				EncodeOp(OP_SET, REG_DRAW_Y), args[1],
				EncodeOp(OP_SET, REG_DRAW_W), args[2],
				EncodeOp(OP_SET, REG_DRAW_H), args[3],
				EncodeOp(OP_SET, REG_FILL_COLOR), args[4],
				EncodeOp(OP_FILL, 0),
				EncodeOp(OP_EOL, 0),
			})
			if err != nil {
				fmt.Fprintf(w, "fill: %v\n", err)
			} else {
				m.Engine.WaitIdle()
			}
		}

	case "frame":
		if mon.compositor != nil {
			if err := mon.compositor.PresentFrame(); err != nil {
				fmt.Fprintf(w, "frame: %v\n", err)
			}
		}

	case "reset":
		m.HardReset()
		fmt.Fprintln(w, "machine reset")

	default:
		fmt.Fprintf(w, "unknown command %q\n", fields[0])
	}
	return false
}

// monArg parses fields[i] as a number (0x prefix for hex).
func monArg(w io.Writer, fields []string, i int) (uint32, bool) {
	if i >= len(fields) {
		fmt.Fprintln(w, "missing argument")
		return 0, false
	}
	v, err := strconv.ParseUint(fields[i], 0, 32)
	if err != nil {
		fmt.Fprintf(w, "bad argument %q: %v\n", fields[i], err)
		return 0, false
	}
	return uint32(v), true
}
