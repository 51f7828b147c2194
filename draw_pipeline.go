// draw_pipeline.go - Five-stage rendering pipeline for the Draw Engine

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
draw_pipeline.go - Rendering Pipeline

The hardware pipeline is five stages decoupled by FIFOs so VRAM latency
variance does not stall decode throughput. The model mirrors that design
with one worker goroutine per stage connected by bounded channels:

    parse -> address generation -> source read -> pixel compute -> write

Parse applies state-set commands directly to the register file; draw
commands latch a snapshot of the registers in effect at dequeue time and
travel down the pipe as row spans. Because every stage is a single
goroutine fed by an ordered channel, spans of command i+1 can never
overtake spans of command i, which preserves the display-list guarantee
that a later command's destination writes are not observable before an
earlier command's.

Spans whose result depends on the destination (blend, stencil) are not
computed in stage 4: a destination read there could observe VRAM before
an earlier command's queued writes have landed. They carry their source
row through and are resolved in the write stage, the only VRAM writer,
where the read-modify-write is ordered against every prior span.

A faulting span (VRAM range violation) poisons only its own command: the
fault code is latched into STATUS and the remaining spans of that command
are discarded at the write stage, then the stream continues.
*/

package main

type pipeCmd struct {
	op      uint8
	snap    RegSnapshot
	faulted bool // touched only by the write stage
}

type pipeSpan struct {
	cmd     *pipeCmd
	srcAddr uint32
	dstAddr uint32
	width   int // pixels; 0 for control/empty spans
	last    bool
	src     []byte
	out     []byte
	err     error
}

// Per-stage queue depth. Small on purpose: the real FIFOs hide a handful
// of AXI beats, not whole frames.
const pipeQueueDepth = 8

type DrawPipeline struct {
	engine *DrawEngine
	vram   *VRAM

	chAddr  chan *pipeCmd
	chSrc   chan *pipeSpan
	chComp  chan *pipeSpan
	chWrite chan *pipeSpan
}

func NewDrawPipeline(engine *DrawEngine, vram *VRAM) *DrawPipeline {
	return &DrawPipeline{
		engine: engine,
		vram:   vram,
	}
}

// Start spawns the stage workers. They exit once the command FIFO is
// closed and drained.
func (p *DrawPipeline) Start() {
	p.chAddr = make(chan *pipeCmd, pipeQueueDepth)
	p.chSrc = make(chan *pipeSpan, pipeQueueDepth)
	p.chComp = make(chan *pipeSpan, pipeQueueDepth)
	p.chWrite = make(chan *pipeSpan, pipeQueueDepth)

	p.engine.wg.Add(5)
	go p.stageParse()
	go p.stageAddrGen()
	go p.stageSourceRead()
	go p.stageCompute()
	go p.stageWrite()
}

// Stage 1: pull raw words from the FIFO, assemble commands, apply
// state-sets, forward draws with a register snapshot.
func (p *DrawPipeline) stageParse() {
	defer p.engine.wg.Done()
	defer close(p.chAddr)
	e := p.engine

	for {
		word, ok := e.fifo.Pop()
		if !ok {
			return
		}
		op := uint8(word >> 24)
		imm := word & 0x00FFFFFF

		switch op {
		case OP_NOP:
			e.consumeWords(1)

		case OP_SET:
			operand, ok := e.fifo.Pop()
			if !ok {
				// Stream ended with a dangling SET: incomplete operand.
				e.latchFault(FAULT_TRUNCATED)
				e.consumeWords(1)
				return
			}
			if err := e.regs.Write(int(imm), operand); err != nil {
				e.latchFault(FAULT_REGISTER)
			}
			e.consumeWords(2)

		case OP_FILL, OP_BLIT, OP_EOL:
			cmd := &pipeCmd{op: op, snap: e.regs.Snapshot()}
			e.beginCmd()
			e.consumeWords(1)
			p.chAddr <- cmd

		default:
			e.latchFault(FAULT_OPCODE)
			e.consumeWords(1)
		}
	}
}

// Stage 2: expand the draw rectangle into row-major spans of per-pixel
// source and destination VRAM addresses, honouring the strides.
func (p *DrawPipeline) stageAddrGen() {
	defer p.engine.wg.Done()
	defer close(p.chSrc)

	for cmd := range p.chAddr {
		s := cmd.snap
		if cmd.op == OP_EOL || s.W == 0 || s.H == 0 {
			// Control commands and empty rectangles still retire in order.
			p.chSrc <- &pipeSpan{cmd: cmd, last: true}
			continue
		}
		bpp := uint32(pixelBytes(s.PixFmt))
		for y := uint32(0); y < s.H; y++ {
			span := &pipeSpan{
				cmd:     cmd,
				dstAddr: s.FBAddr + (s.Y+y)*s.FBStride + s.X*bpp,
				width:   int(s.W),
				last:    y == s.H-1,
			}
			if cmd.op == OP_BLIT {
				span.srcAddr = s.SrcAddr + y*s.SrcStride
			}
			p.chSrc <- span
		}
	}
}

// Stage 3: read source pixel data for blits. Pure fills skip this stage.
func (p *DrawPipeline) stageSourceRead() {
	defer p.engine.wg.Done()
	defer close(p.chComp)

	for span := range p.chSrc {
		if span.cmd.op == OP_BLIT && span.width > 0 {
			n := span.width * pixelBytes(span.cmd.snap.PixFmt)
			src, err := p.vram.ReadBytes(span.srcAddr, n)
			if err != nil {
				span.err = err
			} else {
				span.src = src
			}
		}
		p.chComp <- span
	}
}

// Stage 4: per-pixel arithmetic in canonical ARGB8888. Spans that need
// the destination row pass through untouched and resolve in stage 5.
func (p *DrawPipeline) stageCompute() {
	defer p.engine.wg.Done()
	defer close(p.chWrite)

	for span := range p.chComp {
		if span.err == nil && span.width > 0 && !spanNeedsDest(span.cmd) {
			span.out, span.err = p.computeSpan(span)
		}
		p.chWrite <- span
	}
}

// spanNeedsDest reports whether the span's output depends on the current
// destination contents, so its math must wait for the write stage.
func spanNeedsDest(cmd *pipeCmd) bool {
	if cmd.op != OP_BLIT {
		return false
	}
	return cmd.snap.AlphaMode&(ALPHA_MODE_BLEND|ALPHA_MODE_STENCIL) != 0
}

func (p *DrawPipeline) computeSpan(span *pipeSpan) ([]byte, error) {
	s := span.cmd.snap
	bpp := pixelBytes(s.PixFmt)
	out := make([]byte, span.width*bpp)

	if span.cmd.op == OP_FILL {
		// Fill replaces: narrow the ARGB colour once and repeat it.
		narrowPixel(s.PixFmt, s.FillColor, out)
		for i := bpp; i < len(out); i += bpp {
			copy(out[i:i+bpp], out[:bpp])
		}
		return out, nil
	}

	copy(out, span.src)
	return out, nil
}

// resolveSpan computes a blend/stencil row against the destination. It
// runs only in the write stage: by then every span ahead of this one has
// retired its write, so the destination read sees the current frame.
func (p *DrawPipeline) resolveSpan(span *pipeSpan) ([]byte, error) {
	s := span.cmd.snap
	bpp := pixelBytes(s.PixFmt)
	out := make([]byte, span.width*bpp)

	dst, err := p.vram.ReadBytes(span.dstAddr, len(out))
	if err != nil {
		return nil, err
	}
	blend := s.AlphaMode&ALPHA_MODE_BLEND != 0
	stencil := s.AlphaMode&ALPHA_MODE_STENCIL != 0
	key := s.StencilKey & pixelMask(s.PixFmt)

	for i := 0; i < span.width; i++ {
		sp := span.src[i*bpp : (i+1)*bpp]
		dp := dst[i*bpp : (i+1)*bpp]
		op := out[i*bpp : (i+1)*bpp]

		// The key is compared on the full packed source value before any
		// blending; a match suppresses the destination write. Carrying the
		// just-read destination byte is equivalent: nothing else writes
		// VRAM between this read and the row write below.
		if stencil && packedPixel(s.PixFmt, sp) == key {
			copy(op, dp)
			continue
		}
		result := widenPixel(s.PixFmt, sp)
		if blend {
			result = blendOver(result, widenPixel(s.PixFmt, dp))
		}
		narrowPixel(s.PixFmt, result, op)
	}
	return out, nil
}

// Stage 5: destination write. Whole rows land atomically in VRAM; span
// order on the channel serializes destination writes across commands.
func (p *DrawPipeline) stageWrite() {
	defer p.engine.wg.Done()
	e := p.engine

	for span := range p.chWrite {
		cmd := span.cmd
		if !cmd.faulted && span.err == nil && span.width > 0 && spanNeedsDest(cmd) {
			span.out, span.err = p.resolveSpan(span)
		}
		switch {
		case cmd.faulted:
			// Remaining spans of a faulted command are discarded.
		case span.err != nil:
			cmd.faulted = true
			e.latchFault(FAULT_RANGE)
		case span.out != nil:
			if err := p.vram.WriteBytes(span.dstAddr, span.out); err != nil {
				cmd.faulted = true
				e.latchFault(FAULT_RANGE)
			}
		}
		if span.last {
			if cmd.op == OP_EOL {
				e.markDone()
			}
			e.cmdRetired(cmd.op)
		}
	}
}
