// draw_engine.go - Draw Engine device: registers, FIFO and pipeline lifecycle

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

import (
	"sync"
)

// CommandProducer is the single submission interface shared by both access
// paths: the legacy register window and the VirtIO-GPU translator are just
// two producers feeding the one command FIFO.
type CommandProducer interface {
	Submit(word uint32) error
	SubmitList(words []uint32) error
}

// DrawEngine ties the register file, the command FIFO and the rendering
// pipeline into one device with an explicit start/stop lifecycle.
type DrawEngine struct {
	vram *VRAM
	regs *RegisterFile
	fifo *CommandFIFO
	pipe *DrawPipeline
	irq  IRQLine

	submitMutex sync.Mutex // keeps SubmitList batches contiguous in the FIFO

	mutex        sync.Mutex
	idle         *sync.Cond
	pendingWords int  // pushed but not yet consumed by parse
	inflight     int  // commands between parse and retire
	done         bool // STAT_DONE, sticky until IRQ_ACK
	fault        bool // STAT_FAULT, sticky until IRQ_ACK
	faultCode    uint8
	drewSinceAck bool
	started      bool
	wg           sync.WaitGroup
}

func NewDrawEngine(vram *VRAM, irq IRQLine) *DrawEngine {
	e := &DrawEngine{
		vram: vram,
		regs: NewRegisterFile(),
		fifo: NewCommandFIFO(),
		irq:  irq,
	}
	e.idle = sync.NewCond(&e.mutex)
	e.pipe = NewDrawPipeline(e, vram)
	return e
}

func (e *DrawEngine) Start() {
	e.mutex.Lock()
	if e.started {
		e.mutex.Unlock()
		return
	}
	e.started = true
	e.mutex.Unlock()
	e.pipe.Start()
}

// Stop closes the FIFO, drains the pipeline and waits for the stage
// workers to exit. In-flight commands always run to completion; stopping
// only stops feeding new ones.
func (e *DrawEngine) Stop() {
	e.mutex.Lock()
	if !e.started {
		e.mutex.Unlock()
		return
	}
	e.started = false
	e.mutex.Unlock()
	e.fifo.Close()
	e.wg.Wait()
}

// Submit pushes one command word, surfacing FIFO backpressure to the
// caller.
func (e *DrawEngine) Submit(word uint32) error {
	if err := e.fifo.Push(word); err != nil {
		return err
	}
	e.addPending(1)
	return nil
}

// SubmitList pushes a complete display-list fragment, stalling on
// backpressure and guaranteeing the words are not interleaved with another
// SubmitList batch.
func (e *DrawEngine) SubmitList(words []uint32) error {
	e.submitMutex.Lock()
	defer e.submitMutex.Unlock()
	for _, w := range words {
		if !e.fifo.PushWait(w) {
			return ErrFifoFull
		}
		e.addPending(1)
	}
	return nil
}

// WaitIdle blocks until the FIFO is drained and no command is in flight.
func (e *DrawEngine) WaitIdle() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	for e.pendingWords > 0 || e.inflight > 0 {
		e.idle.Wait()
	}
}

// Status assembles the STATUS register: busy/done/fault bits, the latched
// fault code and the FIFO occupancy.
func (e *DrawEngine) Status() uint32 {
	occupancy := uint32(e.fifo.Len())
	e.mutex.Lock()
	defer e.mutex.Unlock()
	var status uint32
	if e.pendingWords > 0 || e.inflight > 0 {
		status |= STAT_BUSY
	}
	if e.done {
		status |= STAT_DONE
	}
	if e.fault {
		status |= STAT_FAULT
	}
	status |= uint32(e.faultCode) << STAT_FAULT_SHIFT
	status |= occupancy << STAT_FIFO_SHIFT
	return status
}

// ReadRegister exposes stored register values (used by the compositor for
// the scanout layout).
func (e *DrawEngine) ReadRegister(id int) (uint32, error) {
	return e.regs.Read(id)
}

// Snapshot exposes the currently effective register values.
func (e *DrawEngine) Snapshot() RegSnapshot {
	return e.regs.Snapshot()
}

// HandleRead services the legacy register window.
func (e *DrawEngine) HandleRead(addr uint32) uint32 {
	switch addr {
	case DRAW_STATUS:
		return e.Status()
	case DRAW_FIFO_PUSH, DRAW_IRQ_ACK:
		return 0
	}
	id := int(addr-DRAW_REGION_BASE) / 4
	value, err := e.regs.Read(id)
	if err != nil {
		return 0
	}
	return value
}

// HandleWrite services the legacy register window. A write to the FIFO
// push offset enqueues one command word; pushing into a full FIFO latches
// a fault instead of silently dropping.
func (e *DrawEngine) HandleWrite(addr uint32, value uint32) {
	switch addr {
	case DRAW_FIFO_PUSH:
		if err := e.Submit(value); err != nil {
			e.latchFault(FAULT_FIFO)
		}
		return
	case DRAW_IRQ_ACK:
		e.ackIRQ()
		return
	case DRAW_STATUS:
		return // read-only
	}
	id := int(addr-DRAW_REGION_BASE) / 4
	if e.regs.Write(id, value) != nil {
		e.latchFault(FAULT_REGISTER)
	}
}

func (e *DrawEngine) ackIRQ() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.done = false
	e.fault = false
	e.faultCode = FAULT_NONE
}

// Reset clears registers, discards queued commands and the sticky status
// bits. Only valid while stopped.
func (e *DrawEngine) Reset() {
	e.regs.Reset()
	e.fifo.Reset()
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.pendingWords = 0
	e.inflight = 0
	e.done = false
	e.fault = false
	e.faultCode = FAULT_NONE
	e.drewSinceAck = false
}

// FaultCode returns the latched fault code, for the monitor.
func (e *DrawEngine) FaultCode() uint8 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.faultCode
}

// --- pipeline callbacks ---

func (e *DrawEngine) addPending(n int) {
	e.mutex.Lock()
	e.pendingWords += n
	e.mutex.Unlock()
}

func (e *DrawEngine) consumeWords(n int) {
	e.mutex.Lock()
	e.pendingWords -= n
	e.checkIdleLocked()
	e.mutex.Unlock()
}

func (e *DrawEngine) beginCmd() {
	e.mutex.Lock()
	e.inflight++
	e.mutex.Unlock()
}

func (e *DrawEngine) cmdRetired(op uint8) {
	e.mutex.Lock()
	e.inflight--
	if op == OP_FILL || op == OP_BLIT {
		e.drewSinceAck = true
	}
	e.checkIdleLocked()
	e.mutex.Unlock()
}

// checkIdleLocked marks the list done when the pipeline drains after at
// least one draw command: a list without an explicit EOL still completes.
func (e *DrawEngine) checkIdleLocked() {
	if e.pendingWords > 0 || e.inflight > 0 {
		return
	}
	if e.drewSinceAck {
		e.markDoneLocked()
	}
	e.idle.Broadcast()
}

func (e *DrawEngine) markDone() {
	e.mutex.Lock()
	e.markDoneLocked()
	e.mutex.Unlock()
}

func (e *DrawEngine) markDoneLocked() {
	e.done = true
	e.drewSinceAck = false
	if irqOn, _ := e.regs.Read(REG_IRQ_ENABLE); irqOn != 0 && e.irq != nil {
		e.irq.Pulse()
	}
}

func (e *DrawEngine) latchFault(code uint8) {
	e.mutex.Lock()
	e.fault = true
	e.faultCode = code
	e.mutex.Unlock()
}
