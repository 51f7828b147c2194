// virtio_queue.go - Split virtqueue processing for the VirtIO transport

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
virtio_queue.go - Virtqueue Processor

Walks the split-ring layout (descriptor table, avail ring, used ring) in
guest RAM through the bus DMA port. Notification is synchronous: a
QUEUE_NOTIFY write drains every pending avail entry before the MMIO write
completes, which is the semantics the original device exposes.

A malformed chain (dangling next index, loop longer than the queue size,
or a descriptor pointing outside guest RAM) is skipped without a used-ring
entry so the stream is never stalled by one bad request; the skip is
counted and visible through ChainFaults.
*/

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedChain reports a descriptor chain the device cannot walk.
var ErrMalformedChain = errors.New("malformed descriptor chain")

// Virtqueue holds the driver-programmed state of one split ring.
type Virtqueue struct {
	numMax  uint32
	num     uint32
	ready   bool
	sizeErr bool

	descAddr  uint64
	availAddr uint64
	usedAddr  uint64

	lastAvail uint16
	usedIdx   uint16
}

type virtqDesc struct {
	addr  uint64
	len   uint32
	flags uint16
	next  uint16
}

func (v *VirtioMMIO) dmaRead16(addr uint64) (uint16, error) {
	b, err := v.busRange(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// busRange reads n bytes of guest RAM at a 64-bit guest address, rejecting
// anything the 32-bit bus cannot reach.
func (v *VirtioMMIO) busRange(addr uint64, n int) ([]byte, error) {
	if addr > 0xFFFFFFFF {
		return nil, fmt.Errorf("guest address 0x%X beyond bus: %w", addr, ErrMalformedChain)
	}
	return v.bus.ReadBytes(uint32(addr), n)
}

func (v *VirtioMMIO) readDesc(q *Virtqueue, index uint16) (virtqDesc, error) {
	raw, err := v.busRange(q.descAddr+uint64(index)*VIRTQ_DESC_SIZE, VIRTQ_DESC_SIZE)
	if err != nil {
		return virtqDesc{}, err
	}
	return virtqDesc{
		addr:  binary.LittleEndian.Uint64(raw[0:8]),
		len:   binary.LittleEndian.Uint32(raw[8:12]),
		flags: binary.LittleEndian.Uint16(raw[12:14]),
		next:  binary.LittleEndian.Uint16(raw[14:16]),
	}, nil
}

// walkChain gathers the readable descriptors of one chain into a request
// payload and collects the writable descriptors for the response. Loops
// are bounded by the queue size: a chain longer than num descriptors is
// by definition self-referential.
func (v *VirtioMMIO) walkChain(q *Virtqueue, head uint16) ([]byte, []virtqDesc, error) {
	var request []byte
	var writable []virtqDesc

	index := head
	for steps := uint32(0); ; steps++ {
		if steps >= q.num || uint32(index) >= q.num {
			return nil, nil, ErrMalformedChain
		}
		desc, err := v.readDesc(q, index)
		if err != nil {
			return nil, nil, err
		}
		if desc.flags&VIRTQ_DESC_F_INDIRECT != 0 {
			// INDIRECT was never offered; a driver setting it is broken.
			return nil, nil, ErrMalformedChain
		}
		if desc.flags&VIRTQ_DESC_F_WRITE != 0 {
			writable = append(writable, desc)
		} else {
			data, err := v.busRange(desc.addr, int(desc.len))
			if err != nil {
				return nil, nil, fmt.Errorf("descriptor %d: %w", index, ErrMalformedChain)
			}
			request = append(request, data...)
		}
		if desc.flags&VIRTQ_DESC_F_NEXT == 0 {
			return request, writable, nil
		}
		index = desc.next
	}
}

// scatterResponse writes resp across the chain's writable descriptors in
// order, returning the byte count actually written.
func (v *VirtioMMIO) scatterResponse(writable []virtqDesc, resp []byte) uint32 {
	var written uint32
	for _, desc := range writable {
		if len(resp) == 0 {
			break
		}
		n := len(resp)
		if n > int(desc.len) {
			n = int(desc.len)
		}
		if desc.addr > 0xFFFFFFFF {
			break
		}
		if v.bus.WriteBytes(uint32(desc.addr), resp[:n]) != nil {
			break
		}
		written += uint32(n)
		resp = resp[n:]
	}
	return written
}

func (v *VirtioMMIO) recordUsed(q *Virtqueue, head uint16, written uint32) {
	slot := q.usedAddr + 4 + uint64(q.usedIdx%uint16(q.num))*VIRTQ_USED_ELEM_SIZE
	var elem [VIRTQ_USED_ELEM_SIZE]byte
	binary.LittleEndian.PutUint32(elem[0:4], uint32(head))
	binary.LittleEndian.PutUint32(elem[4:8], written)
	if slot+VIRTQ_USED_ELEM_SIZE <= 0xFFFFFFFF {
		v.bus.WriteBytes(uint32(slot), elem[:])
	}
	q.usedIdx++
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], q.usedIdx)
	if q.usedAddr+4 <= 0xFFFFFFFF {
		v.bus.WriteBytes(uint32(q.usedAddr+2), idx[:])
	}
}

// processQueueLocked drains the avail ring of one queue. Exactly one used
// entry is produced per well-formed avail entry; malformed chains produce
// none and bump the fault counter.
func (v *VirtioMMIO) processQueueLocked(qi int) {
	q := &v.queues[qi]
	if !q.ready || q.num == 0 {
		return
	}
	if v.status&VIRTIO_STATUS_DRIVER_OK == 0 {
		return
	}

	availFlags, err := v.dmaRead16(q.availAddr)
	if err != nil {
		return
	}
	completed := false
	for {
		availIdx, err := v.dmaRead16(q.availAddr + 2)
		if err != nil || q.lastAvail == availIdx {
			break
		}
		head, err := v.dmaRead16(q.availAddr + 4 + uint64(q.lastAvail%uint16(q.num))*2)
		q.lastAvail++
		if err != nil {
			v.chainFaults++
			continue
		}

		request, writable, err := v.walkChain(q, head)
		if err != nil {
			v.chainFaults++
			continue
		}

		var resp []byte
		if qi == VIRTIO_CONTROL_QUEUE && v.gpu != nil {
			resp = v.gpu.HandleCommand(request)
		}
		written := v.scatterResponse(writable, resp)
		v.recordUsed(q, head, written)
		completed = true
	}

	if completed && availFlags&VIRTQ_AVAIL_F_NO_INTERRUPT == 0 {
		v.intStatus |= VIRTIO_INT_USED_BUFFER
		if v.irq != nil {
			v.irq.Pulse()
		}
	}
}
