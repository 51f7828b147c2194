// virtio_mmio.go - VirtIO MMIO transport for the Draw Engine GPU device

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

/*
virtio_mmio.go - VirtIO MMIO Transport

Implements the standard virtio-mmio register block so an unmodified
virtio-gpu class driver can discover and bind the device: magic/version/
device-id probing, two-phase feature negotiation, queue configuration and
the interrupt status/acknowledge pair.

The feature handshake is a hard protocol invariant: if the driver writes
back any feature bit the device did not offer, FEATURES_OK is never
latched and the failure is visible to the driver through the Status
register alone. Queue sizes above QueueNumMax likewise refuse to ready
and flag NEEDS_RESET; both conditions are terminal for the session.
*/

package main

import (
	"encoding/binary"
	"sync"
)

// GPUCommandHandler consumes one request payload from the control queue
// and produces the response buffer written back through the same chain.
type GPUCommandHandler interface {
	HandleCommand(payload []byte) []byte
	Reset()
}

type VirtioMMIO struct {
	mutex sync.Mutex
	bus   Bus32
	base  uint32
	irq   IRQLine
	gpu   GPUCommandHandler

	deviceFeatures uint64
	driverFeatures uint64
	devFeatSel     uint32
	drvFeatSel     uint32

	status    uint32
	queueSel  uint32
	queues    [VIRTIO_QUEUE_COUNT]Virtqueue
	intStatus uint32
	configGen uint32

	chainFaults uint64
}

func NewVirtioMMIO(bus Bus32, base uint32, irq IRQLine, gpu GPUCommandHandler) *VirtioMMIO {
	v := &VirtioMMIO{
		bus:            bus,
		base:           base,
		irq:            irq,
		gpu:            gpu,
		deviceFeatures: VIRTIO_F_VERSION_1,
	}
	for i := range v.queues {
		v.queues[i].numMax = VIRTIO_QUEUE_NUM_MAX
	}
	return v
}

// ChainFaults reports how many malformed descriptor chains were skipped.
func (v *VirtioMMIO) ChainFaults() uint64 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.chainFaults
}

// Status returns the device status register, for tests and the monitor.
func (v *VirtioMMIO) Status() uint32 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.status
}

func (v *VirtioMMIO) selectedQueue() *Virtqueue {
	if v.queueSel < VIRTIO_QUEUE_COUNT {
		return &v.queues[v.queueSel]
	}
	return nil
}

// configSpace is struct virtio_gpu_config: events_read, events_clear,
// num_scanouts, num_capsets.
func (v *VirtioMMIO) configSpace() [16]byte {
	var cfg [16]byte
	binary.LittleEndian.PutUint32(cfg[8:12], 1) // one scanout
	return cfg
}

// HandleRead services the MMIO window.
func (v *VirtioMMIO) HandleRead(addr uint32) uint32 {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	off := addr - v.base
	if off >= VIRTIO_MMIO_CONFIG {
		cfg := v.configSpace()
		rel := off - VIRTIO_MMIO_CONFIG
		if int(rel)+4 <= len(cfg) {
			return binary.LittleEndian.Uint32(cfg[rel:])
		}
		return 0
	}

	switch off {
	case VIRTIO_MMIO_MAGIC_VALUE:
		return VIRTIO_MAGIC
	case VIRTIO_MMIO_VERSION:
		return VIRTIO_VERSION
	case VIRTIO_MMIO_DEVICE_ID:
		return VIRTIO_DEVICE_ID_GPU
	case VIRTIO_MMIO_VENDOR_ID:
		return VIRTIO_VENDOR
	case VIRTIO_MMIO_DEVICE_FEATURES:
		return uint32(v.deviceFeatures >> (32 * v.devFeatSel))
	case VIRTIO_MMIO_QUEUE_NUM_MAX:
		if q := v.selectedQueue(); q != nil {
			return q.numMax
		}
		return 0
	case VIRTIO_MMIO_QUEUE_READY:
		if q := v.selectedQueue(); q != nil && q.ready {
			return 1
		}
		return 0
	case VIRTIO_MMIO_INTERRUPT_STATUS:
		return v.intStatus
	case VIRTIO_MMIO_STATUS:
		return v.status
	case VIRTIO_MMIO_CONFIG_GENERATION:
		return v.configGen
	}
	return 0
}

// HandleWrite services the MMIO window.
func (v *VirtioMMIO) HandleWrite(addr uint32, value uint32) {
	v.mutex.Lock()
	off := addr - v.base

	switch off {
	case VIRTIO_MMIO_DEVICE_FEATURES_SEL:
		v.devFeatSel = value & 1
	case VIRTIO_MMIO_DRIVER_FEATURES_SEL:
		v.drvFeatSel = value & 1
	case VIRTIO_MMIO_DRIVER_FEATURES:
		shift := 32 * v.drvFeatSel
		v.driverFeatures = v.driverFeatures&^(uint64(0xFFFFFFFF)<<shift) | uint64(value)<<shift
	case VIRTIO_MMIO_QUEUE_SEL:
		v.queueSel = value
	case VIRTIO_MMIO_QUEUE_NUM:
		if q := v.selectedQueue(); q != nil {
			if value == 0 || value > q.numMax {
				// Terminal for the session, surfaced through Status.
				q.sizeErr = true
				v.status |= VIRTIO_STATUS_NEEDS_RESET
			} else {
				q.num = value
				q.sizeErr = false
			}
		}
	case VIRTIO_MMIO_QUEUE_READY:
		if q := v.selectedQueue(); q != nil {
			q.ready = value&1 != 0 && !q.sizeErr && q.num > 0
		}
	case VIRTIO_MMIO_QUEUE_NOTIFY:
		if value < VIRTIO_QUEUE_COUNT {
			v.processQueueLocked(int(value))
		}
	case VIRTIO_MMIO_INTERRUPT_ACK:
		v.intStatus &^= value
	case VIRTIO_MMIO_STATUS:
		v.writeStatusLocked(value)
	case VIRTIO_MMIO_QUEUE_DESC_LOW:
		if q := v.selectedQueue(); q != nil {
			q.descAddr = q.descAddr&^uint64(0xFFFFFFFF) | uint64(value)
		}
	case VIRTIO_MMIO_QUEUE_DESC_HIGH:
		if q := v.selectedQueue(); q != nil {
			q.descAddr = q.descAddr&uint64(0xFFFFFFFF) | uint64(value)<<32
		}
	case VIRTIO_MMIO_QUEUE_DRIVER_LOW:
		if q := v.selectedQueue(); q != nil {
			q.availAddr = q.availAddr&^uint64(0xFFFFFFFF) | uint64(value)
		}
	case VIRTIO_MMIO_QUEUE_DRIVER_HIGH:
		if q := v.selectedQueue(); q != nil {
			q.availAddr = q.availAddr&uint64(0xFFFFFFFF) | uint64(value)<<32
		}
	case VIRTIO_MMIO_QUEUE_DEVICE_LOW:
		if q := v.selectedQueue(); q != nil {
			q.usedAddr = q.usedAddr&^uint64(0xFFFFFFFF) | uint64(value)
		}
	case VIRTIO_MMIO_QUEUE_DEVICE_HIGH:
		if q := v.selectedQueue(); q != nil {
			q.usedAddr = q.usedAddr&uint64(0xFFFFFFFF) | uint64(value)<<32
		}
	}
	v.mutex.Unlock()
}

// writeStatusLocked runs the driver's bring-up state machine. FEATURES_OK
// latches only if the driver accepted a subset of the offered features.
func (v *VirtioMMIO) writeStatusLocked(value uint32) {
	if value == 0 {
		v.resetLocked()
		return
	}
	if value&VIRTIO_STATUS_FEATURES_OK != 0 {
		if v.driverFeatures&^v.deviceFeatures != 0 {
			value &^= VIRTIO_STATUS_FEATURES_OK
		}
	}
	v.status = value
}

func (v *VirtioMMIO) resetLocked() {
	v.status = 0
	v.intStatus = 0
	v.driverFeatures = 0
	v.devFeatSel = 0
	v.drvFeatSel = 0
	v.queueSel = 0
	for i := range v.queues {
		v.queues[i] = Virtqueue{numMax: VIRTIO_QUEUE_NUM_MAX}
	}
	if v.gpu != nil {
		v.gpu.Reset()
	}
}

// Reset performs a full device reset, as if the driver wrote Status=0.
func (v *VirtioMMIO) Reset() {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	v.resetLocked()
	v.chainFaults = 0
}
