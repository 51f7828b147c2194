// virtio_constants.go - VirtIO MMIO and virtio-gpu wire constants

/*
Draw Engine SoC - functional model of the COJT 2D draw accelerator
with a VirtIO-GPU transport frontend.

(c) 2025 - 2026 COJT Draw Engine contributors
https://github.com/cojt/drawengine
License: GPLv3 or later
*/

package main

// VirtIO MMIO register offsets, relative to the transport window base.
const (
	VIRTIO_MMIO_MAGIC_VALUE         = 0x000 // always 0x74726976 (R; "virt")
	VIRTIO_MMIO_VERSION             = 0x004 // always 0x2 (R)
	VIRTIO_MMIO_DEVICE_ID           = 0x008 // virtio subsystem device id (R)
	VIRTIO_MMIO_VENDOR_ID           = 0x00C // virtio subsystem vendor id (R)
	VIRTIO_MMIO_DEVICE_FEATURES     = 0x010 // flags, depends on FEATURES_SEL (R)
	VIRTIO_MMIO_DEVICE_FEATURES_SEL = 0x014 // word selection for DEVICE_FEATURES (W)
	VIRTIO_MMIO_DRIVER_FEATURES     = 0x020 // feature flags accepted by the driver (W)
	VIRTIO_MMIO_DRIVER_FEATURES_SEL = 0x024 // word selection for DRIVER_FEATURES (W)
	VIRTIO_MMIO_QUEUE_SEL           = 0x030 // virtual queue index (W)
	VIRTIO_MMIO_QUEUE_NUM_MAX       = 0x034 // maximum virtual queue size (R)
	VIRTIO_MMIO_QUEUE_NUM           = 0x038 // virtual queue size (W)
	VIRTIO_MMIO_QUEUE_READY         = 0x044 // virtual queue ready bit (RW)
	VIRTIO_MMIO_QUEUE_NOTIFY        = 0x050 // queue notifier (W)
	VIRTIO_MMIO_INTERRUPT_STATUS    = 0x060 // interrupt status (R)
	VIRTIO_MMIO_INTERRUPT_ACK       = 0x064 // interrupt acknowledge (W)
	VIRTIO_MMIO_STATUS              = 0x070 // device status (RW)
	VIRTIO_MMIO_QUEUE_DESC_LOW      = 0x080 // descriptor area GPA, low word (W)
	VIRTIO_MMIO_QUEUE_DESC_HIGH     = 0x084
	VIRTIO_MMIO_QUEUE_DRIVER_LOW    = 0x090 // driver (avail) area GPA, low word (W)
	VIRTIO_MMIO_QUEUE_DRIVER_HIGH   = 0x094
	VIRTIO_MMIO_QUEUE_DEVICE_LOW    = 0x0A0 // device (used) area GPA, low word (W)
	VIRTIO_MMIO_QUEUE_DEVICE_HIGH   = 0x0A4
	VIRTIO_MMIO_CONFIG_GENERATION   = 0x0FC // configuration atomicity value (R)
	VIRTIO_MMIO_CONFIG              = 0x100 // device-specific config space
)

const (
	VIRTIO_MAGIC   = 0x74726976 // "virt"
	VIRTIO_VERSION = 2
	VIRTIO_VENDOR  = 0x544A4F43 // "COJT"

	VIRTIO_DEVICE_ID_GPU = 16
)

// Device status bits (driver-written handshake state machine).
const (
	VIRTIO_STATUS_ACKNOWLEDGE = 1
	VIRTIO_STATUS_DRIVER      = 2
	VIRTIO_STATUS_DRIVER_OK   = 4
	VIRTIO_STATUS_FEATURES_OK = 8
	VIRTIO_STATUS_NEEDS_RESET = 64
	VIRTIO_STATUS_FAILED      = 128
)

// Interrupt status bits.
const (
	VIRTIO_INT_USED_BUFFER   = 1 << 0
	VIRTIO_INT_CONFIG_CHANGE = 1 << 1
)

// Device-independent feature bits (only VERSION_1 is offered: the engine
// is a plain 2D split-ring device).
const (
	VIRTIO_F_VERSION_1 = uint64(1) << 32
)

// Virtqueue descriptor flags.
const (
	VIRTQ_DESC_F_NEXT     = 1
	VIRTQ_DESC_F_WRITE    = 2
	VIRTQ_DESC_F_INDIRECT = 4
)

// Avail ring flags.
const VIRTQ_AVAIL_F_NO_INTERRUPT = 1

const (
	VIRTQ_DESC_SIZE       = 16 // {addr u64, len u32, flags u16, next u16}
	VIRTQ_USED_ELEM_SIZE  = 8  // {id u32, len u32}
	VIRTIO_QUEUE_COUNT    = 2  // control + cursor
	VIRTIO_QUEUE_NUM_MAX  = 256
	VIRTIO_CONTROL_QUEUE  = 0
	VIRTIO_CURSOR_QUEUE   = 1
)

// virtio-gpu control command types.
const (
	VIRTIO_GPU_CMD_GET_DISPLAY_INFO        = 0x0100
	VIRTIO_GPU_CMD_RESOURCE_CREATE_2D      = 0x0101
	VIRTIO_GPU_CMD_RESOURCE_UNREF          = 0x0102
	VIRTIO_GPU_CMD_SET_SCANOUT             = 0x0103
	VIRTIO_GPU_CMD_RESOURCE_FLUSH          = 0x0104
	VIRTIO_GPU_CMD_TRANSFER_TO_HOST_2D     = 0x0105
	VIRTIO_GPU_CMD_RESOURCE_ATTACH_BACKING = 0x0106
	VIRTIO_GPU_CMD_RESOURCE_DETACH_BACKING = 0x0107

	VIRTIO_GPU_RESP_OK_NODATA       = 0x1100
	VIRTIO_GPU_RESP_OK_DISPLAY_INFO = 0x1101

	VIRTIO_GPU_RESP_ERR_UNSPEC              = 0x1200
	VIRTIO_GPU_RESP_ERR_OUT_OF_MEMORY       = 0x1201
	VIRTIO_GPU_RESP_ERR_INVALID_SCANOUT_ID  = 0x1202
	VIRTIO_GPU_RESP_ERR_INVALID_RESOURCE_ID = 0x1203
	VIRTIO_GPU_RESP_ERR_INVALID_PARAMETER   = 0x1205
)

// virtio-gpu 2D pixel formats (all 32-bit; the engine consumes them as
// raw ARGB8888-compatible words).
const (
	VIRTIO_GPU_FORMAT_B8G8R8A8_UNORM = 1
	VIRTIO_GPU_FORMAT_B8G8R8X8_UNORM = 2
	VIRTIO_GPU_FORMAT_A8R8G8B8_UNORM = 3
	VIRTIO_GPU_FORMAT_X8R8G8B8_UNORM = 4
	VIRTIO_GPU_FORMAT_R8G8B8A8_UNORM = 67
	VIRTIO_GPU_FORMAT_X8B8G8R8_UNORM = 68
	VIRTIO_GPU_FORMAT_A8B8G8R8_UNORM = 121
	VIRTIO_GPU_FORMAT_R8G8B8X8_UNORM = 134
)

// Control header flags.
const VIRTIO_GPU_FLAG_FENCE = 1 << 0

const VIRTIO_GPU_MAX_SCANOUTS = 16

const virtioGPUHdrSize = 24
const virtioGPUMemEntrySize = 16
