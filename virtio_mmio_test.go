package main

import "testing"

func vregW(m *Machine, off, val uint32) {
	m.Bus.Write32(VIRTIO_REGION_BASE+off, val)
}

func vregR(m *Machine, off uint32) uint32 {
	return m.Bus.Read32(VIRTIO_REGION_BASE + off)
}

// TestVirtioProbe verifies the identity registers a driver probes first.
func TestVirtioProbe(t *testing.T) {
	m := newTestMachine(t)

	if got := vregR(m, VIRTIO_MMIO_MAGIC_VALUE); got != VIRTIO_MAGIC {
		t.Fatalf("magic 0x%08X, expected 0x%08X", got, uint32(VIRTIO_MAGIC))
	}
	if got := vregR(m, VIRTIO_MMIO_VERSION); got != VIRTIO_VERSION {
		t.Fatalf("version %d, expected %d", got, VIRTIO_VERSION)
	}
	if got := vregR(m, VIRTIO_MMIO_DEVICE_ID); got != VIRTIO_DEVICE_ID_GPU {
		t.Fatalf("device id %d, expected %d (gpu)", got, VIRTIO_DEVICE_ID_GPU)
	}
	if got := vregR(m, VIRTIO_MMIO_VENDOR_ID); got != VIRTIO_VENDOR {
		t.Fatalf("vendor 0x%08X, expected 0x%08X", got, uint32(VIRTIO_VENDOR))
	}
	if got := vregR(m, VIRTIO_MMIO_QUEUE_NUM_MAX); got != VIRTIO_QUEUE_NUM_MAX {
		t.Fatalf("queue num max %d, expected %d", got, VIRTIO_QUEUE_NUM_MAX)
	}
}

// TestVirtioFeatureNegotiation verifies the two-phase handshake: the
// offered feature set round-trips and FEATURES_OK latches.
func TestVirtioFeatureNegotiation(t *testing.T) {
	m := newTestMachine(t)

	vregW(m, VIRTIO_MMIO_STATUS, VIRTIO_STATUS_ACKNOWLEDGE)
	vregW(m, VIRTIO_MMIO_STATUS, VIRTIO_STATUS_ACKNOWLEDGE|VIRTIO_STATUS_DRIVER)

	vregW(m, VIRTIO_MMIO_DEVICE_FEATURES_SEL, 1)
	hi := vregR(m, VIRTIO_MMIO_DEVICE_FEATURES)
	if hi&uint32(VIRTIO_F_VERSION_1>>32) == 0 {
		t.Fatalf("device does not offer VERSION_1: hi=0x%08X", hi)
	}

	vregW(m, VIRTIO_MMIO_DRIVER_FEATURES_SEL, 1)
	vregW(m, VIRTIO_MMIO_DRIVER_FEATURES, hi)
	vregW(m, VIRTIO_MMIO_STATUS,
		VIRTIO_STATUS_ACKNOWLEDGE|VIRTIO_STATUS_DRIVER|VIRTIO_STATUS_FEATURES_OK)

	if got := vregR(m, VIRTIO_MMIO_STATUS); got&VIRTIO_STATUS_FEATURES_OK == 0 {
		t.Fatalf("FEATURES_OK did not latch: status=0x%02X", got)
	}
}

// TestVirtioFeatureNegotiationRejected verifies that accepting a feature
// bit the device never offered leaves FEATURES_OK clear.
func TestVirtioFeatureNegotiationRejected(t *testing.T) {
	m := newTestMachine(t)

	vregW(m, VIRTIO_MMIO_STATUS, VIRTIO_STATUS_ACKNOWLEDGE|VIRTIO_STATUS_DRIVER)
	vregW(m, VIRTIO_MMIO_DRIVER_FEATURES_SEL, 0)
	vregW(m, VIRTIO_MMIO_DRIVER_FEATURES, 1) // bit 0 was never offered
	vregW(m, VIRTIO_MMIO_STATUS,
		VIRTIO_STATUS_ACKNOWLEDGE|VIRTIO_STATUS_DRIVER|VIRTIO_STATUS_FEATURES_OK)

	if got := vregR(m, VIRTIO_MMIO_STATUS); got&VIRTIO_STATUS_FEATURES_OK != 0 {
		t.Fatalf("FEATURES_OK latched despite bogus features: status=0x%02X", got)
	}
}

// TestVirtioQueueSizeTooLarge verifies an oversized queue refuses to
// ready and flags NEEDS_RESET.
func TestVirtioQueueSizeTooLarge(t *testing.T) {
	m := newTestMachine(t)

	vregW(m, VIRTIO_MMIO_QUEUE_SEL, 0)
	vregW(m, VIRTIO_MMIO_QUEUE_NUM, VIRTIO_QUEUE_NUM_MAX*2)
	vregW(m, VIRTIO_MMIO_QUEUE_READY, 1)

	if got := vregR(m, VIRTIO_MMIO_QUEUE_READY); got != 0 {
		t.Fatal("oversized queue became ready")
	}
	if got := vregR(m, VIRTIO_MMIO_STATUS); got&VIRTIO_STATUS_NEEDS_RESET == 0 {
		t.Fatalf("NEEDS_RESET not flagged: status=0x%02X", got)
	}
}

// TestVirtioStatusZeroResets verifies a status write of zero clears the
// whole transport state.
func TestVirtioStatusZeroResets(t *testing.T) {
	m := newTestMachine(t)

	vregW(m, VIRTIO_MMIO_STATUS, VIRTIO_STATUS_ACKNOWLEDGE|VIRTIO_STATUS_DRIVER)
	vregW(m, VIRTIO_MMIO_QUEUE_SEL, 0)
	vregW(m, VIRTIO_MMIO_QUEUE_NUM, 8)
	vregW(m, VIRTIO_MMIO_QUEUE_READY, 1)

	vregW(m, VIRTIO_MMIO_STATUS, 0)

	if got := vregR(m, VIRTIO_MMIO_STATUS); got != 0 {
		t.Fatalf("status 0x%02X after reset, expected 0", got)
	}
	if got := vregR(m, VIRTIO_MMIO_QUEUE_READY); got != 0 {
		t.Fatal("queue survived device reset")
	}
}

// TestVirtioConfigSpace verifies the virtio-gpu config space reports one
// scanout.
func TestVirtioConfigSpace(t *testing.T) {
	m := newTestMachine(t)
	// num_scanouts is the third word of struct virtio_gpu_config.
	if got := vregR(m, VIRTIO_MMIO_CONFIG+8); got != 1 {
		t.Fatalf("num_scanouts %d, expected 1", got)
	}
}

// TestVirtioInterruptAck verifies acknowledge clears only the written
// bits.
func TestVirtioInterruptAck(t *testing.T) {
	m := newTestMachine(t)
	m.VirtIO.intStatus = VIRTIO_INT_USED_BUFFER | VIRTIO_INT_CONFIG_CHANGE

	vregW(m, VIRTIO_MMIO_INTERRUPT_ACK, VIRTIO_INT_USED_BUFFER)
	if got := vregR(m, VIRTIO_MMIO_INTERRUPT_STATUS); got != VIRTIO_INT_CONFIG_CHANGE {
		t.Fatalf("interrupt status 0x%X, expected only CONFIG_CHANGE left", got)
	}
}
