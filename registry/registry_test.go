/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
)

func buildPacket(t *testing.T, mm *memsys.MMSA, id uint32) *packet.Packet {
	t.Helper()
	pkt, err := packet.Build(mm, packet.Header{ID: id, Sequence: 1, PayloadSize: 4}, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	return pkt
}

func TestPriorityOrderedDelivery(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 16)
	reg := registry.New()
	pkt := buildPacket(t, mm, 7)
	defer pkt.Release()

	var order []string
	reg.Subscribe("low", 7, 10, func(*packet.Packet) { order = append(order, "low") })
	reg.Subscribe("high", 7, 0, func(*packet.Packet) { order = append(order, "high") })
	reg.Subscribe("mid", 7, 5, func(*packet.Packet) { order = append(order, "mid") })

	delivered := reg.Distribute(pkt)
	assert.Equal(t, 3, delivered)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestStableTieBreakByRegistrationOrder(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 16)
	reg := registry.New()
	pkt := buildPacket(t, mm, 1)
	defer pkt.Release()

	var order []string
	reg.Subscribe("first", 1, 0, func(*packet.Packet) { order = append(order, "first") })
	reg.Subscribe("second", 1, 0, func(*packet.Packet) { order = append(order, "second") })

	reg.Distribute(pkt)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	reg := registry.New()
	id := reg.Subscribe("s", 1, 0, func(*packet.Packet) {})
	assert.True(t, reg.Unsubscribe(id))
	assert.False(t, reg.Unsubscribe(id))
}

func TestDisabledSubscriberSkipped(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 16)
	reg := registry.New()
	pkt := buildPacket(t, mm, 2)
	defer pkt.Release()

	called := false
	id := reg.Subscribe("s", 2, 0, func(*packet.Packet) { called = true })
	reg.Enable(id, false)

	delivered := reg.Distribute(pkt)
	assert.Equal(t, 0, delivered)
	assert.False(t, called)
}

func TestPanicInCallbackDoesNotAbortDelivery(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 16)
	reg := registry.New()
	pkt := buildPacket(t, mm, 3)
	defer pkt.Release()

	secondCalled := false
	badID := reg.Subscribe("bad", 3, 10, func(*packet.Packet) { panic("boom") })
	reg.Subscribe("good", 3, 0, func(*packet.Packet) { secondCalled = true })

	delivered := reg.Distribute(pkt)
	assert.Equal(t, 1, delivered)
	assert.True(t, secondCalled)
	assert.Equal(t, int64(1), reg.DeliveryFailures())

	drops, ok := reg.SubscriberDrops(badID)
	require.True(t, ok)
	assert.Equal(t, int64(1), drops)
}
