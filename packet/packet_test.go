/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package packet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

func TestHeaderRoundTrip(t *testing.T) {
	mm := memsys.New("t", []int{64, 256}, 4)
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	h := packet.Header{ID: 42, Sequence: 7, TimestampNs: 123456789, Flags: packet.FlagPriority}

	p, err := packet.Build(mm, h, payload)
	require.NoError(t, err)
	defer p.Release()

	assert.True(t, p.Valid())
	assert.Equal(t, packet.PacketID(42), p.ID())
	assert.Equal(t, uint32(7), p.Sequence())
	assert.Equal(t, uint64(123456789), p.TimestampNs())
	assert.Equal(t, payload, p.Payload())
	assert.True(t, p.HasFlag(packet.FlagPriority))
	assert.False(t, p.HasFlag(packet.FlagTestData))
}

func TestBufferNonOverflow(t *testing.T) {
	mm := memsys.New("t", []int{64}, 4)
	p, err := packet.Build(mm, packet.Header{ID: 1}, make([]byte, 10))
	require.NoError(t, err)
	defer p.Release()
	assert.LessOrEqual(t, p.PayloadSize()+packet.HeaderSize, p.TotalSize())
}

func TestRefcountReleasesBuffer(t *testing.T) {
	mm := memsys.New("t", []int{64}, 1)
	p, err := packet.Build(mm, packet.Header{ID: 1}, []byte{1})
	require.NoError(t, err)

	p.Retain() // two holders now
	p.Release()
	// still held by the second retain: pool should still be exhausted
	_, err = mm.Acquire(16)
	assert.Error(t, err)

	p.Release() // last holder returns the buffer
	_, err = mm.Acquire(16)
	assert.NoError(t, err)
}

func TestValidateAgeMeasuredOnProcessClock(t *testing.T) {
	mm := memsys.New("t", []int{64}, 1)
	p, err := packet.Build(mm, packet.Header{ID: 1, TimestampNs: 1}, []byte{1})
	require.NoError(t, err)
	defer p.Release()

	res := p.Validate()
	assert.True(t, res.Valid)
	// AgeNs compares against mono.NanoTime (nanoseconds since process
	// start), so a 1ns timestamp is only as old as this test process: well
	// under a minute, hence no staleness warning.
	assert.Empty(t, res.Warnings)
}
