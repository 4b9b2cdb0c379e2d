/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package fieldmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/fieldmap"
	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
)

func buildPacket(t *testing.T, id uint32, payload []byte) *packet.Packet {
	t.Helper()
	mm := memsys.New("t", []int{64, 256}, 4)
	p, err := packet.Build(mm, packet.Header{ID: id}, payload)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestExtractBitfield(t *testing.T) {
	// bits [3:6] (width 4) of 0b10110100 == 0b0110 == 6
	p := buildPacket(t, 7, []byte{0b10110100})
	e := fieldmap.NewExtractor()
	e.Bind(fieldmap.Build(7, "s", []fieldmap.Descriptor{
		{Path: "f", Offset: 0, Size: 1, IsBitfield: true, BitOffset: 3, BitWidth: 4},
	}))

	v, err := e.ExtractByName(p, "f")
	require.NoError(t, err)
	assert.Equal(t, fieldmap.KindUint8, v.Kind())
	assert.Equal(t, uint64(6), v.AsUint64())
}

func TestExtractOutOfBounds(t *testing.T) {
	p := buildPacket(t, 1, []byte{1, 2})
	e := fieldmap.NewExtractor()
	e.Bind(fieldmap.Build(1, "s", []fieldmap.Descriptor{
		{Path: "x", Offset: 0, Size: 4, Kind: fieldmap.KindInt32},
	}))
	_, err := e.ExtractByName(p, "x")
	require.Error(t, err)
}

func TestExtractNotFound(t *testing.T) {
	p := buildPacket(t, 1, []byte{1, 2})
	e := fieldmap.NewExtractor()
	e.Bind(fieldmap.Build(1, "s", nil))
	res := e.ExtractMany(p, []string{"missing"})
	require.Error(t, res["missing"].Err)
}

func TestExtractNullTerminatedString(t *testing.T) {
	p := buildPacket(t, 1, []byte{'h', 'i', 0, 'x'})
	e := fieldmap.NewExtractor()
	e.Bind(fieldmap.Build(1, "s", []fieldmap.Descriptor{
		{Path: "name", Offset: 0, Size: 4, Kind: fieldmap.KindString, IsArray: true, ArrayCount: 4, NullTerminated: true},
	}))
	v, err := e.ExtractByName(p, "name")
	require.NoError(t, err)
	assert.Equal(t, "hi", v.AsString())
}

func TestExtractIdempotent(t *testing.T) {
	p := buildPacket(t, 1, []byte{0x2a, 0, 0, 0})
	e := fieldmap.NewExtractor()
	d := fieldmap.Descriptor{Path: "x", Offset: 0, Size: 4, Kind: fieldmap.KindInt32}
	v1, err1 := e.Extract(p, d)
	v2, err2 := e.Extract(p, d)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, v1, v2)
}
