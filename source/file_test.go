/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package source_test

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/source"
)

func TestFileSourceReplaysPackets(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 64)

	f, err := os.CreateTemp(t.TempDir(), "capture-*.bin")
	require.NoError(t, err)

	var buf [64]byte
	n1 := packet.Encode(buf[:], packet.Header{ID: 1, Sequence: 1}, []byte{1, 2})
	_, err = f.Write(buf[:n1])
	require.NoError(t, err)
	n2 := packet.Encode(buf[:], packet.Header{ID: 2, Sequence: 2}, []byte{3, 4, 5})
	_, err = f.Write(buf[:n2])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src := source.NewFileSource("replay", f.Name(), mm, 0)
	require.NotEqual(t, uuid.Nil, src.SessionID)

	require.NoError(t, src.Start())
	defer src.Stop()

	var got []uint32
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case pkt := <-src.Packets():
			got = append(got, pkt.ID())
			pkt.Release()
		case <-timeout:
			t.Fatal("timed out waiting for replayed packets")
		}
	}
	assert.Equal(t, []uint32{1, 2}, got)
}

func TestPauseSuppressesDelivery(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 64)
	f, err := os.CreateTemp(t.TempDir(), "capture-*.bin")
	require.NoError(t, err)
	var buf [64]byte
	n := packet.Encode(buf[:], packet.Header{ID: 9, Sequence: 1}, nil)
	_, err = f.Write(buf[:n])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	src := source.NewFileSource("replay", f.Name(), mm, 0)
	require.NoError(t, src.Pause())
	require.NoError(t, src.Start())

	select {
	case <-src.Packets():
		t.Fatal("expected no delivery while paused")
	case <-time.After(50 * time.Millisecond):
	}
	src.Stop()
}
