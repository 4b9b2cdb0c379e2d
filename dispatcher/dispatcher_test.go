/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package dispatcher_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/dispatcher"
	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/router"
	"github.com/signalpath/telepipe/source"
)

func buildCaptureFile(t *testing.T, n int) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "capture-*.bin")
	require.NoError(t, err)
	defer f.Close()

	var buf [64]byte
	for i := 0; i < n; i++ {
		sz := packet.Encode(buf[:], packet.Header{ID: 1, Sequence: uint32(i + 1)}, []byte{1, 2})
		_, err := f.Write(buf[:sz])
		require.NoError(t, err)
	}
	return f.Name()
}

func TestBackPressureDropsUnderStalledRouter(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 4096)
	reg := registry.New()

	rcfg := router.DefaultConfig()
	rcfg.QueueSize = 4 // small so it fills fast without any workers draining

	rtr := router.New(rcfg, reg)
	// Deliberately never call rtr.Start(): simulates a stalled worker pool.

	dcfg := dispatcher.DefaultConfig()
	dcfg.BackPressureThreshold = 2
	d := dispatcher.New(dcfg, reg, rtr)

	path := buildCaptureFile(t, 50)
	src := source.NewFileSource("replay", path, mm, 0)
	require.NoError(t, d.RegisterSource(src))

	require.NoError(t, d.Start())
	defer d.Stop()

	require.Eventually(t, func() bool {
		return d.BackPressure() > 0
	}, 2*time.Second, 5*time.Millisecond)

	assert.Greater(t, d.Received(), int64(0))
}

func TestDuplicateSourceRejected(t *testing.T) {
	reg := registry.New()
	rtr := router.New(router.DefaultConfig(), reg)
	d := dispatcher.New(dispatcher.DefaultConfig(), reg, rtr)

	mm := memsys.New("t", memsys.DefaultClasses, 16)
	path := buildCaptureFile(t, 1)
	s1 := source.NewFileSource("dup", path, mm, 0)
	s2 := source.NewFileSource("dup", path, mm, 0)

	require.NoError(t, d.RegisterSource(s1))
	assert.Error(t, d.RegisterSource(s2))
}
