/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package memsys_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/memsys"
)

func TestAcquireSmallestFittingClass(t *testing.T) {
	m := memsys.New("t", []int{64, 256, 1024}, 2)
	buf, err := m.Acquire(100)
	require.NoError(t, err)
	assert.Equal(t, 256, buf.Cap())
	buf.Release()
}

func TestAcquireExhaustion(t *testing.T) {
	m := memsys.New("t", []int{64}, 1)
	b1, err := m.Acquire(32)
	require.NoError(t, err)

	_, err = m.Acquire(32)
	assert.ErrorIs(t, err, cos.ErrPoolExhausted)

	b1.Release()
	b2, err := m.Acquire(32)
	require.NoError(t, err)
	b2.Release()
}

func TestAcquireOversized(t *testing.T) {
	m := memsys.New("t", []int{64, 256}, 1)
	_, err := m.Acquire(1024)
	assert.ErrorIs(t, err, cos.ErrPoolExhausted)
}

func TestConcurrentAcquireRelease(t *testing.T) {
	m := memsys.New("t", []int{64, 256, 1024}, 64)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buf, err := m.Acquire(64)
				if err != nil {
					continue
				}
				buf.Bytes()[0] = 1
				buf.Release()
			}
		}()
	}
	wg.Wait()
}
