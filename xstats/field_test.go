/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package xstats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/xstats"
)

func TestIncrementalConsistency(t *testing.T) {
	reg := xstats.NewRegistry()
	samples := []float64{1, 2, 3, 4, 5}
	for _, s := range samples {
		reg.Update("f", s)
	}
	snap, ok := reg.Recompute("f")
	require.True(t, ok)

	var sum, sumSq float64
	for _, s := range samples {
		sum += s
		sumSq += s * s
	}
	assert.Equal(t, int64(len(samples)), snap.Count)
	assert.Equal(t, sum, snap.Sum)
	assert.Equal(t, sumSq, snap.SumSquares)
	assert.Equal(t, 1.0, snap.Min)
	assert.Equal(t, 5.0, snap.Max)
	assert.InDelta(t, 3.0, snap.Mean, 1e-9)
}

func TestNonNumericSkipped(t *testing.T) {
	reg := xstats.NewRegistry()
	reg.Update("f", 1)
	reg.Update("f", math.NaN())
	reg.Update("f", 2)
	snap, ok := reg.Recompute("f")
	require.True(t, ok)
	assert.Equal(t, int64(2), snap.Count)
}

func TestWindowedPercentiles(t *testing.T) {
	reg := xstats.NewRegistry(xstats.WithWindow(1000, 60000, xstats.DefaultPercentiles))
	for i := 1; i <= 100; i++ {
		reg.Update("f", float64(i))
	}
	snap, ok := reg.Recompute("f")
	require.True(t, ok)
	require.True(t, snap.Windowed)
	assert.InDelta(t, 50.5, snap.Median, 1.0)
	assert.InDelta(t, 1.0, snap.WindowMin, 1e-9)
	assert.InDelta(t, 100.0, snap.WindowMax, 1e-9)
}

func TestResetZeroesField(t *testing.T) {
	reg := xstats.NewRegistry()
	reg.Update("f", 5)
	reg.Update("f", 10)
	reg.Reset("f")
	snap, ok := reg.Recompute("f")
	require.True(t, ok)
	assert.Equal(t, int64(0), snap.Count)
	assert.Equal(t, 0.0, snap.Sum)
}

func TestResetAllFields(t *testing.T) {
	reg := xstats.NewRegistry()
	reg.Update("a", 1)
	reg.Update("b", 2)
	reg.Reset("")
	sa, _ := reg.Recompute("a")
	sb, _ := reg.Recompute("b")
	assert.Equal(t, int64(0), sa.Count)
	assert.Equal(t, int64(0), sb.Count)
}

func TestUnknownFieldSnapshot(t *testing.T) {
	reg := xstats.NewRegistry()
	_, ok := reg.Snapshot("missing")
	assert.False(t, ok)
}
