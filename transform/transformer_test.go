/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/fieldmap"
	"github.com/signalpath/telepipe/transform"
)

func TestChainWithFailureThenReplacement(t *testing.T) {
	tr := transform.New()
	tr.SetChain("x", []transform.Step{
		{Op: transform.OpToDouble},
		{Op: transform.OpDivide, Scalar: 0},
		{Op: transform.OpAdd, Scalar: 10},
	})

	res := tr.Transform("x", fieldmap.ValueInt64(fieldmap.KindInt32, 5))
	require.Error(t, res.Err)
	assert.True(t, cos.IsErrTransform(res.Err, cos.TransformDivideByZero))

	tr.SetChain("x", []transform.Step{
		{Op: transform.OpToDouble},
		{Op: transform.OpAdd, Scalar: 10},
	})
	res = tr.Transform("x", fieldmap.ValueInt64(fieldmap.KindInt32, 7))
	require.NoError(t, res.Err)
	assert.Equal(t, 17.0, res.Value.AsFloat64())
}

func TestMovingAverageWindow(t *testing.T) {
	tr := transform.New()
	tr.SetChain("v", []transform.Step{{Op: transform.OpMovingAverage, Window: 3}})

	want := []float64{10.0, 15.0, 20.0, 30.0}
	for i, in := range []float64{10, 20, 30, 40} {
		res := tr.Transform("v", fieldmap.ValueFloat64(in))
		require.NoError(t, res.Err)
		assert.Equal(t, want[i], res.Value.AsFloat64())
	}
}

func TestNoChainPassesThrough(t *testing.T) {
	tr := transform.New()
	in := fieldmap.ValueFloat64(3.14)
	res := tr.Transform("untouched", in)
	require.NoError(t, res.Err)
	assert.Equal(t, in, res.Value)
}

func TestDeterministicStatelessChain(t *testing.T) {
	tr1, tr2 := transform.New(), transform.New()
	steps := []transform.Step{
		{Op: transform.OpToDouble},
		{Op: transform.OpMultiply, Scalar: 2},
		{Op: transform.OpClamp, ClampMin: 0, ClampMax: 100},
	}
	tr1.SetChain("f", steps)
	tr2.SetChain("f", steps)

	r1 := tr1.Transform("f", fieldmap.ValueInt64(fieldmap.KindInt32, 60))
	r2 := tr2.Transform("f", fieldmap.ValueInt64(fieldmap.KindInt32, 60))
	require.NoError(t, r1.Err)
	require.NoError(t, r2.Err)
	assert.Equal(t, r1.Value, r2.Value)
	assert.Equal(t, 100.0, r1.Value.AsFloat64())
}

func TestDivideByZeroAndModulo(t *testing.T) {
	tr := transform.New()
	tr.SetChain("m", []transform.Step{{Op: transform.OpModulo, Scalar: 0}})
	res := tr.Transform("m", fieldmap.ValueFloat64(5))
	require.Error(t, res.Err)
	assert.True(t, cos.IsErrTransform(res.Err, cos.TransformDivideByZero))
}

func TestToHexToBinary(t *testing.T) {
	tr := transform.New()
	tr.SetChain("h", []transform.Step{{Op: transform.OpToHex}})
	res := tr.Transform("h", fieldmap.ValueUint64(fieldmap.KindUint32, 255))
	require.NoError(t, res.Err)
	assert.Equal(t, "0xff", res.Value.AsString())

	tr.SetChain("b", []transform.Step{{Op: transform.OpToBinary}})
	res = tr.Transform("b", fieldmap.ValueUint64(fieldmap.KindUint32, 0))
	require.NoError(t, res.Err)
	assert.Equal(t, "0b0", res.Value.AsString())
}

func TestCustomFunctionMissing(t *testing.T) {
	tr := transform.New()
	tr.SetChain("c", []transform.Step{{Op: transform.OpCustom, Str: "nope"}})
	res := tr.Transform("c", fieldmap.ValueFloat64(1))
	require.Error(t, res.Err)
	assert.True(t, cos.IsErrTransform(res.Err, cos.TransformNoCustomFn))
}

func TestCustomFunctionRegistered(t *testing.T) {
	tr := transform.New()
	tr.RegisterFunc("double", func(v float64, params ...float64) (float64, error) {
		return v * 2, nil
	})
	tr.SetChain("c", []transform.Step{{Op: transform.OpCustom, Str: "double"}})
	res := tr.Transform("c", fieldmap.ValueFloat64(21))
	require.NoError(t, res.Err)
	assert.Equal(t, 42.0, res.Value.AsFloat64())
}

func TestResetState(t *testing.T) {
	tr := transform.New()
	tr.SetChain("d", []transform.Step{{Op: transform.OpDiff}})
	r1 := tr.Transform("d", fieldmap.ValueFloat64(10))
	require.NoError(t, r1.Err)
	assert.Equal(t, 0.0, r1.Value.AsFloat64())

	r2 := tr.Transform("d", fieldmap.ValueFloat64(15))
	require.NoError(t, r2.Err)
	assert.Equal(t, 5.0, r2.Value.AsFloat64())

	tr.ResetState("d")
	r3 := tr.Transform("d", fieldmap.ValueFloat64(100))
	require.NoError(t, r3.Err)
	assert.Equal(t, 0.0, r3.Value.AsFloat64()) // first sample after reset emits 0
}
