/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform

import (
	"math"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/fieldmap"
)

// applyArithmetic implements scalar add/subtract/multiply/divide/modulo/
// power, all in double precision. Divide/modulo by zero are the chain's
// only arithmetic errors; everything else (domain violations in the
// unary-math ops) propagates NaN/Inf instead.
func applyArithmetic(path string, step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	f, ok := v.ToFloat64()
	if !ok {
		return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformTypeMismatch)
	}
	switch step.Op {
	case OpAdd:
		return fieldmap.ValueFloat64(f + step.Scalar), nil
	case OpSubtract:
		return fieldmap.ValueFloat64(f - step.Scalar), nil
	case OpMultiply:
		return fieldmap.ValueFloat64(f * step.Scalar), nil
	case OpDivide:
		if step.Scalar == 0 {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformDivideByZero)
		}
		return fieldmap.ValueFloat64(f / step.Scalar), nil
	case OpModulo:
		if step.Scalar == 0 {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformDivideByZero)
		}
		return fieldmap.ValueFloat64(math.Mod(f, step.Scalar)), nil
	case OpPower:
		return fieldmap.ValueFloat64(math.Pow(f, step.Scalar)), nil
	}
	panic("unreachable")
}

// applyUnaryMath implements abs/sqrt/log/log10/sin/cos/tan. Domain
// violations (sqrt of a negative, log of <=0) propagate IEEE-754 NaN/Inf,
// never an error.
func applyUnaryMath(step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	f, ok := v.ToFloat64()
	if !ok {
		return fieldmap.ValueFloat64(math.NaN()), nil
	}
	switch step.Op {
	case OpAbs:
		return fieldmap.ValueFloat64(math.Abs(f)), nil
	case OpSqrt:
		return fieldmap.ValueFloat64(math.Sqrt(f)), nil
	case OpLog:
		return fieldmap.ValueFloat64(math.Log(f)), nil
	case OpLog10:
		return fieldmap.ValueFloat64(math.Log10(f)), nil
	case OpSin:
		return fieldmap.ValueFloat64(math.Sin(f)), nil
	case OpCos:
		return fieldmap.ValueFloat64(math.Cos(f)), nil
	case OpTan:
		return fieldmap.ValueFloat64(math.Tan(f)), nil
	}
	panic("unreachable")
}

// applyClamp implements min <= value <= max.
func applyClamp(path string, step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	f, ok := v.ToFloat64()
	if !ok {
		return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformTypeMismatch)
	}
	if f < step.ClampMin {
		f = step.ClampMin
	} else if f > step.ClampMax {
		f = step.ClampMax
	}
	return fieldmap.ValueFloat64(f), nil
}
