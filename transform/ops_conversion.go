/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform

import (
	"strconv"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/fieldmap"
)

// applyConversion implements to-int/to-float/to-double/to-string/to-hex/
// to-binary. String->numeric uses strict parsing; to-hex/to-binary are
// defined only for integral inputs.
func applyConversion(path string, step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	switch step.Op {
	case OpToInt:
		f, err := toFloatStrict(v)
		if err != nil {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformParseFailure)
		}
		return fieldmap.ValueInt64(fieldmap.KindInt64, int64(f)), nil

	case OpToFloat:
		f, err := toFloatStrict(v)
		if err != nil {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformParseFailure)
		}
		return fieldmap.ValueFloat32(float32(f)), nil

	case OpToDouble:
		f, err := toFloatStrict(v)
		if err != nil {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformParseFailure)
		}
		return fieldmap.ValueFloat64(f), nil

	case OpToString:
		return fieldmap.ValueString(v.String()), nil

	case OpToHex:
		u, ok := toUint64Strict(v)
		if !ok {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformTypeMismatch)
		}
		return fieldmap.ValueString(cos.ToHex(u)), nil

	case OpToBinary:
		u, ok := toUint64Strict(v)
		if !ok {
			return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformTypeMismatch)
		}
		return fieldmap.ValueString(cos.ToBinary(u)), nil
	}
	panic("unreachable")
}

// toFloatStrict converts v to float64, strictly parsing strings; a string
// that fails to parse yields a transform error rather than silently
// coercing to zero.
func toFloatStrict(v fieldmap.Value) (float64, error) {
	if v.Kind() == fieldmap.KindString {
		return strconv.ParseFloat(v.AsString(), 64)
	}
	f, ok := v.ToFloat64()
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// toUint64Strict is to-hex/to-binary's integral-only input requirement.
func toUint64Strict(v fieldmap.Value) (uint64, bool) {
	switch v.Kind() {
	case fieldmap.KindBool, fieldmap.KindInt8, fieldmap.KindInt16, fieldmap.KindInt32, fieldmap.KindInt64:
		return uint64(v.AsInt64()), true
	case fieldmap.KindUint8, fieldmap.KindUint16, fieldmap.KindUint32, fieldmap.KindUint64:
		return v.AsUint64(), true
	default:
		return 0, false
	}
}
