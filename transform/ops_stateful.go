/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform

import (
	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/fieldmap"
)

// applyStateful implements moving-average/diff/cumulative-sum/min/max.
// Each mutates the chain's shared state exactly once per call, even when
// a later step in the same chain subsequently fails.
func (c *Chain) applyStateful(step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	f, ok := v.ToFloat64()
	if !ok {
		return fieldmap.Value{}, cos.NewErrTransform(c.Path, step.Op.String(), cos.TransformTypeMismatch)
	}

	s := &c.state
	s.mu.Lock()
	defer s.mu.Unlock()

	switch step.Op {
	case OpMovingAverage:
		window := step.Window
		if window <= 0 {
			window = 1
		}
		s.history = append(s.history, f)
		if len(s.history) > window {
			s.history = s.history[len(s.history)-window:]
		}
		var sum float64
		for _, x := range s.history {
			sum += x
		}
		return fieldmap.ValueFloat64(sum / float64(len(s.history))), nil

	case OpDiff:
		var d float64
		if s.initialized {
			d = f - s.previous
		}
		s.previous = f
		s.initialized = true
		return fieldmap.ValueFloat64(d), nil

	case OpCumulativeSum:
		s.cumulative += f
		return fieldmap.ValueFloat64(s.cumulative), nil

	case OpMin:
		if !s.initialized || f < s.min {
			s.min = f
		}
		s.initialized = true
		return fieldmap.ValueFloat64(s.min), nil

	case OpMax:
		if !s.initialized || f > s.max {
			s.max = f
		}
		s.initialized = true
		return fieldmap.ValueFloat64(s.max), nil
	}
	panic("unreachable")
}

// applyDecoration implements prefix/postfix on the value's string form.
func applyDecoration(step *Step, v fieldmap.Value) (fieldmap.Value, error) {
	s := v.String()
	if v.Kind() == fieldmap.KindString {
		s = v.AsString()
	}
	switch step.Op {
	case OpPrefix:
		return fieldmap.ValueString(step.Str + s), nil
	case OpPostfix:
		return fieldmap.ValueString(s + step.Str), nil
	}
	panic("unreachable")
}

// applyCustom looks up step.Str in the registry and calls it on the
// value's double-precision form: a caller-supplied pure function of
// (value, params) -> value; a missing function yields a transform error.
func applyCustom(path string, step *Step, v fieldmap.Value, custom map[string]CustomFunc) (fieldmap.Value, error) {
	fn, ok := custom[step.Str]
	if !ok {
		return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformNoCustomFn)
	}
	f, ok := v.ToFloat64()
	if !ok {
		return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformTypeMismatch)
	}
	out, err := fn(f, step.Scalar)
	if err != nil {
		return fieldmap.Value{}, cos.NewErrTransform(path, step.Op.String(), cos.TransformDomainError)
	}
	return fieldmap.ValueFloat64(out), nil
}
