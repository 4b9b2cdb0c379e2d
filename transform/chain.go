/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform

import (
	"fmt"
	"sync"

	"github.com/signalpath/telepipe/fieldmap"
)

// chainState is the per-field mutable state a stateful step reads/writes:
// history for moving-average, running min/max values, a cumulative
// accumulator, and the previous sample for diff. Lives in the chain's record, not the operation,
// so a heterogeneous chain of stateful and stateless steps shares one
// coherent history per field.
type chainState struct {
	mu          sync.Mutex
	history     []float64
	cumulative  float64
	previous    float64
	initialized bool
	min, max    float64
}

func (s *chainState) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = s.history[:0]
	s.cumulative = 0
	s.previous = 0
	s.initialized = false
	s.min, s.max = 0, 0
}

// Chain is an ordered list of Steps plus the per-field state they share.
type Chain struct {
	Path  string
	Steps []Step
	state chainState
}

func NewChain(path string, steps []Step) *Chain {
	return &Chain{Path: path, Steps: steps}
}

// Result is transform(path, value)'s outcome: either the transformed
// value, or the error the first failing step raised - the remainder of
// the chain is not executed in that case.
type Result struct {
	Value fieldmap.Value
	Err   error
}

func (c *Chain) apply(in fieldmap.Value, custom map[string]CustomFunc) Result {
	v := in
	for i := range c.Steps {
		nv, err := c.applyStep(&c.Steps[i], v, custom)
		if err != nil {
			return Result{Err: err}
		}
		v = nv
	}
	return Result{Value: v}
}

func (c *Chain) applyStep(step *Step, v fieldmap.Value, custom map[string]CustomFunc) (fieldmap.Value, error) {
	switch step.Op {
	case OpToInt, OpToFloat, OpToDouble, OpToString, OpToHex, OpToBinary:
		return applyConversion(c.Path, step, v)
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpModulo, OpPower:
		return applyArithmetic(c.Path, step, v)
	case OpAbs, OpSqrt, OpLog, OpLog10, OpSin, OpCos, OpTan:
		return applyUnaryMath(step, v)
	case OpMovingAverage, OpDiff, OpCumulativeSum, OpMin, OpMax:
		return c.applyStateful(step, v)
	case OpPrefix, OpPostfix:
		return applyDecoration(step, v)
	case OpClamp:
		return applyClamp(c.Path, step, v)
	case OpCustom:
		return applyCustom(c.Path, step, v, custom)
	default:
		return fieldmap.Value{}, fmt.Errorf("transform: unknown op %v", step.Op)
	}
}
