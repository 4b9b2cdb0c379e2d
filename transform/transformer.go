/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package transform

import (
	"sync"

	"github.com/signalpath/telepipe/fieldmap"
)

// Transformer maintains a field-path -> chain mapping. Safe for concurrent
// Transform calls against different paths; SetChain/RegisterFunc are
// writer operations.
type Transformer struct {
	mu     sync.RWMutex
	chains map[string]*Chain
	custom map[string]CustomFunc
}

func New() *Transformer {
	return &Transformer{
		chains: make(map[string]*Chain),
		custom: make(map[string]CustomFunc),
	}
}

// SetChain installs (or replaces) the chain for path. Replacing a chain
// discards its prior per-field state - this is how a caller deliberately
// resets stateful history, not just ResetState.
func (t *Transformer) SetChain(path string, steps []Step) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chains[path] = NewChain(path, steps)
}

// RegisterFunc adds a named Custom-operation implementation: the closest
// Go idiom for a caller-supplied function-pointer operation.
func (t *Transformer) RegisterFunc(name string, fn CustomFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.custom[name] = fn
}

// Transform applies path's chain to value. If no chain exists, the value
// passes through unchanged.
func (t *Transformer) Transform(path string, value fieldmap.Value) Result {
	t.mu.RLock()
	chain, ok := t.chains[path]
	custom := t.custom
	t.mu.RUnlock()
	if !ok {
		return Result{Value: value}
	}
	return chain.apply(value, custom)
}

// ResetState clears one field's chain state (history/cumulative/initialized),
// or every chain's state when path == "".
func (t *Transformer) ResetState(path string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if path == "" {
		for _, c := range t.chains {
			c.state.reset()
		}
		return
	}
	if c, ok := t.chains[path]; ok {
		c.state.reset()
	}
}
