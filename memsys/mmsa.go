// Package memsys implements the pipeline's buffer pool: a process-wide set
// of fixed-size slab classes serving reference-counted payload buffers to
// packet sources. Acquire never blocks - under exhaustion it returns
// cos.ErrPoolExhausted so the caller can drop-and-count instead of stalling
// a producer thread. Classes have a fixed capacity and do not grow, because
// a source under overload must drop, not allocate without bound.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package memsys

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/signalpath/telepipe/cmn/cos"
)

// DefaultClasses are the slab sizes (bytes) the pipeline provisions by
// default, chosen to cover small fixed-layout telemetry packets through
// large fragmented ones.
var DefaultClasses = []int{64, 256, 1024, 4096, 8192}

// DefaultSlotsPerClass bounds each class's freelist: with this many slots
// free, Acquire never blocks; beyond it, Acquire fails with PoolExhausted.
const DefaultSlotsPerClass = 4096

type slabClass struct {
	size  int
	slots chan []byte // pre-allocated ring: pop to acquire, push to release
	hits  atomic.Int64
	miss  atomic.Int64
}

// MMSA ("multi-size-class slab allocator") is a named, process-wide buffer
// pool. The zero value is not usable; construct with New.
type MMSA struct {
	Name    string
	classes []*slabClass // sorted ascending by size
}

// New builds an MMSA with the given (size, slotsPerClass) classes. Classes
// are sorted ascending by size; Acquire picks the smallest class whose size
// is >= the requested size.
func New(name string, sizes []int, slotsPerClass int) *MMSA {
	if len(sizes) == 0 {
		sizes = DefaultClasses
	}
	if slotsPerClass <= 0 {
		slotsPerClass = DefaultSlotsPerClass
	}
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)

	m := &MMSA{Name: name}
	for _, sz := range sorted {
		sc := &slabClass{size: sz, slots: make(chan []byte, slotsPerClass)}
		for i := 0; i < slotsPerClass; i++ {
			sc.slots <- make([]byte, sz)
		}
		m.classes = append(m.classes, sc)
	}
	return m
}

// Buffer is an owning handle to a pooled slice. Callers must Release it
// exactly once (directly, or indirectly via packet.Packet's refcounting)
// on every exit path; Release is idempotent-safe only through that single
// call contract, matching the C++ original's scoped-handle guarantee.
type Buffer struct {
	b     []byte
	class *slabClass
	pool  *MMSA
}

// Bytes returns the full-capacity backing slice (len == the slab class
// size; callers slice it down to the payload they actually use).
func (buf *Buffer) Bytes() []byte { return buf.b }

// Cap reports the slab class size backing this buffer.
func (buf *Buffer) Cap() int { return cap(buf.b) }

// Release returns the slot to its class's freelist. Safe to call once;
// calling it on a nil Buffer is a no-op.
func (buf *Buffer) Release() {
	if buf == nil || buf.pool == nil {
		return
	}
	select {
	case buf.class.slots <- buf.b[:cap(buf.b)]:
	default:
		// class freelist is somehow over-capacity (shouldn't happen: we
		// only ever hand out what we took) - drop it rather than block.
	}
	buf.pool = nil
}

// Acquire returns the smallest class whose size is >= the requested size.
// Never blocks: exhaustion of that class's freelist surfaces immediately
// as cos.ErrPoolExhausted.
func (m *MMSA) Acquire(size int) (*Buffer, error) {
	for _, sc := range m.classes {
		if sc.size < size {
			continue
		}
		select {
		case b := <-sc.slots:
			sc.hits.Add(1)
			return &Buffer{b: b, class: sc, pool: m}, nil
		default:
			sc.miss.Add(1)
			return nil, cos.ErrPoolExhausted
		}
	}
	return nil, cos.ErrPoolExhausted // size exceeds largest configured class
}

// ClassStats reports per-class hit/miss counters, in ascending size order.
type ClassStats struct {
	Size int
	Hits int64
	Miss int64
}

func (m *MMSA) Stats() []ClassStats {
	out := make([]ClassStats, len(m.classes))
	for i, sc := range m.classes {
		out[i] = ClassStats{Size: sc.size, Hits: sc.hits.Load(), Miss: sc.miss.Load()}
	}
	return out
}

var (
	defaultOnce sync.Once
	defaultMMSA *MMSA
)

// Default returns a lazily-initialized process-wide pool, for callers
// (e.g. source adapters) that don't own a dedicated MMSA.
func Default() *MMSA {
	defaultOnce.Do(func() { defaultMMSA = New("default", DefaultClasses, DefaultSlotsPerClass) })
	return defaultMMSA
}
