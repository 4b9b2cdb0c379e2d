// Package router implements the packet router: five bounded priority
// queues drained by a fixed worker pool, with batch-preemption across
// priorities, optional in-order delivery checking, and back-pressure
// depth reporting. Shutdown uses a stop flag plus a wake channel so the
// worker loop drains cleanly instead of blocking on a closed channel.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package router

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/cmn/mono"
	"github.com/signalpath/telepipe/cmn/nlog"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/sys"
)

const (
	DefaultQueueSize   = 10000
	DefaultBatchSize   = 100
	DefaultMaxLatencyMs = 5
	pollTimeout        = time.Millisecond
)

type Config struct {
	QueueSize     int
	WorkerThreads int
	BatchSize     int
	MaxLatencyMs  int64
	MaintainOrder bool
}

func DefaultConfig() Config {
	return Config{
		QueueSize:     DefaultQueueSize,
		WorkerThreads: defaultWorkerThreads(),
		BatchSize:     DefaultBatchSize,
		MaxLatencyMs:  DefaultMaxLatencyMs,
		MaintainOrder: false,
	}
}

func defaultWorkerThreads() int {
	n := sys.NumCPU() / 2
	if n < 2 {
		n = 2
	}
	return n
}

// Router owns the five priority queues and the worker pool draining them.
type Router struct {
	cfg Config
	reg *registry.Registry

	queues [numPriorities]*boundedQueue
	stats  [numPriorities]priorityStats

	stopped atomic.Bool
	wake    chan struct{}
	wg      sync.WaitGroup

	orderMu  sync.Mutex
	lastSeq  map[uint32]uint32
}

func New(cfg Config, reg *registry.Registry) *Router {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.WorkerThreads <= 0 {
		cfg.WorkerThreads = defaultWorkerThreads()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxLatencyMs <= 0 {
		cfg.MaxLatencyMs = DefaultMaxLatencyMs
	}
	r := &Router{
		cfg:     cfg,
		reg:     reg,
		wake:    make(chan struct{}, cfg.WorkerThreads),
		lastSeq: make(map[uint32]uint32),
	}
	for i := range r.queues {
		r.queues[i] = newBoundedQueue(cfg.QueueSize)
	}
	return r
}

// Start launches the worker pool.
func (r *Router) Start() {
	for i := 0; i < r.cfg.WorkerThreads; i++ {
		r.wg.Add(1)
		go r.workerLoop()
	}
}

// Stop sets the stop flag, wakes every worker, and joins them. After Stop,
// Route/RouteAuto fail with cos.ErrRouterStopped.
func (r *Router) Stop() {
	r.stopped.Store(true)
	close(r.wake)
	r.wg.Wait()
}

// Route validates pkt and tries to enqueue it at priority, never blocking.
// Returns cos.ErrInvalidPacket or cos.ErrQueueFull (each counted as a drop
// for that priority) or cos.ErrRouterStopped (not counted).
func (r *Router) Route(pkt *packet.Packet, priority Priority) error {
	if r.stopped.Load() {
		return cos.ErrRouterStopped
	}
	if !pkt.Valid() {
		r.stats[priority].dropped.Add(1)
		return cos.ErrInvalidPacket
	}
	q := r.queues[priority]
	if !q.TryPush(entry{pkt: pkt, enqueuNs: mono.NanoTime()}) {
		r.stats[priority].dropped.Add(1)
		r.stats[priority].overflow.Add(1)
		return cos.ErrQueueFull
	}
	r.signalWorker()
	return nil
}

// RouteAuto infers priority from header flags: Priority flag -> High,
// TestData -> Low, Simulation -> Background, else Normal.
func (r *Router) RouteAuto(pkt *packet.Packet) error {
	return r.Route(pkt, inferPriority(pkt))
}

func inferPriority(pkt *packet.Packet) Priority {
	flags := pkt.Flags()
	switch {
	case flags&packet.FlagPriority != 0:
		return PriorityHigh
	case flags&packet.FlagTestData != 0:
		return PriorityLow
	case flags&packet.FlagSimulation != 0:
		return PriorityBackground
	default:
		return PriorityNormal
	}
}

func (r *Router) signalWorker() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Router) workerLoop() {
	defer r.wg.Done()
	batch := make([]entry, 0, r.cfg.BatchSize)
	for {
		if r.stopped.Load() && r.allEmpty() {
			return
		}
		processed := false
		for p := 0; p < numPriorities; p++ {
			batch = batch[:0]
			q := r.queues[p]
			for len(batch) < r.cfg.BatchSize {
				e, ok := q.TryPop()
				if !ok {
					break
				}
				batch = append(batch, e)
			}
			if len(batch) == 0 {
				continue
			}
			r.processBatch(Priority(p), batch)
			processed = true
			break // preempt back to priority 0 after any non-empty batch
		}
		if !processed {
			select {
			case _, open := <-r.wake:
				if !open {
					if r.allEmpty() {
						return
					}
				}
			case <-time.After(pollTimeout):
			}
		}
	}
}

func (r *Router) allEmpty() bool {
	for _, q := range r.queues {
		if q.Depth() > 0 {
			return false
		}
	}
	return true
}

func (r *Router) processBatch(p Priority, batch []entry) {
	for _, e := range batch {
		if r.cfg.MaintainOrder {
			r.checkOrder(e.pkt)
		}
		r.reg.Distribute(e.pkt)

		latency := mono.NanoTime() - e.enqueuNs
		r.stats[p].recordLatency(latency)
		if ms := latency / 1_000_000; ms > r.cfg.MaxLatencyMs {
			nlog.Warningf("router: packet id %d exceeded max latency (%dms > %dms)",
				e.pkt.ID(), ms, r.cfg.MaxLatencyMs)
		}

		// the router held the base reference handed to it by route(); once
		// distribute returns, every subscriber that wants to keep the packet
		// past its callback has already called Retain, so this is safe.
		e.pkt.Release()
	}
}

// checkOrder flags (via a log warning) out-of-order arrivals, accounting
// for sequence-number wrap near 0xFFFFFFFF, but never drops the packet -
// ordering is advisory here, not enforced.
func (r *Router) checkOrder(pkt *packet.Packet) {
	id := uint32(pkt.ID())
	seq := pkt.Sequence()

	r.orderMu.Lock()
	last, seen := r.lastSeq[id]
	r.lastSeq[id] = seq
	r.orderMu.Unlock()

	if !seen {
		return
	}
	if isOutOfOrder(last, seq) {
		nlog.Warningf("router: out-of-order packet id %d: seq %d after %d", id, seq, last)
	}
}

// isOutOfOrder reports seq <= last, wrap-aware near the uint32 boundary:
// a seq much smaller than last is treated as a wrap (new), not a regression.
func isOutOfOrder(last, seq uint32) bool {
	const wrapGuard = 1 << 30
	if last >= seq {
		return last-seq < wrapGuard
	}
	return false
}

// QueueDepth returns the current depth of priority's queue.
func (r *Router) QueueDepth(p Priority) int { return r.queues[p].Depth() }

// TotalQueueDepth sums every priority's depth, used by the dispatcher's
// back-pressure check.
func (r *Router) TotalQueueDepth() int {
	total := 0
	for _, q := range r.queues {
		total += q.Depth()
	}
	return total
}

// Stats returns a snapshot for every priority.
func (r *Router) Stats() [numPriorities]Stats {
	var out [numPriorities]Stats
	for i := 0; i < numPriorities; i++ {
		s := &r.stats[i]
		delivered := s.delivered.Load()
		var mean int64
		if delivered > 0 {
			mean = s.latencySumNs.Load() / delivered
		}
		out[i] = Stats{
			Priority:      Priority(i),
			QueueDepth:    r.queues[i].Depth(),
			Delivered:     delivered,
			Dropped:       s.dropped.Load(),
			Overflow:      s.overflow.Load(),
			MeanLatencyNs: mean,
			PeakLatencyNs: s.peakLatency.Load(),
		}
	}
	return out
}
