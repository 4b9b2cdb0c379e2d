/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package router

import "github.com/signalpath/telepipe/packet"

// Priority is the router's five-level priority keying.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	PriorityBackground

	numPriorities = int(PriorityBackground) + 1
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityBackground:
		return "background"
	default:
		return "unknown"
	}
}

// entry is one queued packet plus its enqueue timestamp (for latency stats).
type entry struct {
	pkt      *packet.Packet
	enqueuNs int64
}

// boundedQueue is a fixed-capacity MPSC-style channel queue: many routers
// call TryPush, one worker set drains via TryPop. Never blocks either side.
type boundedQueue struct {
	ch chan entry
}

func newBoundedQueue(capacity int) *boundedQueue {
	return &boundedQueue{ch: make(chan entry, capacity)}
}

func (q *boundedQueue) TryPush(e entry) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

func (q *boundedQueue) TryPop() (entry, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return entry{}, false
	}
}

func (q *boundedQueue) Depth() int { return len(q.ch) }
