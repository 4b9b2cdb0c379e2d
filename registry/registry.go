// Package registry implements the subscription registry: a priority-ordered
// fan-out table from packet-id to subscriber callbacks, guarded by a
// sync.RWMutex over dual id/packet-id maps, with stable priority ordering
// and panic-safe distribute.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package registry

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/signalpath/telepipe/cmn/nlog"
	"github.com/signalpath/telepipe/packet"
)

type SubscriberID uint64

// Callback receives a delivered packet. It must not retain the packet
// beyond the call without calling Retain.
type Callback func(pkt *packet.Packet)

type subscription struct {
	id       SubscriberID
	name     string
	packetID uint32
	priority int
	cb       Callback

	enabled atomic.Bool
	drops   atomic.Int64
}

// Registry is the id->Subscription and packet-id->sorted-subscriptions pair
// guarded by a single RWMutex.
type Registry struct {
	mu       sync.RWMutex
	nextID   atomic.Uint64
	byID     map[SubscriberID]*subscription
	byPkt    map[uint32][]*subscription
	failures atomic.Int64
}

func New() *Registry {
	return &Registry{
		byID:  make(map[SubscriberID]*subscription),
		byPkt: make(map[uint32][]*subscription),
	}
}

// Subscribe registers cb for packetID at priority (0 highest, delivers
// first; ties break by registration order). Ids are strictly increasing
// and never reused.
func (r *Registry) Subscribe(name string, packetID uint32, priority int, cb Callback) SubscriberID {
	id := SubscriberID(r.nextID.Add(1))
	sub := &subscription{id: id, name: name, packetID: packetID, priority: priority, cb: cb}
	sub.enabled.Store(true)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = sub
	list := append(r.byPkt[packetID], sub)
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	r.byPkt[packetID] = list
	return id
}

// Unsubscribe removes id. Idempotent: a missing id returns false with no
// side effect.
func (r *Registry) Unsubscribe(id SubscriberID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)

	list := r.byPkt[sub.packetID]
	for i, s := range list {
		if s.id == id {
			r.byPkt[sub.packetID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	return true
}

// Enable toggles delivery for id without removing it from the registry.
func (r *Registry) Enable(id SubscriberID, flag bool) bool {
	r.mu.RLock()
	sub, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	sub.enabled.Store(flag)
	return true
}

// Distribute delivers pkt to every enabled subscriber of its packet id, in
// strict priority order (ties by registration order), and returns the
// delivered count. A panicking callback is recovered, counted against that
// subscription and the registry's global failure counter, and never
// aborts delivery to the remaining subscribers.
func (r *Registry) Distribute(pkt *packet.Packet) int {
	r.mu.RLock()
	list := r.byPkt[pkt.ID()]
	snapshot := make([]*subscription, len(list))
	copy(snapshot, list)
	r.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		if !sub.enabled.Load() {
			continue
		}
		if r.invoke(sub, pkt) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) invoke(sub *subscription, pkt *packet.Packet) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			sub.drops.Add(1)
			r.failures.Add(1)
			nlog.Warningf("registry: subscriber %q (id %d) panicked delivering packet id %d: %v",
				sub.name, sub.id, pkt.ID(), rec)
			ok = false
		}
	}()
	sub.cb(pkt)
	return true
}

// DeliveryFailures returns the global count of panicking callback invocations.
func (r *Registry) DeliveryFailures() int64 { return r.failures.Load() }

// SubscriberDrops returns how many times id's callback has panicked.
func (r *Registry) SubscriberDrops(id SubscriberID) (int64, bool) {
	r.mu.RLock()
	sub, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return sub.drops.Load(), true
}

// Count returns the number of subscriptions registered for packetID.
func (r *Registry) Count(packetID uint32) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPkt[packetID])
}
