/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package router_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/memsys"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/router"
)

func buildPacket(t *testing.T, mm *memsys.MMSA, id uint32, flags packet.Flag) *packet.Packet {
	t.Helper()
	pkt, err := packet.Build(mm, packet.Header{ID: id, Sequence: 1, Flags: flags}, []byte{1, 2, 3, 4})
	require.NoError(t, err)
	return pkt
}

func TestSimpleRouteDelivers(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 64)
	reg := registry.New()

	var wg sync.WaitGroup
	wg.Add(1)
	reg.Subscribe("sub", 1, 0, func(pkt *packet.Packet) { wg.Done() })

	cfg := router.DefaultConfig()
	cfg.WorkerThreads = 1
	r := router.New(cfg, reg)
	r.Start()
	defer r.Stop()

	pkt := buildPacket(t, mm, 1, 0)
	require.NoError(t, r.Route(pkt, router.PriorityNormal))

	waitTimeout(t, &wg, time.Second)
	// the router releases the packet once delivery completes
}

func TestPriorityPreemption(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 256)
	reg := registry.New()

	var mu sync.Mutex
	var order []router.Priority

	recordFor := func(p router.Priority) registry.Callback {
		return func(pkt *packet.Packet) {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
		}
	}

	cfg := router.DefaultConfig()
	cfg.WorkerThreads = 1
	cfg.BatchSize = 2
	r := router.New(cfg, reg)

	reg.Subscribe("crit", 10, 0, recordFor(router.PriorityCritical))
	reg.Subscribe("low", 20, 0, recordFor(router.PriorityLow))

	for i := 0; i < 4; i++ {
		require.NoError(t, r.Route(buildPacket(t, mm, 20, 0), router.PriorityLow))
	}
	require.NoError(t, r.Route(buildPacket(t, mm, 10, 0), router.PriorityCritical))

	r.Start()
	defer r.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, router.PriorityCritical, order[0], "critical must preempt ahead of the already-queued low batch")
	// the router releases each packet once delivered
}

func TestBackPressureQueueFull(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 256)
	reg := registry.New()

	cfg := router.DefaultConfig()
	cfg.QueueSize = 2
	cfg.WorkerThreads = 0 // 0 means the default count; Start is never called, so no worker drains: a stalled pool
	r := router.New(cfg, reg)

	var pkts []*packet.Packet
	for i := 0; i < 2; i++ {
		p := buildPacket(t, mm, 1, 0)
		pkts = append(pkts, p)
		require.NoError(t, r.Route(p, router.PriorityNormal))
	}

	overflow := buildPacket(t, mm, 1, 0)
	defer overflow.Release()
	err := r.Route(overflow, router.PriorityNormal)
	assert.ErrorIs(t, err, cos.ErrQueueFull)

	assert.Equal(t, 2, r.QueueDepth(router.PriorityNormal))

	for _, p := range pkts {
		p.Release()
	}
}

func TestRouteAfterStopFails(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 16)
	reg := registry.New()
	r := router.New(router.DefaultConfig(), reg)
	r.Start()
	r.Stop()

	pkt := buildPacket(t, mm, 1, 0)
	defer pkt.Release()
	err := r.Route(pkt, router.PriorityNormal)
	assert.ErrorIs(t, err, cos.ErrRouterStopped)
}

func TestRouteAutoInfersPriority(t *testing.T) {
	mm := memsys.New("t", memsys.DefaultClasses, 64)
	reg := registry.New()
	r := router.New(router.DefaultConfig(), reg)

	p := buildPacket(t, mm, 1, packet.FlagPriority)
	defer p.Release()
	require.NoError(t, r.RouteAuto(p))
	assert.Equal(t, 1, r.QueueDepth(router.PriorityHigh))
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for delivery")
	}
}
