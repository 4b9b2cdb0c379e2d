// Package dispatcher implements the packet dispatcher: owns the
// subscription registry, the router, and every registered source, wiring
// packet-ready events into the router with back-pressure-aware dropping.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package dispatcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalpath/telepipe/cmn/cos"
	"github.com/signalpath/telepipe/cmn/nlog"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/registry"
	"github.com/signalpath/telepipe/router"
	"github.com/signalpath/telepipe/source"
)

const (
	DefaultBackPressureThreshold = 8000
	DefaultMaxSources            = 100
	statsSignalEvery             = 1000
)

type Config struct {
	BackPressureEnabled   bool
	BackPressureThreshold int
	MaxSources            int
}

func DefaultConfig() Config {
	return Config{
		BackPressureEnabled:   true,
		BackPressureThreshold: DefaultBackPressureThreshold,
		MaxSources:            DefaultMaxSources,
	}
}

// Dispatcher owns the registry, router, and sources, and is the sole
// bridge between a source's packet-ready stream and the router.
type Dispatcher struct {
	cfg Config
	Reg *registry.Registry
	Rtr *router.Router

	mu      sync.Mutex
	sources map[string]source.Source

	received      atomic.Int64
	dropped       atomic.Int64
	backPressure  atomic.Int64
	statsUpdated  chan struct{}

	// limiter smooths recovery after a back-pressure threshold crossing:
	// once crossed, further crossing signals are rate-limited rather than
	// firing on every single receive while queues stay over threshold.
	limiter *rate.Limiter

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, reg *registry.Registry, rtr *router.Router) *Dispatcher {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = DefaultMaxSources
	}
	if cfg.BackPressureThreshold <= 0 {
		cfg.BackPressureThreshold = DefaultBackPressureThreshold
	}
	return &Dispatcher{
		cfg:          cfg,
		Reg:          reg,
		Rtr:          rtr,
		sources:      make(map[string]source.Source),
		statsUpdated: make(chan struct{}, 1),
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1), // first crossing signals at once, then at most one per second
		stopCh:       make(chan struct{}),
	}
}

// RegisterSource adds src. Fails on a duplicate name or once MaxSources is
// reached.
func (d *Dispatcher) RegisterSource(src source.Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.sources[src.Name()]; exists {
		return fmt.Errorf("dispatcher: source %q already registered", src.Name())
	}
	if len(d.sources) >= d.cfg.MaxSources {
		return fmt.Errorf("dispatcher: max sources (%d) reached", d.cfg.MaxSources)
	}
	d.sources[src.Name()] = src
	return nil
}

// Start starts the router, then every registered source, then begins
// draining each source's packet-ready stream.
func (d *Dispatcher) Start() error {
	d.Rtr.Start()

	d.mu.Lock()
	sources := make([]source.Source, 0, len(d.sources))
	for _, s := range d.sources {
		sources = append(sources, s)
	}
	d.mu.Unlock()

	for _, s := range sources {
		if err := s.Start(); err != nil {
			return fmt.Errorf("dispatcher: starting source %q: %w", s.Name(), err)
		}
		d.wg.Add(1)
		go d.pump(s)
	}
	return nil
}

// Stop reverses Start: sources first, then the router.
func (d *Dispatcher) Stop() {
	close(d.stopCh)

	d.mu.Lock()
	sources := make([]source.Source, 0, len(d.sources))
	for _, s := range d.sources {
		sources = append(sources, s)
	}
	d.mu.Unlock()

	for _, s := range sources {
		if err := s.Stop(); err != nil {
			nlog.Warningf("dispatcher: stopping source %q: %v", s.Name(), err)
		}
	}
	d.wg.Wait()
	d.Rtr.Stop()
}

func (d *Dispatcher) pump(s source.Source) {
	defer d.wg.Done()
	for {
		select {
		case pkt, ok := <-s.Packets():
			if !ok {
				return
			}
			d.onPacketReady(pkt)
		case err, ok := <-s.Errors():
			if ok {
				nlog.Warningf("dispatcher: source %q error: %v", s.Name(), err)
			}
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) onPacketReady(pkt *packet.Packet) {
	n := d.received.Add(1)

	if n%statsSignalEvery == 0 {
		select {
		case d.statsUpdated <- struct{}{}:
		default:
		}
	}

	if d.cfg.BackPressureEnabled && d.Rtr.TotalQueueDepth() > d.cfg.BackPressureThreshold {
		d.backPressure.Add(1)
		d.signalBackPressure()
		pkt.Release()
		return
	}

	if err := d.Rtr.RouteAuto(pkt); err != nil {
		d.dropped.Add(1)
		if err != cos.ErrQueueFull && err != cos.ErrRouterStopped {
			nlog.Warningf("dispatcher: route failed: %v", err)
		}
		// route() never transferred ownership on failure, so the base
		// reference handed to us by the source is still ours to release.
		pkt.Release()
	}

	if n%statsSignalEvery == 0 {
		select {
		case d.statsUpdated <- struct{}{}:
		default:
		}
	}
}

func (d *Dispatcher) signalBackPressure() {
	if d.limiter.Allow() {
		nlog.Warningf("dispatcher: back-pressure threshold (%d) crossed, dropping at ingest",
			d.cfg.BackPressureThreshold)
	}
}

// StatsUpdated signals once every 1000 receives.
func (d *Dispatcher) StatsUpdated() <-chan struct{} { return d.statsUpdated }

func (d *Dispatcher) Received() int64     { return d.received.Load() }
func (d *Dispatcher) Dropped() int64       { return d.dropped.Load() }
func (d *Dispatcher) BackPressure() int64  { return d.backPressure.Load() }
