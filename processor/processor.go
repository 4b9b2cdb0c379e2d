// Package processor implements the packet processor: a registry subscriber
// that turns a raw packet into a structured result by running the field
// extractor, transformer, and statistics engine in sequence, with optional
// result caching and async submission.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package processor

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/signalpath/telepipe/cmn/mono"
	"github.com/signalpath/telepipe/cmn/nlog"
	"github.com/signalpath/telepipe/fieldmap"
	"github.com/signalpath/telepipe/packet"
	"github.com/signalpath/telepipe/transform"
	"github.com/signalpath/telepipe/xstats"
)

// atomic64 is a small Add/Load/Max wrapper over atomic.Int64, used for the
// processor's duration-sum/peak/processed-count counters.
type atomic64 struct{ v atomic.Int64 }

func (a *atomic64) Add(n int64)  { a.v.Add(n) }
func (a *atomic64) Load() int64  { return a.v.Load() }
func (a *atomic64) Max(n int64) {
	for {
		cur := a.v.Load()
		if n <= cur {
			return
		}
		if a.v.CompareAndSwap(cur, n) {
			return
		}
	}
}

const DefaultMaxCacheSize = 1000

// FieldSelection is one packet-id's extract/transform field lists; an
// empty list means "all fields".
type FieldSelection struct {
	ExtractList   []string
	TransformList []string
}

type Config struct {
	EnableExtraction bool
	EnableTransform  bool
	EnableStatistics bool
	Parallel         bool
	CacheResults     bool
	MaxCacheSize     int
	Selections       map[uint32]FieldSelection
}

func DefaultConfig() Config {
	return Config{
		EnableExtraction: true,
		EnableTransform:  true,
		EnableStatistics: true,
		Parallel:         true,
		CacheResults:     false,
		MaxCacheSize:     DefaultMaxCacheSize,
		Selections:       make(map[uint32]FieldSelection),
	}
}

// FieldOutcome pairs an extracted value with its (possibly transformed)
// result and any error from either stage.
type FieldOutcome struct {
	Extracted    fieldmap.Value
	ExtractErr   error
	Transformed  fieldmap.Value
	TransformErr error
}

// Result is process()'s structured outcome: every step's failure is
// captured here rather than propagated - processing never panics out of
// Process.
type Result struct {
	PacketID   uint32
	Fields     map[string]FieldOutcome
	DurationNs int64
	FromCache  bool
}

// ResultCallback receives every processed Result, cache hits included.
type ResultCallback func(Result)

// Processor is one registry subscriber. Safe for concurrent Process calls.
type Processor struct {
	cfg       Config
	extractor *fieldmap.Extractor
	transformer *transform.Transformer
	stats     *xstats.Registry

	mu        sync.Mutex
	callbacks []ResultCallback

	cacheMu sync.Mutex
	cache   map[uint64]Result
	order   []uint64 // FIFO eviction order

	durationSum atomic64
	peakNs      atomic64
	processed   atomic64

	pool chan func()
	wg   sync.WaitGroup
}

func New(cfg Config, extractor *fieldmap.Extractor, transformer *transform.Transformer, stats *xstats.Registry, workers int) *Processor {
	if cfg.MaxCacheSize <= 0 {
		cfg.MaxCacheSize = DefaultMaxCacheSize
	}
	if cfg.Selections == nil {
		cfg.Selections = make(map[uint32]FieldSelection)
	}
	p := &Processor{
		cfg:         cfg,
		extractor:   extractor,
		transformer: transformer,
		stats:       stats,
		cache:       make(map[uint64]Result),
	}
	if cfg.Parallel {
		if workers <= 0 {
			workers = 2
		}
		p.pool = make(chan func(), 4096)
		for i := 0; i < workers; i++ {
			p.wg.Add(1)
			go p.workerLoop()
		}
	}
	return p
}

func (p *Processor) workerLoop() {
	defer p.wg.Done()
	for fn := range p.pool {
		fn()
	}
}

// RegisterCallback adds a result callback invoked after every Process call.
func (p *Processor) RegisterCallback(cb ResultCallback) {
	p.mu.Lock()
	p.callbacks = append(p.callbacks, cb)
	p.mu.Unlock()
}

// Process is the registry.Callback wired into Subscribe: it never panics
// out, recovering at the callback boundary.
func (p *Processor) Process(pkt *packet.Packet) {
	if p.cfg.Parallel {
		pkt.Retain()
		select {
		case p.pool <- func() { defer pkt.Release(); p.processSync(pkt) }:
		default:
			pkt.Release() // pool saturated: drop rather than block the router
		}
		return
	}
	p.processSync(pkt)
}

func (p *Processor) processSync(pkt *packet.Packet) {
	defer func() {
		if r := recover(); r != nil {
			nlog.Warningf("processor: recovered panic processing packet id %d: %v", pkt.ID(), r)
		}
	}()

	start := mono.NanoTime()

	if p.cfg.CacheResults {
		key := xxhash.Sum64(pkt.Data())
		if cached, ok := p.lookupCache(key); ok {
			cached.FromCache = true
			p.notify(cached)
			return
		}
		result := p.run(pkt)
		result.DurationNs = mono.NanoTime() - start
		p.storeCache(key, result)
		p.recordDuration(result.DurationNs)
		p.notify(result)
		return
	}

	result := p.run(pkt)
	result.DurationNs = mono.NanoTime() - start
	p.recordDuration(result.DurationNs)
	p.notify(result)
}

func (p *Processor) run(pkt *packet.Packet) Result {
	id := pkt.ID()
	sel := p.cfg.Selections[id]

	fields := make(map[string]FieldOutcome)
	if p.cfg.EnableExtraction {
		var extracted map[string]fieldmap.Result
		if len(sel.ExtractList) == 0 {
			extracted = p.extractor.ExtractAll(pkt)
		} else {
			extracted = p.extractor.ExtractMany(pkt, sel.ExtractList)
		}
		for path, r := range extracted {
			fields[path] = FieldOutcome{Extracted: r.Value, ExtractErr: r.Err}
		}
	}

	if p.cfg.EnableTransform {
		transformList := sel.TransformList
		for path, outcome := range fields {
			if outcome.ExtractErr != nil {
				continue
			}
			if len(transformList) > 0 && !contains(transformList, path) {
				continue
			}
			tr := p.transformer.Transform(path, outcome.Extracted)
			outcome.Transformed = tr.Value
			outcome.TransformErr = tr.Err
			fields[path] = outcome
		}
	}

	if p.cfg.EnableStatistics && p.stats != nil {
		for path, outcome := range fields {
			if outcome.ExtractErr != nil {
				continue
			}
			v := outcome.Extracted
			if outcome.TransformErr == nil && p.cfg.EnableTransform {
				v = outcome.Transformed
			}
			if f, ok := v.ToFloat64(); ok {
				p.stats.Update(path, f)
			}
		}
	}

	return Result{PacketID: id, Fields: fields}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (p *Processor) lookupCache(key uint64) (Result, bool) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	r, ok := p.cache[key]
	return r, ok
}

func (p *Processor) storeCache(key uint64, result Result) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if _, exists := p.cache[key]; !exists {
		p.order = append(p.order, key)
	}
	p.cache[key] = result
	for len(p.order) > p.cfg.MaxCacheSize {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.cache, oldest)
	}
}

func (p *Processor) recordDuration(ns int64) {
	p.processed.Add(1)
	p.durationSum.Add(ns)
	p.peakNs.Max(ns)
}

func (p *Processor) notify(r Result) {
	p.mu.Lock()
	cbs := make([]ResultCallback, len(p.callbacks))
	copy(cbs, p.callbacks)
	p.mu.Unlock()
	for _, cb := range cbs {
		cb(r)
	}
}

// MeanDurationNs and PeakDurationNs are process()'s rolling average and
// peak processing time.
func (p *Processor) MeanDurationNs() int64 {
	n := p.processed.Load()
	if n == 0 {
		return 0
	}
	return p.durationSum.Load() / n
}

func (p *Processor) PeakDurationNs() int64 { return p.peakNs.Load() }

// Close waits for in-flight parallel work to drain.
func (p *Processor) Close() {
	if p.pool != nil {
		close(p.pool)
		p.wg.Wait()
	}
}
