// Package xstats implements the statistics engine: per-field incremental
// atomic summaries, an optional bounded sliding window with percentile
// interpolation, and a Prometheus collector over both.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package xstats

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/signalpath/telepipe/cmn/mono"
)

// DefaultPercentiles is xstats's default windowed-percentile set.
var DefaultPercentiles = []float64{25, 50, 75, 90, 95, 99}

const (
	DefaultWindowSize   = 1000
	DefaultWindowMs     = 60000
	DefaultUpdateIntMs  = 1000
)

// sample is one windowed observation.
type sample struct {
	value float64
	atNs  int64
}

// Snapshot is a point-in-time read of a field's statistics.
type Snapshot struct {
	Path string

	Count      int64
	Sum        float64
	SumSquares float64
	Min        float64
	Max        float64
	Current    float64
	Previous   float64
	LastUpdate int64

	Mean     float64
	Variance float64
	StdDev   float64
	Range    float64
	RateHz   float64

	Windowed    bool
	WindowMean  float64
	WindowMin   float64
	WindowMax   float64
	WindowStd   float64
	Median      float64
	Percentiles map[float64]float64
}

// Field holds one field path's accumulators. The hot path (Update) updates
// the atomics and takes a short mutex to append to (and evict from) the
// window when one is enabled; derived statistics and the window summary are
// recomputed on a periodic tick, not on every sample.
type Field struct {
	path string

	count      atomic.Int64
	sum        atomic.Uint64 // math.Float64bits
	sumSquares atomic.Uint64
	min        atomic.Uint64
	max        atomic.Uint64
	current    atomic.Uint64
	previous   atomic.Uint64
	lastNs     atomic.Int64
	prevNs     atomic.Int64

	mu          sync.Mutex
	windowed    bool
	windowSize  int
	windowMs    int64
	percentiles []float64
	window      []sample

	derived atomic.Pointer[Snapshot]
}

func newField(path string) *Field {
	f := &Field{path: path}
	f.min.Store(math.Float64bits(math.Inf(1)))
	f.max.Store(math.Float64bits(math.Inf(-1)))
	f.derived.Store(&Snapshot{Path: path})
	return f
}

// EnableWindow turns on bounded sliding-window tracking for this field.
func (f *Field) EnableWindow(size int, windowMs int64, percentiles []float64) {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	if len(percentiles) == 0 {
		percentiles = DefaultPercentiles
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windowed = true
	f.windowSize = size
	f.windowMs = windowMs
	f.percentiles = percentiles
}

// Update feeds one sample into the field. Non-numeric samples (NaN) are
// silently skipped and do not increment count.
func (f *Field) Update(value float64) {
	if math.IsNaN(value) {
		return
	}
	now := mono.NanoTime()

	f.count.Add(1)
	addFloat64(&f.sum, value)
	addFloat64(&f.sumSquares, value*value)
	casMin(&f.min, value)
	casMax(&f.max, value)

	f.previous.Store(f.current.Load())
	f.current.Store(math.Float64bits(value))
	f.prevNs.Store(f.lastNs.Load())
	f.lastNs.Store(now)

	f.mu.Lock()
	windowed := f.windowed
	if windowed {
		f.window = append(f.window, sample{value: value, atNs: now})
		f.evictLocked(now)
	}
	f.mu.Unlock()
}

func (f *Field) evictLocked(now int64) {
	cutoff := now - f.windowMs*int64(1e6)
	i := 0
	for i < len(f.window) && f.window[i].atNs < cutoff {
		i++
	}
	if i > 0 {
		f.window = f.window[i:]
	}
	if over := len(f.window) - f.windowSize; over > 0 {
		f.window = f.window[over:]
	}
}

// Recompute derives mean/variance/stddev/range/rate from the atomics (and,
// if windowed, recomputes the window summary) and stores a fresh Snapshot.
// Called periodically (default 1s) by the owning Registry, never inline
// per-sample.
func (f *Field) Recompute() Snapshot {
	count := f.count.Load()
	sum := loadFloat64(&f.sum)
	sumSq := loadFloat64(&f.sumSquares)
	min := loadFloat64(&f.min)
	max := loadFloat64(&f.max)
	current := loadFloat64(&f.current)
	previous := loadFloat64(&f.previous)
	lastNs := f.lastNs.Load()
	prevNs := f.prevNs.Load()

	snap := Snapshot{
		Path: f.path, Count: count, Sum: sum, SumSquares: sumSq,
		Min: min, Max: max, Current: current, Previous: previous, LastUpdate: lastNs,
	}
	if count > 0 {
		snap.Mean = sum / float64(count)
		snap.Variance = sumSq/float64(count) - snap.Mean*snap.Mean
		if snap.Variance < 0 {
			snap.Variance = 0
		}
		snap.StdDev = math.Sqrt(snap.Variance)
		snap.Range = max - min
	}
	if prevNs > 0 && lastNs > prevNs {
		snap.RateHz = 1e9 / float64(lastNs-prevNs)
	}

	f.mu.Lock()
	if f.windowed {
		snap.Windowed = true
		f.recomputeWindowLocked(&snap)
	}
	f.mu.Unlock()

	f.derived.Store(&snap)
	return snap
}

func (f *Field) recomputeWindowLocked(snap *Snapshot) {
	n := len(f.window)
	if n == 0 {
		return
	}
	sorted := make([]float64, n)
	var sum float64
	wmin, wmax := math.Inf(1), math.Inf(-1)
	for i, s := range f.window {
		sorted[i] = s.value
		sum += s.value
		if s.value < wmin {
			wmin = s.value
		}
		if s.value > wmax {
			wmax = s.value
		}
	}
	sortFloat64s(sorted)

	mean := sum / float64(n)
	var sqDiff float64
	for _, v := range sorted {
		d := v - mean
		sqDiff += d * d
	}
	snap.WindowMean = mean
	snap.WindowMin = wmin
	snap.WindowMax = wmax
	snap.WindowStd = math.Sqrt(sqDiff / float64(n))
	snap.Median = percentile(sorted, 50)

	snap.Percentiles = make(map[float64]float64, len(f.percentiles))
	for _, p := range f.percentiles {
		snap.Percentiles[p] = percentile(sorted, p)
	}
}

// Latest returns the most recently computed Snapshot without forcing a
// recompute.
func (f *Field) Latest() Snapshot {
	return *f.derived.Load()
}

// Reset zeroes this field's atomics and clears its window.
func (f *Field) Reset() {
	f.count.Store(0)
	f.sum.Store(0)
	f.sumSquares.Store(0)
	f.min.Store(math.Float64bits(math.Inf(1)))
	f.max.Store(math.Float64bits(math.Inf(-1)))
	f.current.Store(0)
	f.previous.Store(0)
	f.lastNs.Store(0)
	f.prevNs.Store(0)

	f.mu.Lock()
	f.window = f.window[:0]
	f.mu.Unlock()

	f.derived.Store(&Snapshot{Path: f.path, Min: math.Inf(1), Max: math.Inf(-1)})
}

// percentile linearly interpolates p (0-100) over a pre-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= n {
		hi = n - 1
	}
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func sortFloat64s(s []float64) {
	// insertion sort is fine: windows are bounded (default 1000) and this
	// runs at most once per update-interval tick, not per sample.
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func loadFloat64(a *atomic.Uint64) float64 { return math.Float64frombits(a.Load()) }

func addFloat64(a *atomic.Uint64, delta float64) {
	for {
		old := a.Load()
		new := math.Float64bits(math.Float64frombits(old) + delta)
		if a.CompareAndSwap(old, new) {
			return
		}
	}
}

func casMin(a *atomic.Uint64, v float64) {
	for {
		old := a.Load()
		if v >= math.Float64frombits(old) {
			return
		}
		if a.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

func casMax(a *atomic.Uint64, v float64) {
	for {
		old := a.Load()
		if v <= math.Float64frombits(old) {
			return
		}
		if a.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}
