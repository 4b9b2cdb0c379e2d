/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package xstats

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes every field's latest Snapshot as Prometheus gauges,
// following the custom-Collector idiom (Describe/Collect over a live map
// rather than pre-registered per-field metrics).
type Collector struct {
	reg    *Registry
	prefix string

	count   *prometheus.Desc
	mean    *prometheus.Desc
	min     *prometheus.Desc
	max     *prometheus.Desc
	stddev  *prometheus.Desc
	rate    *prometheus.Desc
	median  *prometheus.Desc
}

func NewCollector(reg *Registry, prefix string) *Collector {
	labels := []string{"path"}
	return &Collector{
		reg:    reg,
		prefix: prefix,
		count:  prometheus.NewDesc(prefix+"_field_count", "Sample count for a field path.", labels, nil),
		mean:   prometheus.NewDesc(prefix+"_field_mean", "Mean value for a field path.", labels, nil),
		min:    prometheus.NewDesc(prefix+"_field_min", "Minimum value for a field path.", labels, nil),
		max:    prometheus.NewDesc(prefix+"_field_max", "Maximum value for a field path.", labels, nil),
		stddev: prometheus.NewDesc(prefix+"_field_stddev", "Standard deviation for a field path.", labels, nil),
		rate:   prometheus.NewDesc(prefix+"_field_rate_hz", "Instantaneous sample rate for a field path.", labels, nil),
		median: prometheus.NewDesc(prefix+"_field_window_median", "Windowed median for a field path.", labels, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.count
	descs <- c.mean
	descs <- c.min
	descs <- c.max
	descs <- c.stddev
	descs <- c.rate
	descs <- c.median
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	for path, snap := range c.reg.SnapshotAll() {
		metrics <- prometheus.MustNewConstMetric(c.count, prometheus.CounterValue, float64(snap.Count), path)
		metrics <- prometheus.MustNewConstMetric(c.mean, prometheus.GaugeValue, snap.Mean, path)
		metrics <- prometheus.MustNewConstMetric(c.min, prometheus.GaugeValue, snap.Min, path)
		metrics <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, snap.Max, path)
		metrics <- prometheus.MustNewConstMetric(c.stddev, prometheus.GaugeValue, snap.StdDev, path)
		metrics <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, snap.RateHz, path)
		if snap.Windowed {
			metrics <- prometheus.MustNewConstMetric(c.median, prometheus.GaugeValue, snap.Median, path)
		}
	}
}
