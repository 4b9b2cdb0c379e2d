/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package processor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signalpath/telepipe/xstats"
)

// RedisStatsSink periodically snapshots a statistics registry into Redis
// hashes, one per field path, keyed "<prefix>:<path>" - the externally
// observable counterpart to the in-process xstats.Collector, for
// deployments that read derived statistics from Redis instead of scraping
// Prometheus.
type RedisStatsSink struct {
	client *redis.Client
	stats  *xstats.Registry
	prefix string

	stopCh chan struct{}
}

func NewRedisStatsSink(addr, prefix string, stats *xstats.Registry) *RedisStatsSink {
	return &RedisStatsSink{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		stats:  stats,
		prefix: prefix,
		stopCh: make(chan struct{}),
	}
}

// Run periodically (every interval) writes every field's latest snapshot
// to Redis; blocks until Stop is called.
func (s *RedisStatsSink) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.flush(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *RedisStatsSink) flush(ctx context.Context) {
	for path, snap := range s.stats.SnapshotAll() {
		key := fmt.Sprintf("%s:%s", s.prefix, path)
		values := map[string]interface{}{
			"count":   snap.Count,
			"sum":     snap.Sum,
			"mean":    snap.Mean,
			"min":     snap.Min,
			"max":     snap.Max,
			"stddev":  snap.StdDev,
			"rate_hz": snap.RateHz,
		}
		if snap.Windowed {
			values["median"] = snap.Median
			for p, v := range snap.Percentiles {
				values["p"+strconv.FormatFloat(p, 'f', -1, 64)] = v
			}
		}
		s.client.HSet(ctx, key, values)
	}
}

func (s *RedisStatsSink) Stop() {
	close(s.stopCh)
	s.client.Close()
}
