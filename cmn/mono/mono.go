// Package mono provides a monotonic nanosecond clock used for packet
// timestamps, router latency measurement, and statistics windows - always
// this instead of repeated time.Now().Sub() conversions on the hot path.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since process start on the
// monotonic clock. Not wall-clock time; only deltas between two NanoTime
// calls are meaningful.
func NanoTime() int64 { return time.Since(start).Nanoseconds() }

// Since is a convenience wrapper: nanoseconds elapsed since a prior NanoTime.
func Since(t int64) int64 { return NanoTime() - t }
