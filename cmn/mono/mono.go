// Package mono provides a monotonic clock helper for duration bookkeeping.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since package init, monotonic within
// a single process run. Never compare values across processes.
func NanoTime() int64 { return time.Since(start).Nanoseconds() }

// Since is a convenience wrapper around NanoTime for duration bookkeeping.
func Since(ns int64) time.Duration { return time.Duration(NanoTime() - ns) }
