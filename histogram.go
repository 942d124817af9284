// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.
package irqlat

import (
	"iter"
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// MaxMicroseconds is the number of 1µs histogram buckets; latencies of one
// second and more count as missed deadlines.
const MaxMicroseconds = 1_000_000

// Histogram accumulates interrupt latencies with 1µs resolution. The zero
// value is not usable, use [NewHistogram] instead.
//
// A Histogram is not safe for concurrent use: it is owned by the measurement
// while running and handed over afterwards.
type Histogram struct {
	buckets  []uint64
	missed   uint64
	observed uint64
}

// NewHistogram returns a new, empty Histogram.
func NewHistogram() *Histogram {
	return &Histogram{buckets: make([]uint64, MaxMicroseconds)}
}

// RecordTicks records the latency between the start and now tick counts of a
// clock running at clockHz. The tick counter is allowed to have wrapped once
// between start and now.
func (h *Histogram) RecordTicks(start, now, clockHz uint32) {
	h.observed++
	if clockHz == 0 {
		h.missed++
		return
	}
	var elapsed uint32
	if now < start {
		elapsed = (math.MaxUint32 - start) + now
	} else {
		elapsed = now - start
	}
	us := uint64(elapsed) * 1_000_000 / uint64(clockHz)
	if us >= MaxMicroseconds {
		h.missed++
		return
	}
	h.buckets[us]++
}

// Missed returns the number of latencies of one second or more.
func (h *Histogram) Missed() uint64 { return h.missed }

// Observed returns the number of recorded latencies, including missed ones.
func (h *Histogram) Observed() uint64 { return h.observed }

// Buckets returns an iterator over the non-empty buckets in ascending order,
// producing the latency in µs and its count. The iterator can be used
// multiple times.
func (h *Histogram) Buckets() iter.Seq2[uint, uint64] {
	return func(yield func(uint, uint64) bool) {
		for us, count := range h.buckets {
			if count == 0 {
				continue
			}
			if !yield(uint(us), count) {
				return
			}
		}
	}
}

// Summary of the recorded (non-missed) latencies, in µs.
type Summary struct {
	Count int64
	Mean  float64
	P50   int64
	P90   int64
	P99   int64
	P999  int64
	Max   int64
}

// Summary returns percentiles of the recorded latencies. As it works on a
// HDR histogram with 3 significant figures, the percentiles of latencies
// above 2ms are approximations.
func (h *Histogram) Summary() Summary {
	hdr := hdrhistogram.New(1, MaxMicroseconds, 3)
	for us, count := range h.Buckets() {
		_ = hdr.RecordValues(int64(us), int64(count))
	}
	if hdr.TotalCount() == 0 {
		return Summary{}
	}
	return Summary{
		Count: hdr.TotalCount(),
		Mean:  hdr.Mean(),
		P50:   hdr.ValueAtQuantile(50),
		P90:   hdr.ValueAtQuantile(90),
		P99:   hdr.ValueAtQuantile(99),
		P999:  hdr.ValueAtQuantile(99.9),
		Max:   hdr.Max(),
	}
}
