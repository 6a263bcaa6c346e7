/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rank

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"time"

	"golang.org/x/exp/constraints"

	"github.com/pdsa/sketches-go/common"
)

// maxHeight bounds the buffer level so that the per-element weight
// 2^level always fits a uint64.
const maxHeight = 62

// Per-slot and per-buffer storage accounting used by SizeBytes: an
// element slot, its occupancy mark, and a buffer's level tag.
const (
	samplingElementSizeBytes = 8
	samplingMaskSizeBytes    = 1
	samplingLevelSizeBytes   = 4
)

// RandomSampling answers the same query family as QuantileDigest over
// an unbounded ordered domain, by keeping a fixed set of fixed-capacity
// sample buffers organized by weight level. Every element stored in a
// level-L buffer stands in for 2^L elements of the stream.
//
// Elements enter at level 0. When the structure runs out of room, the
// lowest level holding two full buffers is collapsed: the two buffers
// are merge-sorted and every second element is kept, starting from a
// randomly chosen offset, into a single buffer promoted one level up.
// The coin flip keeps the retained sample unbiased while the total
// represented weight is preserved exactly.
//
// The randomness is drawn from an injected *rand.Rand, so a fixed seed
// reproduces the exact same sketch state for a given input order.
type RandomSampling[T constraints.Ordered] struct {
	numBuffers int
	capacity   int
	height     int

	buffers [][]T
	levels  []int
	total   uint64
	rnd     *rand.Rand
}

// NewRandomSampling creates a sketch with numBuffers buffers of
// bufferCapacity elements each and the given maximum level. The random
// source is seeded from the clock; use NewRandomSamplingWithRand for
// reproducible behavior.
func NewRandomSampling[T constraints.Ordered](numBuffers, bufferCapacity, height int) (*RandomSampling[T], error) {
	return NewRandomSamplingWithRand[T](numBuffers, bufferCapacity, height, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRandomSamplingWithRand creates a sketch that draws its collapse
// randomness from rnd.
func NewRandomSamplingWithRand[T constraints.Ordered](numBuffers, bufferCapacity, height int, rnd *rand.Rand) (*RandomSampling[T], error) {
	if bufferCapacity < 1 {
		return nil, fmt.Errorf("%w: buffer capacity is too small", ErrInvalidParameter)
	}
	if numBuffers < 2 {
		return nil, fmt.Errorf("%w: too few buffers", ErrInvalidParameter)
	}
	if height < 1 || height > maxHeight {
		return nil, fmt.Errorf("%w: height out of range [1, %d]", ErrInvalidParameter, maxHeight)
	}
	if rnd == nil {
		return nil, fmt.Errorf("%w: no random source provided", ErrInvalidParameter)
	}

	buffers := make([][]T, numBuffers)
	for i := range buffers {
		buffers[i] = make([]T, 0, bufferCapacity)
	}
	return &RandomSampling[T]{
		numBuffers: numBuffers,
		capacity:   bufferCapacity,
		height:     height,
		buffers:    buffers,
		levels:     make([]int, numBuffers),
		rnd:        rnd,
	}, nil
}

// NewRandomSamplingFromError creates a sketch sized for a target
// relative rank error epsilon in (0, 1). A smaller epsilon buys more
// buffers and larger capacity.
func NewRandomSamplingFromError[T constraints.Ordered](epsilon float64) (*RandomSampling[T], error) {
	return NewRandomSamplingFromErrorWithRand[T](epsilon, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRandomSamplingFromErrorWithRand is NewRandomSamplingFromError with
// an injected random source.
func NewRandomSamplingFromErrorWithRand[T constraints.Ordered](epsilon float64, rnd *rand.Rand) (*RandomSampling[T], error) {
	if epsilon <= 0 || epsilon >= 1 || math.IsNaN(epsilon) {
		return nil, fmt.Errorf("%w: relative error must be in (0, 1): %v", ErrInvalidParameter, epsilon)
	}
	height := common.CeilLog2(1 / epsilon)
	if height < 1 {
		height = 1
	}
	if height > maxHeight {
		height = maxHeight
	}
	numBuffers := height + 2
	capacity := int(math.Ceil(1 / (2 * epsilon)))
	return NewRandomSamplingWithRand[T](numBuffers, capacity, height, rnd)
}

// Update inserts item. It never rejects an element: running out of
// buffer room triggers a collapse, and a stream that outgrows the
// configured height degrades sampling accuracy instead of failing.
func (rs *RandomSampling[T]) Update(item T) {
	rs.total++

	if i := rs.bufferWithSpaceAt(0); i >= 0 {
		rs.buffers[i] = append(rs.buffers[i], item)
		return
	}
	if i := rs.emptyBuffer(); i >= 0 {
		rs.levels[i] = 0
		rs.buffers[i] = append(rs.buffers[i], item)
		return
	}
	if rs.collapse() {
		i := rs.emptyBuffer()
		rs.levels[i] = 0
		rs.buffers[i] = append(rs.buffers[i], item)
		return
	}

	// The stream outgrew the configured height: no level owns two full
	// buffers. Halve the lowest full buffer in place and keep the new
	// element at whatever level has room.
	i := rs.anyBufferWithSpace()
	if i < 0 {
		rs.halveLowestFull()
		i = rs.anyBufferWithSpace()
	}
	rs.buffers[i] = append(rs.buffers[i], item)
}

// Compress frees a buffer by collapsing the lowest level that holds
// two full buffers. A no-op when no such level exists. Update runs the
// same collapse on demand, so calling Compress is never required; it
// trades sample resolution for insert headroom up front.
func (rs *RandomSampling[T]) Compress() {
	rs.collapse()
}

// collapse merges the two first full buffers at the lowest level that
// has at least two, leaving one of them empty. Reports whether a
// collapse happened.
func (rs *RandomSampling[T]) collapse() bool {
	for level := 0; level <= rs.height; level++ {
		first := -1
		for i := range rs.buffers {
			if rs.levels[i] != level || len(rs.buffers[i]) != rs.capacity {
				continue
			}
			if first < 0 {
				first = i
				continue
			}
			rs.collapsePair(first, i)
			return true
		}
	}
	return false
}

// collapsePair keeps half of a∪b in a, promoted one level, and empties b.
func (rs *RandomSampling[T]) collapsePair(a, b int) {
	combined := make([]T, 0, len(rs.buffers[a])+len(rs.buffers[b]))
	combined = append(combined, rs.buffers[a]...)
	combined = append(combined, rs.buffers[b]...)
	slices.Sort(combined)

	rs.buffers[a] = rs.alternate(combined, rs.buffers[a][:0])
	rs.levels[a] = rs.promoted(rs.levels[a])
	rs.buffers[b] = rs.buffers[b][:0]
}

// halveLowestFull subsamples the lowest-level full buffer in place,
// promoting it one level. Only reached when every buffer is full and no
// two share a level.
func (rs *RandomSampling[T]) halveLowestFull() {
	lowest := -1
	for i := range rs.buffers {
		if len(rs.buffers[i]) != rs.capacity {
			continue
		}
		if lowest < 0 || rs.levels[i] < rs.levels[lowest] {
			lowest = i
		}
	}
	sorted := append([]T(nil), rs.buffers[lowest]...)
	slices.Sort(sorted)
	rs.buffers[lowest] = rs.alternate(sorted, rs.buffers[lowest][:0])
	rs.levels[lowest] = rs.promoted(rs.levels[lowest])
}

// alternate keeps every second element of sorted, starting at a
// coin-flipped offset, appended into dst.
func (rs *RandomSampling[T]) alternate(sorted []T, dst []T) []T {
	for i := rs.rnd.Intn(2); i < len(sorted); i += 2 {
		dst = append(dst, sorted[i])
	}
	return dst
}

func (rs *RandomSampling[T]) promoted(level int) int {
	if level >= rs.height {
		return rs.height
	}
	return level + 1
}

func (rs *RandomSampling[T]) bufferWithSpaceAt(level int) int {
	for i := range rs.buffers {
		if rs.levels[i] == level && len(rs.buffers[i]) > 0 && len(rs.buffers[i]) < rs.capacity {
			return i
		}
	}
	return -1
}

func (rs *RandomSampling[T]) emptyBuffer() int {
	for i := range rs.buffers {
		if len(rs.buffers[i]) == 0 {
			return i
		}
	}
	return -1
}

// anyBufferWithSpace prefers the lowest-level buffer that has room.
func (rs *RandomSampling[T]) anyBufferWithSpace() int {
	best := -1
	for i := range rs.buffers {
		if len(rs.buffers[i]) >= rs.capacity {
			continue
		}
		if best < 0 || rs.levels[i] < rs.levels[best] {
			best = i
		}
	}
	return best
}

// QuantileQuery returns an approximate value v such that a q fraction
// of the stream is <= v. Samples from every buffer are merge-sorted and
// their weights accumulated in value order until the target rank is
// reached.
func (rs *RandomSampling[T]) QuantileQuery(q float64) (T, error) {
	var zero T
	if err := checkQuantile(q); err != nil {
		return zero, err
	}
	if rs.total == 0 {
		return zero, fmt.Errorf("operation is undefined for an empty sketch")
	}

	samples := rs.sortedSamples()
	target := q * float64(rs.retainedWeight())
	cum := uint64(0)
	for _, s := range samples {
		cum += s.weight
		if float64(cum) >= target {
			return s.value, nil
		}
	}
	return samples[len(samples)-1].value, nil
}

// InverseQuantileQuery returns the approximate number of stream
// elements smaller than value: the total weight of retained samples
// below it.
func (rs *RandomSampling[T]) InverseQuantileQuery(value T) (uint64, error) {
	rank := uint64(0)
	for i, buf := range rs.buffers {
		w := uint64(1) << rs.levels[i]
		for _, v := range buf {
			if v < value {
				rank += w
			}
		}
	}
	return rank, nil
}

// IntervalQuery returns the approximate number of stream elements in
// [lo, hi]: the total weight of retained samples inside the interval.
func (rs *RandomSampling[T]) IntervalQuery(lo, hi T) (uint64, error) {
	if lo > hi {
		return 0, fmt.Errorf("%w: interval bounds are reversed", ErrInvalidParameter)
	}
	count := uint64(0)
	for i, buf := range rs.buffers {
		w := uint64(1) << rs.levels[i]
		for _, v := range buf {
			if lo <= v && v <= hi {
				count += w
			}
		}
	}
	return count, nil
}

// N returns the number of elements ever added, independent of how many
// samples the collapses have retained.
func (rs *RandomSampling[T]) N() uint64 {
	return rs.total
}

// IsEmpty returns true if nothing has been added.
func (rs *RandomSampling[T]) IsEmpty() bool {
	return rs.total == 0
}

// NumBuffers returns the number of buffers, fixed at construction.
func (rs *RandomSampling[T]) NumBuffers() int {
	return rs.numBuffers
}

// Height returns the maximum buffer level.
func (rs *RandomSampling[T]) Height() int {
	return rs.height
}

// Capacity returns the per-buffer element capacity.
func (rs *RandomSampling[T]) Capacity() int {
	return rs.capacity
}

// SizeBytes returns the byte footprint of the sketch: element slots,
// per-slot occupancy marks and per-buffer level tags.
func (rs *RandomSampling[T]) SizeBytes() int {
	return samplingElementSizeBytes*rs.numBuffers*rs.capacity +
		samplingMaskSizeBytes*rs.numBuffers*rs.capacity +
		samplingLevelSizeBytes*rs.numBuffers
}

// String describes the sketch configuration.
func (rs *RandomSampling[T]) String() string {
	return fmt.Sprintf("<RandomSampling (height: %d, buffers: %d, capacity: %d)>",
		rs.height, rs.numBuffers, rs.capacity)
}

// retainedWeight is the stream count represented by the retained
// samples. It equals N exactly until a collapse is forced past the
// configured height.
func (rs *RandomSampling[T]) retainedWeight() uint64 {
	w := uint64(0)
	for i, buf := range rs.buffers {
		w += uint64(len(buf)) << rs.levels[i]
	}
	return w
}

type weightedSample[T any] struct {
	value  T
	weight uint64
}

func (rs *RandomSampling[T]) sortedSamples() []weightedSample[T] {
	out := make([]weightedSample[T], 0, rs.numBuffers*rs.capacity)
	for i, buf := range rs.buffers {
		w := uint64(1) << rs.levels[i]
		for _, v := range buf {
			out = append(out, weightedSample[T]{value: v, weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].value < out[j].value
	})
	return out
}

var _ Querier[uint64] = (*RandomSampling[uint64])(nil)
