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
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shrivastavaStream is the 15-element stream of the q-digest worked
// example, reused here so the two sketches can be compared on the same
// data.
var shrivastavaStream = []uint64{0, 2, 2, 2, 2, 3, 3, 3, 3, 3, 3, 4, 5, 6, 7}

func TestRandomSamplingInvalidConstruction(t *testing.T) {
	_, err := NewRandomSampling[uint64](16, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewRandomSampling[uint64](1, 5, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewRandomSampling[uint64](16, 5, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewRandomSampling[uint64](16, 5, maxHeight+1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewRandomSamplingWithRand[uint64](16, 5, 3, nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	for _, epsilon := range []float64{0, 1, -0.5, 2, math.NaN()} {
		_, err = NewRandomSamplingFromError[uint64](epsilon)
		assert.ErrorIs(t, err, ErrInvalidParameter, "epsilon %v", epsilon)
	}
}

func TestRandomSamplingString(t *testing.T) {
	rs, err := NewRandomSampling[uint64](16, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, "<RandomSampling (height: 3, buffers: 16, capacity: 5)>", rs.String())
}

func TestRandomSamplingFixedBuffers(t *testing.T) {
	rs, err := NewRandomSampling[uint64](16, 5, 3)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), rs.N())
	assert.True(t, rs.IsEmpty())
	assert.Equal(t, 16, rs.NumBuffers())

	for i := uint64(0); i < 20; i++ {
		rs.Update(i)
	}

	assert.Equal(t, uint64(20), rs.N())
	assert.False(t, rs.IsEmpty())
	assert.Equal(t, 16, rs.NumBuffers(), "buffer count is fixed for the lifetime")
	assert.Equal(t, 3, rs.Height())
	assert.Equal(t, 5, rs.Capacity())
}

func TestRandomSamplingSizeBytes(t *testing.T) {
	rs, err := NewRandomSampling[uint64](16, 3, 3)
	require.NoError(t, err)

	expected := 8*16*3 + 1*16*3 + 4*16
	assert.Equal(t, expected, rs.SizeBytes())

	// Footprint is fixed at construction.
	for i := uint64(0); i < 100; i++ {
		rs.Update(i)
	}
	assert.Equal(t, expected, rs.SizeBytes())
}

func TestRandomSamplingQueriesShrivastavaExample(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](16, 5, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	// 15 elements fit in three level-0 buffers, so no collapse happens
	// and every query below is exact.
	for _, element := range shrivastavaStream {
		rs.Update(element)
	}

	median, err := rs.QuantileQuery(0.5)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), median)

	percentile85, err := rs.QuantileQuery(0.85)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), percentile85)

	rank, err := rs.InverseQuantileQuery(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rank)

	rank, err = rs.InverseQuantileQuery(5)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), rank)

	inInterval, err := rs.IntervalQuery(3, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), inInterval)
}

func TestRandomSamplingQueryErrors(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](4, 2, 3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = rs.QuantileQuery(0.5)
	assert.Error(t, err, "quantile of an empty sketch is undefined")

	rs.Update(7)

	_, err = rs.QuantileQuery(-0.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = rs.QuantileQuery(1.1)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = rs.IntervalQuery(9, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestRandomSamplingCollapsePreservesWeight(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](2, 4, 5, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	// Both buffers fill at eight elements; the ninth forces a collapse
	// of the two level-0 buffers into one level-1 buffer.
	for i := uint64(0); i < 9; i++ {
		rs.Update(i)
	}

	weight, err := rs.InverseQuantileQuery(math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), weight, "collapse must preserve represented weight")
}

func TestRandomSamplingCompress(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](2, 4, 5, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	// Exactly fills both level-0 buffers.
	for i := uint64(0); i < 8; i++ {
		rs.Update(i)
	}

	rs.Compress()

	// The collapse keeps four of the eight samples at double weight:
	// the represented weight is unchanged, but the rank of 5 is now an
	// even approximation instead of the exact count.
	weight, err := rs.InverseQuantileQuery(math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), weight)
	assert.Equal(t, uint64(8), rs.N())

	below, err := rs.InverseQuantileQuery(5)
	require.NoError(t, err)
	assert.Contains(t, []uint64{4, 6}, below)

	// With a single half-full level-1 buffer left there is nothing to
	// collapse; a second pass changes nothing.
	rs.Compress()
	weight, err = rs.InverseQuantileQuery(math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), weight)
}

func TestRandomSamplingWeightInvariant(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](8, 10, 10, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(99))
	for i := 0; i < 1000; i++ {
		rs.Update(uint64(rnd.Intn(1 << 20)))
	}

	weight, err := rs.InverseQuantileQuery(math.MaxUint64)
	require.NoError(t, err)
	assert.Equal(t, rs.N(), weight)
}

func TestRandomSamplingInverseQuantileMonotone(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[uint64](6, 8, 8, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(12))
	for i := 0; i < 500; i++ {
		rs.Update(uint64(rnd.Intn(256)))
	}

	prev := uint64(0)
	for v := uint64(0); v <= 256; v++ {
		rank, err := rs.InverseQuantileQuery(v)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rank, prev)
		prev = rank
	}
}

func TestRandomSamplingReproducible(t *testing.T) {
	build := func() *RandomSampling[uint64] {
		rs, err := NewRandomSamplingWithRand[uint64](4, 5, 6, rand.New(rand.NewSource(1234)))
		require.NoError(t, err)
		rnd := rand.New(rand.NewSource(5678))
		for i := 0; i < 400; i++ {
			rs.Update(uint64(rnd.Intn(10000)))
		}
		return rs
	}

	first, second := build(), build()
	for _, q := range []float64{0, 0.25, 0.5, 0.75, 0.95, 1} {
		v1, err := first.QuantileQuery(q)
		require.NoError(t, err)
		v2, err := second.QuantileQuery(q)
		require.NoError(t, err)
		assert.Equal(t, v1, v2, "fixed seed must reproduce quantile %v", q)
	}
	for v := uint64(0); v < 10000; v += 500 {
		r1, err := first.InverseQuantileQuery(v)
		require.NoError(t, err)
		r2, err := second.InverseQuantileQuery(v)
		require.NoError(t, err)
		assert.Equal(t, r1, r2)
	}
}

func TestRandomSamplingMedianAccuracy(t *testing.T) {
	rs, err := NewRandomSamplingFromErrorWithRand[uint64](0.01, rand.New(rand.NewSource(21)))
	require.NoError(t, err)

	const n = 10000
	rnd := rand.New(rand.NewSource(22))
	for _, v := range rnd.Perm(n) {
		rs.Update(uint64(v))
	}

	median, err := rs.QuantileQuery(0.5)
	require.NoError(t, err)
	assert.InDelta(t, float64(n)/2, float64(median), float64(n)*0.05)

	rank, err := rs.InverseQuantileQuery(n / 4)
	require.NoError(t, err)
	assert.InDelta(t, float64(n)/4, float64(rank), float64(n)*0.05)
}

func TestRandomSamplingFromErrorSizing(t *testing.T) {
	rs, err := NewRandomSamplingFromError[uint64](0.1)
	require.NoError(t, err)
	assert.Equal(t, 4, rs.Height())
	assert.Equal(t, 6, rs.NumBuffers())
	assert.Equal(t, 5, rs.Capacity())

	tighter, err := NewRandomSamplingFromError[uint64](0.01)
	require.NoError(t, err)
	assert.Greater(t, tighter.SizeBytes(), rs.SizeBytes(),
		"smaller target error must buy a bigger sketch")
}

func TestRandomSamplingOrderedStrings(t *testing.T) {
	rs, err := NewRandomSamplingWithRand[string](8, 4, 4, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	words := []string{"ant", "bee", "cat", "dog", "eel", "fox", "gnu", "hen", "ibex"}
	for _, w := range words {
		rs.Update(w)
	}

	median, err := rs.QuantileQuery(0.5)
	require.NoError(t, err)
	assert.Equal(t, "eel", median)

	rank, err := rs.InverseQuantileQuery("dog")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), rank)
}
