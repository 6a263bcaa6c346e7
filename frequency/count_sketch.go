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

package frequency

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

// CountSketch estimates element frequencies with signed counters: each
// row adds or subtracts one depending on a second sign hash, and the
// estimate is the median over rows. Unlike the count-min sketch the
// estimate is unbiased, but it can undershoot the true frequency.
type CountSketch struct {
	numArrays int
	length    int
	hasher    common.Hasher32
	seeds     []uint64
	signSeeds []uint64
	counters  []int64 // row-major, numArrays x length
}

// NewCountSketch creates a sketch of numArrays counter arrays of the
// given length.
func NewCountSketch(numArrays, length int) (*CountSketch, error) {
	if numArrays < 1 {
		return nil, fmt.Errorf("at least one counter array is required")
	}
	if length < 1 {
		return nil, fmt.Errorf("the length of the counter array cannot be less than 1")
	}
	if uint64(numArrays)*uint64(length) > maxSketchCells {
		return nil, fmt.Errorf("deviation is too small: not enough counters")
	}

	rng := rand.New(rand.NewSource(int64(internal.DefaultUpdateSeed)))
	seeds := make([]uint64, numArrays)
	signSeeds := make([]uint64, numArrays)
	for i := range seeds {
		seeds[i] = rng.Uint64()
		signSeeds[i] = rng.Uint64()
	}

	return &CountSketch{
		numArrays: numArrays,
		length:    length,
		hasher:    common.Murmur3Hasher32{},
		seeds:     seeds,
		signSeeds: signSeeds,
		counters:  make([]int64, numArrays*length),
	}, nil
}

// NewCountSketchFromError sizes the sketch for a target absolute
// deviation (as a fraction of stream length) at the given error rate.
func NewCountSketchFromError(deviation, errRate float64) (*CountSketch, error) {
	numArrays, length, err := dimensionsFromError(deviation, errRate)
	if err != nil {
		return nil, err
	}
	return NewCountSketch(numArrays, length)
}

// Add registers one occurrence of a byte datum.
func (cs *CountSketch) Add(datum []byte) {
	for row := range cs.seeds {
		cs.counters[cs.cell(row, datum)] += cs.sign(row, datum)
	}
}

// AddString registers one occurrence of a string datum.
func (cs *CountSketch) AddString(datum string) {
	cs.Add([]byte(datum))
}

// Frequency estimates how many times datum was added: the median of
// its sign-corrected row counters, clamped to zero from below.
func (cs *CountSketch) Frequency(datum []byte) uint64 {
	estimates := make([]int64, cs.numArrays)
	for row := range cs.seeds {
		estimates[row] = cs.sign(row, datum) * cs.counters[cs.cell(row, datum)]
	}
	sort.Slice(estimates, func(i, j int) bool { return estimates[i] < estimates[j] })

	var median int64
	mid := cs.numArrays / 2
	if cs.numArrays%2 == 1 {
		median = estimates[mid]
	} else {
		median = (estimates[mid-1] + estimates[mid]) / 2
	}
	if median < 0 {
		return 0
	}
	return uint64(median)
}

// FrequencyString estimates how many times a string datum was added.
func (cs *CountSketch) FrequencyString(datum string) uint64 {
	return cs.Frequency([]byte(datum))
}

// NumArrays returns the number of counter arrays.
func (cs *CountSketch) NumArrays() int {
	return cs.numArrays
}

// Len returns the total number of counters.
func (cs *CountSketch) Len() int {
	return cs.numArrays * cs.length
}

// SizeBytes returns the byte footprint of the counters.
func (cs *CountSketch) SizeBytes() int {
	return 8 * cs.numArrays * cs.length
}

// String describes the sketch configuration.
func (cs *CountSketch) String() string {
	return fmt.Sprintf("<CountSketch (%d x %d)>", cs.numArrays, cs.length)
}

func (cs *CountSketch) cell(row int, datum []byte) int {
	return row*cs.length + int(cs.hasher.Hash32(datum, cs.seeds[row])%uint32(cs.length))
}

func (cs *CountSketch) sign(row int, datum []byte) int64 {
	if cs.hasher.Hash32(datum, cs.signSeeds[row])&1 == 1 {
		return 1
	}
	return -1
}
