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

// Package frequency provides sketches that estimate how often an
// element occurs in a stream: the count-min sketch (biased high, never
// low) and the count sketch (unbiased, signed counters).
package frequency

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

// maxSketchCells bounds numArrays*length so the flat counter slice
// stays addressable.
const maxSketchCells = 1 << 33

// CountMinSketch estimates element frequencies with numArrays rows of
// length counters each. Estimates are never below the true frequency;
// the overshoot is bounded by (e/length) * stream length with
// probability 1 - (1/e)^numArrays.
type CountMinSketch struct {
	numArrays int
	length    int
	hasher    common.Hasher32
	seeds     []uint64
	counters  []uint64 // row-major, numArrays x length
}

// NewCountMinSketch creates a sketch of numArrays counter arrays of
// the given length.
func NewCountMinSketch(numArrays, length int) (*CountMinSketch, error) {
	if numArrays < 1 {
		return nil, fmt.Errorf("at least one counter array is required")
	}
	if length < 1 {
		return nil, fmt.Errorf("the length of the counter array cannot be less than 1")
	}
	if uint64(numArrays)*uint64(length) > maxSketchCells {
		return nil, fmt.Errorf("deviation is too small: not enough counters")
	}

	// One derived seed per row, so the rows probe independently.
	rng := rand.New(rand.NewSource(int64(internal.DefaultUpdateSeed)))
	seeds := make([]uint64, numArrays)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	return &CountMinSketch{
		numArrays: numArrays,
		length:    length,
		hasher:    common.Murmur3Hasher32{},
		seeds:     seeds,
		counters:  make([]uint64, numArrays*length),
	}, nil
}

// NewCountMinSketchFromError sizes the sketch for a target absolute
// deviation (as a fraction of stream length) at the given error rate.
func NewCountMinSketchFromError(deviation, errRate float64) (*CountMinSketch, error) {
	numArrays, length, err := dimensionsFromError(deviation, errRate)
	if err != nil {
		return nil, err
	}
	return NewCountMinSketch(numArrays, length)
}

// dimensionsFromError derives (rows, width) from the standard
// count-min trade-off: width = ceil(e/deviation), rows = ceil(ln(1/errRate)).
func dimensionsFromError(deviation, errRate float64) (int, int, error) {
	if errRate <= 0 || errRate >= 1 {
		return 0, 0, fmt.Errorf("error rate has to be in (0, 1)")
	}
	if deviation <= 0 || deviation >= 1 {
		return 0, 0, fmt.Errorf("deviation has to be in (0, 1)")
	}
	numArrays := int(math.Ceil(math.Log(1 / errRate)))
	if numArrays < 1 {
		numArrays = 1
	}
	length := int(math.Ceil(math.E / deviation))
	return numArrays, length, nil
}

// Add registers one occurrence of a byte datum.
func (cms *CountMinSketch) Add(datum []byte) {
	cms.AddN(datum, 1)
}

// AddN registers n occurrences of a byte datum.
func (cms *CountMinSketch) AddN(datum []byte, n uint64) {
	for row, seed := range cms.seeds {
		cms.counters[cms.cell(row, datum, seed)] += n
	}
}

// AddString registers one occurrence of a string datum.
func (cms *CountMinSketch) AddString(datum string) {
	cms.Add([]byte(datum))
}

// Frequency estimates how many times datum was added: the minimum of
// its row counters.
func (cms *CountMinSketch) Frequency(datum []byte) uint64 {
	estimate := uint64(math.MaxUint64)
	for row, seed := range cms.seeds {
		if c := cms.counters[cms.cell(row, datum, seed)]; c < estimate {
			estimate = c
		}
	}
	return estimate
}

// FrequencyString estimates how many times a string datum was added.
func (cms *CountMinSketch) FrequencyString(datum string) uint64 {
	return cms.Frequency([]byte(datum))
}

// NumArrays returns the number of counter arrays.
func (cms *CountMinSketch) NumArrays() int {
	return cms.numArrays
}

// Len returns the total number of counters.
func (cms *CountMinSketch) Len() int {
	return cms.numArrays * cms.length
}

// SizeBytes returns the byte footprint of the counters.
func (cms *CountMinSketch) SizeBytes() int {
	return 8 * cms.numArrays * cms.length
}

// String describes the sketch configuration.
func (cms *CountMinSketch) String() string {
	return fmt.Sprintf("<CountMinSketch (%d x %d)>", cms.numArrays, cms.length)
}

func (cms *CountMinSketch) cell(row int, datum []byte, seed uint64) int {
	return row*cms.length + int(cms.hasher.Hash32(datum, seed)%uint32(cms.length))
}
