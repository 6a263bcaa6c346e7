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

// Package membership provides probabilistic set-membership filters.
// False positives are possible, false negatives are not (until
// elements are removed from a counting filter).
package membership

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

// BloomFilter is the classic bit-array membership filter with k
// independent hash functions derived from seeded MurmurHash3.
type BloomFilter struct {
	length    int
	numHashes int
	hasher    common.Hasher32
	seeds     []uint64
	bits      *internal.BitVector
}

// NewBloomFilter creates a filter of length bits probed by numHashes
// hash functions. The length is rounded up to a whole byte.
func NewBloomFilter(length, numHashes int) (*BloomFilter, error) {
	return newBloomConfig(length, numHashes)
}

// NewBloomFilterFromCapacity sizes the filter for an expected number of
// distinct elements at the given false-positive rate.
func NewBloomFilterFromCapacity(capacity int, fpRate float64) (*BloomFilter, error) {
	length, numHashes, err := bloomDimensions(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return newBloomConfig(length, numHashes)
}

func newBloomConfig(length, numHashes int) (*BloomFilter, error) {
	length, numHashes, seeds, err := bloomParams(length, numHashes)
	if err != nil {
		return nil, err
	}
	return &BloomFilter{
		length:    length,
		numHashes: numHashes,
		hasher:    common.Murmur3Hasher32{},
		seeds:     seeds,
		bits:      internal.NewBitVector(length),
	}, nil
}

// bloomParams validates the raw dimensions and derives one hash seed
// per probe from the default seed, the way the count-min rows derive
// theirs.
func bloomParams(length, numHashes int) (int, int, []uint64, error) {
	if length < 1 {
		return 0, 0, nil, fmt.Errorf("filter length can't be 0 or negative")
	}
	if numHashes < 1 {
		return 0, 0, nil, fmt.Errorf("at least one hash function is required")
	}
	length = (length + 7) &^ 7

	rng := rand.New(rand.NewSource(int64(internal.DefaultUpdateSeed)))
	seeds := make([]uint64, numHashes)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}
	return length, numHashes, seeds, nil
}

func bloomDimensions(capacity int, fpRate float64) (int, int, error) {
	if capacity < 1 {
		return 0, 0, fmt.Errorf("capacity has to be positive")
	}
	if fpRate <= 0 || fpRate >= 1 {
		return 0, 0, fmt.Errorf("false positive rate has to be in (0, 1)")
	}
	ln2 := math.Ln2
	length := int(math.Ceil(-float64(capacity) * math.Log(fpRate) / (ln2 * ln2)))
	numHashes := int(-math.Log2(fpRate))
	if numHashes < 1 {
		numHashes = 1
	}
	return length, numHashes, nil
}

// Add inserts a byte datum into the filter.
func (bf *BloomFilter) Add(datum []byte) {
	for _, seed := range bf.seeds {
		bf.bits.Set(bf.position(datum, seed))
	}
}

// AddString inserts a string datum into the filter.
func (bf *BloomFilter) AddString(datum string) {
	bf.Add([]byte(datum))
}

// Test reports whether datum may have been added. A true answer is
// wrong with the configured false-positive probability; a false answer
// is always right.
func (bf *BloomFilter) Test(datum []byte) bool {
	for _, seed := range bf.seeds {
		if !bf.bits.Get(bf.position(datum, seed)) {
			return false
		}
	}
	return true
}

// TestString reports whether a string datum may have been added.
func (bf *BloomFilter) TestString(datum string) bool {
	return bf.Test([]byte(datum))
}

// Count estimates the number of distinct elements added, from the fill
// ratio of the bit array.
func (bf *BloomFilter) Count() uint64 {
	return fillRatioEstimate(bf.bits.Count(), bf.length, bf.numHashes)
}

// fillRatioEstimate turns the number of occupied cells of a k-hash
// filter into a distinct-count estimate, -m/k * ln(1 - X/m).
func fillRatioEstimate(occupied, length, numHashes int) uint64 {
	if occupied == 0 {
		return 0
	}
	if occupied == length {
		// Saturated: the estimate diverges, m is the usable floor.
		return uint64(length)
	}
	m := float64(length)
	estimate := -m / float64(numHashes) * math.Log(1-float64(occupied)/m)
	return uint64(math.Round(estimate))
}

// Len returns the filter length in bits.
func (bf *BloomFilter) Len() int {
	return bf.length
}

// NumHashes returns the number of hash probes per element.
func (bf *BloomFilter) NumHashes() int {
	return bf.numHashes
}

// SizeBytes returns the byte footprint of the bit array.
func (bf *BloomFilter) SizeBytes() int {
	return bf.bits.SizeBytes()
}

// String describes the filter configuration.
func (bf *BloomFilter) String() string {
	return fmt.Sprintf("<BloomFilter (length: %d, hashes: %d)>", bf.length, bf.numHashes)
}

func (bf *BloomFilter) position(datum []byte, seed uint64) int {
	return int(bf.hasher.Hash32(datum, seed) % uint32(bf.length))
}
