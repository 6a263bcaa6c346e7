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

package membership

import (
	"fmt"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

// CountingBloomFilter is a bloom filter over 4-bit saturating counters
// instead of bits, which buys element removal. Removing an element that
// was never added can introduce false negatives; Remove therefore
// refuses data that does not test positive.
type CountingBloomFilter struct {
	length    int
	numHashes int
	hasher    common.Hasher32
	seeds     []uint64
	counters  *internal.NibbleVector
}

// NewCountingBloomFilter creates a filter of length counters probed by
// numHashes hash functions. The length is rounded up to a whole byte of
// the underlying bit array.
func NewCountingBloomFilter(length, numHashes int) (*CountingBloomFilter, error) {
	length, numHashes, seeds, err := bloomParams(length, numHashes)
	if err != nil {
		return nil, err
	}
	return &CountingBloomFilter{
		length:    length,
		numHashes: numHashes,
		hasher:    common.Murmur3Hasher32{},
		seeds:     seeds,
		counters:  internal.NewNibbleVector(length),
	}, nil
}

// NewCountingBloomFilterFromCapacity sizes the filter for an expected
// number of distinct elements at the given false-positive rate.
func NewCountingBloomFilterFromCapacity(capacity int, fpRate float64) (*CountingBloomFilter, error) {
	length, numHashes, err := bloomDimensions(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return NewCountingBloomFilter(length, numHashes)
}

// Add inserts a byte datum into the filter.
func (cbf *CountingBloomFilter) Add(datum []byte) {
	for _, seed := range cbf.seeds {
		cbf.counters.Inc(cbf.position(datum, seed))
	}
}

// AddString inserts a string datum into the filter.
func (cbf *CountingBloomFilter) AddString(datum string) {
	cbf.Add([]byte(datum))
}

// Test reports whether datum may have been added.
func (cbf *CountingBloomFilter) Test(datum []byte) bool {
	for _, seed := range cbf.seeds {
		if cbf.counters.Value(cbf.position(datum, seed)) == 0 {
			return false
		}
	}
	return true
}

// TestString reports whether a string datum may have been added.
func (cbf *CountingBloomFilter) TestString(datum string) bool {
	return cbf.Test([]byte(datum))
}

// Remove deletes one occurrence of datum. It reports false, without
// touching the counters, when datum does not test positive.
func (cbf *CountingBloomFilter) Remove(datum []byte) bool {
	if !cbf.Test(datum) {
		return false
	}
	for _, seed := range cbf.seeds {
		cbf.counters.Dec(cbf.position(datum, seed))
	}
	return true
}

// RemoveString deletes one occurrence of a string datum.
func (cbf *CountingBloomFilter) RemoveString(datum string) bool {
	return cbf.Remove([]byte(datum))
}

// Count estimates the number of distinct elements present, from the
// ratio of non-zero counters.
func (cbf *CountingBloomFilter) Count() uint64 {
	return fillRatioEstimate(cbf.counters.NonZero(), cbf.length, cbf.numHashes)
}

// Len returns the number of counters.
func (cbf *CountingBloomFilter) Len() int {
	return cbf.length
}

// NumHashes returns the number of hash probes per element.
func (cbf *CountingBloomFilter) NumHashes() int {
	return cbf.numHashes
}

// SizeBytes returns the byte footprint of the counter array.
func (cbf *CountingBloomFilter) SizeBytes() int {
	return cbf.counters.SizeBytes()
}

// String describes the filter configuration.
func (cbf *CountingBloomFilter) String() string {
	return fmt.Sprintf("<CountingBloomFilter (length: %d, hashes: %d)>", cbf.length, cbf.numHashes)
}

func (cbf *CountingBloomFilter) position(datum []byte, seed uint64) int {
	return int(cbf.hasher.Hash32(datum, seed) % uint32(cbf.length))
}
