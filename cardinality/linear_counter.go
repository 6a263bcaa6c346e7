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

// Package cardinality provides distinct-count estimators of increasing
// sophistication: linear counting for small ranges, the
// Flajolet-Martin probabilistic counter, and HyperLogLog.
package cardinality

import (
	"fmt"
	"math"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

// LinearCounter estimates small cardinalities from the fill ratio of a
// single hashed bit array. Accurate while the array stays sparse; size
// it about ten times the expected cardinality.
type LinearCounter struct {
	hasher common.Hasher32
	seed   uint64
	bits   *internal.BitVector
}

// NewLinearCounter creates a counter with a bit array of length bits.
func NewLinearCounter(length int) (*LinearCounter, error) {
	if length < 1 {
		return nil, fmt.Errorf("counter length can't be 0 or negative")
	}
	return &LinearCounter{
		hasher: common.Murmur3Hasher32{},
		seed:   internal.DefaultUpdateSeed,
		bits:   internal.NewBitVector(length),
	}, nil
}

// Add registers a byte datum.
func (lc *LinearCounter) Add(datum []byte) {
	lc.bits.Set(int(lc.hasher.Hash32(datum, lc.seed) % uint32(lc.bits.Len())))
}

// AddString registers a string datum.
func (lc *LinearCounter) AddString(datum string) {
	lc.Add([]byte(datum))
}

// Count estimates the number of distinct elements added: -m * ln(Z/m)
// for Z empty cells out of m.
func (lc *LinearCounter) Count() uint64 {
	m := lc.bits.Len()
	zero := m - lc.bits.Count()
	if zero == 0 {
		// Saturated; m is all the counter can claim.
		return uint64(m)
	}
	return uint64(math.Round(-float64(m) * math.Log(float64(zero)/float64(m))))
}

// Len returns the bit array length.
func (lc *LinearCounter) Len() int {
	return lc.bits.Len()
}

// SizeBytes returns the byte footprint of the bit array.
func (lc *LinearCounter) SizeBytes() int {
	return lc.bits.SizeBytes()
}

// String describes the counter configuration.
func (lc *LinearCounter) String() string {
	return fmt.Sprintf("<LinearCounter (length: %d)>", lc.bits.Len())
}
