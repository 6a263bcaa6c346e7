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

package cardinality

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

const (
	minPrecision = 4
	maxPrecision = 16
)

// HyperLogLog estimates large cardinalities with a relative error of
// about 1.04/sqrt(2^precision), in one byte per register. The 32-bit
// hash splits into a register index (precision bits) and a tail whose
// leading-zero rank feeds the register.
type HyperLogLog struct {
	precision int
	hasher    common.Hasher32
	seed      uint64
	registers []uint8
}

// NewHyperLogLog creates an estimator with 2^precision registers,
// using the default hasher and seed.
func NewHyperLogLog(precision int) (*HyperLogLog, error) {
	return NewHyperLogLogWithHasher(precision, common.Murmur3Hasher32{}, internal.DefaultUpdateSeed)
}

// NewHyperLogLogWithHasher creates an estimator with a caller-supplied
// hash adapter and seed.
func NewHyperLogLogWithHasher(precision int, hasher common.Hasher32, seed uint64) (*HyperLogLog, error) {
	if precision < minPrecision || precision > maxPrecision {
		return nil, fmt.Errorf("precision has to be in range %d...%d", minPrecision, maxPrecision)
	}
	if hasher == nil {
		return nil, fmt.Errorf("no hasher provided")
	}
	return &HyperLogLog{
		precision: precision,
		hasher:    hasher,
		seed:      seed,
		registers: make([]uint8, 1<<precision),
	}, nil
}

// Add registers a byte datum.
func (hll *HyperLogLog) Add(datum []byte) {
	h := hll.hasher.Hash32(datum, hll.seed)
	index := h >> (32 - hll.precision)
	tail := h << hll.precision

	rank := uint8(32 - hll.precision + 1)
	if tail != 0 {
		rank = uint8(bits.LeadingZeros32(tail) + 1)
	}
	if rank > hll.registers[index] {
		hll.registers[index] = rank
	}
}

// AddString registers a string datum.
func (hll *HyperLogLog) AddString(datum string) {
	hll.Add([]byte(datum))
}

// Count estimates the number of distinct elements added, applying the
// standard small-range (linear counting) and 32-bit large-range
// corrections.
func (hll *HyperLogLog) Count() uint64 {
	m := float64(len(hll.registers))

	sum := 0.0
	zeros := 0
	for _, register := range hll.registers {
		sum += common.InvPow2(int(register))
		if register == 0 {
			zeros++
		}
	}
	estimate := hll.alpha() * m * m / sum

	if estimate <= 2.5*m && zeros > 0 {
		estimate = m * math.Log(m/float64(zeros))
	} else if estimate > (1<<32)/30.0 {
		estimate = -(1 << 32) * math.Log(1-estimate/(1<<32))
	}
	return uint64(math.Round(estimate))
}

// Merge folds other into hll, register by register. Both estimators
// must share the same precision and seed.
func (hll *HyperLogLog) Merge(other *HyperLogLog) error {
	if other == nil || other.precision != hll.precision {
		return fmt.Errorf("precisions have to be equal")
	}
	if other.seed != hll.seed {
		return fmt.Errorf("seeds have to be equal")
	}
	for i, register := range other.registers {
		if register > hll.registers[i] {
			hll.registers[i] = register
		}
	}
	return nil
}

// Precision returns the configured precision.
func (hll *HyperLogLog) Precision() int {
	return hll.precision
}

// Len returns the number of registers.
func (hll *HyperLogLog) Len() int {
	return len(hll.registers)
}

// SizeBytes returns the byte footprint of the registers.
func (hll *HyperLogLog) SizeBytes() int {
	return len(hll.registers)
}

// String describes the estimator configuration.
func (hll *HyperLogLog) String() string {
	return fmt.Sprintf("<HyperLogLog (length: %d, precision: %d)>", len(hll.registers), hll.precision)
}

func (hll *HyperLogLog) alpha() float64 {
	switch len(hll.registers) {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	}
	return 0.7213 / (1 + 1.079/float64(len(hll.registers)))
}
