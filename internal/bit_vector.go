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

package internal

import "math/bits"

// BitVector is a fixed-length vector of single-bit cells packed eight
// per byte.
type BitVector struct {
	field  []byte
	length int
}

// NewBitVector creates a vector of length bits, all cleared.
func NewBitVector(length int) *BitVector {
	return &BitVector{
		field:  make([]byte, (length+7)>>3),
		length: length,
	}
}

// Len returns the number of bit cells.
func (v *BitVector) Len() int {
	return v.length
}

// SizeBytes returns the byte footprint of the packed field.
func (v *BitVector) SizeBytes() int {
	return len(v.field)
}

// Set sets bit i to 1.
func (v *BitVector) Set(i int) {
	v.field[i>>3] |= 1 << (i & 7)
}

// Clear sets bit i to 0.
func (v *BitVector) Clear(i int) {
	v.field[i>>3] &^= 1 << (i & 7)
}

// Toggle flips bit i.
func (v *BitVector) Toggle(i int) {
	v.field[i>>3] ^= 1 << (i & 7)
}

// Get reports whether bit i is set.
func (v *BitVector) Get(i int) bool {
	return v.field[i>>3]&(1<<(i&7)) != 0
}

// Count returns the number of set bits.
func (v *BitVector) Count() int {
	n := 0
	for _, b := range v.field {
		n += bits.OnesCount8(b)
	}
	return n
}

// Reset clears every bit.
func (v *BitVector) Reset() {
	for i := range v.field {
		v.field[i] = 0
	}
}
