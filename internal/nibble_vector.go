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

// NibbleVector is a fixed-length vector of 4-bit saturating counters
// packed two per byte. Increments stick at 15, decrements stick at 0.
type NibbleVector struct {
	field  []byte
	length int
}

// NewNibbleVector creates a vector of length counters, all zero.
func NewNibbleVector(length int) *NibbleVector {
	return &NibbleVector{
		field:  make([]byte, (length+1)>>1),
		length: length,
	}
}

// Len returns the number of counters.
func (v *NibbleVector) Len() int {
	return v.length
}

// SizeBytes returns the byte footprint of the packed field.
func (v *NibbleVector) SizeBytes() int {
	return len(v.field)
}

// Value returns the value of counter i.
func (v *NibbleVector) Value(i int) uint8 {
	b := v.field[i>>1]
	if i&1 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

// Inc increments counter i, saturating at 15.
func (v *NibbleVector) Inc(i int) {
	c := v.Value(i)
	if c == 15 {
		return
	}
	v.set(i, c+1)
}

// Dec decrements counter i, saturating at 0.
func (v *NibbleVector) Dec(i int) {
	c := v.Value(i)
	if c == 0 {
		return
	}
	v.set(i, c-1)
}

// NonZero returns the number of counters with a non-zero value.
func (v *NibbleVector) NonZero() int {
	n := 0
	for i := 0; i < v.length; i++ {
		if v.Value(i) != 0 {
			n++
		}
	}
	return n
}

// Reset zeroes every counter.
func (v *NibbleVector) Reset() {
	for i := range v.field {
		v.field[i] = 0
	}
}

func (v *NibbleVector) set(i int, c uint8) {
	if i&1 == 0 {
		v.field[i>>1] = v.field[i>>1]&0xf0 | c
	} else {
		v.field[i>>1] = v.field[i>>1]&0x0f | c<<4
	}
}
