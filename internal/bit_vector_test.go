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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitVectorSetGetClear(t *testing.T) {
	v := NewBitVector(100)
	assert.Equal(t, 100, v.Len())
	assert.Equal(t, 13, v.SizeBytes())

	assert.False(t, v.Get(42))
	v.Set(42)
	assert.True(t, v.Get(42))
	assert.False(t, v.Get(41))
	assert.False(t, v.Get(43))

	v.Clear(42)
	assert.False(t, v.Get(42))
}

func TestBitVectorToggle(t *testing.T) {
	v := NewBitVector(8)
	v.Toggle(3)
	assert.True(t, v.Get(3))
	v.Toggle(3)
	assert.False(t, v.Get(3))
}

func TestBitVectorCountReset(t *testing.T) {
	v := NewBitVector(64)
	assert.Equal(t, 0, v.Count())

	for _, i := range []int{0, 7, 8, 31, 63} {
		v.Set(i)
	}
	assert.Equal(t, 5, v.Count())

	v.Set(7)
	assert.Equal(t, 5, v.Count())

	v.Reset()
	assert.Equal(t, 0, v.Count())
	assert.False(t, v.Get(7))
}
