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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomFilterInvalidConstruction(t *testing.T) {
	_, err := NewBloomFilter(0, 3)
	assert.Error(t, err)

	_, err = NewBloomFilter(100, 0)
	assert.Error(t, err)

	_, err = NewBloomFilterFromCapacity(0, 0.01)
	assert.Error(t, err)

	_, err = NewBloomFilterFromCapacity(1000, 0)
	assert.Error(t, err)

	_, err = NewBloomFilterFromCapacity(1000, 1)
	assert.Error(t, err)
}

func TestBloomFilterLengthRoundedToByte(t *testing.T) {
	bf, err := NewBloomFilter(10, 3)
	require.NoError(t, err)
	assert.Equal(t, 16, bf.Len())
	assert.Equal(t, 2, bf.SizeBytes())
}

func TestBloomFilterFromCapacity(t *testing.T) {
	bf, err := NewBloomFilterFromCapacity(1000, 0.02)
	require.NoError(t, err)

	// m = ceil(-n ln p / ln^2 2) = 8143, rounded up to a byte multiple.
	assert.Equal(t, 8144, bf.Len())
	assert.Equal(t, 5, bf.NumHashes())
}

func TestBloomFilterString(t *testing.T) {
	bf, err := NewBloomFilter(8000, 5)
	require.NoError(t, err)
	assert.Equal(t, "<BloomFilter (length: 8000, hashes: 5)>", fmt.Sprintf("%v", bf))
}

func TestBloomFilterTest(t *testing.T) {
	bf, err := NewBloomFilterFromCapacity(1000, 0.01)
	require.NoError(t, err)

	assert.False(t, bf.TestString("red"))

	bf.AddString("red")
	bf.AddString("green")
	bf.Add([]byte("blue"))

	assert.True(t, bf.TestString("red"))
	assert.True(t, bf.TestString("green"))
	assert.True(t, bf.Test([]byte("blue")))
	assert.False(t, bf.TestString("black"))
}

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	bf, err := NewBloomFilterFromCapacity(500, 0.02)
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		bf.AddString(fmt.Sprintf("element-%d", i))
	}
	for i := 0; i < 500; i++ {
		assert.True(t, bf.TestString(fmt.Sprintf("element-%d", i)))
	}
}

func TestBloomFilterFalsePositiveRate(t *testing.T) {
	bf, err := NewBloomFilterFromCapacity(1000, 0.02)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		bf.AddString(fmt.Sprintf("element-%d", i))
	}

	falsePositives := 0
	for i := 0; i < 10000; i++ {
		if bf.TestString(fmt.Sprintf("absent-%d", i)) {
			falsePositives++
		}
	}
	// 2% nominal rate with generous slack.
	assert.Less(t, falsePositives, 500)
}

func TestBloomFilterCount(t *testing.T) {
	bf, err := NewBloomFilterFromCapacity(1000, 0.01)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), bf.Count())

	for i := 0; i < 100; i++ {
		bf.AddString(fmt.Sprintf("element-%d", i))
	}
	assert.InDelta(t, 100, float64(bf.Count()), 5)

	// Adding duplicates does not move the estimate.
	for i := 0; i < 100; i++ {
		bf.AddString(fmt.Sprintf("element-%d", i))
	}
	assert.InDelta(t, 100, float64(bf.Count()), 5)
}
