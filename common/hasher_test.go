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

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashersDeterministic(t *testing.T) {
	datum := []byte("probabilistic")
	for _, hasher := range []Hasher32{Murmur3Hasher32{}, XXHasher32{}, XXH3Hasher32{}} {
		assert.Equal(t, hasher.Hash32(datum, 9001), hasher.Hash32(datum, 9001))
	}
}

func TestHashersSeedDependent(t *testing.T) {
	datum := []byte("probabilistic")
	for _, hasher := range []Hasher32{Murmur3Hasher32{}, XXHasher32{}, XXH3Hasher32{}} {
		assert.NotEqual(t, hasher.Hash32(datum, 9001), hasher.Hash32(datum, 9002))
	}
}

func TestHashersDatumDependent(t *testing.T) {
	for _, hasher := range []Hasher32{Murmur3Hasher32{}, XXHasher32{}, XXH3Hasher32{}} {
		assert.NotEqual(t, hasher.Hash32([]byte("red"), 9001), hasher.Hash32([]byte("green"), 9001))
	}
}

func TestMurmur3HasherFoldsHighSeedBits(t *testing.T) {
	datum := []byte("probabilistic")
	hasher := Murmur3Hasher32{}
	assert.NotEqual(t, hasher.Hash32(datum, 0), hasher.Hash32(datum, 1<<32))
}
