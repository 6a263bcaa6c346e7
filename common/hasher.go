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

// Package common holds the pieces shared by every sketch family: the
// seeded 32-bit hash contract and a few math helpers.
package common

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/twmb/murmur3"
	"github.com/zeebo/xxh3"
)

// Hasher32 maps a byte representation of an item to a 32-bit value.
// The mapping must be deterministic for a given (datum, seed) pair and
// must depend on the seed, so that independent hash functions can be
// derived from one implementation.
type Hasher32 interface {
	Hash32(datum []byte, seed uint64) uint32
}

// Murmur3Hasher32 is the default Hasher32, backed by MurmurHash3.
type Murmur3Hasher32 struct{}

func (Murmur3Hasher32) Hash32(datum []byte, seed uint64) uint32 {
	return murmur3.SeedSum32(uint32(seed)^uint32(seed>>32), datum)
}

// XXHasher32 is a Hasher32 backed by XXH64. XXH64 has no seed input of
// its own here, so the seed is folded in as an 8-byte prefix.
type XXHasher32 struct{}

func (XXHasher32) Hash32(datum []byte, seed uint64) uint32 {
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], seed)
	d := xxhash.New()
	_, _ = d.Write(prefix[:])
	_, _ = d.Write(datum)
	return uint32(d.Sum64())
}

// XXH3Hasher32 is a Hasher32 backed by XXH3, which takes a native
// 64-bit seed.
type XXH3Hasher32 struct{}

func (XXH3Hasher32) Hash32(datum []byte, seed uint64) uint32 {
	return uint32(xxh3.HashSeed(datum, seed))
}
