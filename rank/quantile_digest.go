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

package rank

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"

	"github.com/pdsa/sketches-go/common"
	"github.com/pdsa/sketches-go/internal"
)

const (
	// maxRangeBits is the widest supported domain, with or without
	// hashing: values are addressed by 32-bit leaf indices.
	maxRangeBits = 32

	// digestNodeSizeBytes is the fixed per-node storage accounting:
	// node identifier, range bounds and count.
	digestNodeSizeBytes = 16
)

// QuantileDigest is a q-digest: a compressing summary of a stream of
// integers from the domain [0, 2^k - 1], organized as a sparse complete
// binary tree over the domain. Inserts land on leaves; compression
// folds lightly-loaded sibling pairs into their parent, so the digest
// keeps detail where the distribution is heavy and coarse buckets where
// it is sparse.
//
// The tree is not stored as linked nodes. A node is a single entry in a
// map keyed by its heap index (root = 1, leaf for value v = 2^k + v);
// parent and sibling are index arithmetic. A node that would have count
// zero is simply absent.
type QuantileDigest struct {
	rangeInBits int
	compression uint64

	hashing bool
	hasher  common.Hasher32
	seed    uint64

	nodes map[uint64]uint64 // heap index -> count
	total uint64
}

// NewQuantileDigest creates a digest over the domain [0, 2^rangeInBits - 1].
// compressionFactor trades accuracy for space: a higher factor merges
// more aggressively, giving a smaller digest and a larger rank error.
func NewQuantileDigest(rangeInBits, compressionFactor int) (*QuantileDigest, error) {
	return newQuantileDigest(rangeInBits, compressionFactor, nil, 0)
}

// NewQuantileDigestWithHashing creates a digest over the full 32-bit
// hashed domain using the default hasher and seed. Inserted data is
// hashed before it reaches the tree, which lifts the integer-domain
// restriction at the price of losing the value ordering.
func NewQuantileDigestWithHashing(compressionFactor int) (*QuantileDigest, error) {
	return NewQuantileDigestWithHasher(maxRangeBits, compressionFactor, common.Murmur3Hasher32{}, internal.DefaultUpdateSeed)
}

// NewQuantileDigestWithHasher creates a hashing digest with a
// caller-supplied hash adapter and seed.
func NewQuantileDigestWithHasher(rangeInBits, compressionFactor int, hasher common.Hasher32, seed uint64) (*QuantileDigest, error) {
	if hasher == nil {
		return nil, fmt.Errorf("%w: no hasher provided", ErrInvalidParameter)
	}
	qd, err := newQuantileDigest(rangeInBits, compressionFactor, hasher, seed)
	if err != nil {
		return nil, err
	}
	qd.hashing = true
	return qd, nil
}

func newQuantileDigest(rangeInBits, compressionFactor int, hasher common.Hasher32, seed uint64) (*QuantileDigest, error) {
	if compressionFactor < 1 {
		return nil, fmt.Errorf("%w: compression factor is too small", ErrInvalidParameter)
	}
	if rangeInBits < 1 || rangeInBits > maxRangeBits {
		return nil, fmt.Errorf("%w: only ranges up to 2^%d are supported", ErrUnsupportedRange, maxRangeBits)
	}
	return &QuantileDigest{
		rangeInBits: rangeInBits,
		compression: uint64(compressionFactor),
		hasher:      hasher,
		seed:        seed,
		nodes:       make(map[uint64]uint64),
	}, nil
}

// Update inserts datum and runs a compression pass. In hashing mode the
// datum is hashed onto the domain first; otherwise a datum outside
// [0, 2^rangeInBits - 1] is rejected with ErrOutOfRange.
func (qd *QuantileDigest) Update(datum uint64) error {
	return qd.update(datum, true)
}

// UpdateNoCompress inserts datum without compressing. Use it for bulk
// loads where one Compress at the end is cheaper than one per insert.
func (qd *QuantileDigest) UpdateNoCompress(datum uint64) error {
	return qd.update(datum, false)
}

// UpdateSlice hashes an arbitrary byte datum onto the domain and
// inserts it. Only valid in hashing mode.
func (qd *QuantileDigest) UpdateSlice(datum []byte) error {
	if !qd.hashing {
		return fmt.Errorf("%w: hashing is not enabled", ErrInvalidParameter)
	}
	qd.insert(uint64(qd.hasher.Hash32(datum, qd.seed))&qd.maxValue(), true)
	return nil
}

// UpdateString hashes a string datum onto the domain and inserts it.
// Only valid in hashing mode.
func (qd *QuantileDigest) UpdateString(datum string) error {
	return qd.UpdateSlice([]byte(datum))
}

func (qd *QuantileDigest) update(datum uint64, compress bool) error {
	value := datum
	if qd.hashing {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], datum)
		value = uint64(qd.hasher.Hash32(buf[:], qd.seed)) & qd.maxValue()
	} else if datum > qd.maxValue() {
		return fmt.Errorf("%w: %d is outside [0, %d]", ErrOutOfRange, datum, qd.maxValue())
	}
	qd.insert(value, compress)
	return nil
}

func (qd *QuantileDigest) insert(value uint64, compress bool) {
	qd.nodes[qd.leafBase()+value]++
	qd.total++
	if compress {
		qd.Compress()
	}
}

// Compress runs the bottom-up merge pass. A sibling pair is folded into
// its parent when the pair's counts plus the parent's count do not
// exceed floor(N / compressionFactor). The pass is idempotent and never
// changes N.
func (qd *QuantileDigest) Compress() {
	if len(qd.nodes) == 0 {
		return
	}
	threshold := qd.total / qd.compression

	byLevel := make([][]uint64, qd.rangeInBits+1)
	for id := range qd.nodes {
		l := bits.Len64(id) - 1
		byLevel[l] = append(byLevel[l], id)
	}

	for l := qd.rangeInBits; l >= 1; l-- {
		folded := make(map[uint64]struct{}, len(byLevel[l]))
		for _, id := range byLevel[l] {
			left := id &^ 1
			if _, ok := folded[left]; ok {
				continue
			}
			folded[left] = struct{}{}

			parent := left >> 1
			sum := qd.nodes[left] + qd.nodes[left|1] + qd.nodes[parent]
			if sum > threshold {
				continue
			}
			if _, ok := qd.nodes[parent]; !ok {
				byLevel[l-1] = append(byLevel[l-1], parent)
			}
			delete(qd.nodes, left)
			delete(qd.nodes, left|1)
			qd.nodes[parent] = sum
		}
	}
}

// Merge folds other into qd and recompresses. Both digests must share
// the same compression factor, domain range and hashing configuration;
// otherwise ErrIncompatibleSketch is returned and qd is left unchanged.
// other is read-only and remains usable.
func (qd *QuantileDigest) Merge(other *QuantileDigest) error {
	if other == nil {
		return fmt.Errorf("%w: nil digest", ErrIncompatibleSketch)
	}
	if qd.compression != other.compression {
		return fmt.Errorf("%w: compression factors have to be equal", ErrIncompatibleSketch)
	}
	if qd.rangeInBits != other.rangeInBits {
		return fmt.Errorf("%w: ranges have to be equal", ErrIncompatibleSketch)
	}
	if qd.hashing != other.hashing || (qd.hashing && qd.seed != other.seed) {
		return fmt.Errorf("%w: hashing configurations have to be equal", ErrIncompatibleSketch)
	}
	for id, c := range other.nodes {
		qd.nodes[id] += c
	}
	qd.total += other.total
	qd.Compress()
	return nil
}

// QuantileQuery returns an approximate value v such that a q fraction
// of the inserted elements is <= v. Nodes are walked in value order,
// deeper nodes before the coarser buckets that contain them, until the
// accumulated count reaches q*N; the owning node's range upper bound is
// the answer.
func (qd *QuantileDigest) QuantileQuery(q float64) (uint64, error) {
	if err := checkQuantile(q); err != nil {
		return 0, err
	}
	if qd.total == 0 {
		return 0, fmt.Errorf("operation is undefined for an empty digest")
	}

	nodes := qd.sortedNodes()
	target := q * float64(qd.total)
	cum := uint64(0)
	for _, n := range nodes {
		cum += n.count
		if float64(cum) >= target {
			return n.upper, nil
		}
	}
	return nodes[len(nodes)-1].upper, nil
}

// InverseQuantileQuery returns the approximate number of inserted
// elements smaller than value: the summed counts of every node whose
// range lies entirely below it.
func (qd *QuantileDigest) InverseQuantileQuery(value uint64) (uint64, error) {
	if value > qd.maxValue() {
		return 0, fmt.Errorf("%w: %d is outside [0, %d]", ErrOutOfRange, value, qd.maxValue())
	}
	rank := uint64(0)
	for id, c := range qd.nodes {
		if qd.upperBound(id) < value {
			rank += c
		}
	}
	return rank, nil
}

// IntervalQuery returns the approximate number of inserted elements
// between lo and hi, as the difference of the two inverse-quantile
// ranks.
func (qd *QuantileDigest) IntervalQuery(lo, hi uint64) (uint64, error) {
	if lo > hi {
		return 0, fmt.Errorf("%w: interval bounds are reversed: [%d, %d]", ErrInvalidParameter, lo, hi)
	}
	hiRank, err := qd.InverseQuantileQuery(hi)
	if err != nil {
		return 0, err
	}
	loRank, err := qd.InverseQuantileQuery(lo)
	if err != nil {
		return 0, err
	}
	return hiRank - loRank, nil
}

// N returns the total number of inserted elements.
func (qd *QuantileDigest) N() uint64 {
	return qd.total
}

// IsEmpty returns true if nothing has been inserted.
func (qd *QuantileDigest) IsEmpty() bool {
	return qd.total == 0
}

// NumNodes returns the number of live tree nodes.
func (qd *QuantileDigest) NumNodes() int {
	return len(qd.nodes)
}

// SizeBytes returns the byte footprint of the digest at the fixed
// per-node accounting of 16 bytes.
func (qd *QuantileDigest) SizeBytes() int {
	return len(qd.nodes) * digestNodeSizeBytes
}

// String describes the digest configuration and current length.
func (qd *QuantileDigest) String() string {
	hashing := "off"
	if qd.hashing {
		hashing = "on"
	}
	return fmt.Sprintf("<QuantileDigest (compression: %d, range: [0, %d], hashing: %s, length: %d)>",
		qd.compression, qd.maxValue(), hashing, len(qd.nodes))
}

func (qd *QuantileDigest) leafBase() uint64 {
	return uint64(1) << qd.rangeInBits
}

func (qd *QuantileDigest) maxValue() uint64 {
	return qd.leafBase() - 1
}

// upperBound returns the largest domain value covered by the node.
func (qd *QuantileDigest) upperBound(id uint64) uint64 {
	level := bits.Len64(id) - 1
	return ((id + 1) << (qd.rangeInBits - level)) - 1 - qd.leafBase()
}

type digestNode struct {
	upper uint64
	level int
	count uint64
}

// sortedNodes lists live nodes by range upper bound; on ties the deeper
// (narrower) node comes first.
func (qd *QuantileDigest) sortedNodes() []digestNode {
	out := make([]digestNode, 0, len(qd.nodes))
	for id, c := range qd.nodes {
		out = append(out, digestNode{
			upper: qd.upperBound(id),
			level: bits.Len64(id) - 1,
			count: c,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].upper != out[j].upper {
			return out[i].upper < out[j].upper
		}
		return out[i].level > out[j].level
	})
	return out
}

var _ Querier[uint64] = (*QuantileDigest)(nil)
