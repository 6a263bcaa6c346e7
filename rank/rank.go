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

// Package rank provides sketches that answer approximate quantile,
// rank and range-count queries over data streams in sub-linear memory.
//
// Two structures are provided. QuantileDigest is a compressing summary
// tree over a bounded integer domain. RandomSampling keeps a hierarchy
// of fixed-capacity weighted sample buffers and has no domain bound.
// Both support merging and share the same query surface, captured by
// the Querier interface.
//
// Neither structure is safe for concurrent use; an instance assumes a
// single caller at a time.
package rank

import (
	"errors"
	"fmt"
	"math"
)

// Error kinds returned by the rank sketches. Contract violations wrap
// one of these so callers can branch with errors.Is. A failed operation
// never leaves the sketch partially mutated.
var (
	// ErrInvalidParameter reports a constructor or query argument
	// outside its domain contract.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnsupportedRange reports a requested domain width beyond what
	// the fixed-width counters can address.
	ErrUnsupportedRange = errors.New("unsupported range")

	// ErrOutOfRange reports a value outside the configured domain.
	ErrOutOfRange = errors.New("value out of range")

	// ErrIncompatibleSketch reports a merge between sketches whose
	// parameters differ.
	ErrIncompatibleSketch = errors.New("incompatible sketch")
)

// Querier is the rank-query surface implemented by every sketch in
// this package over its element type T.
type Querier[T any] interface {
	// QuantileQuery returns an approximate value v such that a q
	// fraction of the stream is <= v, for q in [0, 1].
	QuantileQuery(q float64) (T, error)

	// InverseQuantileQuery returns the approximate number of stream
	// elements smaller than value. It is monotonically non-decreasing
	// in its argument.
	InverseQuantileQuery(value T) (uint64, error)

	// IntervalQuery returns the approximate number of stream elements
	// between lo and hi.
	IntervalQuery(lo, hi T) (uint64, error)
}

func checkQuantile(q float64) error {
	if q < 0 || q > 1 || math.IsNaN(q) {
		return fmt.Errorf("%w: quantile must be in [0, 1]: %v", ErrInvalidParameter, q)
	}
	return nil
}
