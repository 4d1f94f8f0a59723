//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package sensitivity computes the sensitivity of the queries supported by
// dpagg: the largest change in the query's true output caused by adding or
// removing one record.
package sensitivity

import (
	"math"

	"github.com/ttarler/diff-priv-tidy/checks"
)

// Count returns the sensitivity of a count, which is always 1.
func Count() float64 {
	return 1
}

// Sum returns the sensitivity of a sum over values clamped to [lower, upper],
// i.e. max(|lower|, |upper|).
func Sum(lower, upper float64) (float64, error) {
	if err := checks.CheckBoundsFloat64(lower, upper); err != nil {
		return 0, err
	}
	return math.Max(math.Abs(lower), math.Abs(upper)), nil
}

// Mean returns the sensitivity of a mean over n values clamped to
// [lower, upper], i.e. (upper - lower) / n.
func Mean(lower, upper float64, n int) (float64, error) {
	if err := checks.CheckBoundsFloat64(lower, upper); err != nil {
		return 0, err
	}
	if err := checks.CheckSampleSize(n); err != nil {
		return 0, err
	}
	return (upper - lower) / float64(n), nil
}

// Range returns the sensitivity of releasing a single value from
// [lower, upper], i.e. upper - lower. It is used when noise is added to
// every cell of a column.
func Range(lower, upper float64) (float64, error) {
	if err := checks.CheckBoundsFloat64(lower, upper); err != nil {
		return 0, err
	}
	return upper - lower, nil
}
