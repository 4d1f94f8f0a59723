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

package dpagg

import (
	"fmt"
	"math"

	log "github.com/golang/glog"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/table"
)

// ClampFloat64 clamps e within lower and upper.
// Returns lower if e < lower.
// Returns upper if e > upper.
func ClampFloat64(e, lower, upper float64) (float64, error) {
	if lower > upper {
		return 0, fmt.Errorf("%w: lower must be less than or equal to upper, got lower = %v, upper = %v", checks.ErrInvalidParameter, lower, upper)
	}
	return math.Min(math.Max(e, lower), upper), nil
}

// resolveBounds returns b when it is set. Otherwise it derives bounds from the
// observed minimum and maximum of column. Derived bounds depend on the data and
// are not privatized, so the result is only differentially private relative
// to those bounds.
func resolveBounds(t *table.Table, column string, b *Bounds) (Bounds, error) {
	if b != nil {
		if err := checks.CheckBoundsFloat64(b.Lower, b.Upper); err != nil {
			return Bounds{}, err
		}
		return *b, nil
	}
	s, err := t.ColumnStats(column)
	if err != nil {
		return Bounds{}, err
	}
	if s.Count == 0 {
		return Bounds{}, fmt.Errorf("%w: cannot derive bounds of column %q, it has no values", checks.ErrInvalidArgument, column)
	}
	log.Warningf("No bounds given for column %q, using observed range [%v, %v]. The released value leaks these bounds.", column, s.Min, s.Max)
	return Bounds{Lower: s.Min, Upper: s.Max}, nil
}

// clampedValues returns the non-NaN values of column in rows, clamped to b.
func clampedValues(t *table.Table, column string, rows []int, b Bounds) ([]float64, error) {
	vs, err := t.Values(column, rows)
	if err != nil {
		return nil, err
	}
	for i, v := range vs {
		if vs[i], err = ClampFloat64(v, b.Lower, b.Upper); err != nil {
			return nil, err
		}
	}
	return vs, nil
}
