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

	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/rand"
	"github.com/ttarler/diff-priv-tidy/sensitivity"
	"github.com/ttarler/diff-priv-tidy/table"
	"gonum.org/v1/gonum/floats"
)

// SumOptions contains the options of a Sum query.
type SumOptions struct {
	Column  string         // Numeric column to sum. Required.
	Bounds  *Bounds        // Bounds of the column values. Derived from the data when nil.
	Epsilon float64        // Privacy parameter ε. Required.
	Delta   float64        // Privacy parameter δ. Zero selects Laplace noise, otherwise Gaussian noise is used.
	GroupBy []string       // Columns to group rows by. Optional.
	Budget  *budget.Budget // Budget to account the query against. Optional.
	Source  *rand.Source   // Source of randomness. Defaults to rand.Default().
	Name    string         // Name of the operation in the budget log. Defaults to "Sum".
}

// Sum returns a differentially private sum of a numeric column, one per group.
//
// Values are clamped to the bounds before summing and NaN cells are skipped.
// The sensitivity is max(|lower|, |upper|).
func Sum(t *table.Table, opt *SumOptions) (*Result, error) {
	if opt == nil {
		opt = &SumOptions{}
	}
	if err := checkTable("Sum", t); err != nil {
		return nil, err
	}
	if _, err := t.Float64s(opt.Column); err != nil {
		return nil, fmt.Errorf("Sum: %w", err)
	}
	q, err := newQuery("Sum", opt.Name, opt.Epsilon, opt.Delta, noise.AutoNoise, opt.Budget, opt.Source)
	if err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(opt.GroupBy...)
	if err != nil {
		return nil, fmt.Errorf("Sum: %w", err)
	}
	b, err := resolveBounds(t, opt.Column, opt.Bounds)
	if err != nil {
		return nil, fmt.Errorf("Sum: %w", err)
	}
	sens, err := sensitivity.Sum(b.Lower, b.Upper)
	if err != nil {
		return nil, fmt.Errorf("Sum: %w", err)
	}
	if err := checks.CheckSensitivity(sens); err != nil {
		return nil, fmt.Errorf("Sum: bounds [%v, %v]: %w", b.Lower, b.Upper, err)
	}

	res := newResult(opt.GroupBy, opt.Column+"_sum", q, sens)
	err = q.spend(q.params.Epsilon, q.params.Delta, func() error {
		for _, g := range groups {
			vs, err := clampedValues(t, opt.Column, g.Rows, b)
			if err != nil {
				return err
			}
			v, err := q.addNoise(floats.Sum(vs), sens)
			if err != nil {
				return err
			}
			res.Rows = append(res.Rows, Row{Key: g.Key, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Sum: %w", err)
	}
	return res, nil
}
