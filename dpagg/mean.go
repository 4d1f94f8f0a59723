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
	"gonum.org/v1/gonum/stat"
)

// MeanOptions contains the options of a Mean query.
type MeanOptions struct {
	Column  string         // Numeric column to average. Required.
	Bounds  *Bounds        // Bounds of the column values. Derived from the data when nil.
	Epsilon float64        // Privacy parameter ε. Required.
	Delta   float64        // Privacy parameter δ. Zero selects Laplace noise, otherwise Gaussian noise is used.
	GroupBy []string       // Columns to group rows by. Optional.
	Budget  *budget.Budget // Budget to account the query against. Optional.
	Source  *rand.Source   // Source of randomness. Defaults to rand.Default().
	Name    string         // Name of the operation in the budget log. Defaults to "Mean".
}

// Mean returns a differentially private mean of a numeric column, one per group.
//
// Values are clamped to the bounds and NaN cells are skipped. The sensitivity
// is (upper - lower) / n where n is the number of values in the smallest
// group; the same noise scale is used for every group. Every group must hold
// at least one value. The noisy mean is not clamped to the bounds.
func Mean(t *table.Table, opt *MeanOptions) (*Result, error) {
	if opt == nil {
		opt = &MeanOptions{}
	}
	if err := checkTable("Mean", t); err != nil {
		return nil, err
	}
	if _, err := t.Float64s(opt.Column); err != nil {
		return nil, fmt.Errorf("Mean: %w", err)
	}
	q, err := newQuery("Mean", opt.Name, opt.Epsilon, opt.Delta, noise.AutoNoise, opt.Budget, opt.Source)
	if err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(opt.GroupBy...)
	if err != nil {
		return nil, fmt.Errorf("Mean: %w", err)
	}
	b, err := resolveBounds(t, opt.Column, opt.Bounds)
	if err != nil {
		return nil, fmt.Errorf("Mean: %w", err)
	}

	values := make([][]float64, len(groups))
	minSize := 0
	for i, g := range groups {
		if values[i], err = clampedValues(t, opt.Column, g.Rows, b); err != nil {
			return nil, fmt.Errorf("Mean: %w", err)
		}
		if i == 0 || len(values[i]) < minSize {
			minSize = len(values[i])
		}
	}
	sens, err := sensitivity.Mean(b.Lower, b.Upper, minSize)
	if err != nil {
		return nil, fmt.Errorf("Mean: %w", err)
	}
	if err := checks.CheckSensitivity(sens); err != nil {
		return nil, fmt.Errorf("Mean: bounds [%v, %v]: %w", b.Lower, b.Upper, err)
	}

	res := newResult(opt.GroupBy, opt.Column+"_mean", q, sens)
	err = q.spend(q.params.Epsilon, q.params.Delta, func() error {
		for i, g := range groups {
			v, err := q.addNoise(stat.Mean(values[i], nil), sens)
			if err != nil {
				return err
			}
			res.Rows = append(res.Rows, Row{Key: g.Key, Value: v})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Mean: %w", err)
	}
	return res, nil
}
