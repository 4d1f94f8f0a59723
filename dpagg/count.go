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

	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/rand"
	"github.com/ttarler/diff-priv-tidy/sensitivity"
	"github.com/ttarler/diff-priv-tidy/table"
)

// CountOptions contains the options of a Count query.
type CountOptions struct {
	Epsilon float64        // Privacy parameter ε. Required.
	Delta   float64        // Privacy parameter δ. Zero selects Laplace noise, otherwise Gaussian noise is used.
	GroupBy []string       // Columns to group rows by. Optional.
	Budget  *budget.Budget // Budget to account the query against. Optional.
	Source  *rand.Source   // Source of randomness. Defaults to rand.Default().
	Name    string         // Name of the operation in the budget log. Defaults to "Count".
}

// Count returns a differentially private number of rows, one per group.
//
// Each row counts with sensitivity 1. Noisy counts are rounded to the nearest
// integer and negative results are set to 0.
func Count(t *table.Table, opt *CountOptions) (*Result, error) {
	if opt == nil {
		opt = &CountOptions{}
	}
	if err := checkTable("Count", t); err != nil {
		return nil, err
	}
	q, err := newQuery("Count", opt.Name, opt.Epsilon, opt.Delta, noise.AutoNoise, opt.Budget, opt.Source)
	if err != nil {
		return nil, err
	}
	groups, err := t.GroupBy(opt.GroupBy...)
	if err != nil {
		return nil, fmt.Errorf("Count: %w", err)
	}

	sens := sensitivity.Count()
	res := newResult(opt.GroupBy, "count", q, sens)
	err = q.spend(q.params.Epsilon, q.params.Delta, func() error {
		for _, g := range groups {
			v, err := q.addNoise(float64(g.Size()), sens)
			if err != nil {
				return err
			}
			res.Rows = append(res.Rows, Row{Key: g.Key, Value: math.Max(0, math.Round(v))})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Count: %w", err)
	}
	return res, nil
}
