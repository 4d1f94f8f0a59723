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
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/rand"
	"github.com/ttarler/diff-priv-tidy/sensitivity"
	"github.com/ttarler/diff-priv-tidy/table"
)

// NoiseOptions contains the options of an AddNoise call.
type NoiseOptions struct {
	Columns []string       // Numeric columns to perturb. Required.
	Bounds  *Bounds        // Bounds of the values of every column. Derived per column from the data when nil.
	Epsilon float64        // Privacy parameter ε spent on each column. Required.
	Delta   float64        // Privacy parameter δ spent on each column.
	Noise   noise.Kind     // Mechanism. AutoNoise selects by δ; an explicit choice must agree with δ.
	Budget  *budget.Budget // Budget to account the operation against. Optional.
	Source  *rand.Source   // Source of randomness. Defaults to rand.Default().
	Name    string         // Name of the operation in the budget log. Defaults to "AddNoise".
}

// AddNoise returns a copy of t where every cell of the given columns received
// an independent noise draw scaled to the range of the column bounds.
//
// Values are clamped to the bounds before noise is added and NaN cells are
// left as they are. Each column is a separate release, so perturbing k
// columns spends k·ε and k·δ from the budget.
func AddNoise(t *table.Table, opt *NoiseOptions) (*table.Table, error) {
	if opt == nil {
		opt = &NoiseOptions{}
	}
	if err := checkTable("AddNoise", t); err != nil {
		return nil, err
	}
	if len(opt.Columns) == 0 {
		return nil, fmt.Errorf("AddNoise: %w: no columns given", checks.ErrInvalidArgument)
	}
	for _, c := range opt.Columns {
		if _, err := t.Float64s(c); err != nil {
			return nil, fmt.Errorf("AddNoise: %w", err)
		}
	}
	q, err := newQuery("AddNoise", opt.Name, opt.Epsilon, opt.Delta, opt.Noise, opt.Budget, opt.Source)
	if err != nil {
		return nil, err
	}
	bounds := make([]Bounds, len(opt.Columns))
	sens := make([]float64, len(opt.Columns))
	for i, c := range opt.Columns {
		if bounds[i], err = resolveBounds(t, c, opt.Bounds); err != nil {
			return nil, fmt.Errorf("AddNoise: %w", err)
		}
		if sens[i], err = sensitivity.Range(bounds[i].Lower, bounds[i].Upper); err != nil {
			return nil, fmt.Errorf("AddNoise: %w", err)
		}
		if err := checks.CheckSensitivity(sens[i]); err != nil {
			return nil, fmt.Errorf("AddNoise: column %q bounds [%v, %v]: %w", c, bounds[i].Lower, bounds[i].Upper, err)
		}
	}

	k := float64(len(opt.Columns))
	out := t
	err = q.spend(k*q.params.Epsilon, k*q.params.Delta, func() error {
		for i, c := range opt.Columns {
			col, err := out.Float64s(c)
			if err != nil {
				return err
			}
			noised := make([]float64, len(col))
			for j, v := range col {
				if math.IsNaN(v) {
					noised[j] = v
					continue
				}
				if v, err = ClampFloat64(v, bounds[i].Lower, bounds[i].Upper); err != nil {
					return err
				}
				if noised[j], err = q.addNoise(v, sens[i]); err != nil {
					return err
				}
			}
			if out, err = out.WithFloat64Column(c, noised); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("AddNoise: %w", err)
	}
	return out, nil
}
