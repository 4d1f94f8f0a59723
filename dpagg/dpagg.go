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

// Package dpagg computes differentially private aggregations over a
// table.Table: counts, bounded sums, bounded means and per-cell noise
// injection, optionally grouped by the values of some columns and accounted
// against a shared budget.Budget.
//
// Every operation validates its inputs before any noise is drawn or the budget
// is touched. When a Budget is supplied, the admission check, the computation
// and the commit happen in one critical section (see budget.Budget.Transact),
// so a failed or refused operation leaves the budget unchanged.
package dpagg

import (
	"fmt"

	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/rand"
	"github.com/ttarler/diff-priv-tidy/table"
)

// Bounds are the declared lower and upper limits of the values of a column.
type Bounds struct {
	Lower, Upper float64
}

// query holds what every operation needs once its inputs are validated.
type query struct {
	name   string
	params noise.Params
	kind   noise.Kind
	noise  noise.Noise
	budget *budget.Budget
}

// newQuery validates the privacy parameters, resolves the mechanism and sets
// up the noise instance. It never touches the budget.
func newQuery(op, name string, eps, del float64, kind noise.Kind, b *budget.Budget, src *rand.Source) (*query, error) {
	p := noise.Params{Epsilon: eps, Delta: del}
	if err := p.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	k, err := p.Resolve(kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	nz, err := noise.New(k, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if name == "" {
		name = op
	}
	return &query{name: name, params: p, kind: k, noise: nz, budget: b}, nil
}

// spend runs fn, accounting cost against the query's budget when there is one.
func (q *query) spend(epsilon, delta float64, fn func() error) error {
	if q.budget == nil {
		return fn()
	}
	return q.budget.Transact(q.name, epsilon, delta, fn)
}

func (q *query) addNoise(x, sensitivity float64) (float64, error) {
	return q.noise.AddNoiseFloat64(x, sensitivity, q.params.Epsilon, q.params.Delta)
}

func checkTable(op string, t *table.Table) error {
	if t == nil {
		return fmt.Errorf("%s: %w: table is nil", op, checks.ErrInvalidArgument)
	}
	return nil
}
