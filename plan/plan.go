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

// Package plan runs a sequence of differentially private queries, described
// in a YAML document, against one table and one privacy budget.
//
// A plan looks like:
//
//	budget:
//	  epsilon: 1.0
//	  delta: 1e-5
//	queries:
//	  - op: count
//	    epsilon: 0.2
//	    group_by: [city]
//	  - name: mean income
//	    op: mean
//	    column: income
//	    lower: 0
//	    upper: 200000
//	    epsilon: 0.5
package plan

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/golang/glog"
	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/dpagg"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/rand"
	"github.com/ttarler/diff-priv-tidy/table"
	"gopkg.in/yaml.v3"
)

// Query operations.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpMean  = "mean"
	OpNoise = "noise"
)

// Budget is the budget section of a plan. Zero fields fall back to the
// defaults given to Plan.NewBudget.
type Budget struct {
	Epsilon     float64 `yaml:"epsilon"`
	Delta       float64 `yaml:"delta"`
	Composition string  `yaml:"composition"`
}

// Query is one step of a plan.
type Query struct {
	Name      string   `yaml:"name"`
	Op        string   `yaml:"op"`
	Epsilon   float64  `yaml:"epsilon"`
	Delta     float64  `yaml:"delta"`
	Column    string   `yaml:"column"`
	Columns   []string `yaml:"columns"`
	Lower     *float64 `yaml:"lower"`
	Upper     *float64 `yaml:"upper"`
	GroupBy   []string `yaml:"group_by"`
	Mechanism string   `yaml:"mechanism"`
}

// Plan is a parsed plan document.
type Plan struct {
	Budget          *Budget `yaml:"budget"`
	ContinueOnError bool    `yaml:"continue_on_error"`
	Queries         []Query `yaml:"queries"`
}

// Step is the outcome of one query. Exactly one of Result, Table and Err is
// set: Table for noise queries, Result for the others.
type Step struct {
	Query  Query
	Result *dpagg.Result
	Table  *table.Table
	Err    error
}

// Load parses and validates a plan. Unknown fields are rejected.
func Load(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: plan is empty", checks.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("%w: couldn't parse plan: %v", checks.ErrInvalidArgument, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile parses and validates the plan stored at path.
func LoadFile(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open plan: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (p *Plan) validate() error {
	if len(p.Queries) == 0 {
		return fmt.Errorf("%w: plan has no queries", checks.ErrInvalidArgument)
	}
	for i, q := range p.Queries {
		if err := q.validate(); err != nil {
			return fmt.Errorf("query %d: %w", i+1, err)
		}
	}
	return nil
}

func (q Query) validate() error {
	switch strings.ToLower(q.Op) {
	case OpCount:
	case OpSum, OpMean:
		if q.Column == "" {
			return fmt.Errorf("%w: %s query needs a column", checks.ErrInvalidArgument, q.Op)
		}
	case OpNoise:
		if len(q.Columns) == 0 {
			return fmt.Errorf("%w: noise query needs columns", checks.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("%w: unknown op %q, must be one of count, sum, mean, noise", checks.ErrInvalidArgument, q.Op)
	}
	if (q.Lower == nil) != (q.Upper == nil) {
		return fmt.Errorf("%w: lower and upper must be given together", checks.ErrInvalidArgument)
	}
	_, err := noise.ParseKind(q.Mechanism)
	return err
}

// bounds returns the declared bounds of q, or nil when none are given.
func (q Query) bounds() *dpagg.Bounds {
	if q.Lower == nil || q.Upper == nil {
		return nil
	}
	return &dpagg.Bounds{Lower: *q.Lower, Upper: *q.Upper}
}

// NewBudget returns the budget described by the plan, using defaults for the
// fields the plan leaves unset.
func (p *Plan) NewBudget(defaults budget.Options) (*budget.Budget, error) {
	opt := defaults
	if pb := p.Budget; pb != nil {
		if pb.Epsilon != 0 {
			opt.Epsilon = pb.Epsilon
		}
		if pb.Delta != 0 {
			opt.Delta = pb.Delta
		}
		if pb.Composition != "" {
			c, err := budget.ParseComposition(pb.Composition)
			if err != nil {
				return nil, err
			}
			opt.Composition = c
		}
	}
	return budget.New(&opt)
}

// Run executes the queries of p in order against t, accounting every query
// against b. Run stops at the first failing query unless ContinueOnError is
// set; the steps run so far are returned in both cases.
func (p *Plan) Run(t *table.Table, b *budget.Budget, src *rand.Source) ([]Step, error) {
	steps := make([]Step, 0, len(p.Queries))
	for i, q := range p.Queries {
		s := Step{Query: q}
		s.Result, s.Table, s.Err = q.run(t, b, src)
		steps = append(steps, s)
		if s.Err == nil {
			continue
		}
		if !p.ContinueOnError {
			return steps, fmt.Errorf("query %d (%s): %w", i+1, q.displayName(), s.Err)
		}
		log.Warningf("Query %d (%s) failed: %v", i+1, q.displayName(), s.Err)
	}
	return steps, nil
}

func (q Query) displayName() string {
	if q.Name != "" {
		return q.Name
	}
	return strings.ToLower(q.Op)
}

func (q Query) run(t *table.Table, b *budget.Budget, src *rand.Source) (*dpagg.Result, *table.Table, error) {
	name := q.displayName()
	switch strings.ToLower(q.Op) {
	case OpCount:
		res, err := dpagg.Count(t, &dpagg.CountOptions{Epsilon: q.Epsilon, Delta: q.Delta, GroupBy: q.GroupBy, Budget: b, Source: src, Name: name})
		return res, nil, err
	case OpSum:
		res, err := dpagg.Sum(t, &dpagg.SumOptions{Column: q.Column, Bounds: q.bounds(), Epsilon: q.Epsilon, Delta: q.Delta, GroupBy: q.GroupBy, Budget: b, Source: src, Name: name})
		return res, nil, err
	case OpMean:
		res, err := dpagg.Mean(t, &dpagg.MeanOptions{Column: q.Column, Bounds: q.bounds(), Epsilon: q.Epsilon, Delta: q.Delta, GroupBy: q.GroupBy, Budget: b, Source: src, Name: name})
		return res, nil, err
	case OpNoise:
		kind, err := noise.ParseKind(q.Mechanism)
		if err != nil {
			return nil, nil, err
		}
		out, err := dpagg.AddNoise(t, &dpagg.NoiseOptions{Columns: q.Columns, Bounds: q.bounds(), Epsilon: q.Epsilon, Delta: q.Delta, Noise: kind, Budget: b, Source: src, Name: name})
		return nil, out, err
	}
	return nil, nil, fmt.Errorf("%w: unknown op %q", checks.ErrInvalidArgument, q.Op)
}
