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
	"slices"

	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/table"
)

// Row is one privatized value and the key of the group it belongs to. The key
// is empty for ungrouped queries.
type Row struct {
	Key   []string
	Value float64
}

// Result is the output of a Count, Sum or Mean query: one row per group,
// together with the parameters of the mechanism that produced the values.
type Result struct {
	GroupBy   []string // Grouping columns, in key order.
	ValueName string   // Name of the value column, e.g. "count" or "income_mean".
	Rows      []Row

	Kind        noise.Kind // Mechanism used.
	Sensitivity float64
	Epsilon     float64
	Delta       float64
}

func newResult(groupBy []string, valueName string, q *query, sens float64) *Result {
	return &Result{
		GroupBy:     slices.Clone(groupBy),
		ValueName:   valueName,
		Rows:        []Row{},
		Kind:        q.kind,
		Sensitivity: sens,
		Epsilon:     q.params.Epsilon,
		Delta:       q.params.Delta,
	}
}

// Value returns the value of the row with the given key.
func (r *Result) Value(key ...string) (float64, bool) {
	for _, row := range r.Rows {
		if slices.Equal(row.Key, key) {
			return row.Value, true
		}
	}
	return 0, false
}

// ConfidenceIntervals returns, for each row, an interval that contains the
// value before noise with probability 1 - alpha. For counts the interval
// ignores rounding and clamping at 0.
func (r *Result) ConfidenceIntervals(alpha float64) ([]noise.ConfidenceInterval, error) {
	nz, err := noise.New(r.Kind, nil)
	if err != nil {
		return nil, err
	}
	out := make([]noise.ConfidenceInterval, len(r.Rows))
	for i, row := range r.Rows {
		if out[i], err = nz.ComputeConfidenceIntervalFloat64(row.Value, r.Sensitivity, r.Epsilon, r.Delta, alpha); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Table converts r into a table with one string column per grouping column
// followed by the value column.
func (r *Result) Table() (*table.Table, error) {
	cols := make([]*table.Column, 0, len(r.GroupBy)+1)
	for j, name := range r.GroupBy {
		vals := make([]string, len(r.Rows))
		for i, row := range r.Rows {
			if len(row.Key) != len(r.GroupBy) {
				return nil, fmt.Errorf("row %d has a key of length %d, want %d", i, len(row.Key), len(r.GroupBy))
			}
			vals[i] = row.Key[j]
		}
		cols = append(cols, table.NewStringColumn(name, vals...))
	}
	vals := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		vals[i] = row.Value
	}
	cols = append(cols, table.NewFloat64Column(r.ValueName, vals...))
	return table.New(cols...)
}
