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

package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ttarler/diff-priv-tidy/checks"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Group is a set of rows sharing the same values in the grouping columns.
type Group struct {
	Key  []string // Values of the grouping columns, in grouping order.
	Rows []int    // Indices of the rows in the group.
}

// Size returns the number of rows in g.
func (g Group) Size() int {
	return len(g.Rows)
}

// GroupBy partitions the rows of t by the values of cols. Groups are returned
// in order of first appearance. With no columns, GroupBy returns a single group
// with an empty key holding every row, even when t is empty.
func (t *Table) GroupBy(cols ...string) ([]Group, error) {
	keyCols := make([]*Column, len(cols))
	for i, name := range cols {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		keyCols[i] = c
	}
	if len(cols) == 0 {
		all := make([]int, t.rows)
		for i := range all {
			all[i] = i
		}
		return []Group{{Key: []string{}, Rows: all}}, nil
	}

	var groups []Group
	index := make(map[string]int)
	for i := 0; i < t.rows; i++ {
		key := make([]string, len(keyCols))
		for j, c := range keyCols {
			key[j] = groupValue(c, i)
		}
		// The separator cannot appear in a strconv.Quote output.
		id := strings.Join(quoteAll(key), "\x00")
		g, ok := index[id]
		if !ok {
			g = len(groups)
			index[id] = g
			groups = append(groups, Group{Key: key})
		}
		groups[g].Rows = append(groups[g].Rows, i)
	}
	return groups, nil
}

func groupValue(c *Column, i int) string {
	if c.Kind == String {
		return c.Strings[i]
	}
	return strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
}

func quoteAll(key []string) []string {
	out := make([]string, len(key))
	for i, k := range key {
		out[i] = strconv.Quote(k)
	}
	return out
}

// Stats are summary statistics of a numeric column over a set of rows. NaN
// cells are skipped by every statistic except Rows.
type Stats struct {
	Rows  int     // Number of rows, including NaN cells.
	Count int     // Number of non-NaN cells.
	Sum   float64 // Sum of non-NaN cells.
	Mean  float64 // Mean of non-NaN cells; NaN when Count is 0.
	Min   float64 // Minimum of non-NaN cells; NaN when Count is 0.
	Max   float64 // Maximum of non-NaN cells; NaN when Count is 0.
}

// Values returns the non-NaN values of the numeric column called name in rows.
func (t *Table) Values(name string, rows []int) ([]float64, error) {
	col, err := t.Float64s(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, fmt.Errorf("%w: row %d out of range [0, %d)", checks.ErrInvalidArgument, r, t.rows)
		}
		if v := col[r]; !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// Stats computes summary statistics of the numeric column called name over rows.
func (t *Table) Stats(name string, rows []int) (Stats, error) {
	vs, err := t.Values(name, rows)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{Rows: len(rows), Count: len(vs), Mean: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	if len(vs) == 0 {
		return s, nil
	}
	s.Sum = floats.Sum(vs)
	s.Mean = stat.Mean(vs, nil)
	s.Min = floats.Min(vs)
	s.Max = floats.Max(vs)
	return s, nil
}

// ColumnStats computes summary statistics of the numeric column called name
// over every row of t.
func (t *Table) ColumnStats(name string) (Stats, error) {
	all := make([]int, t.rows)
	for i := range all {
		all[i] = i
	}
	return t.Stats(name, all)
}
