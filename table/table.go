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

// Package table is a small column-oriented data table: the tabular
// collaborator of dpagg. It supports loading from CSV and SQL, column
// selection, grouping rows by the values of some columns and per-group
// statistics.
package table

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ttarler/diff-priv-tidy/checks"
)

var (
	// ErrColumnNotFound is returned when a column name is not in the table.
	ErrColumnNotFound = fmt.Errorf("%w: column not found", checks.ErrInvalidArgument)
	// ErrNotNumeric is returned when a numeric column is required but the column holds strings.
	ErrNotNumeric = fmt.Errorf("%w: column is not numeric", checks.ErrInvalidArgument)
)

// Kind is the type of the values held by a Column.
type Kind int

// Column kinds.
const (
	String Kind = iota
	Float64
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Column is a named, typed column. Exactly one of Strings and Floats is used,
// depending on Kind. Missing numeric values are NaN.
type Column struct {
	Name    string
	Kind    Kind
	Strings []string
	Floats  []float64
}

// NewStringColumn returns a string column.
func NewStringColumn(name string, values ...string) *Column {
	return &Column{Name: name, Kind: String, Strings: values}
}

// NewFloat64Column returns a numeric column.
func NewFloat64Column(name string, values ...float64) *Column {
	return &Column{Name: name, Kind: Float64, Floats: values}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == Float64 {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// Cell returns the i-th cell formatted as a string. NaN cells are empty.
func (c *Column) Cell(i int) string {
	if c.Kind == String {
		return c.Strings[i]
	}
	v := c.Floats[i]
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	if c.Floats != nil {
		out.Floats = append([]float64(nil), c.Floats...)
	}
	return out
}

// Table is an ordered set of equally long columns with unique names.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New returns a table made of cols. Columns must have unique names and equal lengths.
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("%w: column %d is nil", checks.ErrInvalidArgument, i)
		}
		if _, ok := t.index[c.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate column %q", checks.ErrInvalidArgument, c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", checks.ErrInvalidArgument, c.Name, c.Len(), t.rows)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.rows
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column called name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.columns[i], nil
}

// Float64s returns the values of the numeric column called name. The slice is
// shared with the table and must not be modified.
func (t *Table) Float64s(name string) ([]float64, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if c.Kind != Float64 {
		return nil, fmt.Errorf("%w: %q holds %v values", ErrNotNumeric, name, c.Kind)
	}
	return c.Floats, nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.clone()
	}
	out, _ := New(cols...)
	return out
}

// WithFloat64Column returns a copy of t where the column called name holds
// values. The column is replaced if it exists and appended otherwise.
func (t *Table) WithFloat64Column(name string, values []float64) (*Table, error) {
	if len(t.columns) > 0 && len(values) != t.rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, want %d", checks.ErrInvalidArgument, name, len(values), t.rows)
	}
	out := t.Clone()
	c := NewFloat64Column(name, append([]float64(nil), values...)...)
	if i, ok := out.index[name]; ok {
		out.columns[i] = c
		return out, nil
	}
	out.index[name] = len(out.columns)
	out.columns = append(out.columns, c)
	out.rows = len(values)
	return out, nil
}
