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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ttarler/diff-priv-tidy/checks"
)

// ReadCSV reads a table from r. The first record is the header. A column is
// numeric when every non-empty cell parses as a float and at least one cell is
// non-empty; empty cells of numeric columns become NaN.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv input has no header", checks.ErrInvalidArgument)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read csv header: %w", err)
	}
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("couldn't read csv records: %w", err)
	}
	return fromRecords(header, records)
}

// WriteCSV writes t to w with a header record.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("couldn't write csv header: %w", err)
	}
	record := make([]string, len(t.columns))
	for i := 0; i < t.rows; i++ {
		for j, c := range t.columns {
			record[j] = c.Cell(i)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("couldn't write csv record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// fromRecords builds a table from a header and rows of raw cells, inferring
// the kind of each column.
func fromRecords(header []string, records [][]string) (*Table, error) {
	cols := make([]*Column, len(header))
	for j, name := range header {
		name = strings.TrimSpace(name)
		cells := make([]string, len(records))
		for i, rec := range records {
			if len(rec) != len(header) {
				return nil, fmt.Errorf("%w: record %d has %d fields, want %d", checks.ErrInvalidArgument, i+1, len(rec), len(header))
			}
			cells[i] = strings.TrimSpace(rec[j])
		}
		if floats, ok := parseFloats(cells); ok {
			cols[j] = NewFloat64Column(name, floats...)
		} else {
			cols[j] = NewStringColumn(name, cells...)
		}
	}
	return New(cols...)
}

func parseFloats(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	seen := false
	for i, s := range cells {
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
		seen = true
	}
	return out, seen
}
