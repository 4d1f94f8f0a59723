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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ttarler/diff-priv-tidy/noise"
)

func TestResultTable(t *testing.T) {
	res := &Result{
		GroupBy:   []string{"city", "year"},
		ValueName: "count",
		Rows: []Row{
			{Key: []string{"NYC", "2020"}, Value: 3},
			{Key: []string{"LA", "2021"}, Value: 2},
		},
	}
	tbl, err := res.Table()
	if err != nil {
		t.Fatalf("Table: got err %v", err)
	}
	if diff := cmp.Diff([]string{"city", "year", "count"}, tbl.ColumnNames()); diff != "" {
		t.Errorf("Table: column names mismatch (-want +got):\n%s", diff)
	}
	counts, err := tbl.Float64s("count")
	if err != nil {
		t.Fatalf("Float64s(count): got err %v", err)
	}
	if diff := cmp.Diff([]float64{3, 2}, counts); diff != "" {
		t.Errorf("Table: values mismatch (-want +got):\n%s", diff)
	}

	res.Rows[0].Key = []string{"NYC"}
	if _, err := res.Table(); err == nil {
		t.Errorf("Table: with a short key got no error")
	}
}

func TestResultValue(t *testing.T) {
	res := &Result{Rows: []Row{{Key: []string{"a"}, Value: 1}, {Key: []string{"b"}, Value: 2}}}
	if v, ok := res.Value("b"); !ok || v != 2 {
		t.Errorf("Value(b): got %f, %t, want 2, true", v, ok)
	}
	if _, ok := res.Value("c"); ok {
		t.Errorf("Value(c): got ok, want missing")
	}
}

func TestResultConfidenceIntervals(t *testing.T) {
	for _, tc := range []struct {
		desc string
		res  *Result
		want []noise.ConfidenceInterval
	}{
		{
			"laplace",
			&Result{Kind: noise.LaplaceNoise, Sensitivity: 1, Epsilon: 1, Rows: []Row{{Value: 10}}},
			// b·ln(1/alpha) with b = 1 and alpha = 0.05.
			[]noise.ConfidenceInterval{{LowerBound: 10 - 2.995732273553991, UpperBound: 10 + 2.995732273553991}},
		},
		{
			"gaussian",
			&Result{Kind: noise.GaussianNoise, Sensitivity: 1, Epsilon: 1, Delta: 1e-5, Rows: []Row{{Value: 0}, {Value: 5}}},
			// σ·z with σ = 4.844805262605389 and z = 1.959963984540054.
			[]noise.ConfidenceInterval{
				{LowerBound: -9.495643826816682, UpperBound: 9.495643826816682},
				{LowerBound: 5 - 9.495643826816682, UpperBound: 5 + 9.495643826816682},
			},
		},
	} {
		got, err := tc.res.ConfidenceIntervals(0.05)
		if err != nil {
			t.Fatalf("ConfidenceIntervals: when %s got err %v", tc.desc, err)
		}
		if diff := cmp.Diff(tc.want, got, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("ConfidenceIntervals: when %s mismatch (-want +got):\n%s", tc.desc, diff)
		}
	}
	bad := &Result{Kind: noise.LaplaceNoise, Sensitivity: 1, Epsilon: 1, Rows: []Row{{Value: 1}}}
	if _, err := bad.ConfidenceIntervals(1.5); err == nil {
		t.Errorf("ConfidenceIntervals: with alpha 1.5 got no error")
	}
}
