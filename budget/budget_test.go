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

package budget

import (
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/ttarler/diff-priv-tidy/checks"
	"golang.org/x/sync/errgroup"
)

func mustNew(t *testing.T, opt *Options) *Budget {
	t.Helper()
	b, err := New(opt)
	if err != nil {
		t.Fatalf("New(%+v): %v", opt, err)
	}
	return b
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		desc      string
		opt       *Options
		wantDelta float64
		wantErr   bool
	}{
		{"defaults", &Options{Epsilon: 1}, DefaultDelta, false},
		{"explicit delta", &Options{Epsilon: 2, Delta: 1e-6}, 1e-6, false},
		{"explicit basic composition", &Options{Epsilon: 1, Composition: BasicComposition}, DefaultDelta, false},
		{"nil options", nil, 0, true},
		{"zero epsilon", &Options{Epsilon: 0}, 0, true},
		{"negative epsilon", &Options{Epsilon: -1}, 0, true},
		{"infinite epsilon", &Options{Epsilon: math.Inf(1)}, 0, true},
		{"delta == 1", &Options{Epsilon: 1, Delta: 1}, 0, true},
		{"negative delta", &Options{Epsilon: 1, Delta: -1e-5}, 0, true},
		{"advanced composition", &Options{Epsilon: 1, Composition: AdvancedComposition}, 0, true},
		{"unknown composition", &Options{Epsilon: 1, Composition: Composition(5)}, 0, true},
	} {
		b, err := New(tc.opt)
		if (err != nil) != tc.wantErr {
			t.Errorf("New: when %s got err %v, wantErr %t", tc.desc, err, tc.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, checks.ErrInvalidParameter) {
				t.Errorf("New: when %s got %v, want ErrInvalidParameter", tc.desc, err)
			}
			continue
		}
		if b.DeltaTotal() != tc.wantDelta {
			t.Errorf("New: when %s got DeltaTotal %e, want %e", tc.desc, b.DeltaTotal(), tc.wantDelta)
		}
		if b.EpsilonSpent() != 0 || b.DeltaSpent() != 0 || b.Len() != 0 {
			t.Errorf("New: when %s got a non-empty budget: %v", tc.desc, b)
		}
	}
}

func TestCheck(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	for _, tc := range []struct {
		epsilon, delta float64
		want           bool
	}{
		{0.5, 0, true},
		{1.0, 0, true},
		{1.5, 0, false},
		{0.5, 1e-5, true},
		{0.5, 2e-5, false},
		{-0.1, 0, false},
		{math.NaN(), 0, false},
	} {
		if got := b.Check(tc.epsilon, tc.delta); got != tc.want {
			t.Errorf("Check(%f, %e): got %t, want %t", tc.epsilon, tc.delta, got, tc.want)
		}
	}
	if b.Len() != 0 || b.EpsilonSpent() != 0 {
		t.Errorf("Check modified the budget: %v", b)
	}
}

func TestCommitSequence(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	if err := b.Commit("first", 0.3, 0); err != nil {
		t.Fatalf("Commit(0.3): %v", err)
	}
	if err := b.Commit("second", 0.4, 0); err != nil {
		t.Fatalf("Commit(0.4): %v", err)
	}
	if got, want := b.EpsilonSpent(), 0.3+0.4; got != want {
		t.Errorf("EpsilonSpent: got %v, want %v", got, want)
	}
	if !cmp.Equal(b.EpsilonSpent(), 0.7, cmpopts.EquateApprox(0, 1e-12)) {
		t.Errorf("EpsilonSpent: got %v, want 0.7", b.EpsilonSpent())
	}
	if b.Check(0.5, 0) {
		t.Errorf("Check(0.5) after spending 0.7 of 1.0: got true, want false")
	}
	if !b.Check(0.2, 0) {
		t.Errorf("Check(0.2) after spending 0.7 of 1.0: got false, want true")
	}
}

func TestCommitExceededLeavesBudgetUnchanged(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0, Delta: 1e-5})
	if err := b.Commit("ok", 0.6, 5e-6); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	before := b.Operations()
	for _, tc := range []struct {
		desc           string
		epsilon, delta float64
	}{
		{"too much epsilon", 0.5, 0},
		{"too much delta", 0.1, 6e-6},
	} {
		err := b.Commit(tc.desc, tc.epsilon, tc.delta)
		if !errors.Is(err, ErrBudgetExceeded) {
			t.Errorf("Commit: when %s got %v, want ErrBudgetExceeded", tc.desc, err)
		}
	}
	if b.EpsilonSpent() != 0.6 || b.DeltaSpent() != 5e-6 {
		t.Errorf("after failed commits got spent (%f, %e), want (0.6, 5e-6)", b.EpsilonSpent(), b.DeltaSpent())
	}
	if diff := cmp.Diff(before, b.Operations()); diff != "" {
		t.Errorf("failed commits changed the log (-want +got):\n%s", diff)
	}
}

func TestEqualPartsRoundingIsReported(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 0.3})
	for i := 0; i < 2; i++ {
		if err := b.Commit("part", 0.1, 0); err != nil {
			t.Fatalf("Commit %d: %v", i+1, err)
		}
	}
	err := b.Commit("part", 0.1, 0)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("Commit 3: got %v, want ErrBudgetExceeded", err)
	}
	// 0.3 - (0.1 + 0.1) is slightly below 0.1 and the message must show it.
	if want := "only ε=0.09999999999999998"; !strings.Contains(err.Error(), want) {
		t.Errorf("Commit 3: got message %q, want it to contain %q", err.Error(), want)
	}
	if b.Check(0.1, 0) {
		t.Errorf("Check(0.1): got true, want false")
	}
}

func TestZeroDeltaUsesDefault(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1, Delta: 0})
	if got := b.DeltaTotal(); got != DefaultDelta {
		t.Errorf("DeltaTotal: with Delta 0 got %e, want %e", got, DefaultDelta)
	}
}

func TestCommitInvalidAmounts(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	for _, tc := range []struct {
		epsilon, delta float64
	}{
		{-0.1, 0},
		{math.NaN(), 0},
		{0.1, -1e-6},
		{0.1, 1},
	} {
		if err := b.Commit("bad", tc.epsilon, tc.delta); !errors.Is(err, checks.ErrInvalidParameter) {
			t.Errorf("Commit(%f, %e): got %v, want ErrInvalidParameter", tc.epsilon, tc.delta, err)
		}
	}
	if b.Len() != 0 {
		t.Errorf("invalid commits were logged: %v", b.Operations())
	}
}

func TestOperationsLog(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 2.0})
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	b.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	for _, name := range []string{"count", "sum", "mean"} {
		if err := b.Commit(name, 0.5, 1e-6); err != nil {
			t.Fatalf("Commit(%s): %v", name, err)
		}
	}
	got := b.Operations()
	want := []Operation{
		{Name: "count", Epsilon: 0.5, Delta: 1e-6, Timestamp: time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC)},
		{Name: "sum", Epsilon: 0.5, Delta: 1e-6, Timestamp: time.Date(2024, 1, 2, 3, 4, 7, 0, time.UTC)},
		{Name: "mean", Epsilon: 0.5, Delta: 1e-6, Timestamp: time.Date(2024, 1, 2, 3, 4, 8, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Operation{}, "ID")); diff != "" {
		t.Errorf("Operations (-want +got):\n%s", diff)
	}
	ids := make(map[string]bool)
	for _, op := range got {
		ids[op.ID.String()] = true
	}
	if len(ids) != len(got) {
		t.Errorf("Operations: got %d distinct IDs, want %d", len(ids), len(got))
	}
	// The returned log is a copy.
	got[0].Name = "changed"
	if b.Operations()[0].Name != "count" {
		t.Errorf("Operations returned the internal slice")
	}
}

func TestTransact(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	called := false
	if err := b.Transact("query", 0.4, 0, func() error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if !called || b.EpsilonSpent() != 0.4 || b.Len() != 1 {
		t.Errorf("Transact: got called=%t spent=%f len=%d, want true 0.4 1", called, b.EpsilonSpent(), b.Len())
	}

	called = false
	err := b.Transact("too expensive", 0.7, 0, func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("Transact over budget: got %v, want ErrBudgetExceeded", err)
	}
	if called {
		t.Errorf("Transact over budget: fn was called")
	}

	fnErr := errors.New("query failed")
	if err := b.Transact("failing", 0.1, 0, func() error { return fnErr }); !errors.Is(err, fnErr) {
		t.Errorf("Transact with failing fn: got %v, want %v", err, fnErr)
	}
	if b.EpsilonSpent() != 0.4 || b.Len() != 1 {
		t.Errorf("Transact with failing fn committed: spent=%f len=%d", b.EpsilonSpent(), b.Len())
	}
}

func TestConcurrentTransactNeverOverspends(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	var succeeded atomic.Int64
	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			err := b.Transact("concurrent", 0.25, 0, func() error { return nil })
			switch {
			case err == nil:
				succeeded.Add(1)
				return nil
			case errors.Is(err, ErrBudgetExceeded):
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if got := succeeded.Load(); got != 4 {
		t.Errorf("concurrent Transact: got %d successes, want 4", got)
	}
	if b.EpsilonSpent() != 1.0 || b.Len() != 4 {
		t.Errorf("concurrent Transact: got spent=%f len=%d, want 1.0 and 4", b.EpsilonSpent(), b.Len())
	}
}

func TestString(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 1.0})
	if err := b.Commit("a", 0.3, 0); err != nil {
		t.Fatal(err)
	}
	if err := b.Commit("b", 0.4, 0); err != nil {
		t.Fatal(err)
	}
	want := "Privacy Budget (basic composition)\n" +
		"  Epsilon: total 1.0000, spent 0.7000, remaining 0.3000\n" +
		"  Delta:   total 1.00e-05, spent 0.00e+00, remaining 1.00e-05\n" +
		"  Operations: 2"
	if got := b.String(); got != want {
		t.Errorf("String:\ngot  %q\nwant %q", got, want)
	}
}

func TestRemaining(t *testing.T) {
	b := mustNew(t, &Options{Epsilon: 2.0, Delta: 1e-4})
	if err := b.Commit("a", 0.5, 1e-5); err != nil {
		t.Fatal(err)
	}
	if got := b.EpsilonRemaining(); got != 1.5 {
		t.Errorf("EpsilonRemaining: got %f, want 1.5", got)
	}
	if got := b.DeltaRemaining(); !cmp.Equal(got, 9e-5, cmpopts.EquateApprox(0, 1e-15)) {
		t.Errorf("DeltaRemaining: got %e, want 9e-5", got)
	}
	if b.EpsilonTotal() != 2.0 || b.Composition() != BasicComposition {
		t.Errorf("got total %f and composition %v, want 2.0 and basic", b.EpsilonTotal(), b.Composition())
	}
}

func TestParseComposition(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    Composition
		wantErr bool
	}{
		{"", BasicComposition, false},
		{"basic", BasicComposition, false},
		{"Advanced", AdvancedComposition, false},
		{"renyi", BasicComposition, true},
	} {
		got, err := ParseComposition(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseComposition(%q): got (%v, %v), want (%v, wantErr %t)", tc.in, got, err, tc.want, tc.wantErr)
		}
	}
}
