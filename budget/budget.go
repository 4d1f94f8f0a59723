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

// Package budget provides a privacy budget ledger that tracks the cumulative
// ε and δ spent by a sequence of differentially private operations and
// refuses operations that would exceed the totals.
package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/ttarler/diff-priv-tidy/checks"
)

// DefaultDelta is the total δ of a Budget whose Options leave Delta unset.
const DefaultDelta = 1e-5

// ErrBudgetExceeded is returned when an operation would spend more ε or δ than
// the budget has left. The budget is unchanged when it is returned.
var ErrBudgetExceeded = errors.New("privacy budget exceeded")

// Operation is one committed spend in the budget's log.
type Operation struct {
	ID        uuid.UUID
	Name      string
	Epsilon   float64
	Delta     float64
	Timestamp time.Time
}

// Options contains the options necessary to initialize a Budget.
type Options struct {
	Epsilon     float64     // Total privacy parameter ε. Required.
	Delta       float64     // Total privacy parameter δ. Zero means DefaultDelta, so a total δ of 0 cannot be requested.
	Composition Composition // Composition rule. Defaults to BasicComposition.
}

// Budget is a privacy budget ledger with fixed totals, the amount spent so
// far and an append-only log of operations.
//
// A Budget is meant to be created once per analysis session and shared by
// pointer between all queries that must be accounted together. It is safe for
// concurrent use: Transact makes the admission check and the commit a single
// critical section so that concurrent operations cannot jointly overspend.
// A Budget is never reset; discard it and create a new one instead.
type Budget struct {
	mu sync.Mutex

	// Parameters
	epsilonTotal float64
	deltaTotal   float64
	composition  Composition

	// State variables
	epsilonSpent float64
	deltaSpent   float64
	operations   []Operation

	now func() time.Time
}

// New returns a new Budget with nothing spent.
func New(opt *Options) (*Budget, error) {
	if opt == nil {
		opt = &Options{}
	}
	// Set defaults.
	del := opt.Delta
	if del == 0 {
		del = DefaultDelta
	}
	if err := checks.CheckEpsilonStrict(opt.Epsilon, "EpsilonTotal"); err != nil {
		return nil, fmt.Errorf("budget.New: %w", err)
	}
	if err := checks.CheckDeltaStrict(del, "DeltaTotal"); err != nil {
		return nil, fmt.Errorf("budget.New: %w", err)
	}
	if err := checkComposition(opt.Composition); err != nil {
		return nil, fmt.Errorf("budget.New: %w", err)
	}
	return &Budget{
		epsilonTotal: opt.Epsilon,
		deltaTotal:   del,
		composition:  opt.Composition,
		now:          time.Now,
	}, nil
}

// Check reports whether an operation costing epsilon and delta fits into the
// remaining budget. It never modifies the budget. Negative or non-finite
// amounts never fit.
//
// The comparison is exact in floating point, so splitting a total into equal
// parts may leave the last part refused: three commits of 0.1 do not fit into
// a total of 0.3 because 0.1+0.1+0.1 > 0.3.
func (b *Budget) Check(epsilon, delta float64) bool {
	if checkSpend(epsilon, delta) != nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.checkLocked(epsilon, delta)
}

// Commit records an operation called name that spent epsilon and delta. It
// returns an error wrapping ErrBudgetExceeded and leaves the budget unchanged
// if Check(epsilon, delta) is false.
func (b *Budget) Commit(name string, epsilon, delta float64) error {
	if err := checkSpend(epsilon, delta); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commitLocked(name, epsilon, delta)
}

// Transact runs fn while holding the budget and commits epsilon and delta
// under name if fn succeeds. If the budget cannot cover the operation, fn is
// not called and an error wrapping ErrBudgetExceeded is returned. If fn
// returns an error, nothing is committed and the error is returned as is.
//
// fn must not call methods of b.
func (b *Budget) Transact(name string, epsilon, delta float64, fn func() error) error {
	if err := checkSpend(epsilon, delta); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.checkLocked(epsilon, delta) {
		return b.exceededLocked(name, epsilon, delta)
	}
	if err := fn(); err != nil {
		return err
	}
	return b.commitLocked(name, epsilon, delta)
}

func checkSpend(epsilon, delta float64) error {
	if err := checks.CheckEpsilon(epsilon); err != nil {
		return err
	}
	return checks.CheckDelta(delta)
}

func (b *Budget) composedLocked(epsilon, delta float64) (float64, float64) {
	switch b.composition {
	case BasicComposition:
		return b.epsilonSpent + epsilon, b.deltaSpent + delta
	case AdvancedComposition:
	}
	// New only admits implemented rules.
	return math.Inf(1), math.Inf(1)
}

func (b *Budget) checkLocked(epsilon, delta float64) bool {
	eps, del := b.composedLocked(epsilon, delta)
	return eps <= b.epsilonTotal && del <= b.deltaTotal
}

func (b *Budget) exceededLocked(name string, epsilon, delta float64) error {
	return fmt.Errorf("%w: %q requires ε=%v, δ=%v but only ε=%v, δ=%v remain",
		ErrBudgetExceeded, name, epsilon, delta, b.epsilonTotal-b.epsilonSpent, b.deltaTotal-b.deltaSpent)
}

func (b *Budget) commitLocked(name string, epsilon, delta float64) error {
	if !b.checkLocked(epsilon, delta) {
		return b.exceededLocked(name, epsilon, delta)
	}
	b.epsilonSpent, b.deltaSpent = b.composedLocked(epsilon, delta)
	b.operations = append(b.operations, Operation{
		ID:        uuid.New(),
		Name:      name,
		Epsilon:   epsilon,
		Delta:     delta,
		Timestamp: b.now(),
	})
	log.V(1).Infof("budget: committed %q (ε=%f, δ=%e), spent ε=%f of %f, δ=%e of %e",
		name, epsilon, delta, b.epsilonSpent, b.epsilonTotal, b.deltaSpent, b.deltaTotal)
	return nil
}

// EpsilonTotal returns the total ε of the budget.
func (b *Budget) EpsilonTotal() float64 {
	return b.epsilonTotal
}

// DeltaTotal returns the total δ of the budget.
func (b *Budget) DeltaTotal() float64 {
	return b.deltaTotal
}

// Composition returns the composition rule of the budget.
func (b *Budget) Composition() Composition {
	return b.composition
}

// EpsilonSpent returns the ε committed so far.
func (b *Budget) EpsilonSpent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epsilonSpent
}

// DeltaSpent returns the δ committed so far.
func (b *Budget) DeltaSpent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deltaSpent
}

// EpsilonRemaining returns the ε that can still be spent.
func (b *Budget) EpsilonRemaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.epsilonTotal - b.epsilonSpent
}

// DeltaRemaining returns the δ that can still be spent.
func (b *Budget) DeltaRemaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deltaTotal - b.deltaSpent
}

// Len returns the number of committed operations.
func (b *Budget) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.operations)
}

// Operations returns a copy of the operation log in commit order.
func (b *Budget) Operations() []Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]Operation, len(b.operations))
	copy(ops, b.operations)
	return ops
}

// String summarizes the budget: totals, spent and remaining ε (4 decimal
// places) and δ (scientific notation), the composition rule and the number of
// operations.
func (b *Budget) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Privacy Budget (%v composition)\n", b.composition)
	fmt.Fprintf(&sb, "  Epsilon: total %.4f, spent %.4f, remaining %.4f\n",
		b.epsilonTotal, b.epsilonSpent, b.epsilonTotal-b.epsilonSpent)
	fmt.Fprintf(&sb, "  Delta:   total %.2e, spent %.2e, remaining %.2e\n",
		b.deltaTotal, b.deltaSpent, b.deltaTotal-b.deltaSpent)
	fmt.Fprintf(&sb, "  Operations: %d", len(b.operations))
	return sb.String()
}
