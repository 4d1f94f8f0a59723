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
	"fmt"
	"strings"

	"github.com/ttarler/diff-priv-tidy/checks"
)

// Composition is an enum type. Its values are the rules for combining the
// privacy cost of several operations into a cumulative total.
type Composition int

const (
	// BasicComposition sums ε and δ of all operations coordinate-wise.
	BasicComposition Composition = iota
	// AdvancedComposition is reserved for the advanced composition theorem.
	// It is not implemented and New rejects it.
	AdvancedComposition
)

func (c Composition) String() string {
	switch c {
	case BasicComposition:
		return "basic"
	case AdvancedComposition:
		return "advanced"
	}
	return fmt.Sprintf("Composition(%d)", int(c))
}

// ParseComposition converts "basic" or "advanced" into a Composition. The
// empty string is treated as "basic".
func ParseComposition(s string) (Composition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return BasicComposition, nil
	case "advanced":
		return AdvancedComposition, nil
	}
	return BasicComposition, fmt.Errorf("%w: unknown composition %q, must be basic or advanced", checks.ErrInvalidParameter, s)
}

func checkComposition(c Composition) error {
	switch c {
	case BasicComposition:
		return nil
	case AdvancedComposition:
		return fmt.Errorf("%w: %v composition is not implemented, only basic composition is supported", checks.ErrInvalidParameter, c)
	}
	return fmt.Errorf("%w: unknown composition %v", checks.ErrInvalidParameter, c)
}
