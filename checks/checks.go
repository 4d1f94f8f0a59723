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

// Package checks contains checks for differentially private functions.
package checks

import (
	"errors"
	"fmt"
	"math"

	log "github.com/golang/glog"
)

var (
	// ErrInvalidParameter is returned when a privacy or noise parameter (ε, δ,
	// sensitivity, bounds, sample size) is out of range.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidArgument is returned when a query refers to data it cannot use,
	// e.g. a missing or non-numeric column.
	ErrInvalidArgument = errors.New("invalid argument")
)

const (
	epsilonName     = "Epsilon"
	deltaName       = "Delta"
	sensitivityName = "Sensitivity"
)

func verifyName(defaultName string, nameSlice []string) (string, error) {
	var name string
	switch len(nameSlice) {
	case 0:
		name = defaultName
	case 1:
		name = nameSlice[0]
	default:
		return "", fmt.Errorf("there should be 0 or 1 'name' parameter, got %d", len(nameSlice))
	}
	return name, nil
}

func invalid(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, a...))
}

// CheckEpsilonStrict returns an error if ε is nonpositive or +∞.
func CheckEpsilonStrict(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon <= 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return invalid("%s is %f, must be strictly positive and finite", epsName, epsilon)
	}
	return nil
}

// CheckEpsilon returns an error if ε is strictly negative or +∞.
func CheckEpsilon(epsilon float64, name ...string) error {
	epsName, err := verifyName(epsilonName, name)
	if err != nil {
		return err
	}
	if epsilon < 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return invalid("%s is %f, must be nonnegative and finite", epsName, epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is negative or greater than or equal to 1.
func CheckDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return invalid("%s is %e, cannot be NaN", delName, delta)
	}
	if delta < 0 {
		return invalid("%s is %e, cannot be negative", delName, delta)
	}
	if delta >= 1 {
		return invalid("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckDeltaStrict returns an error if δ is nonpositive or greater than or equal to 1.
func CheckDeltaStrict(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if math.IsNaN(delta) {
		return invalid("%s is %e, cannot be NaN", delName, delta)
	}
	if delta <= 0 {
		return invalid("%s is %e, must be strictly positive", delName, delta)
	}
	if delta >= 1 {
		return invalid("%s is %e, must be strictly less than 1", delName, delta)
	}
	return nil
}

// CheckNoDelta returns an error if δ is non-zero.
func CheckNoDelta(delta float64, name ...string) error {
	delName, err := verifyName(deltaName, name)
	if err != nil {
		return err
	}
	if delta != 0 {
		return invalid("%s is %e, must be 0", delName, delta)
	}
	return nil
}

// CheckSensitivity returns an error if sensitivity is nonpositive or +∞.
func CheckSensitivity(sensitivity float64, name ...string) error {
	sensName, err := verifyName(sensitivityName, name)
	if err != nil {
		return err
	}
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return invalid("%s is %f, must be strictly positive and finite", sensName, sensitivity)
	}
	return nil
}

// CheckBoundsFloat64 returns an error if lower is larger than upper, or if either parameter is ±∞ or NaN.
func CheckBoundsFloat64(lower, upper float64) error {
	if math.IsNaN(lower) {
		return invalid("Lower bound cannot be NaN")
	}
	if math.IsNaN(upper) {
		return invalid("Upper bound cannot be NaN")
	}
	if math.IsInf(lower, 0) {
		return invalid("Lower bound cannot be infinity")
	}
	if math.IsInf(upper, 0) {
		return invalid("Upper bound cannot be infinity")
	}
	if lower > upper {
		return invalid("Upper bound (%f) must be larger than lower bound (%f)", upper, lower)
	}
	if lower == upper {
		log.Warningf("Lower bound is equal to upper bound: all added elements will be clamped to %f", upper)
	}
	return nil
}

// CheckSampleSize returns an error if n is nonpositive.
func CheckSampleSize(n int) error {
	if n <= 0 {
		return invalid("Sample size is %d, must be at least 1", n)
	}
	return nil
}

// CheckAlpha returns an error if the supplied alpha is not between 0 and 1.
func CheckAlpha(alpha float64) error {
	if alpha <= 0 || alpha >= 1 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return invalid("Alpha is %f, must be within (0, 1) and finite", alpha)
	}
	return nil
}
