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

// Package noise contains methods to generate and add noise to data.
package noise

import (
	"fmt"
	"strings"

	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/rand"
)

// Kind is an enum type. Its values are the supported noise distributions types
// for differential privacy operations.
type Kind int

// Noise distributions used to achieve Differential Privacy.
const (
	// AutoNoise picks Laplace noise when δ is zero and Gaussian noise otherwise.
	AutoNoise Kind = iota
	LaplaceNoise
	GaussianNoise
)

func (k Kind) String() string {
	switch k {
	case AutoNoise:
		return "auto"
	case LaplaceNoise:
		return "laplace"
	case GaussianNoise:
		return "gaussian"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a mechanism name ("auto", "laplace" or "gaussian") into a Kind.
// The empty string is treated as "auto".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return AutoNoise, nil
	case "laplace":
		return LaplaceNoise, nil
	case "gaussian":
		return GaussianNoise, nil
	}
	return AutoNoise, fmt.Errorf("%w: unknown noise mechanism %q, must be one of auto, laplace, gaussian", checks.ErrInvalidArgument, s)
}

// Params are the privacy parameters of a single release.
type Params struct {
	Epsilon float64 // Privacy parameter ε. Required.
	Delta   float64 // Privacy parameter δ. Zero selects Laplace noise, a value in (0,1) selects Gaussian noise.
}

// Check returns an error if ε is not strictly positive and finite or δ is not in [0,1).
func (p Params) Check() error {
	if err := checks.CheckEpsilonStrict(p.Epsilon); err != nil {
		return err
	}
	return checks.CheckDelta(p.Delta)
}

// Kind returns the mechanism implied by the parameters.
func (p Params) Kind() Kind {
	if p.Delta > 0 {
		return GaussianNoise
	}
	return LaplaceNoise
}

// Resolve turns a requested Kind into a concrete mechanism for p. AutoNoise
// resolves by δ; an explicit choice must agree with δ (Laplace needs δ = 0,
// Gaussian needs δ > 0).
func (p Params) Resolve(k Kind) (Kind, error) {
	switch k {
	case AutoNoise:
		return p.Kind(), nil
	case LaplaceNoise:
		if err := checks.CheckNoDelta(p.Delta); err != nil {
			return AutoNoise, fmt.Errorf("laplace mechanism: %w", err)
		}
		return LaplaceNoise, nil
	case GaussianNoise:
		if err := checks.CheckDeltaStrict(p.Delta); err != nil {
			return AutoNoise, fmt.Errorf("gaussian mechanism: %w", err)
		}
		return GaussianNoise, nil
	}
	return AutoNoise, fmt.Errorf("%w: unknown noise kind %v", checks.ErrInvalidArgument, k)
}

// New returns the Noise instance of kind k drawing from src. A nil src uses
// the default source. AutoNoise is not a concrete mechanism and is rejected;
// use Params.Resolve first.
func New(k Kind, src *rand.Source) (Noise, error) {
	if src == nil {
		src = rand.Default()
	}
	switch k {
	case LaplaceNoise:
		return laplace{src: src}, nil
	case GaussianNoise:
		return gaussian{src: src}, nil
	case AutoNoise:
		return nil, fmt.Errorf("%w: noise kind must be resolved before use, got %v", checks.ErrInvalidArgument, k)
	}
	return nil, fmt.Errorf("%w: unknown noise kind %v", checks.ErrInvalidArgument, k)
}

// ConfidenceInterval holds lower and upper bounds as float64 for the confidence interval.
type ConfidenceInterval struct {
	LowerBound, UpperBound float64
}

// Noise is an interface for primitives that add noise to data to make it differentially private.
type Noise interface {
	// Kind reports which mechanism this is.
	Kind() Kind

	// AddNoiseFloat64 adds noise to x so that the output is differentially
	// private for a query of the given sensitivity.
	AddNoiseFloat64(x, sensitivity, epsilon, delta float64) (float64, error)

	// AddNoiseFloat64Slice returns a copy of xs where every element received
	// an independent noise draw.
	AddNoiseFloat64Slice(xs []float64, sensitivity, epsilon, delta float64) ([]float64, error)

	// Scale returns the scale parameter of the noise distribution: b for
	// Laplace noise and σ for Gaussian noise.
	Scale(sensitivity, epsilon, delta float64) (float64, error)

	// ComputeConfidenceIntervalFloat64 computes a confidence interval that contains the raw value x from which
	// noisedX is computed with a probability equal to 1 - alpha based on the specified noise parameters.
	ComputeConfidenceIntervalFloat64(noisedX, sensitivity, epsilon, delta, alpha float64) (ConfidenceInterval, error)
}

// addNoiseSlice applies sample to each element of xs after checks passed.
func addNoiseSlice(xs []float64, scale float64, sample func(float64) float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x + sample(scale)
	}
	return out
}
