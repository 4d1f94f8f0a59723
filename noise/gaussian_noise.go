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

package noise

import (
	"math"

	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

type gaussian struct {
	src *rand.Source
}

// Gaussian returns a Noise instance that adds Gaussian noise to its input,
// drawing from the default source.
//
// The standard deviation is the classical analytic bound
//
//	σ = sensitivity · sqrt(2·ln(1.25/δ)) / ε
//
// from Dwork and Roth, "The Algorithmic Foundations of Differential Privacy"
// (Theorem A.1). The bound is only proven for ε < 1. It is applied for any ε
// and callers using larger ε should be aware that the guarantee is not
// established there.
func Gaussian() Noise {
	return gaussian{src: rand.Default()}
}

func (gaussian) Kind() Kind {
	return GaussianNoise
}

// AddNoiseFloat64 adds Gaussian noise to the specified float64, so that its
// output is (ε,δ)-differentially private.
func (g gaussian) AddNoiseFloat64(x, sensitivity, epsilon, delta float64) (float64, error) {
	if err := checkArgsGaussian(sensitivity, epsilon, delta); err != nil {
		return 0, err
	}
	return x + g.sample(sigmaForGaussian(sensitivity, epsilon, delta)), nil
}

// AddNoiseFloat64Slice adds an independent Gaussian draw to each element of xs.
func (g gaussian) AddNoiseFloat64Slice(xs []float64, sensitivity, epsilon, delta float64) ([]float64, error) {
	if err := checkArgsGaussian(sensitivity, epsilon, delta); err != nil {
		return nil, err
	}
	return addNoiseSlice(xs, sigmaForGaussian(sensitivity, epsilon, delta), g.sample), nil
}

func (gaussian) Scale(sensitivity, epsilon, delta float64) (float64, error) {
	if err := checkArgsGaussian(sensitivity, epsilon, delta); err != nil {
		return 0, err
	}
	return sigmaForGaussian(sensitivity, epsilon, delta), nil
}

// ComputeConfidenceIntervalFloat64 computes a confidence interval that contains the raw value x from which float64
// noisedX is computed with a probability equal to 1 - alpha based on the specified gaussian noise parameters.
func (gaussian) ComputeConfidenceIntervalFloat64(noisedX, sensitivity, epsilon, delta, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	if err := checkArgsGaussian(sensitivity, epsilon, delta); err != nil {
		return ConfidenceInterval{}, err
	}
	sigma := sigmaForGaussian(sensitivity, epsilon, delta)
	// The alpha/2-quantile is negative; the interval is symmetric around noisedX.
	z := sigma * distuv.UnitNormal.Quantile(alpha/2)
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}, nil
}

func (gaussian) String() string {
	return "Gaussian Noise"
}

func checkArgsGaussian(sensitivity, epsilon, delta float64) error {
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return err
	}
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return err
	}
	return checks.CheckDeltaStrict(delta)
}

// sample draws one zero-mean normal sample with standard deviation sigma.
func (g gaussian) sample(sigma float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: sigma, Src: g.src}.Rand()
}

// sigmaForGaussian calculates the standard deviation σ of Gaussian noise
// needed to achieve (ε,δ)-approximate differential privacy with the classical
// bound.
func sigmaForGaussian(sensitivity, epsilon, delta float64) float64 {
	return sensitivity * math.Sqrt(2*math.Log(1.25/delta)) / epsilon
}
