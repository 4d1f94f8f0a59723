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
)

type laplace struct {
	src *rand.Source
}

// Laplace returns a Noise instance that adds Laplace noise to its input,
// drawing from the default source. Its functions fail if called with a
// non-zero delta.
//
// Samples are drawn with the inverse CDF method: for u uniform in
// (-0.5, 0.5), -b·sign(u)·ln(1 - 2|u|) is Laplace distributed with scale b.
func Laplace() Noise {
	return laplace{src: rand.Default()}
}

func (laplace) Kind() Kind {
	return LaplaceNoise
}

// AddNoiseFloat64 adds Laplace noise of scale sensitivity/ε to x.
func (l laplace) AddNoiseFloat64(x, sensitivity, epsilon, delta float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon, delta); err != nil {
		return 0, err
	}
	return x + l.sample(laplaceLambda(sensitivity, epsilon)), nil
}

// AddNoiseFloat64Slice adds an independent Laplace draw of scale sensitivity/ε to each element of xs.
func (l laplace) AddNoiseFloat64Slice(xs []float64, sensitivity, epsilon, delta float64) ([]float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon, delta); err != nil {
		return nil, err
	}
	return addNoiseSlice(xs, laplaceLambda(sensitivity, epsilon), l.sample), nil
}

func (laplace) Scale(sensitivity, epsilon, delta float64) (float64, error) {
	if err := checkArgsLaplace(sensitivity, epsilon, delta); err != nil {
		return 0, err
	}
	return laplaceLambda(sensitivity, epsilon), nil
}

// ComputeConfidenceIntervalFloat64 computes a confidence interval that contains the raw value x from which float64
// noisedX is computed with a probability equal to 1 - alpha based on the specified laplace noise parameters.
func (laplace) ComputeConfidenceIntervalFloat64(noisedX, sensitivity, epsilon, delta, alpha float64) (ConfidenceInterval, error) {
	if err := checks.CheckAlpha(alpha); err != nil {
		return ConfidenceInterval{}, err
	}
	if err := checkArgsLaplace(sensitivity, epsilon, delta); err != nil {
		return ConfidenceInterval{}, err
	}
	lambda := laplaceLambda(sensitivity, epsilon)
	return computeConfidenceIntervalLaplace(noisedX, lambda, alpha), nil
}

func (laplace) String() string {
	return "Laplace Noise"
}

func checkArgsLaplace(sensitivity, epsilon, delta float64) error {
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return err
	}
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return err
	}
	return checks.CheckNoDelta(delta)
}

// sample draws one Laplace sample with mean zero and scale b.
func (l laplace) sample(b float64) float64 {
	u := l.src.Uniform() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -b * sign * math.Log(1-2*math.Abs(u))
}

// laplaceLambda computes the scale parameter λ for the Laplace noise
// distribution required by the Laplace mechanism for achieving ε-differential
// privacy on a query of the given sensitivity.
func laplaceLambda(sensitivity, epsilon float64) float64 {
	return sensitivity / epsilon
}

// computeConfidenceIntervalLaplace computes a confidence interval that contains the raw value x from which
// float64 noisedX is computed with a probability equal to 1 - alpha with the given lambda.
func computeConfidenceIntervalLaplace(noisedX float64, lambda, alpha float64) ConfidenceInterval {
	z := inverseCDFLaplace(lambda, alpha/2)
	// Because of the symmetry of the Laplace distribution, -z corresponds to
	// the (1 - alpha/2)-quantile, so [z, -z] contains 1-alpha of the mass.
	// Deriving it from the alpha/2-quantile keeps precision for small alpha.
	return ConfidenceInterval{LowerBound: noisedX + z, UpperBound: noisedX - z}
}

// inverseCDFLaplace computes the quantile z satisfying Pr[Y <= z] = p for a random variable Y
// that is Laplace distributed with the specified lambda where mean is zero.
func inverseCDFLaplace(lambda, p float64) float64 {
	if p < 0.5 {
		return lambda * math.Log(2*p)
	}
	return -lambda * math.Log(2*(1-p))
}
