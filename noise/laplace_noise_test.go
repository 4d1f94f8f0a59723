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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/grd/stat"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/rand"
)

func TestLaplaceStatistics(t *testing.T) {
	const numberOfSamples = 125000
	for _, tc := range []struct {
		sensitivity, epsilon, mean, variance float64
	}{
		{
			sensitivity: 1.0,
			epsilon:     1.0,
			mean:        0.0,
			variance:    2.0,
		},
		{
			sensitivity: 1.0,
			epsilon:     ln3,
			mean:        0.0,
			variance:    2.0 / (ln3 * ln3),
		},
		{
			sensitivity: 1.0,
			epsilon:     ln3,
			mean:        45941223.02107,
			variance:    2.0 / (ln3 * ln3),
		},
		{
			sensitivity: 2.0,
			epsilon:     2.0 * ln3,
			mean:        0.0,
			variance:    2.0 / (ln3 * ln3),
		},
	} {
		l := mustNew(t, LaplaceNoise, 2024)
		noisedSamples := make(stat.Float64Slice, numberOfSamples)
		for i := 0; i < numberOfSamples; i++ {
			var err error
			noisedSamples[i], err = l.AddNoiseFloat64(tc.mean, tc.sensitivity, tc.epsilon, 0)
			if err != nil {
				t.Fatalf("AddNoiseFloat64: %v", err)
			}
		}
		sampleMean, sampleVariance := stat.Mean(noisedSamples), stat.Variance(noisedSamples)
		// The sample mean is approximately Gaussian with standard deviation
		// sqrt(tc.variance / numberOfSamples); the tolerance is its 99.9995% quantile.
		meanErrorTolerance := 4.41717 * math.Sqrt(tc.variance/float64(numberOfSamples))
		// The sample variance of Laplace samples has standard deviation
		// sqrt(5) * tc.variance / sqrt(numberOfSamples).
		varianceErrorTolerance := 4.41717 * math.Sqrt(5.0) * tc.variance / math.Sqrt(float64(numberOfSamples))

		if !nearEqual(sampleMean, tc.mean, meanErrorTolerance) {
			t.Errorf("got mean = %f, want %f (parameters %+v)", sampleMean, tc.mean, tc)
		}
		if !nearEqual(sampleVariance, tc.variance, varianceErrorTolerance) {
			t.Errorf("got variance = %f, want %f (parameters %+v)", sampleVariance, tc.variance, tc)
		}
	}
}

func TestLaplaceNoiseIsAdded(t *testing.T) {
	l := mustNew(t, LaplaceNoise, 1)
	for i := 0; i < 1000; i++ {
		got, err := l.AddNoiseFloat64(10, 1, 0.5, 0)
		if err != nil {
			t.Fatalf("AddNoiseFloat64: %v", err)
		}
		if got == 10 || math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("AddNoiseFloat64(10): got %f, want a finite value different from 10", got)
		}
	}
}

func TestLaplaceSlice(t *testing.T) {
	l := mustNew(t, LaplaceNoise, 3)
	in := []float64{1, 2, 3, 4, 5}
	got, err := l.AddNoiseFloat64Slice(in, 1, 1, 0)
	if err != nil {
		t.Fatalf("AddNoiseFloat64Slice: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("AddNoiseFloat64Slice: got %d elements, want %d", len(got), len(in))
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5}, in); diff != "" {
		t.Errorf("AddNoiseFloat64Slice modified its input (-want +got):\n%s", diff)
	}
	seen := make(map[float64]bool)
	for i, v := range got {
		if v == in[i] {
			t.Errorf("AddNoiseFloat64Slice: element %d got no noise", i)
		}
		seen[v-in[i]] = true
	}
	if len(seen) != len(in) {
		t.Errorf("AddNoiseFloat64Slice: got %d distinct noise draws, want %d", len(seen), len(in))
	}
}

func TestLaplaceReproducible(t *testing.T) {
	xs := []float64{0, 10, 100}
	a, err := mustNew(t, LaplaceNoise, 99).AddNoiseFloat64Slice(xs, 1, 0.1, 0)
	if err != nil {
		t.Fatalf("AddNoiseFloat64Slice: %v", err)
	}
	b, err := mustNew(t, LaplaceNoise, 99).AddNoiseFloat64Slice(xs, 1, 0.1, 0)
	if err != nil {
		t.Fatalf("AddNoiseFloat64Slice: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different noise (-first +second):\n%s", diff)
	}
}

func TestLaplaceInvalidParameters(t *testing.T) {
	for _, tc := range []struct {
		desc                        string
		sensitivity, epsilon, delta float64
	}{
		{"zero epsilon", 1, 0, 0},
		{"negative epsilon", 1, -1, 0},
		{"infinite epsilon", 1, math.Inf(1), 0},
		{"zero sensitivity", 0, 1, 0},
		{"negative sensitivity", -1, 1, 0},
		{"non-zero delta", 1, 1, 1e-5},
	} {
		if _, err := lap.AddNoiseFloat64(0, tc.sensitivity, tc.epsilon, tc.delta); !errors.Is(err, checks.ErrInvalidParameter) {
			t.Errorf("AddNoiseFloat64: when %s got err %v, want ErrInvalidParameter", tc.desc, err)
		}
		if _, err := lap.AddNoiseFloat64Slice([]float64{0}, tc.sensitivity, tc.epsilon, tc.delta); !errors.Is(err, checks.ErrInvalidParameter) {
			t.Errorf("AddNoiseFloat64Slice: when %s got err %v, want ErrInvalidParameter", tc.desc, err)
		}
	}
}

func TestLaplaceScale(t *testing.T) {
	got, err := lap.Scale(2, 0.5, 0)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	if got != 4 {
		t.Errorf("Scale(2, 0.5): got %f, want 4", got)
	}
}

func TestInverseCDFLaplace(t *testing.T) {
	for _, tc := range []struct {
		lambda, p, want float64
	}{
		{1, 0.5, 0},
		{1, 0.05, math.Log(0.1)},
		{1, 0.95, -math.Log(0.1)},
		{2, 0.25, 2 * math.Log(0.5)},
	} {
		if got := inverseCDFLaplace(tc.lambda, tc.p); !nearEqual(got, tc.want, 1e-12) {
			t.Errorf("inverseCDFLaplace(%f, %f): got %f, want %f", tc.lambda, tc.p, got, tc.want)
		}
	}
}

func TestLaplaceConfidenceInterval(t *testing.T) {
	for _, tc := range []struct {
		desc                               string
		noisedX, sensitivity, epsilon, alpha float64
		want                               ConfidenceInterval
	}{
		{"unit scale", 0, 1, 1, 0.1, ConfidenceInterval{math.Log(0.1), -math.Log(0.1)}},
		{"shifted", 10, 1, 1, 0.1, ConfidenceInterval{10 + math.Log(0.1), 10 - math.Log(0.1)}},
		{"scale 2", 0, 1, 0.5, 0.5, ConfidenceInterval{2 * math.Log(0.5), -2 * math.Log(0.5)}},
	} {
		got, err := lap.ComputeConfidenceIntervalFloat64(tc.noisedX, tc.sensitivity, tc.epsilon, 0, tc.alpha)
		if err != nil {
			t.Fatalf("ComputeConfidenceIntervalFloat64: when %s: %v", tc.desc, err)
		}
		if !nearEqual(got.LowerBound, tc.want.LowerBound, 1e-9) || !nearEqual(got.UpperBound, tc.want.UpperBound, 1e-9) {
			t.Errorf("ComputeConfidenceIntervalFloat64: when %s got %+v, want %+v", tc.desc, got, tc.want)
		}
	}
	if _, err := lap.ComputeConfidenceIntervalFloat64(0, 1, 1, 0, 1.5); !errors.Is(err, checks.ErrInvalidParameter) {
		t.Errorf("ComputeConfidenceIntervalFloat64 with alpha 1.5: got %v, want ErrInvalidParameter", err)
	}
}

func TestLaplaceConfidenceIntervalCoverage(t *testing.T) {
	const (
		numberOfSamples = 20000
		alpha           = 0.1
		rawValue        = 50.0
	)
	l := mustNew(t, LaplaceNoise, 17)
	covered := 0
	for i := 0; i < numberOfSamples; i++ {
		noised, err := l.AddNoiseFloat64(rawValue, 1, ln3, 0)
		if err != nil {
			t.Fatalf("AddNoiseFloat64: %v", err)
		}
		ci, err := l.ComputeConfidenceIntervalFloat64(noised, 1, ln3, 0, alpha)
		if err != nil {
			t.Fatalf("ComputeConfidenceIntervalFloat64: %v", err)
		}
		if ci.LowerBound <= rawValue && rawValue <= ci.UpperBound {
			covered++
		}
	}
	// Coverage is binomial with p = 0.9; 0.02 is more than 9 standard deviations.
	if got := float64(covered) / numberOfSamples; !nearEqual(got, 1-alpha, 0.02) {
		t.Errorf("confidence interval coverage: got %f, want %f", got, 1-alpha)
	}
}

func TestLaplaceDefaultSourceIsUsed(t *testing.T) {
	if _, ok := Laplace().(laplace); !ok {
		t.Fatalf("Laplace(): got %T, want laplace", Laplace())
	}
	if Laplace().(laplace).src != rand.Default() {
		t.Errorf("Laplace(): does not draw from rand.Default()")
	}
}
