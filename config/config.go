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

// Package config reads the defaults of the dptidy command from the environment
// and from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/rand"
)

// Environment variables.
const (
	EnvEpsilonTotal = "DPTIDY_EPSILON_TOTAL"
	EnvDeltaTotal   = "DPTIDY_DELTA_TOTAL"
	EnvComposition  = "DPTIDY_COMPOSITION"
	EnvSeed         = "DPTIDY_SEED"
)

// Default values
const (
	DefaultEpsilonTotal = 1.0
	DefaultEnvFile      = ".env"
)

// Config holds the session defaults.
type Config struct {
	EpsilonTotal float64
	DeltaTotal   float64
	Composition  budget.Composition
	// Seed makes noise reproducible when HasSeed is set. Otherwise noise comes
	// from a randomly seeded source.
	Seed    uint64
	HasSeed bool
}

// Load reads the configuration. Variables set in the process environment take
// precedence over the given .env files, which are read in order, earlier files
// winning. Missing files are ignored. With no files, DefaultEnvFile is used.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	env := map[string]string{}
	for _, path := range envFiles {
		vals, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("couldn't read %s: %w", path, err)
		}
		for k, v := range vals {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return env[key]
	}

	cfg := &Config{EpsilonTotal: DefaultEpsilonTotal, DeltaTotal: budget.DefaultDelta, Composition: budget.BasicComposition}
	var err error
	if v := lookup(EnvEpsilonTotal); v != "" {
		if cfg.EpsilonTotal, err = parseFloat(EnvEpsilonTotal, v); err != nil {
			return nil, err
		}
	}
	if v := lookup(EnvDeltaTotal); v != "" {
		if cfg.DeltaTotal, err = parseFloat(EnvDeltaTotal, v); err != nil {
			return nil, err
		}
	}
	if v := lookup(EnvComposition); v != "" {
		if cfg.Composition, err = budget.ParseComposition(v); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvComposition, err)
		}
	}
	if v := lookup(EnvSeed); v != "" {
		if cfg.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("%w: %s is %q, must be an unsigned integer", checks.ErrInvalidParameter, EnvSeed, v)
		}
		cfg.HasSeed = true
	}
	return cfg, nil
}

func parseFloat(key, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is %q, must be a number", checks.ErrInvalidParameter, key, v)
	}
	return f, nil
}

// BudgetOptions returns the options of a budget with the configured totals.
func (c *Config) BudgetOptions() budget.Options {
	return budget.Options{Epsilon: c.EpsilonTotal, Delta: c.DeltaTotal, Composition: c.Composition}
}

// NewBudget returns a fresh budget with the configured totals.
func (c *Config) NewBudget() (*budget.Budget, error) {
	opt := c.BudgetOptions()
	return budget.New(&opt)
}

// Source returns the source of randomness to use for noise.
func (c *Config) Source() *rand.Source {
	if c.HasSeed {
		return rand.NewSource(c.Seed)
	}
	return rand.Default()
}
