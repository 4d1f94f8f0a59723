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

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/dpagg"
	"github.com/ttarler/diff-priv-tidy/noise"
	"github.com/ttarler/diff-priv-tidy/plan"
	"github.com/ttarler/diff-priv-tidy/table"
)

// queryFlags are the flags of the count, sum, mean and noise subcommands.
type queryFlags struct {
	epsilon   float64
	delta     float64
	groupBy   []string
	column    string
	columns   []string
	lower     float64
	upper     float64
	mechanism string
	name      string
}

func (q *queryFlags) register(cmd *cobra.Command, grouped, bounded bool) {
	f := cmd.Flags()
	f.Float64Var(&q.epsilon, "epsilon", 0, "Privacy parameter ε. Required.")
	f.Float64Var(&q.delta, "delta", 0, "Privacy parameter δ. Zero selects Laplace noise, otherwise Gaussian noise is used.")
	f.StringVar(&q.name, "name", "", "Name of the operation in the budget log.")
	if grouped {
		f.StringSliceVar(&q.groupBy, "group-by", nil, "Columns to group rows by.")
	}
	if bounded {
		f.Float64Var(&q.lower, "lower", 0, "Lower bound of the values. Derived from the data when neither bound is set.")
		f.Float64Var(&q.upper, "upper", 0, "Upper bound of the values. Derived from the data when neither bound is set.")
	}
	cmd.MarkFlagRequired("epsilon")
}

// bounds returns the declared bounds, or nil when neither --lower nor --upper is set.
func (q *queryFlags) bounds(cmd *cobra.Command) (*dpagg.Bounds, error) {
	lowerSet, upperSet := cmd.Flags().Changed("lower"), cmd.Flags().Changed("upper")
	if lowerSet != upperSet {
		return nil, fmt.Errorf("--lower and --upper must be set together")
	}
	if !lowerSet {
		return nil, nil
	}
	return &dpagg.Bounds{Lower: q.lower, Upper: q.upper}, nil
}

// runAggregate loads the input, runs one aggregation against a fresh budget
// and writes its result.
func runAggregate(cmd *cobra.Command, o *options, run func(*table.Table, *budget.Budget) (*dpagg.Result, error)) error {
	t, err := o.loadTable(cmd.Context())
	if err != nil {
		return err
	}
	b, err := o.newBudget()
	if err != nil {
		return err
	}
	res, err := run(t, b)
	printBudget(cmd, b)
	if err != nil {
		return err
	}
	out, err := resultTable(res, o.alpha)
	if err != nil {
		return err
	}
	return o.writeTable(cmd, out)
}

func newCountCmd(o *options) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Differentially private row count, optionally per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAggregate(cmd, o, func(t *table.Table, b *budget.Budget) (*dpagg.Result, error) {
				return dpagg.Count(t, &dpagg.CountOptions{
					Epsilon: q.epsilon, Delta: q.delta, GroupBy: q.groupBy,
					Budget: b, Source: o.cfg.Source(), Name: q.name,
				})
			})
		},
	}
	q.register(cmd, true, false)
	return cmd
}

func newSumCmd(o *options) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "sum",
		Short: "Differentially private bounded sum of a column, optionally per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bounds, err := q.bounds(cmd)
			if err != nil {
				return err
			}
			return runAggregate(cmd, o, func(t *table.Table, b *budget.Budget) (*dpagg.Result, error) {
				return dpagg.Sum(t, &dpagg.SumOptions{
					Column: q.column, Bounds: bounds,
					Epsilon: q.epsilon, Delta: q.delta, GroupBy: q.groupBy,
					Budget: b, Source: o.cfg.Source(), Name: q.name,
				})
			})
		},
	}
	q.register(cmd, true, true)
	cmd.Flags().StringVar(&q.column, "column", "", "Numeric column to sum. Required.")
	cmd.MarkFlagRequired("column")
	return cmd
}

func newMeanCmd(o *options) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "mean",
		Short: "Differentially private bounded mean of a column, optionally per group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bounds, err := q.bounds(cmd)
			if err != nil {
				return err
			}
			return runAggregate(cmd, o, func(t *table.Table, b *budget.Budget) (*dpagg.Result, error) {
				return dpagg.Mean(t, &dpagg.MeanOptions{
					Column: q.column, Bounds: bounds,
					Epsilon: q.epsilon, Delta: q.delta, GroupBy: q.groupBy,
					Budget: b, Source: o.cfg.Source(), Name: q.name,
				})
			})
		},
	}
	q.register(cmd, true, true)
	cmd.Flags().StringVar(&q.column, "column", "", "Numeric column to average. Required.")
	cmd.MarkFlagRequired("column")
	return cmd
}

func newNoiseCmd(o *options) *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "noise",
		Short: "Add differentially private noise to every cell of some columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := noise.ParseKind(q.mechanism)
			if err != nil {
				return err
			}
			bounds, err := q.bounds(cmd)
			if err != nil {
				return err
			}
			t, err := o.loadTable(cmd.Context())
			if err != nil {
				return err
			}
			b, err := o.newBudget()
			if err != nil {
				return err
			}
			defer printBudget(cmd, b)
			out, err := dpagg.AddNoise(t, &dpagg.NoiseOptions{
				Columns: q.columns, Bounds: bounds,
				Epsilon: q.epsilon, Delta: q.delta, Noise: kind,
				Budget: b, Source: o.cfg.Source(), Name: q.name,
			})
			if err != nil {
				return err
			}
			return o.writeTable(cmd, out)
		},
	}
	q.register(cmd, false, true)
	cmd.Flags().StringSliceVar(&q.columns, "columns", nil, "Numeric columns to perturb. Required.")
	cmd.Flags().StringVar(&q.mechanism, "mechanism", "auto", "Noise mechanism: auto, laplace or gaussian.")
	cmd.MarkFlagRequired("columns")
	return cmd
}

func newRunCmd(o *options) *cobra.Command {
	var planPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the queries of a YAML plan against one privacy budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := plan.LoadFile(planPath)
			if err != nil {
				return err
			}
			t, err := o.loadTable(cmd.Context())
			if err != nil {
				return err
			}
			b, err := p.NewBudget(o.cfg.BudgetOptions())
			if err != nil {
				return err
			}
			defer printBudget(cmd, b)
			steps, runErr := p.Run(t, b, o.cfg.Source())
			if o.output != "" {
				if err := os.MkdirAll(o.output, 0o755); err != nil {
					return fmt.Errorf("couldn't create output directory: %w", err)
				}
			}
			for i, s := range steps {
				if err := writeStep(cmd, o, i, s); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&planPath, "plan", "", "YAML plan file. Required.")
	cmd.MarkFlagRequired("plan")
	return cmd
}

// writeStep writes the outcome of one plan step, either to stdout preceded by
// a comment line or to its own file in the --output directory.
func writeStep(cmd *cobra.Command, o *options, i int, s plan.Step) error {
	name := s.Query.Name
	if name == "" {
		name = s.Query.Op
	}
	if s.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "# %d %s failed: %v\n", i+1, name, s.Err)
		return nil
	}
	out := s.Table
	if s.Result != nil {
		var err error
		if out, err = resultTable(s.Result, o.alpha); err != nil {
			return err
		}
	}
	if o.output == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# %d %s\n", i+1, name)
		return out.WriteCSV(cmd.OutOrStdout())
	}
	file := fmt.Sprintf("%02d-%s.csv", i+1, stepFileName(name))
	return writeTableFile(filepath.Join(o.output, file), out)
}

// stepFileName turns a query name into a file name component made of
// lowercase letters, digits, '-' and '_'. Other runes become '_'.
func stepFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, strings.ToLower(name))
}

func newBudgetCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Print the summary of a fresh privacy budget from the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := o.newBudget()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.String())
			return nil
		},
	}
}
