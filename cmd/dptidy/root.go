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
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"slices"

	log "github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/ttarler/diff-priv-tidy/budget"
	"github.com/ttarler/diff-priv-tidy/checks"
	"github.com/ttarler/diff-priv-tidy/config"
	"github.com/ttarler/diff-priv-tidy/dpagg"
	"github.com/ttarler/diff-priv-tidy/table"
)

// Names accepted by --driver.
var sqlDrivers = []string{"sqlite", "mysql", "pgx"}

// options are the flags shared by every subcommand.
type options struct {
	input    string
	driver   string
	dsn      string
	query    string
	envFiles []string
	seed     uint64
	output   string
	alpha    float64

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "dptidy",
		Short:         "Differentially private aggregates over tabular data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(o.envFiles...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed, cfg.HasSeed = o.seed, true
			}
			o.cfg = cfg
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.input, "input", "", "Input csv file with a header row.")
	pf.StringVar(&o.driver, "driver", "", fmt.Sprintf("SQL driver to read the input from, one of %v.", sqlDrivers))
	pf.StringVar(&o.dsn, "dsn", "", "Data source name passed to the SQL driver.")
	pf.StringVar(&o.query, "query", "", "SQL query producing the input table.")
	pf.StringSliceVar(&o.envFiles, "env-file", nil, "Files with environment defaults. Defaults to .env.")
	pf.Uint64Var(&o.seed, "seed", 0, "Seed for reproducible noise. Overrides DPTIDY_SEED.")
	pf.StringVar(&o.output, "output", "", "Output csv file. Defaults to standard output. For run, a directory.")
	pf.Float64Var(&o.alpha, "alpha", 0, "When set, add a 1-alpha confidence interval to every value.")
	pf.AddGoFlagSet(flag.CommandLine)

	root.AddCommand(
		newCountCmd(o),
		newSumCmd(o),
		newMeanCmd(o),
		newNoiseCmd(o),
		newRunCmd(o),
		newBudgetCmd(o),
	)
	return root
}

// loadTable reads the input table from --input or from the SQL flags.
func (o *options) loadTable(ctx context.Context) (*table.Table, error) {
	switch {
	case o.input != "" && o.driver != "":
		return nil, fmt.Errorf("%w: --input and --driver are mutually exclusive", checks.ErrInvalidArgument)
	case o.input != "":
		f, err := os.Open(o.input)
		if err != nil {
			return nil, fmt.Errorf("couldn't open input: %w", err)
		}
		defer f.Close()
		return table.ReadCSV(f)
	case o.driver != "":
		if !slices.Contains(sqlDrivers, o.driver) {
			return nil, fmt.Errorf("%w: unknown driver %q, must be one of %v", checks.ErrInvalidArgument, o.driver, sqlDrivers)
		}
		if o.query == "" {
			return nil, fmt.Errorf("%w: --query is required with --driver", checks.ErrInvalidArgument)
		}
		db, err := sql.Open(o.driver, o.dsn)
		if err != nil {
			return nil, fmt.Errorf("couldn't open %s database: %w", o.driver, err)
		}
		defer db.Close()
		return table.FromSQL(ctx, db, o.query)
	}
	return nil, fmt.Errorf("%w: one of --input or --driver is required", checks.ErrInvalidArgument)
}

func (o *options) newBudget() (*budget.Budget, error) {
	return o.cfg.NewBudget()
}

// writeTable writes t as csv to --output, or to the command's output stream.
func (o *options) writeTable(cmd *cobra.Command, t *table.Table) error {
	if o.output == "" || o.output == "-" {
		return t.WriteCSV(cmd.OutOrStdout())
	}
	return writeTableFile(o.output, t)
}

func writeTableFile(path string, t *table.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("couldn't create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return t.WriteCSV(f)
}

// resultTable converts res to a table, adding confidence interval columns
// when alpha is set.
func resultTable(res *dpagg.Result, alpha float64) (*table.Table, error) {
	t, err := res.Table()
	if err != nil || alpha == 0 {
		return t, err
	}
	cis, err := res.ConfidenceIntervals(alpha)
	if err != nil {
		return nil, err
	}
	lower := make([]float64, len(cis))
	upper := make([]float64, len(cis))
	for i, ci := range cis {
		lower[i], upper[i] = ci.LowerBound, ci.UpperBound
	}
	if t, err = t.WithFloat64Column(res.ValueName+"_ci_lower", lower); err != nil {
		return nil, err
	}
	return t.WithFloat64Column(res.ValueName+"_ci_upper", upper)
}

// printBudget writes the budget summary to the command's error stream.
func printBudget(cmd *cobra.Command, b *budget.Budget) {
	fmt.Fprintln(cmd.ErrOrStderr(), b.String())
	log.V(1).Infof("Operations: %+v", b.Operations())
}
