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

// Command dptidy computes differentially private aggregates over a CSV file or
// the result of a SQL query, accounting every release against a privacy
// budget.
//
// Usage examples:
//
//	dptidy count --input people.csv --epsilon 0.5 --group-by city
//	dptidy mean --input people.csv --column income --lower 0 --upper 200000 --epsilon 1 --alpha 0.05
//	dptidy sum --driver sqlite --dsn people.db --query "SELECT * FROM people" --column income --lower 0 --upper 200000 --epsilon 1
//	dptidy noise --input people.csv --columns income,age --lower 0 --upper 200000 --epsilon 0.1 --output noised.csv
//	dptidy run --input people.csv --plan plan.yaml
//	dptidy budget
//
// Budget totals and the random seed default to the DPTIDY_EPSILON_TOTAL,
// DPTIDY_DELTA_TOTAL, DPTIDY_COMPOSITION and DPTIDY_SEED environment
// variables, which may also be set in a .env file.
package main

import (
	log "github.com/golang/glog"

	// Drivers usable with --driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Exitf("dptidy failed: %v", err)
	}
}
