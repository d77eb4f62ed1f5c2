// Copyright 2026 SG Prop Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package query implements the aggregation kernels and the planner that
// routes each request either to a precomputed aggregate table (fast path)
// or to a parameterized aggregation over the transactions table (slow path).
package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sgproplabs/ceaquery/pkg/store"
)

// Error kinds the HTTP layer maps to status codes. Kernels wrap these with
// %w and a human-readable detail.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
)

// Sentinel is the literal the source data uses for "value absent".
const Sentinel = "-"

// aggregate tables written by the precomputer.
var aggregateTables = []string{
	"top_agents",
	"monthly_stats",
	"property_type_stats",
	"transaction_type_stats",
	"town_stats",
}

// Engine executes queries against one store. It is cheap to construct and
// safe for concurrent use; handlers share a single instance per store.
type Engine struct {
	store *store.Store

	// precomputed reports whether the aggregate tables exist. When false
	// every endpoint takes the slow path, which keeps stores usable before
	// the precomputer has run.
	precomputed bool
}

// NewEngine probes the store for precomputed aggregate tables and returns an
// engine routed accordingly.
func NewEngine(ctx context.Context, s *store.Store) (*Engine, error) {
	e := &Engine{store: s}

	found := 0
	for _, table := range aggregateTables {
		row, err := s.QueryRow(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err != nil {
			return nil, err
		}
		var n int
		if err := row.Scan(&n); err != nil {
			return nil, fmt.Errorf("probe aggregate table %s: %w", table, err)
		}
		found += n
	}
	switch found {
	case len(aggregateTables):
		e.precomputed = true
	case 0:
		e.precomputed = false
	default:
		return nil, fmt.Errorf("store has %d of %d aggregate tables; rerun the precomputer", found, len(aggregateTables))
	}
	return e, nil
}

// Precomputed reports whether fast paths are available.
func (e *Engine) Precomputed() bool {
	return e.precomputed
}

// ValueCount is one bucket of a single-dimension aggregate.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// NamedValue is the chart-ready projection of a ValueCount.
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// round1 rounds to one decimal place, the precision used in response
// percentages.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// round2 rounds to two decimal places, the precision stored in the
// precomputed stats tables.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// pct returns part/total as a percentage rounded to one decimal, and 0 when
// total is zero.
func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}
