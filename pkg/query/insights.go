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
package query

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Distribution is one bucket of a categorical breakdown with its share of
// the breakdown's total, rounded to one decimal.
type Distribution struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DateRange carries the chronologically first and last transaction dates in
// their original MMM-YYYY form.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InsightsResult is the market-insights composite response body.
type InsightsResult struct {
	Summary       InsightsSummary       `json:"summary"`
	Trends        InsightsTrends        `json:"trends"`
	Distributions InsightsDistributions `json:"distributions"`
}

type InsightsSummary struct {
	TotalTransactions int       `json:"totalTransactions"`
	DateRange         DateRange `json:"dateRange"`
	MonthlyAverage    int       `json:"monthlyAverage"`
}

type InsightsTrends struct {
	YearlyGrowth string `json:"yearlyGrowth"`
}

type InsightsDistributions struct {
	PropertyTypes    []Distribution `json:"propertyTypes"`
	TransactionTypes []Distribution `json:"transactionTypes"`
	Representation   []Distribution `json:"representation"`
}

// Insights composes the market summary: overall total, date range, the three
// categorical distributions, the monthly average, and year-over-year growth.
func (e *Engine) Insights(ctx context.Context, filters Filters) (*InsightsResult, error) {
	where, args := whereClause(filters)

	res := &InsightsResult{}

	row, err := e.store.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&res.Summary.TotalTransactions); err != nil {
		return nil, fmt.Errorf("insights total: %w", err)
	}

	for _, d := range []struct {
		column string
		dest   *[]Distribution
	}{
		{"property_type", &res.Distributions.PropertyTypes},
		{"transaction_type", &res.Distributions.TransactionTypes},
		{"represented", &res.Distributions.Representation},
	} {
		dist, err := e.distribution(ctx, d.column, filters, res.Summary.TotalTransactions)
		if err != nil {
			return nil, err
		}
		*d.dest = dist
	}

	months, years, dateRange, err := e.dateBuckets(ctx, filters)
	if err != nil {
		return nil, err
	}
	res.Summary.DateRange = dateRange
	res.Summary.MonthlyAverage = monthlyAverage(months)
	res.Trends.YearlyGrowth = yearlyGrowth(years)
	return res, nil
}

func (e *Engine) distribution(ctx context.Context, column string, filters Filters, total int) ([]Distribution, error) {
	where, args := whereClause(filters)
	projected := "COALESCE(NULLIF(" + column + ", ''), 'Unknown')"

	rows, err := e.store.Query(ctx,
		"SELECT "+projected+" AS v, COUNT(*) AS c FROM transactions"+where+
			" GROUP BY v ORDER BY c DESC, v ASC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := []Distribution{}
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.Value, &d.Count); err != nil {
			return nil, fmt.Errorf("scan %s distribution: %w", column, err)
		}
		d.Percentage = pct(d.Count, total)
		dist = append(dist, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s distribution: %w", column, err)
	}
	return dist, nil
}

// dateBuckets groups non-sentinel dates once and derives the monthly series,
// the yearly series, and the chronological range from that single pass.
func (e *Engine) dateBuckets(ctx context.Context, filters Filters) (map[string]int, map[string]int, DateRange, error) {
	where, args := whereClause(filters,
		"transaction_date != '"+Sentinel+"'", "transaction_date != ''")

	rows, err := e.store.Query(ctx,
		"SELECT transaction_date, COUNT(*) FROM transactions"+where+
			" GROUP BY transaction_date", args...)
	if err != nil {
		return nil, nil, DateRange{}, err
	}
	defer rows.Close()

	months := map[string]int{}
	years := map[string]int{}
	var dr DateRange
	var minKey, maxKey string
	for rows.Next() {
		var date string
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, nil, DateRange{}, fmt.Errorf("scan date buckets: %w", err)
		}
		key, ok := MonthKey(date)
		if !ok {
			continue
		}
		months[key] += count
		years[key[:4]] += count
		if minKey == "" || key < minKey {
			minKey, dr.From = key, date
		}
		if maxKey == "" || key > maxKey {
			maxKey, dr.To = key, date
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, DateRange{}, fmt.Errorf("iterate date buckets: %w", err)
	}
	return months, years, dr, nil
}

// monthlyAverage is the arithmetic mean of per-month counts, rounded to the
// nearest integer. Zero when no dated rows exist.
func monthlyAverage(months map[string]int) int {
	if len(months) == 0 {
		return 0
	}
	sum := 0
	for _, c := range months {
		sum += c
	}
	return int(math.Round(float64(sum) / float64(len(months))))
}

// yearlyGrowth compares the latest year against the one before it. Fewer
// than two years, or a zero denominator, reports "0%".
func yearlyGrowth(years map[string]int) string {
	if len(years) < 2 {
		return "0%"
	}
	keys := make([]string, 0, len(years))
	for y := range years {
		keys = append(keys, y)
	}
	sort.Strings(keys)

	last := years[keys[len(keys)-1]]
	prev := years[keys[len(keys)-2]]
	if prev == 0 {
		return "0%"
	}
	growth := float64(last-prev) / float64(prev) * 100
	return strconv.FormatFloat(round1(growth), 'f', 1, 64) + "%"
}
