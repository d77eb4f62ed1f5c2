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
	"sort"
)

// Chart views clip the full series to a trailing window of periods.
const (
	monthChartWindow = 24
	yearChartWindow  = 36
)

// TimeSeriesPoint is one bucket of a time series. Group is set only when the
// series is grouped.
type TimeSeriesPoint struct {
	Period string `json:"period"`
	Group  string `json:"group,omitempty"`
	Count  int    `json:"count"`
}

// TimeSeriesResult is the response body of the time-series endpoint. Series
// holds the full history ascending by period; ChartData the trailing window.
type TimeSeriesResult struct {
	Period    string            `json:"period"`
	GroupBy   string            `json:"groupBy,omitempty"`
	Series    []TimeSeriesPoint `json:"series"`
	ChartData []TimeSeriesPoint `json:"chartData"`
	Total     int               `json:"total"`
}

// TimeSeries buckets transactions by month ("YYYY-MM") or year ("YYYY"),
// optionally grouped by a categorical column. Rows whose date is the
// sentinel, empty, or unparseable are excluded.
func (e *Engine) TimeSeries(ctx context.Context, period, groupBy string, filters Filters) (*TimeSeriesResult, error) {
	if period == "" {
		period = "month"
	}
	if period != "month" && period != "year" {
		return nil, fmt.Errorf("%w: period must be month or year", ErrInvalidArgument)
	}
	if groupBy != "" && !isFilterable(groupBy) {
		return nil, fmt.Errorf("%w: unknown groupBy %q", ErrInvalidArgument, groupBy)
	}

	// monthly_stats carries per-type counts, so it can also serve series
	// grouped by either type column.
	fast := e.precomputed && filters.Empty() &&
		(groupBy == "" || groupBy == "property_type" || groupBy == "transaction_type")

	var (
		points map[seriesKey]int
		err    error
	)
	if fast {
		points, err = e.seriesFromMonthlyStats(ctx, period, groupBy)
	} else {
		points, err = e.seriesFromTransactions(ctx, period, groupBy, filters)
	}
	if err != nil {
		return nil, err
	}

	res := &TimeSeriesResult{
		Period:    period,
		GroupBy:   groupBy,
		Series:    sortedSeries(points),
		ChartData: []TimeSeriesPoint{},
	}
	for _, p := range res.Series {
		res.Total += p.Count
	}

	window := monthChartWindow
	if period == "year" {
		window = yearChartWindow
	}
	res.ChartData = clipToTrailingPeriods(res.Series, window)
	return res, nil
}

type seriesKey struct {
	period string
	group  string
}

func (e *Engine) seriesFromMonthlyStats(ctx context.Context, period, groupBy string) (map[seriesKey]int, error) {
	q := "SELECT period, SUM(count) FROM monthly_stats GROUP BY period"
	if groupBy != "" {
		q = "SELECT period, " + groupBy + ", SUM(count) FROM monthly_stats GROUP BY period, " + groupBy
	}

	rows, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := map[seriesKey]int{}
	for rows.Next() {
		var (
			key   seriesKey
			count int
		)
		if groupBy == "" {
			err = rows.Scan(&key.period, &count)
		} else {
			err = rows.Scan(&key.period, &key.group, &count)
		}
		if err != nil {
			return nil, fmt.Errorf("scan monthly_stats: %w", err)
		}
		if period == "year" {
			key.period = key.period[:4]
		}
		points[key] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly_stats: %w", err)
	}
	return points, nil
}

func (e *Engine) seriesFromTransactions(ctx context.Context, period, groupBy string, filters Filters) (map[seriesKey]int, error) {
	where, args := whereClause(filters,
		"transaction_date != '"+Sentinel+"'", "transaction_date != ''")

	q := "SELECT transaction_date, COUNT(*) FROM transactions" + where + " GROUP BY transaction_date"
	if groupBy != "" {
		g := "COALESCE(NULLIF(" + groupBy + ", ''), 'Unknown')"
		q = "SELECT transaction_date, " + g + " AS g, COUNT(*) FROM transactions" + where +
			" GROUP BY transaction_date, g"
	}

	rows, err := e.store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := map[seriesKey]int{}
	for rows.Next() {
		var (
			date, group string
			count       int
		)
		if groupBy == "" {
			err = rows.Scan(&date, &count)
		} else {
			err = rows.Scan(&date, &group, &count)
		}
		if err != nil {
			return nil, fmt.Errorf("scan time series: %w", err)
		}

		var bucket string
		var ok bool
		if period == "year" {
			bucket, ok = YearKey(date)
		} else {
			bucket, ok = MonthKey(date)
		}
		if !ok {
			continue
		}
		points[seriesKey{period: bucket, group: group}] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time series: %w", err)
	}
	return points, nil
}

// sortedSeries flattens buckets ascending by period, then group. Normalized
// periods sort chronologically under string comparison.
func sortedSeries(points map[seriesKey]int) []TimeSeriesPoint {
	series := make([]TimeSeriesPoint, 0, len(points))
	for key, count := range points {
		series = append(series, TimeSeriesPoint{Period: key.period, Group: key.group, Count: count})
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Period != series[j].Period {
			return series[i].Period < series[j].Period
		}
		return series[i].Group < series[j].Group
	})
	return series
}

func clipToTrailingPeriods(series []TimeSeriesPoint, window int) []TimeSeriesPoint {
	distinct := []string{}
	for _, p := range series {
		if len(distinct) == 0 || distinct[len(distinct)-1] != p.Period {
			distinct = append(distinct, p.Period)
		}
	}
	if len(distinct) <= window {
		out := make([]TimeSeriesPoint, len(series))
		copy(out, series)
		return out
	}

	cutoff := distinct[len(distinct)-window]
	out := []TimeSeriesPoint{}
	for _, p := range series {
		if p.Period >= cutoff {
			out = append(out, p)
		}
	}
	return out
}
