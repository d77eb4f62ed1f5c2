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

// AgentBasic identifies one agent and its overall volume.
type AgentBasic struct {
	RegNum            string `json:"regNum"`
	Name              string `json:"name"`
	TotalTransactions int    `json:"totalTransactions"`
}

// AgentProfileResult is the response body of the per-agent endpoint. Every
// distribution carries a percentage of the agent's own total.
type AgentProfileResult struct {
	Agent            AgentBasic        `json:"agent"`
	DateRange        DateRange         `json:"dateRange"`
	PropertyTypes    []Distribution    `json:"propertyTypes"`
	TransactionTypes []Distribution    `json:"transactionTypes"`
	Representation   []Distribution    `json:"representation"`
	TopTowns         []Distribution    `json:"topTowns"`
	MonthlyActivity  []TimeSeriesPoint `json:"monthlyActivity"`
}

// AgentProfile assembles the full profile for one registration number, or
// ErrNotFound when no transactions carry it.
func (e *Engine) AgentProfile(ctx context.Context, regNum string) (*AgentProfileResult, error) {
	res := &AgentProfileResult{Agent: AgentBasic{RegNum: regNum}}

	row, err := e.store.QueryRow(ctx,
		"SELECT COALESCE(MAX(salesperson_name), ''), COUNT(*) FROM transactions WHERE salesperson_reg_num = ?",
		regNum)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&res.Agent.Name, &res.Agent.TotalTransactions); err != nil {
		return nil, fmt.Errorf("agent basic row: %w", err)
	}
	if res.Agent.TotalTransactions == 0 {
		return nil, fmt.Errorf("%w: agent %q", ErrNotFound, regNum)
	}

	total := res.Agent.TotalTransactions
	for _, d := range []struct {
		column string
		limit  int
		dest   *[]Distribution
	}{
		{"property_type", 0, &res.PropertyTypes},
		{"transaction_type", 0, &res.TransactionTypes},
		{"represented", 0, &res.Representation},
		{"town", 10, &res.TopTowns},
	} {
		dist, err := e.agentDistribution(ctx, regNum, d.column, d.limit, total)
		if err != nil {
			return nil, err
		}
		*d.dest = dist
	}

	months, dateRange, err := e.agentMonths(ctx, regNum)
	if err != nil {
		return nil, err
	}
	res.DateRange = dateRange
	res.MonthlyActivity = months
	return res, nil
}

func (e *Engine) agentDistribution(ctx context.Context, regNum, column string, limit, total int) ([]Distribution, error) {
	q := "SELECT COALESCE(NULLIF(" + column + ", ''), 'Unknown') AS v, COUNT(*) AS c" +
		" FROM transactions WHERE salesperson_reg_num = ?"
	if column == "town" {
		q += " AND town != '" + Sentinel + "'"
	}
	q += " GROUP BY v ORDER BY c DESC, v ASC"
	args := []any{regNum}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := e.store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := []Distribution{}
	for rows.Next() {
		var d Distribution
		if err := rows.Scan(&d.Value, &d.Count); err != nil {
			return nil, fmt.Errorf("scan agent %s: %w", column, err)
		}
		d.Percentage = pct(d.Count, total)
		dist = append(dist, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agent %s: %w", column, err)
	}
	return dist, nil
}

// agentMonths buckets the agent's dated transactions into the full monthly
// series and derives the chronological range on the way.
func (e *Engine) agentMonths(ctx context.Context, regNum string) ([]TimeSeriesPoint, DateRange, error) {
	rows, err := e.store.Query(ctx,
		"SELECT transaction_date, COUNT(*) FROM transactions"+
			" WHERE salesperson_reg_num = ? AND transaction_date != '"+Sentinel+"' AND transaction_date != ''"+
			" GROUP BY transaction_date", regNum)
	if err != nil {
		return nil, DateRange{}, err
	}
	defer rows.Close()

	months := map[string]int{}
	var dr DateRange
	var minKey, maxKey string
	for rows.Next() {
		var date string
		var count int
		if err := rows.Scan(&date, &count); err != nil {
			return nil, DateRange{}, fmt.Errorf("scan agent months: %w", err)
		}
		key, ok := MonthKey(date)
		if !ok {
			continue
		}
		months[key] += count
		if minKey == "" || key < minKey {
			minKey, dr.From = key, date
		}
		if maxKey == "" || key > maxKey {
			maxKey, dr.To = key, date
		}
	}
	if err := rows.Err(); err != nil {
		return nil, DateRange{}, fmt.Errorf("iterate agent months: %w", err)
	}

	series := make([]TimeSeriesPoint, 0, len(months))
	for period, count := range months {
		series = append(series, TimeSeriesPoint{Period: period, Count: count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Period < series[j].Period })
	return series, dr, nil
}
