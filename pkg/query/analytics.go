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
)

// AnalyticsResult is the response body of the multi-dimensional aggregation
// endpoint. Data rows are keyed by the dimension column names plus "count".
type AnalyticsResult struct {
	Dimensions []string         `json:"dimensions"`
	Data       []map[string]any `json:"data"`
	ChartData  []NamedValue     `json:"chartData"`
	Total      int              `json:"total"`
}

// Analytics runs a one- or two-dimension cross-tab over the transactions
// table. dim2 may be empty. Null and empty dimension values are projected to
// "Unknown". Ordering: count descending, then dimension values ascending.
func (e *Engine) Analytics(ctx context.Context, dim1, dim2 string, filters Filters) (*AnalyticsResult, error) {
	if dim1 == "" {
		return nil, fmt.Errorf("%w: dimension1 is required", ErrInvalidArgument)
	}
	if !isFilterable(dim1) {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidArgument, dim1)
	}
	if dim2 != "" && !isFilterable(dim2) {
		return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidArgument, dim2)
	}
	if dim2 == dim1 {
		dim2 = ""
	}

	where, args := whereClause(filters)

	res := &AnalyticsResult{
		Dimensions: []string{dim1},
		Data:       []map[string]any{},
		ChartData:  []NamedValue{},
	}

	p1 := "COALESCE(NULLIF(" + dim1 + ", ''), 'Unknown')"
	if dim2 == "" {
		rows, err := e.store.Query(ctx,
			"SELECT "+p1+" AS v, COUNT(*) AS c FROM transactions"+where+
				" GROUP BY v ORDER BY c DESC, v ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var v string
			var c int
			if err := rows.Scan(&v, &c); err != nil {
				return nil, fmt.Errorf("scan analytics: %w", err)
			}
			res.Data = append(res.Data, map[string]any{dim1: v, "count": c})
			res.ChartData = append(res.ChartData, NamedValue{Name: v, Value: c})
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate analytics: %w", err)
		}
	} else {
		res.Dimensions = append(res.Dimensions, dim2)
		p2 := "COALESCE(NULLIF(" + dim2 + ", ''), 'Unknown')"
		rows, err := e.store.Query(ctx,
			"SELECT "+p1+" AS v1, "+p2+" AS v2, COUNT(*) AS c FROM transactions"+where+
				" GROUP BY v1, v2 ORDER BY c DESC, v1 ASC, v2 ASC", args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var v1, v2 string
			var c int
			if err := rows.Scan(&v1, &v2, &c); err != nil {
				return nil, fmt.Errorf("scan analytics: %w", err)
			}
			res.Data = append(res.Data, map[string]any{dim1: v1, dim2: v2, "count": c})
			res.ChartData = append(res.ChartData, NamedValue{Name: v1 + " / " + v2, Value: c})
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate analytics: %w", err)
		}
	}

	row, err := e.store.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("analytics total: %w", err)
	}
	return res, nil
}
