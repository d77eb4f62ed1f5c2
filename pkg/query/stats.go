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

// DefaultStatsLimit caps the buckets returned by FieldStats when the caller
// does not ask for a limit.
const DefaultStatsLimit = 100

// FieldStatsResult is the response body of the single-field stats endpoint.
type FieldStatsResult struct {
	Field        string       `json:"field"`
	Total        int          `json:"total"`
	UniqueValues int          `json:"uniqueValues"`
	Stats        []ValueCount `json:"stats"`
}

// statsTables maps a field to its precomputed aggregate table and value
// column. Fields without a table always take the slow path.
var statsTables = map[string]struct{ table, column string }{
	"property_type":    {"property_type_stats", "propertyType"},
	"transaction_type": {"transaction_type_stats", "transactionType"},
	"town":             {"town_stats", "town"},
}

// FieldStats counts distinct values of one field. Null and empty values are
// projected to "Unknown"; for town, sentinel rows are excluded entirely and
// the total is the count of non-sentinel rows.
func (e *Engine) FieldStats(ctx context.Context, field string, limit int) (*FieldStatsResult, error) {
	if !isFilterable(field) {
		return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidArgument, field)
	}
	if limit <= 0 {
		limit = DefaultStatsLimit
	}

	if pre, ok := statsTables[field]; ok && e.precomputed {
		return e.fieldStatsFast(ctx, field, pre.table, pre.column, limit)
	}
	return e.fieldStatsSlow(ctx, field, limit)
}

func (e *Engine) fieldStatsFast(ctx context.Context, field, table, column string, limit int) (*FieldStatsResult, error) {
	res := &FieldStatsResult{Field: field, Stats: []ValueCount{}}

	rows, err := e.store.Query(ctx, fmt.Sprintf(
		"SELECT %s, count FROM %s ORDER BY count DESC, %s ASC LIMIT ?",
		column, table, column), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		res.Stats = append(res.Stats, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}

	row, err := e.store.QueryRow(ctx, fmt.Sprintf(
		"SELECT COALESCE(SUM(count), 0), COUNT(*) FROM %s", table))
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&res.Total, &res.UniqueValues); err != nil {
		return nil, fmt.Errorf("total from %s: %w", table, err)
	}
	return res, nil
}

func (e *Engine) fieldStatsSlow(ctx context.Context, field string, limit int) (*FieldStatsResult, error) {
	res := &FieldStatsResult{Field: field, Stats: []ValueCount{}}

	where := ""
	if field == "town" {
		where = " WHERE town != '" + Sentinel + "'"
	}
	projected := "COALESCE(NULLIF(" + field + ", ''), 'Unknown')"

	rows, err := e.store.Query(ctx,
		"SELECT "+projected+" AS v, COUNT(*) AS c FROM transactions"+where+
			" GROUP BY v ORDER BY c DESC, v ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var vc ValueCount
		if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
			return nil, fmt.Errorf("scan field stats: %w", err)
		}
		res.Stats = append(res.Stats, vc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate field stats: %w", err)
	}

	row, err := e.store.QueryRow(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT "+projected+") FROM transactions"+where)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&res.Total, &res.UniqueValues); err != nil {
		return nil, fmt.Errorf("field stats totals: %w", err)
	}
	return res, nil
}
