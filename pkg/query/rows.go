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

// Limits for the paginated raw-row endpoint. Unlike the agent roll-up, an
// out-of-range limit here is an error: pages are a client-driven cursor and
// silently clamping them would break pagination math.
const (
	DefaultRowsLimit = 50
	MaxRowsLimit     = 500
)

// Pagination describes the window a Rows call returned.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// RowsResult is the response body of the paginated data endpoint.
type RowsResult struct {
	Data       []map[string]any `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// Rows returns one page of raw transactions. page starts at 1; limit
// defaults to 50 and may not exceed 500. Total is a separate COUNT(*) under
// the same filter, so concatenated pages cover the filtered set exactly.
func (e *Engine) Rows(ctx context.Context, page, limit int, filters Filters) (*RowsResult, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1", ErrInvalidArgument)
	}
	if limit == 0 {
		limit = DefaultRowsLimit
	}
	if limit < 1 || limit > MaxRowsLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidArgument, MaxRowsLimit)
	}

	where, args := whereClause(filters)

	data, err := e.store.AllMaps(ctx,
		"SELECT * FROM transactions"+where+" ORDER BY id LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, (page-1)*limit)...)
	if err != nil {
		return nil, err
	}

	row, err := e.store.QueryRow(ctx, "SELECT COUNT(*) FROM transactions"+where, args...)
	if err != nil {
		return nil, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, fmt.Errorf("rows total: %w", err)
	}

	return &RowsResult{
		Data: data,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}
