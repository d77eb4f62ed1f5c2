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
package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgproplabs/ceaquery/pkg/query"
	"github.com/sgproplabs/ceaquery/pkg/store/storetest"
)

func TestRows(t *testing.T) {
	ctx := context.Background()

	t.Run("first page", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Rows(ctx, 1, 2, nil)
		require.NoError(t, err)

		assert.Len(t, res.Data, 2)
		assert.Equal(t, query.Pagination{Page: 1, Limit: 2, Total: 3, TotalPages: 2}, res.Pagination)
		assert.Equal(t, "Alice Tan", res.Data[0]["salesperson_name"])
	})

	t.Run("pages concatenate without gaps or duplicates", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())

		seen := map[any]bool{}
		total := 0
		for page := 1; page <= 2; page++ {
			res, err := e.Rows(ctx, page, 2, nil)
			require.NoError(t, err)
			for _, row := range res.Data {
				id := row["id"]
				assert.False(t, seen[id], "row %v returned twice", id)
				seen[id] = true
				total++
			}
		}
		assert.Equal(t, 3, total)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Rows(ctx, 5, 50, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Data)
		assert.Equal(t, 3, res.Pagination.Total)
	})

	t.Run("filters narrow the set", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		f, err := query.ParseFilters(`{"property_type":"HDB"}`)
		require.NoError(t, err)

		res, err := e.Rows(ctx, 1, 50, f)
		require.NoError(t, err)
		assert.Len(t, res.Data, 2)
		assert.Equal(t, 2, res.Pagination.Total)
	})

	t.Run("zero limit takes the default", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Rows(ctx, 1, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, query.DefaultRowsLimit, res.Pagination.Limit)
	})

	t.Run("out-of-range arguments rejected", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())

		_, err := e.Rows(ctx, 0, 50, nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)

		_, err = e.Rows(ctx, 1, query.MaxRowsLimit+1, nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)

		_, err = e.Rows(ctx, 1, -5, nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}
