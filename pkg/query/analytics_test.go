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

func TestAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("single dimension", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Analytics(ctx, "represented", "", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"represented"}, res.Dimensions)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.ChartData, 2)
		assert.Equal(t, query.NamedValue{Name: "BUYER", Value: 2}, res.ChartData[0])
		assert.Equal(t, query.NamedValue{Name: "SELLER", Value: 1}, res.ChartData[1])
		require.Len(t, res.Data, 2)
		assert.Equal(t, map[string]any{"represented": "BUYER", "count": 2}, res.Data[0])
	})

	t.Run("two dimensions", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Analytics(ctx, "property_type", "represented", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"property_type", "represented"}, res.Dimensions)
		assert.Equal(t, 3, res.Total)
		require.Len(t, res.Data, 3)
		// Every bucket has count 1 here, so ordering falls back to values.
		assert.Equal(t, query.NamedValue{Name: "CONDOMINIUM_APARTMENTS / BUYER", Value: 1}, res.ChartData[0])
		assert.Equal(t, query.NamedValue{Name: "HDB / BUYER", Value: 1}, res.ChartData[1])
		assert.Equal(t, query.NamedValue{Name: "HDB / SELLER", Value: 1}, res.ChartData[2])
	})

	t.Run("duplicate second dimension collapses to one", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.Analytics(ctx, "property_type", "property_type", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"property_type"}, res.Dimensions)
	})

	t.Run("filters narrow data and total", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		f, err := query.ParseFilters(`{"property_type":"HDB"}`)
		require.NoError(t, err)

		res, err := e.Analytics(ctx, "represented", "", f)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		require.Len(t, res.ChartData, 2)
		assert.Equal(t, query.NamedValue{Name: "BUYER", Value: 1}, res.ChartData[0])
	})

	t.Run("missing dimension rejected", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		_, err := e.Analytics(ctx, "", "", nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})

	t.Run("unknown dimension rejected", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		_, err := e.Analytics(ctx, "salesperson_reg_num", "", nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)

		_, err = e.Analytics(ctx, "town", "salesperson_reg_num", nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}
