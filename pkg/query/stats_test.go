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

func TestFieldStats(t *testing.T) {
	ctx := context.Background()

	t.Run("counts distinct values", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.FieldStats(ctx, "property_type", 0)
		require.NoError(t, err)

		assert.Equal(t, "property_type", res.Field)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 2, res.UniqueValues)
		require.Len(t, res.Stats, 2)
		assert.Equal(t, query.ValueCount{Value: "HDB", Count: 2}, res.Stats[0])
		assert.Equal(t, query.ValueCount{Value: "CONDOMINIUM_APARTMENTS", Count: 1}, res.Stats[1])
	})

	t.Run("empty values project to Unknown", func(t *testing.T) {
		rows := storetest.SampleRows()
		rows = append(rows, storetest.Row{Name: "Cara Ong", RegNum: "R003C", Date: "MAR-2024"})
		e := newEngine(t, rows)

		res, err := e.FieldStats(ctx, "property_type", 0)
		require.NoError(t, err)
		assert.Equal(t, 4, res.Total)
		assert.Contains(t, res.Stats, query.ValueCount{Value: "Unknown", Count: 1})
	})

	t.Run("town excludes sentinel rows", func(t *testing.T) {
		rows := storetest.SampleRows()
		rows = append(rows, storetest.Row{Name: "Cara Ong", RegNum: "R003C", Date: "MAR-2024", Town: "-"})
		e := newEngine(t, rows)

		res, err := e.FieldStats(ctx, "town", 0)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		for _, vc := range res.Stats {
			assert.NotEqual(t, "-", vc.Value)
		}
	})

	t.Run("limit caps buckets but not totals", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.FieldStats(ctx, "property_type", 1)
		require.NoError(t, err)
		assert.Len(t, res.Stats, 1)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 2, res.UniqueValues)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		_, err := e.FieldStats(ctx, "salesperson_name", 0)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}

func TestFieldStatsFastSlowEquivalence(t *testing.T) {
	ctx := context.Background()
	rows := append(storetest.SampleRows(),
		storetest.Row{Name: "Cara Ong", RegNum: "R003C", Date: "MAR-2024", PropertyType: "LANDED", Town: "-"},
		storetest.Row{Name: "Dan Koh", RegNum: "R004D", Date: "APR-2024", Town: "BEDOK"},
	)
	slow := newEngine(t, rows)
	fast := newPrecomputedEngine(t, rows)

	for _, field := range []string{"property_type", "transaction_type", "town"} {
		t.Run(field, func(t *testing.T) {
			want, err := slow.FieldStats(ctx, field, 0)
			require.NoError(t, err)
			got, err := fast.FieldStats(ctx, field, 0)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
