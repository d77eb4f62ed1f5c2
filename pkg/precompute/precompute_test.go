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
package precompute_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgproplabs/ceaquery/pkg/precompute"
	"github.com/sgproplabs/ceaquery/pkg/store/storetest"
)

func openSeeded(t *testing.T, rows []storetest.Row) *sql.DB {
	t.Helper()

	path := storetest.CreateDB(t, rows)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunBuildsAggregateTables(t *testing.T) {
	ctx := context.Background()
	db := openSeeded(t, storetest.SampleRows())
	require.NoError(t, precompute.Run(ctx, db, nil))

	t.Run("type stats with pinned percentages", func(t *testing.T) {
		rows, err := db.Query("SELECT propertyType, count, percentage FROM property_type_stats ORDER BY count DESC")
		require.NoError(t, err)
		defer rows.Close()

		type stat struct {
			value string
			count int
			pct   float64
		}
		var got []stat
		for rows.Next() {
			var s stat
			require.NoError(t, rows.Scan(&s.value, &s.count, &s.pct))
			got = append(got, s)
		}
		require.NoError(t, rows.Err())
		require.Len(t, got, 2)
		assert.Equal(t, stat{"HDB", 2, 66.67}, got[0])
		assert.Equal(t, stat{"CONDOMINIUM_APARTMENTS", 1, 33.33}, got[1])
	})

	t.Run("monthly stats normalized to YYYY-MM", func(t *testing.T) {
		var count int
		err := db.QueryRow("SELECT SUM(count) FROM monthly_stats WHERE period = '2024-01'").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		var bad int
		err = db.QueryRow("SELECT COUNT(*) FROM monthly_stats WHERE period LIKE '%-2024'").Scan(&bad)
		require.NoError(t, err)
		assert.Zero(t, bad, "periods must be normalized, not raw MMM-YYYY")
	})

	t.Run("top agents ranked with last transaction", func(t *testing.T) {
		var name, last string
		var total int
		err := db.QueryRow("SELECT name, totalTransactions, lastTransaction FROM top_agents WHERE regNum = 'R001A'").
			Scan(&name, &total, &last)
		require.NoError(t, err)
		assert.Equal(t, "Alice Tan", name)
		assert.Equal(t, 2, total)
		assert.Equal(t, "FEB-2024", last)
	})

	t.Run("metadata stamped", func(t *testing.T) {
		var stamp string
		err := db.QueryRow("SELECT value FROM metadata WHERE key = 'precomputed_at'").Scan(&stamp)
		require.NoError(t, err)
		assert.NotEmpty(t, stamp)
	})
}

func TestRunExcludesSentinels(t *testing.T) {
	ctx := context.Background()
	rows := append(storetest.SampleRows(),
		storetest.Row{Name: "-", RegNum: "-", Date: "-", PropertyType: "HDB", Town: "-"})
	db := openSeeded(t, rows)
	require.NoError(t, precompute.Run(ctx, db, nil))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM top_agents WHERE regNum = '-'").Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM town_stats WHERE town = '-'").Scan(&n))
	assert.Zero(t, n)

	// Town percentages are over non-sentinel rows only.
	var pct float64
	require.NoError(t, db.QueryRow("SELECT percentage FROM town_stats WHERE town = 'PUNGGOL'").Scan(&pct))
	assert.InDelta(t, 66.67, pct, 0.001)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openSeeded(t, storetest.SampleRows())

	require.NoError(t, precompute.Run(ctx, db, nil))
	require.NoError(t, precompute.Run(ctx, db, nil))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM top_agents").Scan(&n))
	assert.Equal(t, 2, n)
}
