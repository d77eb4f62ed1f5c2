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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgproplabs/ceaquery/pkg/precompute"
	"github.com/sgproplabs/ceaquery/pkg/query"
	"github.com/sgproplabs/ceaquery/pkg/store"
	"github.com/sgproplabs/ceaquery/pkg/store/storetest"
)

// newEngine opens a seeded store with no aggregate tables, so every kernel
// takes its slow path.
func newEngine(t *testing.T, rows []storetest.Row) *query.Engine {
	t.Helper()

	e, err := query.NewEngine(context.Background(), storetest.Open(t, rows))
	require.NoError(t, err)
	require.False(t, e.Precomputed())
	return e
}

// newPrecomputedEngine seeds a store, runs the precomputer over it, and opens
// it read-only, so eligible kernels take their fast paths.
func newPrecomputedEngine(t *testing.T, rows []storetest.Row) *query.Engine {
	t.Helper()

	path := storetest.CreateDB(t, rows)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, precompute.Run(context.Background(), db, nil))
	require.NoError(t, db.Close())

	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	e, err := query.NewEngine(context.Background(), s)
	require.NoError(t, err)
	require.True(t, e.Precomputed())
	return e
}

func TestNewEngineRouting(t *testing.T) {
	t.Run("no aggregate tables routes slow", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		assert.False(t, e.Precomputed())
	})

	t.Run("all aggregate tables routes fast", func(t *testing.T) {
		e := newPrecomputedEngine(t, storetest.SampleRows())
		assert.True(t, e.Precomputed())
	})

	t.Run("partial aggregate tables is an error", func(t *testing.T) {
		path := storetest.CreateDB(t, storetest.SampleRows())
		db, err := sql.Open("sqlite3", path)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE top_agents (regNum TEXT PRIMARY KEY, name TEXT, totalTransactions INTEGER, lastTransaction TEXT)")
		require.NoError(t, err)
		require.NoError(t, db.Close())

		s, err := store.Open(path)
		require.NoError(t, err)
		defer s.Close()

		_, err = query.NewEngine(context.Background(), s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rerun the precomputer")
	})
}
