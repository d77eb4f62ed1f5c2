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

func TestAgentProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("full profile", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		res, err := e.AgentProfile(ctx, "R001A")
		require.NoError(t, err)

		assert.Equal(t, query.AgentBasic{RegNum: "R001A", Name: "Alice Tan", TotalTransactions: 2}, res.Agent)
		assert.Equal(t, query.DateRange{From: "JAN-2024", To: "FEB-2024"}, res.DateRange)

		require.Len(t, res.PropertyTypes, 1)
		assert.Equal(t, query.Distribution{Value: "HDB", Count: 2, Percentage: 100}, res.PropertyTypes[0])

		require.Len(t, res.Representation, 2)
		assert.Equal(t, query.Distribution{Value: "BUYER", Count: 1, Percentage: 50}, res.Representation[0])
		assert.Equal(t, query.Distribution{Value: "SELLER", Count: 1, Percentage: 50}, res.Representation[1])

		require.Len(t, res.TopTowns, 1)
		assert.Equal(t, "PUNGGOL", res.TopTowns[0].Value)

		require.Len(t, res.MonthlyActivity, 2)
		assert.Equal(t, query.TimeSeriesPoint{Period: "2024-01", Count: 1}, res.MonthlyActivity[0])
		assert.Equal(t, query.TimeSeriesPoint{Period: "2024-02", Count: 1}, res.MonthlyActivity[1])
	})

	t.Run("unknown agent is not found", func(t *testing.T) {
		e := newEngine(t, storetest.SampleRows())
		_, err := e.AgentProfile(ctx, "R999X")
		assert.ErrorIs(t, err, query.ErrNotFound)
	})

	t.Run("sentinel towns excluded from top towns", func(t *testing.T) {
		rows := append(storetest.SampleRows(),
			storetest.Row{Name: "Alice Tan", RegNum: "R001A", Date: "MAR-2024", PropertyType: "HDB", Town: "-"})
		e := newEngine(t, rows)

		res, err := e.AgentProfile(ctx, "R001A")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Agent.TotalTransactions)
		require.Len(t, res.TopTowns, 1)
		assert.Equal(t, "PUNGGOL", res.TopTowns[0].Value)
		// Percentages stay over the agent's full total, sentinel rows included.
		assert.InDelta(t, 66.7, res.TopTowns[0].Percentage, 0.01)
	})
}
